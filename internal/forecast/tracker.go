package forecast

import (
	"math"
	"sort"
)

// Contribution is one labeled cause of schedule movement. Positive days
// are slip, negative days are improvement.
type Contribution struct {
	Cause string  `json:"cause"`
	Days  float64 `json:"days"`
}

// tracker is the append-only attribution ledger threaded through a
// single forecast run. Entries below the materiality threshold are
// dropped at insert time.
type tracker struct {
	threshold     float64
	contributions []Contribution
}

func newTracker(threshold float64) *tracker {
	return &tracker{threshold: threshold}
}

func (t *tracker) Add(cause string, days float64) {
	if math.Abs(days) < t.threshold {
		return
	}
	t.contributions = append(t.contributions, Contribution{Cause: cause, Days: days})
}

// Sorted returns contributions ordered by magnitude, largest first,
// with days rounded to a tenth. The sort is stable so equal-magnitude
// causes keep insertion order and repeated runs agree exactly.
func (t *tracker) Sorted() []Contribution {
	out := make([]Contribution, len(t.contributions))
	for i, c := range t.contributions {
		c.Days = math.Round(c.Days*10) / 10
		out[i] = c
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Days) > math.Abs(out[j].Days)
	})
	return out
}
