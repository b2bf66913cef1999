package domain

// Index is an id-keyed view over a StateView, built once per engine
// invocation so rule evaluation never rescans the slices. It borrows
// the snapshot's memory and must not outlive it.
type Index struct {
	WorkItems     map[string]*WorkItem
	Dependencies  map[string]*DependencyEdge
	Risks         map[string]*Risk
	Decisions     map[string]*Decision
	Milestones    map[string]*Milestone
	ownerByEntity map[string]string
}

func (s *StateView) Index() *Index {
	idx := &Index{
		WorkItems:     make(map[string]*WorkItem, len(s.WorkItems)),
		Dependencies:  make(map[string]*DependencyEdge, len(s.Dependencies)),
		Risks:         make(map[string]*Risk, len(s.Risks)),
		Decisions:     make(map[string]*Decision, len(s.Decisions)),
		Milestones:    make(map[string]*Milestone, len(s.Milestones)),
		ownerByEntity: make(map[string]string, len(s.Ownerships)),
	}
	for i := range s.WorkItems {
		idx.WorkItems[s.WorkItems[i].ID] = &s.WorkItems[i]
	}
	for i := range s.Dependencies {
		idx.Dependencies[s.Dependencies[i].ID] = &s.Dependencies[i]
	}
	for i := range s.Risks {
		idx.Risks[s.Risks[i].ID] = &s.Risks[i]
	}
	for i := range s.Decisions {
		idx.Decisions[s.Decisions[i].ID] = &s.Decisions[i]
	}
	for i := range s.Milestones {
		idx.Milestones[s.Milestones[i].ID] = &s.Milestones[i]
	}
	for i := range s.Ownerships {
		o := &s.Ownerships[i]
		if _, taken := idx.ownerByEntity[o.EntityID]; !taken {
			idx.ownerByEntity[o.EntityID] = o.OwnerActorID
		}
	}
	return idx
}

// OwnerOf returns the actor accountable for an entity, or fallback
// when no ownership record names it.
func (idx *Index) OwnerOf(entityID, fallback string) string {
	if owner, ok := idx.ownerByEntity[entityID]; ok && owner != "" {
		return owner
	}
	return fallback
}
