package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"driftline/internal/config"
	"driftline/internal/dates"
	"driftline/internal/domain"
	"driftline/internal/forecast"
	"driftline/internal/rules"
	"driftline/internal/world"
)

var rootCmd = &cobra.Command{
	Use:   "dl",
	Short: "Driftline CLI",
	Long: `Driftline forecasts milestone completion dates and turns project events into commands.
- Forecast: P50/P80 dates for a milestone from its dependency graph, risks, and decisions, with a ranked list of why the date moved.
- Scenario: what-if runs (delay a dependency, change scope, change capacity) diffed against the baseline.
- Mitigation: preview how much a risk mitigation would buy before committing to it.
- Rules: feed a state-change event through the decision-risk rules and get the commands an executor should apply.
State comes from a world JSON document; nothing is ever written back to it.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("DRIFTLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("world", "w", "world.json", "world document path")
	rootCmd.PersistentFlags().String("config", "driftline.yml", "config file path")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("as-of", "", "pin the forecast clock (RFC3339 or YYYY-MM-DD)")
	_ = viper.BindPFlag("world", rootCmd.PersistentFlags().Lookup("world"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("as-of", rootCmd.PersistentFlags().Lookup("as-of"))
}

func registerCommands() {
	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(scenarioCmd())
	rootCmd.AddCommand(mitigationCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(eventCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(worldCmd())
	rootCmd.AddCommand(configCmd())
}

func loadConfig() (*config.Config, error) {
	return config.LoadOptional(viper.GetString("config"))
}

func loadWorld() (*domain.StateView, error) {
	return world.Load(viper.GetString("world"))
}

func forecastOptions() (forecast.Options, error) {
	opts := forecast.Options{}
	if raw := viper.GetString("as-of"); raw != "" {
		t, ok := dates.Coerce(raw)
		if !ok {
			return opts, fmt.Errorf("unparsable --as-of value %q", raw)
		}
		opts.AsOf = t
	}
	return opts, nil
}

func forecastCmd() *cobra.Command {
	var milestoneID string
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Baseline P50/P80 forecast for a milestone",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			state, err := loadWorld()
			if err != nil {
				return err
			}
			opts, err := forecastOptions()
			if err != nil {
				return err
			}
			result, err := forecast.New(cfg).Forecast(milestoneID, state, opts)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(result)
			}
			fmt.Println(result.Explanation)
			fmt.Println()
			renderContributions(result.Contributions)
			return nil
		},
	}
	cmd.Flags().StringVar(&milestoneID, "milestone", "", "milestone id")
	_ = cmd.MarkFlagRequired("milestone")
	return cmd
}

func scenarioCmd() *cobra.Command {
	var milestoneID, scenarioType, workItemID string
	var delayDays, effortDelta, capacityMultiplier float64
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Compare a what-if scenario against the baseline forecast",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			state, err := loadWorld()
			if err != nil {
				return err
			}
			opts, err := forecastOptions()
			if err != nil {
				return err
			}
			sc := forecast.Scenario{
				Type:               forecast.ScenarioType(scenarioType),
				WorkItemID:         workItemID,
				DelayDays:          delayDays,
				EffortDeltaDays:    effortDelta,
				CapacityMultiplier: capacityMultiplier,
			}
			cmp, err := forecast.New(cfg).CompareScenario(milestoneID, state, sc, opts)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cmp)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"", "P50", "P80", "Delta P80 (days)"})
			tw.AppendRow(table.Row{"baseline", cmp.Baseline.P50Date.Format("2006-01-02"), cmp.Baseline.P80Date.Format("2006-01-02"), fmt.Sprintf("%+.1f", cmp.Baseline.DeltaP80Days)})
			tw.AppendRow(table.Row{"scenario", cmp.Scenario.P50Date.Format("2006-01-02"), cmp.Scenario.P80Date.Format("2006-01-02"), fmt.Sprintf("%+.1f", cmp.Scenario.DeltaP80Days)})
			tw.Render()
			fmt.Printf("\nScenario impact: %+.1f days (P80)\n\n", cmp.ImpactDays)
			renderContributions(cmp.Scenario.Contributions)
			return nil
		},
	}
	cmd.Flags().StringVar(&milestoneID, "milestone", "", "milestone id")
	cmd.Flags().StringVar(&scenarioType, "type", "", "scenario type (dependency_delay, scope_change, capacity_change)")
	cmd.Flags().StringVar(&workItemID, "work-item", "", "work item to delay (dependency_delay)")
	cmd.Flags().Float64Var(&delayDays, "delay-days", 0, "delay in days (dependency_delay)")
	cmd.Flags().Float64Var(&effortDelta, "effort-delta-days", 0, "effort delta in days (scope_change)")
	cmd.Flags().Float64Var(&capacityMultiplier, "capacity-multiplier", 1.0, "capacity multiplier (capacity_change)")
	_ = cmd.MarkFlagRequired("milestone")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func mitigationCmd() *cobra.Command {
	var milestoneID, riskID string
	var reductionDays float64
	cmd := &cobra.Command{
		Use:   "mitigation",
		Short: "Preview the forecast impact of mitigating a risk",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			state, err := loadWorld()
			if err != nil {
				return err
			}
			opts, err := forecastOptions()
			if err != nil {
				return err
			}
			m := forecast.Mitigation{RiskID: riskID}
			if cmd.Flags().Changed("reduction-days") {
				m.ExpectedImpactReductionDays = &reductionDays
			}
			preview, err := forecast.New(cfg).MitigationImpact(milestoneID, state, m, opts)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(preview)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"", "P80", "Delta P80 (days)"})
			tw.AppendRow(table.Row{"current", preview.Current.P80Date.Format("2006-01-02"), fmt.Sprintf("%+.1f", preview.Current.DeltaP80Days)})
			tw.AppendRow(table.Row{"with mitigation", preview.WithMitigation.P80Date.Format("2006-01-02"), fmt.Sprintf("%+.1f", preview.WithMitigation.DeltaP80Days)})
			tw.Render()
			fmt.Printf("\nImprovement: %.1f days -> %s\n", preview.ImprovementDays, preview.Recommendation)
			return nil
		},
	}
	cmd.Flags().StringVar(&milestoneID, "milestone", "", "milestone id")
	cmd.Flags().StringVar(&riskID, "risk", "", "risk id")
	cmd.Flags().Float64Var(&reductionDays, "reduction-days", 0, "expected impact reduction in days")
	_ = cmd.MarkFlagRequired("milestone")
	_ = cmd.MarkFlagRequired("risk")
	return cmd
}

func summaryCmd() *cobra.Command {
	var milestoneID string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Condensed forecast for a status board",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			state, err := loadWorld()
			if err != nil {
				return err
			}
			opts, err := forecastOptions()
			if err != nil {
				return err
			}
			s, err := forecast.New(cfg).Summary(milestoneID, state, opts)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(s)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Milestone", "Target", "P50", "P80", "Status", "Confidence"})
			tw.AppendRow(table.Row{
				s.Name,
				s.BaselineDate.Format("2006-01-02"),
				s.P50Date.Format("2006-01-02"),
				s.P80Date.Format("2006-01-02"),
				s.Status,
				s.Confidence,
			})
			tw.Render()
			fmt.Println()
			renderContributions(s.TopContributors)
			return nil
		},
	}
	cmd.Flags().StringVar(&milestoneID, "milestone", "", "milestone id")
	_ = cmd.MarkFlagRequired("milestone")
	return cmd
}

func eventCmd() *cobra.Command {
	var eventType, dependencyID, riskID, riskStatus, decisionID, changeID, milestoneID string
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Process an event through the decision-risk rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			state, err := loadWorld()
			if err != nil {
				return err
			}
			ev := rules.Event{
				ID:           uuid.NewString(),
				Type:         rules.EventType(eventType),
				DependencyID: dependencyID,
				RiskID:       riskID,
				RiskStatus:   riskStatus,
				DecisionID:   decisionID,
				ChangeID:     changeID,
				MilestoneID:  milestoneID,
			}
			if raw := viper.GetString("as-of"); raw != "" {
				t, ok := dates.Coerce(raw)
				if !ok {
					return fmt.Errorf("unparsable --as-of value %q", raw)
				}
				ev.Timestamp = t
			}
			commands, err := rules.New(cfg).ProcessEvent(ev, state)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(commands)
			}
			if len(commands) == 0 {
				fmt.Println("no rule matched; no commands")
				return nil
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Command", "Type", "Target", "Rule", "Priority"})
			for _, c := range commands {
				tw.AppendRow(table.Row{c.ID, c.Type, c.TargetID, c.RuleName, c.Priority})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&eventType, "type", "", "event type (e.g. dependency_blocked)")
	cmd.Flags().StringVar(&dependencyID, "dependency", "", "dependency id")
	cmd.Flags().StringVar(&riskID, "risk", "", "risk id")
	cmd.Flags().StringVar(&riskStatus, "risk-status", "", "risk status carried by the event")
	cmd.Flags().StringVar(&decisionID, "decision", "", "decision id")
	cmd.Flags().StringVar(&changeID, "change", "", "change id")
	cmd.Flags().StringVar(&milestoneID, "milestone", "", "milestone id")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the decision-risk rules in evaluation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			names := rules.New(cfg).RuleNames()
			if viper.GetBool("json") {
				return printJSON(names)
			}
			for i, name := range names {
				fmt.Printf("%d. %s\n", i+1, name)
			}
			return nil
		},
	}
	return cmd
}

func worldCmd() *cobra.Command {
	w := &cobra.Command{Use: "world", Short: "Inspect world documents"}
	w.AddCommand(worldValidateCmd())
	return w
}

func worldValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a world document and report consistency issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := loadWorld()
			if err != nil {
				return err
			}
			issues := world.Lint(state)
			if viper.GetBool("json") {
				return printJSON(map[string]any{"issues": issues, "valid": len(issues) == 0})
			}
			if len(issues) == 0 {
				fmt.Printf("world ok: %d milestones, %d work items, %d risks, %d decisions\n",
					len(state.Milestones), len(state.WorkItems), len(state.Risks), len(state.Decisions))
				return nil
			}
			for _, issue := range issues {
				fmt.Println("issue:", issue)
			}
			return fmt.Errorf("%d issue(s) found", len(issues))
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	c := &cobra.Command{Use: "config", Short: "Manage engine configuration"}
	c.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := viper.GetString("config")
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	})
	return c
}

func renderContributions(contributions []forecast.Contribution) {
	if len(contributions) == 0 {
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Cause", "Days"})
	for _, c := range contributions {
		tw.AppendRow(table.Row{c.Cause, fmt.Sprintf("%+.1f", c.Days)})
	}
	tw.Render()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
