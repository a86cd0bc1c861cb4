package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/venturelab/compass/internal/pipeline"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show plan progress across all stages",
	Long: `Display the current plan: per-stage status, staleness, gate state, and
overall completion.

Examples:
  compass status
  compass status --format json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "text", "output format (text, json)")
	rootCmd.AddCommand(statusCmd)
}

// StatusReport is the machine-readable form of 'compass status'
type StatusReport struct {
	PlanID      string              `json:"plan_id"`
	IdeaName    string              `json:"idea_name"`
	Tier        string              `json:"tier"`
	ActiveStage string              `json:"active_stage"`
	Stages      []StageReport       `json:"stages"`
	Completion  pipeline.Completion `json:"completion"`
}

// StageReport summarizes one stage
type StageReport struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	Unlocked    bool   `json:"unlocked"`
	LockReason  string `json:"lock_reason,omitempty"`
	StaleTasks  int    `json:"stale_tasks"`
	SynthErrors int    `json:"synth_errors"`
	DoneTasks   int    `json:"done_tasks"`
	TotalTasks  int    `json:"total_tasks"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctrl, err := loadController(cmd.Context(), s)
	if err != nil {
		return err
	}
	plan := ctrl.Plan()

	report := StatusReport{
		PlanID:      plan.ID,
		IdeaName:    plan.IdeaName,
		Tier:        string(s.Tier),
		ActiveStage: plan.ActiveStage,
		Completion:  ctrl.Completion(),
	}
	for i := range plan.Stages {
		stage := &plan.Stages[i]
		sr := StageReport{
			ID:         stage.ID,
			Title:      stage.Title,
			Status:     string(stage.Status()),
			TotalTasks: len(stage.Tasks),
		}
		sr.Unlocked, sr.LockReason = s.Gate.Unlocked(plan, stage.ID)
		for j := range stage.Tasks {
			t := &stage.Tasks[j]
			if t.Status == pipeline.StatusCompleted {
				sr.DoneTasks++
			}
			if t.Stale {
				sr.StaleTasks++
			}
			if t.SynthError != "" {
				sr.SynthErrors++
			}
		}
		report.Stages = append(report.Stages, sr)
	}

	if statusFormat == "json" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal status report: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	printStatusText(&report)
	return nil
}

func printStatusText(r *StatusReport) {
	fmt.Printf("%s  (plan %s, %s tier)\n\n", r.IdeaName, r.PlanID, r.Tier)

	for _, sr := range r.Stages {
		marker := " "
		if sr.ID == r.ActiveStage {
			marker = ">"
		}
		fmt.Printf("%s %-12s %-12s %d/%d tasks", marker, sr.Title, sr.Status, sr.DoneTasks, sr.TotalTasks)
		if sr.StaleTasks > 0 {
			fmt.Printf("  (%d stale)", sr.StaleTasks)
		}
		if sr.SynthErrors > 0 {
			fmt.Printf("  (%d synthesis errors)", sr.SynthErrors)
		}
		if !sr.Unlocked {
			fmt.Printf("  [locked: %s]", sr.LockReason)
		}
		fmt.Println()
	}

	c := r.Completion
	fmt.Printf("\n%d of %d stages complete (%.0f%%)\n",
		c.CompletedStages, c.TotalStages, c.Fraction*100)
	if c.AllComplete {
		fmt.Println("All stages complete. Ship it.")
	}
}
