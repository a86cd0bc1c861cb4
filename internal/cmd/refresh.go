package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/venturelab/compass/internal/pipeline"
	"github.com/venturelab/compass/internal/reconcile"
)

var refreshCheckOnly bool

var refreshCmd = &cobra.Command{
	Use:   "refresh [stage]",
	Short: "Regenerate stale synthesized content",
	Long: `Check every stage against its upstream data and regenerate the stale
synthesized tasks of one stage (the active stage by default).

Content is regenerated only when upstream data actually changed since
the last synthesis; an unchanged plan makes no provider calls. Tasks in
manual mode are never touched.

Examples:
  compass refresh
  compass refresh mvp
  compass refresh --check`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshCheckOnly, "check", false, "only mark staleness, do not call the provider")
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctrl, err := loadController(cmd.Context(), s)
	if err != nil {
		return err
	}
	stageID, err := stageArg(args, ctrl.Plan())
	if err != nil {
		return err
	}

	provider, err := s.Provider()
	if err != nil {
		return err
	}
	r := reconcile.New(ctrl, provider, s.Logger)
	ctx := cmd.Context()

	if err := r.CheckAll(ctx); err != nil {
		return err
	}
	if refreshCheckOnly {
		printStaleSummary(ctrl.Plan())
		return nil
	}

	s.Logger.Info("refreshing stage", "stage", stageID, "provider", provider.Info().Name)
	if err := r.RefreshStage(ctx, stageID); err != nil {
		return err
	}

	stage := ctrl.Plan().Stage(stageID)
	failed := 0
	for i := range stage.Tasks {
		if stage.Tasks[i].SynthError != "" {
			failed++
		}
	}
	if failed > 0 {
		fmt.Printf("Refreshed %s with %d failures; run 'compass refresh %s' to retry.\n",
			stage.Title, failed, stageID)
		return nil
	}
	fmt.Printf("%s is up to date.\n", stage.Title)
	return nil
}

func printStaleSummary(plan *pipeline.Pipeline) {
	stale := 0
	for i := range plan.Stages {
		for j := range plan.Stages[i].Tasks {
			t := &plan.Stages[i].Tasks[j]
			if t.Stale {
				fmt.Printf("stale: %s/%s\n", plan.Stages[i].ID, t.ID)
				stale++
			}
		}
	}
	if stale == 0 {
		fmt.Println("Everything is up to date.")
	}
}
