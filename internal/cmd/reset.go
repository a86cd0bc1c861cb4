package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/venturelab/compass/internal/pipeline"
	"github.com/venturelab/compass/internal/tui"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the current plan and start over",
	Long: `Delete the current plan and create a fresh one for the same idea. All
notes, synthesized content, and progress are lost.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctrl, err := loadController(cmd.Context(), s)
	if err != nil {
		return err
	}
	old := ctrl.Plan()

	if !resetForce {
		ok, err := tui.Confirm(
			fmt.Sprintf("Reset %q?", old.IdeaName),
			"All notes, synthesized content, and progress will be lost.")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Reset cancelled.")
			return nil
		}
	}

	ctx := cmd.Context()
	if err := s.Store.Delete(ctx, old.ID); err != nil {
		return err
	}

	fresh := pipeline.New(old.IdeaName)
	if err := s.Store.Save(ctx, fresh.ID, fresh); err != nil {
		return err
	}
	if err := s.SetCurrentPlanID(fresh.ID); err != nil {
		return err
	}

	s.Logger.Info("plan reset", "old_plan", old.ID, "new_plan", fresh.ID)
	fmt.Printf("Started over: plan %s for %q.\n", fresh.ID, fresh.IdeaName)
	return nil
}
