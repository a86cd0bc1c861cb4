package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var advanceCmd = &cobra.Command{
	Use:   "advance [stage]",
	Short: "Move to the next stage",
	Long: `Move the plan's active stage forward. Without an argument the next
stage in order is targeted.

The move is allowed when the current stage is complete, the target's
predecessor is complete, and your tier unlocks the target. A blocked
move prints the reason instead of failing.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdvance,
}

func init() {
	rootCmd.AddCommand(advanceCmd)
}

func runAdvance(cmd *cobra.Command, args []string) error {
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

	target := ""
	if len(args) == 1 {
		if target, err = stageArg(args, plan); err != nil {
			return err
		}
	} else {
		idx := plan.StageIndex(plan.ActiveStage)
		if idx < 0 || idx == len(plan.Stages)-1 {
			fmt.Println("Already on the final stage.")
			return nil
		}
		target = plan.Stages[idx+1].ID
	}

	result, err := ctrl.Transition(cmd.Context(), target)
	if err != nil {
		return err
	}
	if !result.OK {
		fmt.Printf("Cannot enter %s: %s\n", target, result.Reason)
		return nil
	}
	fmt.Printf("Active stage: %s\n", target)
	return nil
}
