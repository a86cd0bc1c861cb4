package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/venturelab/compass/internal/pipeline"
	"github.com/venturelab/compass/internal/session"
	"github.com/venturelab/compass/internal/tui"
)

var initInteractive bool

var initCmd = &cobra.Command{
	Use:   "init <idea name>",
	Short: "Create a workspace and start a new idea",
	Long: `Initialize a .compass workspace in the current directory and create a
new plan for the given idea. The plan starts in the Discovery stage.

Examples:
  # Start a new idea
  compass init "offline fleet tracker"

  # Start and fill in the Discovery stage right away
  compass init "offline fleet tracker" --interactive`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "open the Discovery form after creating the plan")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	ideaName := strings.TrimSpace(strings.Join(args, " "))
	if ideaName == "" {
		return fmt.Errorf("idea name must not be empty")
	}

	s, err := session.Init(rootWorkspace)
	if err != nil {
		return err
	}
	defer s.Close()

	if existing := s.CurrentPlanID(); existing != "" {
		return fmt.Errorf("workspace already tracks plan %s (use 'compass reset' to start over)", existing)
	}

	plan := pipeline.New(ideaName)
	ctx := cmd.Context()
	if err := s.Store.Save(ctx, plan.ID, plan); err != nil {
		return err
	}
	if err := s.SetCurrentPlanID(plan.ID); err != nil {
		return err
	}

	fmt.Printf("Created plan %s for %q\n", plan.ID, ideaName)
	fmt.Println("Active stage: Discovery")

	if !initInteractive {
		fmt.Println("\nNext: 'compass task edit' to capture the idea, then 'compass status'.")
		return nil
	}

	ctrl := pipeline.NewController(plan, s.Store, s.Gate, s.Logger)
	answers, err := tui.StageForm(plan.Stage(pipeline.StageDiscovery))
	if err != nil {
		return err
	}
	for taskID, content := range answers {
		if content == "" {
			continue
		}
		if err := ctrl.Dispatch(ctx, pipeline.SetContent{
			StageID: pipeline.StageDiscovery, TaskID: taskID, Content: content,
		}); err != nil {
			return err
		}
		if err := ctrl.Dispatch(ctx, pipeline.SetStatus{
			StageID: pipeline.StageDiscovery, TaskID: taskID, Status: pipeline.StatusCompleted,
		}); err != nil {
			return err
		}
	}
	fmt.Println("\nDiscovery notes saved. Run 'compass advance validation' when you are ready.")
	return nil
}
