package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/venturelab/compass/internal/pipeline"
	"github.com/venturelab/compass/internal/tui"
)

var taskStage string

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect and work on tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tasks of a stage",
	RunE:  runTaskList,
}

var taskStartCmd = &cobra.Command{
	Use:   "start <task-id>",
	Short: "Mark a task as in progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTaskStatus(cmd, args[0], pipeline.StatusInProgress)
	},
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Mark a task as completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTaskStatus(cmd, args[0], pipeline.StatusCompleted)
	},
}

var taskReopenCmd = &cobra.Command{
	Use:   "reopen <task-id>",
	Short: "Move a task back to not started",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTaskStatus(cmd, args[0], pipeline.StatusNotStarted)
	},
}

var taskModeCmd = &cobra.Command{
	Use:   "mode <task-id> <auto|manual>",
	Short: "Switch a task between synthesized and hand-written content",
	Long: `Switch a synthesized task between auto and manual mode.

Switching to manual copies the currently displayed content as your
editing starting point. Switching back to auto restores the synthesized
content; your manual text is kept and comes back if you switch again.`,
	Args: cobra.ExactArgs(2),
	RunE: runTaskMode,
}

var taskEditCmd = &cobra.Command{
	Use:   "edit [task-id]",
	Short: "Edit task content interactively",
	Long: `Open an editor form for a task. Without a task ID, the form covers
every editable task of the stage.

Notes tasks are always editable. Synthesized tasks must be switched to
manual mode first ('compass task mode <task-id> manual').`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTaskEdit,
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Print a task's active content",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

func init() {
	taskCmd.PersistentFlags().StringVarP(&taskStage, "stage", "s", "", "stage to operate on (defaults to the active stage)")

	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskStartCmd)
	taskCmd.AddCommand(taskCompleteCmd)
	taskCmd.AddCommand(taskReopenCmd)
	taskCmd.AddCommand(taskModeCmd)
	taskCmd.AddCommand(taskEditCmd)
	taskCmd.AddCommand(taskShowCmd)
	rootCmd.AddCommand(taskCmd)
}

func resolveStage(plan *pipeline.Pipeline) (string, error) {
	if taskStage == "" {
		return plan.ActiveStage, nil
	}
	if plan.Stage(taskStage) == nil {
		return "", fmt.Errorf("unknown stage %q", taskStage)
	}
	return taskStage, nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctrl, err := loadController(cmd.Context(), s)
	if err != nil {
		return err
	}
	stageID, err := resolveStage(ctrl.Plan())
	if err != nil {
		return err
	}
	stage := ctrl.Plan().Stage(stageID)

	fmt.Printf("%s tasks:\n", stage.Title)
	visible := s.Gate.VisibleTasks(ctrl.Plan(), stageID)
	for i := range stage.Tasks {
		t := &stage.Tasks[i]
		if i >= visible {
			fmt.Printf("  %-20s (locked on %s tier)\n", t.ID, s.Tier)
			continue
		}
		flags := ""
		if t.Kind == pipeline.KindSynth {
			flags = " [" + string(t.Mode) + "]"
		}
		if t.Stale {
			flags += " (stale)"
		}
		if t.SynthError != "" {
			flags += " (synthesis failed)"
		}
		fmt.Printf("  %-20s %-12s %s%s\n", t.ID, t.Status, t.Title, flags)
	}
	return nil
}

func setTaskStatus(cmd *cobra.Command, taskID string, status pipeline.Status) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctrl, err := loadController(cmd.Context(), s)
	if err != nil {
		return err
	}
	stageID, err := resolveStage(ctrl.Plan())
	if err != nil {
		return err
	}

	if err := ctrl.Dispatch(cmd.Context(), pipeline.SetStatus{
		StageID: stageID, TaskID: taskID, Status: status,
	}); err != nil {
		return err
	}
	fmt.Printf("%s/%s -> %s\n", stageID, taskID, status)
	return nil
}

func runTaskMode(cmd *cobra.Command, args []string) error {
	mode := pipeline.Mode(args[1])
	if mode != pipeline.ModeAuto && mode != pipeline.ModeManual {
		return fmt.Errorf("mode must be 'auto' or 'manual', got %q", args[1])
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctrl, err := loadController(cmd.Context(), s)
	if err != nil {
		return err
	}
	stageID, err := resolveStage(ctrl.Plan())
	if err != nil {
		return err
	}

	if err := ctrl.Dispatch(cmd.Context(), pipeline.SetMode{
		StageID: stageID, TaskID: args[0], Mode: mode,
	}); err != nil {
		return err
	}
	fmt.Printf("%s/%s -> %s mode\n", stageID, args[0], mode)
	return nil
}

func runTaskEdit(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctrl, err := loadController(cmd.Context(), s)
	if err != nil {
		return err
	}
	stageID, err := resolveStage(ctrl.Plan())
	if err != nil {
		return err
	}
	stage := ctrl.Plan().Stage(stageID)
	ctx := cmd.Context()

	if len(args) == 1 {
		task := stage.Task(args[0])
		if task == nil {
			return fmt.Errorf("unknown task %q in stage %s", args[0], stageID)
		}
		content, err := tui.EditTaskForm(task)
		if err != nil {
			return err
		}
		return ctrl.Dispatch(ctx, pipeline.SetContent{
			StageID: stageID, TaskID: task.ID, Content: content,
		})
	}

	answers, err := tui.StageForm(stage)
	if err != nil {
		return err
	}
	if len(answers) == 0 {
		fmt.Println("Nothing editable in this stage; its tasks are auto-synthesized.")
		return nil
	}
	for taskID, content := range answers {
		if err := ctrl.Dispatch(ctx, pipeline.SetContent{
			StageID: stageID, TaskID: taskID, Content: content,
		}); err != nil {
			return err
		}
	}
	fmt.Printf("Saved %d tasks in %s.\n", len(answers), stage.Title)
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctrl, err := loadController(cmd.Context(), s)
	if err != nil {
		return err
	}
	stageID, err := resolveStage(ctrl.Plan())
	if err != nil {
		return err
	}
	task := ctrl.Plan().Stage(stageID).Task(args[0])
	if task == nil {
		return fmt.Errorf("unknown task %q in stage %s", args[0], stageID)
	}

	fmt.Printf("%s (%s, %s)\n", task.Title, task.Status, task.Mode)
	if task.Stale {
		fmt.Println("Content is stale; run 'compass refresh' to regenerate.")
	}
	if task.SynthError != "" {
		fmt.Printf("Last synthesis failed: %s\n", task.SynthError)
	}
	fmt.Println()
	if content := task.ActiveContent(); content != "" {
		fmt.Println(content)
	} else {
		fmt.Println("(empty)")
	}
	return nil
}
