package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mpieniak01/venom/internal/state"
	"github.com/mpieniak01/venom/pkg/models"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status [task-id]",
	Short: "Show recent tasks and their outcomes",
	Long: `Display recent tasks from the project database.

With a task ID, shows that task's full record including its routing
decision audit trail.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 20, "number of tasks to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	dbPath := state.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No tasks yet. Run 'venom run <task>' to start.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	if len(args) == 1 {
		return showTask(db, args[0])
	}

	tasks, err := db.ListTasks("", statusLimit)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks recorded.")
		return nil
	}

	for _, t := range tasks {
		fmt.Printf("%s  %s  %-14s %s\n", t.CreatedAt.Local().Format("Jan 02 15:04"), statusLabel(t.Status), t.Type, truncate(t.ID+"  "+t.Payload, 70))
	}
	return nil
}

func showTask(db *state.DB, id string) error {
	task, err := db.GetTask(id)
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("no task with ID %q", id)
	}

	fmt.Printf("task:    %s\n", task.ID)
	fmt.Printf("type:    %s\n", task.Type)
	fmt.Printf("status:  %s\n", statusLabel(task.Status))
	fmt.Printf("payload: %s\n", truncate(task.Payload, 120))
	if task.Summary != "" {
		fmt.Printf("summary: %s\n", task.Summary)
	}
	if task.Error != nil {
		fmt.Printf("error:   %v\n", task.Error)
	}
	if task.Result != "" {
		fmt.Println("\nresult:")
		fmt.Println(task.Result)
	}

	decisions, err := db.ListDecisions(id)
	if err != nil {
		return err
	}
	task.Decisions = decisions
	printDecisionTrail(task)
	return nil
}

func statusLabel(s models.TaskStatus) string {
	switch s {
	case models.TaskStatusCompleted:
		return color.GreenString("%-10s", s)
	case models.TaskStatusFailed, models.TaskStatusBlocked:
		return color.RedString("%-10s", s)
	case models.TaskStatusProcessing:
		return color.CyanString("%-10s", s)
	default:
		return fmt.Sprintf("%-10s", s)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
