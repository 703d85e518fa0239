package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mpieniak01/venom/pkg/models"
)

var (
	runType       string
	runStructured bool
)

var runCmd = &cobra.Command{
	Use:   "run <task...>",
	Short: "Submit a task and run it to completion",
	Long: `Submit a single task and process it synchronously on this process.

The task type selects the workflow: chat and standard tasks run directly,
analysis and generation consult a council, complex coding runs a review
loop, and research runs a checkpointed campaign.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runType, "type", "t", string(models.TaskTypeStandard), "task type (standard, chat, coding_simple, coding_complex, analysis, generation, research, sensitive)")
	runCmd.Flags().BoolVar(&runStructured, "structured", false, "require machine-parseable output")
}

func runRun(cmd *cobra.Command, args []string) error {
	engine, err := buildEngine(true)
	if err != nil {
		return err
	}
	defer engine.Close()

	payload := strings.Join(args, " ")
	task, err := engine.orch.Submit(payload, models.TaskType(runType), runStructured)
	if err != nil {
		return err
	}

	fmt.Printf("%s task %s queued (%s)\n", color.CyanString("→"), task.ID, task.Type)

	if _, err := engine.orch.RunNext(cmd.Context()); err != nil {
		return err
	}
	printTaskOutcome(task)
	if task.Status != models.TaskStatusCompleted {
		os.Exit(1)
	}
	return nil
}

// printTaskOutcome renders a finished task for the terminal.
func printTaskOutcome(task *models.Task) {
	switch task.Status {
	case models.TaskStatusCompleted:
		label := color.GreenString("✓ completed")
		if task.Partial {
			label = color.YellowString("⚠ completed (partial)")
		}
		fmt.Printf("%s %s\n", label, task.Summary)
		if task.Result != "" {
			fmt.Println()
			fmt.Println(task.Result)
		}
	case models.TaskStatusBlocked:
		fmt.Printf("%s %s\n", color.RedString("✗ blocked"), task.Error.Message)
		fmt.Printf("  reason: %s\n", task.Error.ReasonCode)
		fmt.Println("  blocked tasks are not retried; adjust config or budget and resubmit")
	default:
		fmt.Printf("%s %v\n", color.RedString("✗ failed"), task.Error)
		if task.Partial && task.Result != "" {
			fmt.Println("\npartial result:")
			fmt.Println(task.Result)
		}
	}
	printDecisionTrail(task)
}

func printDecisionTrail(task *models.Task) {
	if len(task.Decisions) == 0 {
		return
	}
	fmt.Println("\nrouting decisions:")
	for i, d := range task.Decisions {
		target := d.Target
		if target == "" {
			target = "(none)"
		}
		line := fmt.Sprintf("  %d. %s [%s] %s score=%.1f cost=$%.4f", i+1, target, d.Class, d.Reason, d.ComplexityScore, d.EstimatedCost)
		if d.FallbackApplied {
			line += fmt.Sprintf(" chain=%v", d.FallbackChain)
		}
		fmt.Println(line)
	}
}
