package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mpieniak01/venom/pkg/models"
)

var (
	submitType       string
	submitStructured bool
)

var submitCmd = &cobra.Command{
	Use:   "submit <task...>",
	Short: "Queue a task without running it",
	Long: `Validate a task and persist it as pending in the project database.
A running "venom serve" picks pending tasks up on its next start; "venom run"
processes a task immediately instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVarP(&submitType, "type", "t", string(models.TaskTypeStandard), "task type (standard, chat, coding_simple, coding_complex, analysis, generation, research, sensitive)")
	submitCmd.Flags().BoolVar(&submitStructured, "structured", false, "require machine-parseable output")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	engine, err := buildEngine(true)
	if err != nil {
		return err
	}
	defer engine.Close()

	task, err := engine.orch.Submit(strings.Join(args, " "), models.TaskType(submitType), submitStructured)
	if err != nil {
		return err
	}

	fmt.Printf("%s task %s queued (%s), workflow %s\n",
		color.CyanString("→"), task.ID, task.Type, models.WorkflowForType(task.Type))
	return nil
}
