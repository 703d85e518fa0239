package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mpieniak01/venom/pkg/models"
)

var campaignResume string

var campaignCmd = &cobra.Command{
	Use:   "campaign <file | milestones...>",
	Short: "Run a multi-milestone campaign",
	Long: `Run a checkpointed campaign. The argument is either a file of
milestones (one "- " or "1. " entry per line) or the milestones inline.

Progress is checkpointed after every milestone. Use --resume with a task
ID to continue an interrupted campaign from its last completed milestone.`,
	RunE: runCampaign,
}

func init() {
	campaignCmd.Flags().StringVar(&campaignResume, "resume", "", "task ID of an interrupted campaign to resume")
}

func runCampaign(cmd *cobra.Command, args []string) error {
	if campaignResume == "" && len(args) == 0 {
		return fmt.Errorf("provide a milestones file, inline milestones, or --resume <task-id>")
	}

	engine, err := buildEngine(true)
	if err != nil {
		return err
	}
	defer engine.Close()

	var task *models.Task
	if campaignResume != "" {
		stored, err := engine.store.GetTask(campaignResume)
		if err != nil {
			return err
		}
		if stored == nil {
			return fmt.Errorf("no task with ID %q", campaignResume)
		}
		task, err = engine.orch.SubmitTask(stored)
		if err != nil {
			return err
		}
		fmt.Printf("%s resuming campaign %s\n", color.CyanString("→"), task.ID)
	} else {
		payload, err := campaignPayload(args)
		if err != nil {
			return err
		}
		task, err = engine.orch.Submit(payload, models.TaskTypeResearch, false)
		if err != nil {
			return err
		}
		fmt.Printf("%s campaign %s queued\n", color.CyanString("→"), task.ID)
	}

	if _, err := engine.orch.RunNext(cmd.Context()); err != nil {
		return err
	}
	printTaskOutcome(task)
	if task.Status != models.TaskStatusCompleted {
		os.Exit(1)
	}
	return nil
}

// campaignPayload reads milestones from a file when the single argument
// names one, otherwise treats each argument as a milestone.
func campaignPayload(args []string) (string, error) {
	if len(args) == 1 {
		if info, err := os.Stat(args[0]); err == nil && !info.IsDir() {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return "", fmt.Errorf("read milestones file: %w", err)
			}
			return string(data), nil
		}
	}

	var b strings.Builder
	for i, arg := range args {
		fmt.Fprintf(&b, "%d. %s\n", i+1, arg)
	}
	return b.String(), nil
}
