package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mpieniak01/venom/internal/exec"
	"github.com/mpieniak01/venom/pkg/models"
)

var (
	healType  string
	healCheck string
	healDir   string
)

var healCmd = &cobra.Command{
	Use:   "heal <failure description...>",
	Short: "Run a healing cycle against a failing state",
	Long: `Run the healing cycle: describe the failing state (a broken test, a
stack trace, a failing check) and venom iterates patch attempts, feeding
each validation failure back into the next attempt until the repair
budget runs out. With --check each attempt is validated by running the
given command; without it the built-in output checks apply.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHeal,
}

func init() {
	healCmd.Flags().StringVarP(&healType, "type", "t", string(models.TaskTypeCodingSimple), "task type for routing the patch attempts")
	healCmd.Flags().StringVarP(&healCheck, "check", "c", "", "shell command that validates each patch attempt (exit 0 = healed)")
	healCmd.Flags().StringVarP(&healDir, "dir", "d", "", "working directory for the check command")
}

func runHeal(cmd *cobra.Command, args []string) error {
	engine, err := buildEngine(true)
	if err != nil {
		return err
	}
	defer engine.Close()

	if healCheck != "" {
		engine.coordinator.SetValidator(exec.CheckCommand(exec.NewRunner(), healDir, healCheck))
	}

	task := &models.Task{
		ID:      uuid.New().String()[:8],
		Payload: strings.Join(args, " "),
		Type:    models.TaskType(healType),
		Status:  models.TaskStatusProcessing,
	}

	outcome, err := engine.coordinator.Heal(cmd.Context(), task, "")
	if err != nil {
		return err
	}

	if outcome.Partial {
		fmt.Printf("%s %s\n", color.YellowString("⚠"), outcome.Summary)
	} else {
		fmt.Printf("%s %s\n", color.GreenString("✓"), outcome.Summary)
	}
	if outcome.Result != "" {
		fmt.Println()
		fmt.Println(outcome.Result)
	}
	return nil
}
