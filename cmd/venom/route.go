package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mpieniak01/venom/pkg/models"
)

var (
	routeType       string
	routeStructured bool
)

var routeCmd = &cobra.Command{
	Use:   "route <payload...>",
	Short: "Show the routing decision for a payload without calling a backend",
	Long: `Dry-run the routing engine: classify the payload, apply the sensitivity
override and complexity scoring, walk the governed fallback chain, and
print the decision that a real call would use. No backend is invoked and
no budget is spent.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoute,
}

func init() {
	routeCmd.Flags().StringVarP(&routeType, "type", "t", string(models.TaskTypeStandard), "task type")
	routeCmd.Flags().BoolVar(&routeStructured, "structured", false, "require machine-parseable output")
}

func runRoute(cmd *cobra.Command, args []string) error {
	engine, err := buildEngine(false)
	if err != nil {
		return err
	}
	defer engine.Close()

	payload := strings.Join(args, " ")
	taskType := models.TaskType(routeType)
	if !taskType.Valid() {
		return fmt.Errorf("unknown task type %q", routeType)
	}

	d := engine.router.Route(taskType, payload, routeStructured)

	target := d.Target
	if target == "" {
		target = color.RedString("(no viable backend)")
	} else {
		target = color.GreenString(target)
	}

	fmt.Printf("target:      %s\n", target)
	if d.Model != "" {
		fmt.Printf("model:       %s\n", d.Model)
	}
	fmt.Printf("class:       %s\n", d.Class)
	fmt.Printf("reason:      %s\n", d.Reason)
	fmt.Printf("score:       %.1f\n", d.ComplexityScore)
	fmt.Printf("sensitive:   %v\n", d.Sensitive)
	fmt.Printf("gate passed: %v\n", d.PolicyGatePassed)
	if d.FallbackApplied {
		fmt.Printf("fallback:    %v\n", d.FallbackChain)
	}
	if d.EstimatedCost > 0 {
		fmt.Printf("est. cost:   $%.4f\n", d.EstimatedCost)
	}
	fmt.Printf("workflow:    %s\n", models.WorkflowForType(taskType))
	return nil
}
