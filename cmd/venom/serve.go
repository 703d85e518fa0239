package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mpieniak01/venom/internal/orchestrator"
	"github.com/mpieniak01/venom/internal/provider"
	"github.com/mpieniak01/venom/pkg/models"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the worker pool until interrupted",
	Long: `Start the orchestrator workers and keep processing queued tasks.

While serving, control files dropped into the signals directory steer the
pool: "pause" holds workers before their next dequeue, "resume" releases
them, and "kill" shuts the pool down. Ctrl-C also shuts down cleanly.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	engine, err := buildEngine(true)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	watcher, err := orchestrator.WatchSignals(engine.cfg.Queue.SignalsDir, engine.orch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "signal watcher unavailable: %v\n", err)
	} else {
		defer watcher.Close()
	}

	if engine.cfg.Providers.CatalogPath != "" {
		catalogWatcher, err := provider.WatchCatalog(engine.cfg.Providers.CatalogPath, engine.registry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "catalog watcher unavailable: %v\n", err)
		} else {
			defer catalogWatcher.Close()
		}
	}

	requeuePending(engine)
	engine.orch.Start(ctx)
	fmt.Printf("%s venom serving with %d worker(s), signals in %s\n",
		color.CyanString("→"), engine.cfg.Queue.Workers, engine.cfg.Queue.SignalsDir)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-interrupt:
			fmt.Println("\nshutting down...")
			cancel()
			engine.orch.Stop()
			return nil
		case event, ok := <-engine.orch.Events():
			if !ok {
				return nil
			}
			printEvent(event)
			if event.Type == orchestrator.EventStopped {
				cancel()
				return nil
			}
		}
	}
}

// requeuePending re-enqueues tasks that were submitted but never processed,
// typically by "venom submit" while no pool was running.
func requeuePending(engine *engine) {
	pending, err := engine.store.ListTasks(models.TaskStatusPending, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pending task lookup failed: %v\n", err)
		return
	}
	// ListTasks returns newest first; requeue oldest first.
	for i := len(pending) - 1; i >= 0; i-- {
		if _, err := engine.orch.SubmitTask(pending[i]); err != nil {
			fmt.Fprintf(os.Stderr, "requeue task %s failed: %v\n", pending[i].ID, err)
		}
	}
	if len(pending) > 0 {
		fmt.Printf("%s requeued %d pending task(s)\n", color.CyanString("→"), len(pending))
	}
}

func printEvent(event orchestrator.Event) {
	stamp := event.Timestamp.Format("15:04:05")
	switch event.Type {
	case orchestrator.EventTaskCompleted:
		fmt.Printf("%s %s task %s %s\n", stamp, color.GreenString("✓"), event.TaskID, event.Message)
	case orchestrator.EventTaskFailed:
		fmt.Printf("%s %s task %s failed: %v\n", stamp, color.RedString("✗"), event.TaskID, event.Error)
	case orchestrator.EventTaskBlocked:
		fmt.Printf("%s %s task %s blocked (%s)\n", stamp, color.RedString("✗"), event.TaskID, event.Reason)
	case orchestrator.EventDecision:
		fmt.Printf("%s %s %s\n", stamp, color.New(color.Faint).Sprint("·"), event.Message)
	case orchestrator.EventPaused:
		fmt.Printf("%s %s processing paused\n", stamp, color.YellowString("⏸"))
	case orchestrator.EventResumed:
		fmt.Printf("%s %s processing resumed\n", stamp, color.GreenString("▶"))
	default:
		fmt.Printf("%s • %s %s\n", stamp, event.Type, event.TaskID)
	}
}
