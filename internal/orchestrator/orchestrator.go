package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mpieniak01/venom/internal/flow"
	"github.com/mpieniak01/venom/pkg/models"
)

var (
	// ErrInvalidTask indicates a submission that failed validation.
	ErrInvalidTask = errors.New("invalid task")
	// ErrQueueFull indicates the submission queue is at capacity.
	ErrQueueFull = errors.New("queue full")
	// ErrQueueEmpty indicates RunNext found no pending task.
	ErrQueueEmpty = errors.New("queue empty")
)

// Workflows executes a task's workflow. Satisfied by flow.Coordinator.
type Workflows interface {
	Execute(ctx context.Context, task *models.Task, contextBlob string) (*flow.Outcome, error)
}

// SessionHandler rebuilds context before a task runs and persists the
// exchange after it finishes. Satisfied by session.Handler.
type SessionHandler interface {
	BuildContext(task *models.Task) string
	Persist(task *models.Task) error
}

// Recorder persists task records and their decision audit trail.
// Satisfied by state.DB.
type Recorder interface {
	SaveTask(t *models.Task) error
	RecordDecision(taskID string, d *models.RoutingDecision) error
}

// LearningRecorder receives terminal task outcomes for offline analysis.
// Recording is fire-and-forget: errors are logged and never fail the task.
type LearningRecorder interface {
	Record(task *models.Task, outcome models.TaskStatus) error
}

// Orchestrator owns the task queue and worker pool. Every task moves
// pending -> processing -> {completed, failed, blocked}; a worker owns a
// task exclusively between dequeue and its terminal state.
type Orchestrator struct {
	workflows Workflows
	sessions  SessionHandler
	store     Recorder
	learning  LearningRecorder

	emitter *EventEmitter
	pause   *PauseController

	queue chan *models.Task
	done  chan struct{}

	mu    sync.RWMutex
	tasks map[string]*models.Task

	workers int
	wg      sync.WaitGroup

	newID func() string
	now   func() time.Time
}

// New creates an Orchestrator around the given workflow coordinator.
func New(workflows Workflows, opts ...Option) *Orchestrator {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Orchestrator{
		workflows: workflows,
		sessions:  options.sessions,
		store:     options.store,
		learning:  options.learning,
		emitter:   NewEventEmitter(options.eventBuffer),
		pause:     NewPauseController(),
		queue:     make(chan *models.Task, options.queueCapacity),
		done:      make(chan struct{}),
		tasks:     make(map[string]*models.Task),
		workers:   options.workers,
		newID:     options.newID,
		now:       time.Now,
	}
}

// Submit validates a task and enqueues it. An empty payload or unknown
// type is rejected with ErrInvalidTask; a full queue with ErrQueueFull.
// An empty type defaults to standard.
func (o *Orchestrator) Submit(payload string, taskType models.TaskType, structuredOutput bool) (*models.Task, error) {
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidTask)
	}
	if taskType == "" {
		taskType = models.TaskTypeStandard
	}
	if !taskType.Valid() {
		return nil, fmt.Errorf("%w: unknown task type %q", ErrInvalidTask, taskType)
	}

	task := &models.Task{
		ID:               o.newID(),
		Payload:          payload,
		Type:             taskType,
		Status:           models.TaskStatusPending,
		StructuredOutput: structuredOutput,
		CreatedAt:        o.now(),
	}
	return o.enqueue(task)
}

// SubmitTask enqueues a pre-built task, typically a resubmission of a
// blocked one. Submitting an ID that is already queued or processing is
// a no-op returning the existing task.
func (o *Orchestrator) SubmitTask(task *models.Task) (*models.Task, error) {
	if task.Payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidTask)
	}
	if !task.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown task type %q", ErrInvalidTask, task.Type)
	}

	o.mu.RLock()
	existing, ok := o.tasks[task.ID]
	o.mu.RUnlock()
	if ok && !existing.Status.Terminal() {
		return existing, nil
	}

	task.Status = models.TaskStatusPending
	task.Result = ""
	task.Partial = false
	task.Error = nil
	task.StartedAt = nil
	task.CompletedAt = nil
	if task.CreatedAt.IsZero() {
		task.CreatedAt = o.now()
	}
	return o.enqueue(task)
}

func (o *Orchestrator) enqueue(task *models.Task) (*models.Task, error) {
	if o.pause.IsStopped() {
		return nil, fmt.Errorf("%w: orchestrator stopped", ErrInvalidTask)
	}

	// Register and persist before publishing: the moment the task lands on
	// the queue a worker owns it exclusively and may start mutating fields
	// the save would read.
	o.mu.Lock()
	_, existed := o.tasks[task.ID]
	o.tasks[task.ID] = task
	o.mu.Unlock()

	if o.store != nil {
		if err := o.store.SaveTask(task); err != nil {
			log.Printf("[orchestrator] persist task %s failed: %v", task.ID, err)
		}
	}

	select {
	case o.queue <- task:
	default:
		if !existed {
			o.mu.Lock()
			delete(o.tasks, task.ID)
			o.mu.Unlock()
		}
		return nil, ErrQueueFull
	}

	o.emitter.Emit(Event{Type: EventTaskQueued, TaskID: task.ID, Timestamp: o.now()})
	return task, nil
}

// Start launches the worker pool. Workers run until the context is
// cancelled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) {
	for i := 0; i < o.workers; i++ {
		o.wg.Add(1)
		go func(id int) {
			defer o.wg.Done()
			o.workerLoop(ctx, id)
		}(i)
	}
	log.Printf("[orchestrator] started %d worker(s)", o.workers)
}

func (o *Orchestrator) workerLoop(ctx context.Context, id int) {
	for {
		if err := o.pause.WaitIfPaused(ctx); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-o.done:
			return
		case task, ok := <-o.queue:
			if !ok {
				return
			}
			o.runTask(ctx, task)
		}
	}
}

// RunNext synchronously processes the next pending task on the caller's
// goroutine. Returns ErrQueueEmpty if nothing is queued.
func (o *Orchestrator) RunNext(ctx context.Context) (*models.Task, error) {
	if err := o.pause.WaitIfPaused(ctx); err != nil {
		return nil, err
	}
	select {
	case task := <-o.queue:
		o.runTask(ctx, task)
		return task, nil
	default:
		return nil, ErrQueueEmpty
	}
}

// runTask owns the task from dequeue to terminal state. Panics in
// downstream components are converted into a structured failure instead
// of taking down the worker.
func (o *Orchestrator) runTask(ctx context.Context, task *models.Task) {
	o.transition(task, models.TaskStatusProcessing)
	started := o.now()
	task.StartedAt = &started
	o.emitter.Emit(Event{Type: EventTaskStarted, TaskID: task.ID, Timestamp: started})

	defer func() {
		if r := recover(); r != nil {
			o.finish(task, models.TaskStatusFailed, &models.ErrorEnvelope{
				Component: "orchestrator",
				Stage:     "execute",
				Message:   fmt.Sprintf("panic: %v", r),
			})
		}
	}()

	contextBlob := ""
	if o.sessions != nil {
		contextBlob = o.sessions.BuildContext(task)
	}

	outcome, err := o.workflows.Execute(ctx, task, contextBlob)
	if outcome != nil && outcome.Run != nil {
		o.recordDecisions(task, outcome.Run)
	}

	if err != nil {
		var blocked *flow.BlockedError
		if errors.As(err, &blocked) {
			o.finish(task, models.TaskStatusBlocked, &models.ErrorEnvelope{
				Component:  "router",
				Stage:      "governance",
				Message:    blocked.Error(),
				ReasonCode: blocked.Decision.Reason,
			})
			return
		}
		envelope := &models.ErrorEnvelope{
			Component: "flow",
			Stage:     "execute",
			Message:   err.Error(),
		}
		if outcome != nil && outcome.Result != "" {
			task.Result = outcome.Result
			task.Partial = outcome.Partial
		}
		o.finish(task, models.TaskStatusFailed, envelope)
		return
	}

	task.Result = outcome.Result
	task.Partial = outcome.Partial
	task.Summary = outcome.Summary
	o.finish(task, models.TaskStatusCompleted, nil)

	if o.sessions != nil {
		if perr := o.sessions.Persist(task); perr != nil {
			log.Printf("[orchestrator] session persist failed for task %s: %v", task.ID, perr)
		}
	}
}

func (o *Orchestrator) recordDecisions(task *models.Task, run *models.WorkflowRun) {
	for _, step := range run.Steps {
		if step.Decision == nil {
			continue
		}
		task.Decisions = append(task.Decisions, step.Decision)
		if o.store != nil {
			if err := o.store.RecordDecision(task.ID, step.Decision); err != nil {
				log.Printf("[orchestrator] record decision for task %s failed: %v", task.ID, err)
			}
		}
		if record, err := json.Marshal(step.Decision); err == nil {
			o.emitter.Emit(Event{Type: EventDecision, TaskID: task.ID, Message: string(record), Reason: step.Decision.Reason, Timestamp: o.now()})
		}
	}
}

func (o *Orchestrator) transition(task *models.Task, next models.TaskStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !task.Status.CanTransition(next) {
		log.Printf("[orchestrator] illegal transition %s -> %s for task %s", task.Status, next, task.ID)
		return
	}
	task.Status = next
}

func (o *Orchestrator) finish(task *models.Task, status models.TaskStatus, envelope *models.ErrorEnvelope) {
	o.transition(task, status)
	completed := o.now()
	task.CompletedAt = &completed
	task.Error = envelope

	if o.store != nil {
		if err := o.store.SaveTask(task); err != nil {
			log.Printf("[orchestrator] persist task %s failed: %v", task.ID, err)
		}
	}

	event := Event{TaskID: task.ID, Timestamp: completed}
	switch status {
	case models.TaskStatusCompleted:
		event.Type = EventTaskCompleted
		event.Message = task.Summary
	case models.TaskStatusBlocked:
		event.Type = EventTaskBlocked
		event.Error = envelope
		if envelope != nil {
			event.Reason = envelope.ReasonCode
		}
	default:
		event.Type = EventTaskFailed
		event.Error = envelope
	}
	o.emitter.Emit(event)

	if o.learning != nil {
		if err := o.learning.Record(task, status); err != nil {
			log.Printf("[orchestrator] learning record for task %s failed: %v", task.ID, err)
		}
	}
}

// Pause pauses task processing. In-flight tasks run to completion.
func (o *Orchestrator) Pause() {
	o.pause.Pause()
	o.emitter.Emit(Event{Type: EventPaused, Timestamp: o.now()})
}

// Resume resumes task processing after a pause.
func (o *Orchestrator) Resume() {
	o.pause.Resume()
	o.emitter.Emit(Event{Type: EventResumed, Timestamp: o.now()})
}

// Paused reports whether processing is currently paused.
func (o *Orchestrator) Paused() bool {
	return o.pause.IsPaused()
}

// Stop shuts the orchestrator down: no new work is accepted and the call
// blocks until in-flight tasks settle.
func (o *Orchestrator) Stop() {
	o.pause.Stop()
	close(o.done)
	o.wg.Wait()
	o.emitter.Emit(Event{Type: EventStopped, Timestamp: o.now()})
	o.emitter.Close()
}

// Events returns the subscriber channel for orchestrator events.
func (o *Orchestrator) Events() <-chan Event {
	return o.emitter.Events()
}

// Get returns the task with the given ID, or nil if unknown.
func (o *Orchestrator) Get(id string) *models.Task {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.tasks[id]
}

// List returns all tasks known to this orchestrator instance.
func (o *Orchestrator) List() []*models.Task {
	o.mu.RLock()
	defer o.mu.RUnlock()
	tasks := make([]*models.Task, 0, len(o.tasks))
	for _, t := range o.tasks {
		tasks = append(tasks, t)
	}
	return tasks
}

// QueueDepth returns the number of tasks waiting for a worker.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

func shortID() string {
	return uuid.New().String()[:8]
}
