package orchestrator

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

// orchestratorOptions holds all optional configuration.
type orchestratorOptions struct {
	workers       int
	queueCapacity int
	eventBuffer   int
	sessions      SessionHandler
	store         Recorder
	learning      LearningRecorder

	// Injectable for deterministic tests.
	newID func() string
}

func defaultOptions() *orchestratorOptions {
	return &orchestratorOptions{
		workers:       2,
		queueCapacity: 64,
		eventBuffer:   128,
		newID:         shortID,
	}
}

// WithWorkers sets the number of concurrent workers.
func WithWorkers(n int) Option {
	return func(o *orchestratorOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithQueueCapacity sets the submission queue capacity.
func WithQueueCapacity(n int) Option {
	return func(o *orchestratorOptions) {
		if n > 0 {
			o.queueCapacity = n
		}
	}
}

// WithEventBuffer sets the event channel buffer size.
func WithEventBuffer(n int) Option {
	return func(o *orchestratorOptions) {
		if n > 0 {
			o.eventBuffer = n
		}
	}
}

// WithSessions sets the session handler for context rebuild and persistence.
func WithSessions(s SessionHandler) Option {
	return func(o *orchestratorOptions) { o.sessions = s }
}

// WithStore sets the persistence backend for tasks and decisions.
func WithStore(r Recorder) Option {
	return func(o *orchestratorOptions) { o.store = r }
}

// WithLearning sets the recorder notified of terminal task outcomes.
func WithLearning(l LearningRecorder) Option {
	return func(o *orchestratorOptions) { o.learning = l }
}

// WithIDFunc overrides task ID generation.
func WithIDFunc(fn func() string) Option {
	return func(o *orchestratorOptions) {
		if fn != nil {
			o.newID = fn
		}
	}
}
