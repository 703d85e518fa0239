// Package router classifies task complexity and sensitivity and produces
// routing decisions, delegating enforcement to governance.
package router

import (
	"time"

	"github.com/mpieniak01/venom/internal/config"
	"github.com/mpieniak01/venom/internal/governance"
	"github.com/mpieniak01/venom/pkg/models"
)

// Router produces one RoutingDecision per backend call. Decisions are
// created fresh per call and are immutable once returned.
type Router struct {
	classifier *Classifier
	governor   *governance.Governor

	paidEnabled         bool
	complexityThreshold float64

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Router from routing configuration and a governor.
func New(cfg config.RoutingConfig, governor *governance.Governor) *Router {
	threshold := cfg.ComplexityThreshold
	if threshold <= 0 {
		threshold = 6.0
	}
	return &Router{
		classifier:          NewClassifier(cfg.SensitivePatterns, cfg.BaseScores),
		governor:            governor,
		paidEnabled:         cfg.PaidEnabled,
		complexityThreshold: threshold,
		now:                 time.Now,
	}
}

// Route produces an enforced routing decision for one backend call.
//
// Rule order is fixed: the sensitivity override runs before every other
// rule and cannot be disabled by configuration; eco mode and the
// complexity threshold only apply to non-sensitive payloads. The tentative
// decision is always handed to governance for fallback enforcement before
// being returned.
func (r *Router) Route(taskType models.TaskType, payload string, structuredOutput bool) *models.RoutingDecision {
	return r.RouteExcluding(taskType, payload, structuredOutput, nil)
}

// RouteExcluding is Route with a set of provider names removed from the
// governance walk. Council seats use it to land on distinct backends.
func (r *Router) RouteExcluding(taskType models.TaskType, payload string, structuredOutput bool, exclude map[string]bool) *models.RoutingDecision {
	start := r.now()

	decision := &models.RoutingDecision{
		ComplexityScore: r.classifier.Score(taskType, payload, structuredOutput),
		Timestamp:       start,
	}

	switch {
	case taskType == models.TaskTypeSensitive || r.classifier.Sensitive(payload):
		// Privacy override is absolute: local class, no cost-based routing.
		decision.Sensitive = true
		decision.Class = models.ClassLocal
		decision.Reason = models.ReasonSensitiveOverride

	case !r.paidEnabled:
		decision.Class = models.ClassLocal
		decision.Reason = models.ReasonDefaultEcoMode

	case decision.ComplexityScore < r.complexityThreshold:
		// Low-complexity tasks stay local even under paid mode.
		decision.Class = models.ClassLocal
		decision.Reason = models.ReasonComplexityLow

	default:
		decision.Class = models.ClassRemote
		decision.Reason = models.ReasonComplexityHigh
	}

	decision = r.governor.EnforceExcluding(decision, payload, exclude)
	decision.Latency = r.now().Sub(start)
	return decision
}
