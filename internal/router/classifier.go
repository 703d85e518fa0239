package router

import (
	"log"
	"regexp"

	"github.com/mpieniak01/venom/pkg/models"
)

// defaultBaseScores are the per-task-type base complexity scores.
// Operators can override individual entries via routing.base_scores.
var defaultBaseScores = map[models.TaskType]float64{
	models.TaskTypeStandard:      2,
	models.TaskTypeChat:          1,
	models.TaskTypeCodingSimple:  3,
	models.TaskTypeCodingComplex: 6,
	models.TaskTypeAnalysis:      5,
	models.TaskTypeGeneration:    4,
	models.TaskTypeResearch:      6,
	models.TaskTypeSensitive:     2,
}

var fencedCodeRe = regexp.MustCompile("(?s)```.+?```")

// Classifier scores task complexity and detects sensitive payloads.
type Classifier struct {
	baseScores map[models.TaskType]float64
	sensitive  []*regexp.Regexp
}

// NewClassifier compiles the sensitive-pattern set and merges base score
// overrides over the defaults. Patterns that fail to compile are logged and
// skipped rather than silently widening the paid path.
func NewClassifier(patterns []string, baseOverrides map[string]float64) *Classifier {
	c := &Classifier{
		baseScores: make(map[models.TaskType]float64, len(defaultBaseScores)),
	}
	for t, s := range defaultBaseScores {
		c.baseScores[t] = s
	}
	for name, s := range baseOverrides {
		t := models.TaskType(name)
		if t.Valid() {
			c.baseScores[t] = s
		}
	}

	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			log.Printf("[router] invalid sensitive pattern %q: %v", p, err)
			continue
		}
		c.sensitive = append(c.sensitive, re)
	}
	return c
}

// Sensitive reports whether the payload matches any sensitive pattern
// (secrets, credentials, PII markers).
func (c *Classifier) Sensitive(payload string) bool {
	for _, re := range c.sensitive {
		if re.MatchString(payload) {
			return true
		}
	}
	return false
}

// Score computes the complexity score for a task:
// base score by task type, +1 per 500 payload characters, +2 for a fenced
// code block, +1 when structured output is required, clamped to [0,10].
func (c *Classifier) Score(taskType models.TaskType, payload string, structuredOutput bool) float64 {
	score := c.baseScores[taskType]

	score += float64(len(payload) / 500)

	if fencedCodeRe.MatchString(payload) {
		score += 2
	}
	if structuredOutput {
		score++
	}

	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return score
}
