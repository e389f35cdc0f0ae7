package shield

import (
	"log/slog"
	"sort"
)

// Shield screens text for sensitive content and applies the configured
// action. It never logs or returns the matched text itself, only entity
// types and span positions.
type Shield struct {
	detector Detector
	action   Action
	logger   *slog.Logger
}

// New creates a Shield with the given detector and action.
func New(detector Detector, action Action, logger *slog.Logger) *Shield {
	if logger == nil {
		logger = slog.Default()
	}
	return &Shield{
		detector: detector,
		action:   action,
		logger:   logger.With("component", "shield"),
	}
}

// Action returns the configured action.
func (s *Shield) Action() Action {
	return s.action
}

// Apply screens text and returns the outcome under the configured action.
//
// Under ActionBlock any finding marks the result blocked and the text is
// returned unmodified; the caller must not forward it. Under ActionRedact
// each finding is replaced with its type placeholder. Under ActionWarn
// findings are reported but the text passes through untouched.
//
// Empty text always passes with no findings.
func (s *Shield) Apply(text string) Result {
	if text == "" {
		return Result{Text: text}
	}

	entities := resolveOverlaps(s.detector.Detect(text))
	if len(entities) == 0 {
		return Result{Text: text}
	}

	result := Result{Text: text, Findings: entities}

	switch s.action {
	case ActionBlock:
		result.Blocked = true
		s.logger.Warn("sensitive content blocked",
			"entity_types", result.Types(),
			"count", len(entities))
	case ActionRedact:
		result.Text = redact(text, entities)
		s.logger.Info("sensitive content redacted",
			"entity_types", result.Types(),
			"count", len(entities))
	default:
		s.logger.Warn("sensitive content detected",
			"entity_types", result.Types(),
			"count", len(entities))
	}
	return result
}

// resolveOverlaps sorts spans by position and drops any span that overlaps
// an already-kept one, preferring the longer of the two. Ties keep the
// earlier span.
func resolveOverlaps(entities []Entity) []Entity {
	if len(entities) <= 1 {
		return entities
	}

	// Longer spans first within the same start so the linear sweep keeps
	// them over shorter overlapping matches.
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Start != entities[j].Start {
			return entities[i].Start < entities[j].Start
		}
		return entities[i].Len() > entities[j].Len()
	})

	kept := entities[:1]
	for _, e := range entities[1:] {
		last := &kept[len(kept)-1]
		if e.Start >= last.End {
			kept = append(kept, e)
			continue
		}
		if e.Len() > last.Len() {
			*last = e
		}
	}
	return kept
}

// redact replaces each span with its type placeholder. Spans are applied
// right to left so earlier offsets stay valid as the text shrinks or grows.
func redact(text string, entities []Entity) string {
	out := text
	for i := len(entities) - 1; i >= 0; i-- {
		e := entities[i]
		out = out[:e.Start] + "[" + string(e.Type) + "]" + out[e.End:]
	}
	return out
}
