package patterns

import (
	"sort"
	"sync"
	"time"

	"github.com/faultlinestack/faultline/internal/models"
)

// Extractor is the extension point for deriving brand-new patterns from a
// resolved incident. No default implementation is wired; the registry only
// invokes it when one is supplied.
type Extractor interface {
	Extract(collection models.IncidentDataCollection, resolution models.Resolution) ([]models.FaultPattern, error)
}

// Registry holds the process-wide fault-pattern set. It is seeded with a
// fixed starter set and grown by the learning feedback path; there is no
// external persistence, so a restart loses learned adjustments.
//
// Reads return deep copies taken under a read lock; writes rebuild the slice
// and swap it in, so concurrent matchers never observe a partially updated
// pattern set.
type Registry struct {
	mu        sync.RWMutex
	patterns  []models.FaultPattern
	extractor Extractor
}

// NewRegistry creates a registry seeded with the starter pattern set.
func NewRegistry() *Registry {
	return &Registry{patterns: seedPatterns()}
}

// WithExtractor installs the new-pattern extraction strategy.
func (r *Registry) WithExtractor(e Extractor) *Registry {
	r.mu.Lock()
	r.extractor = e
	r.mu.Unlock()
	return r
}

// Snapshot returns a deep copy of the current pattern set.
func (r *Registry) Snapshot() []models.FaultPattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.FaultPattern, len(r.patterns))
	for i, p := range r.patterns {
		out[i] = copyPattern(p)
	}
	return out
}

// Get returns a copy of one pattern by id.
func (r *Registry) Get(id string) (models.FaultPattern, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.patterns {
		if p.ID == id {
			return copyPattern(p), true
		}
	}
	return models.FaultPattern{}, false
}

// RecordDetection appends a match example to a pattern's history, keeping the
// most recent examples newest first, and refreshes the last-seen timestamp.
func (r *Registry) RecordDetection(patternID string, example models.PatternExample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]models.FaultPattern, len(r.patterns))
	copy(next, r.patterns)
	for i := range next {
		if next[i].ID != patternID {
			continue
		}
		p := copyPattern(next[i])
		p.History = append(p.History, example)
		sort.SliceStable(p.History, func(a, b int) bool {
			return p.History[a].Timestamp.After(p.History[b].Timestamp)
		})
		if len(p.History) > models.MaxPatternHistory {
			p.History = p.History[:models.MaxPatternHistory]
		}
		if example.Timestamp.After(p.LastSeen) {
			p.LastSeen = example.Timestamp
		}
		next[i] = p
		break
	}
	r.patterns = next
}

// Reinforce is the learning feedback path: it increments the pattern's
// frequency counter and folds the observed match confidence into the running
// confidence.
func (r *Registry) Reinforce(patternID string, matchConfidence float64, seenAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]models.FaultPattern, len(r.patterns))
	copy(next, r.patterns)
	for i := range next {
		if next[i].ID != patternID {
			continue
		}
		p := copyPattern(next[i])
		p.Frequency++
		p.Confidence = 0.8*p.Confidence + 0.2*clamp01(matchConfidence)
		if seenAt.After(p.LastSeen) {
			p.LastSeen = seenAt
		}
		next[i] = p
		break
	}
	r.patterns = next
}

// Update replaces patterns by id and appends unknown ids. Incoming patterns
// keep their own history, capped to the registry bound.
func (r *Registry) Update(incoming []models.FaultPattern) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]models.FaultPattern, len(r.patterns))
	copy(next, r.patterns)

	for _, p := range incoming {
		if p.ID == "" {
			continue
		}
		p = copyPattern(p)
		if len(p.History) > models.MaxPatternHistory {
			p.History = p.History[:models.MaxPatternHistory]
		}
		replaced := false
		for i := range next {
			if next[i].ID == p.ID {
				next[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			next = append(next, p)
		}
	}
	r.patterns = next
}

// ExtractNew runs the configured extraction strategy, merging any derived
// patterns into the registry. Without a strategy it is a no-op.
func (r *Registry) ExtractNew(collection models.IncidentDataCollection, resolution models.Resolution) ([]models.FaultPattern, error) {
	r.mu.RLock()
	extractor := r.extractor
	r.mu.RUnlock()

	if extractor == nil {
		return nil, nil
	}
	derived, err := extractor.Extract(collection, resolution)
	if err != nil {
		return nil, err
	}
	if len(derived) > 0 {
		r.Update(derived)
	}
	return derived, nil
}

func copyPattern(p models.FaultPattern) models.FaultPattern {
	p.Indicators = append([]models.PatternIndicator(nil), p.Indicators...)
	p.History = append([]models.PatternExample(nil), p.History...)
	return p
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
