package classify

import (
	"context"
	"fmt"

	"github.com/havenlabs/haven/pkg/policy"
)

// readiness is implemented by backends that may not have a model loaded.
// Backends without the method are assumed always ready.
type readiness interface {
	IsReady() bool
}

// Chain tries each scorer in order and returns the first successful result.
// Not-ready backends are skipped without a call. A chain ending in the
// lexicon scorer never fails.
type Chain struct {
	scorers []policy.Scorer
}

var _ policy.Scorer = (*Chain)(nil)

// NewChain builds a scorer chain in priority order.
func NewChain(scorers ...policy.Scorer) *Chain {
	return &Chain{scorers: scorers}
}

// NewDefaultChain assembles the standard stack: local model if present, then
// semantic similarity if loaded, then the deterministic lexicon floor.
func NewDefaultChain(hugot *HugotScorer, semantic *SemanticScorer) *Chain {
	var scorers []policy.Scorer
	if hugot != nil {
		scorers = append(scorers, hugot)
	}
	if semantic != nil {
		scorers = append(scorers, semantic)
	}
	scorers = append(scorers, NewLexiconScorer())
	return NewChain(scorers...)
}

// Score delegates to the first ready backend that succeeds.
func (c *Chain) Score(ctx context.Context, text string, labels []policy.Topic, pageCtx policy.PageContext) (map[policy.Topic]float64, error) {
	var lastErr error
	for _, s := range c.scorers {
		if r, ok := s.(readiness); ok && !r.IsReady() {
			continue
		}
		scores, err := s.Score(ctx, text, labels, pageCtx)
		if err != nil {
			lastErr = err
			continue
		}
		return scores, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("all classifier backends failed: %w", lastErr)
	}
	return nil, fmt.Errorf("no classifier backend available")
}
