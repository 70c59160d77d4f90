package policy

import (
	"context"
	"errors"
	"testing"
)

// stubScorer returns fixed scores, recording how it was called.
type stubScorer struct {
	scores map[Topic]float64
	err    error
	calls  int
	labels []Topic
}

func (s *stubScorer) Score(_ context.Context, _ string, labels []Topic, _ PageContext) (map[Topic]float64, error) {
	s.calls++
	s.labels = labels
	if s.err != nil {
		return nil, s.err
	}
	return s.scores, nil
}

func compileRules(t *testing.T, texts ...string) []*CompiledRule {
	t.Helper()
	c := testCompiler()
	rules := make([]*CompiledRule, 0, len(texts))
	for _, text := range texts {
		rules = append(rules, c.Compile(text))
	}
	return rules
}

func TestEvaluateDomainBlockShortCircuits(t *testing.T) {
	scorer := &stubScorer{scores: map[Topic]float64{}}
	e := NewEvaluator(scorer)
	rules := compileRules(t, "no gambling sites")

	d := e.Evaluate(context.Background(), rules, "https://bet365.com/live", "", "place your bets")
	if d.Action != ActionBlockDomain {
		t.Fatalf("action = %s, want BLOCK_DOMAIN", d.Action)
	}
	if scorer.calls != 0 {
		t.Error("classifier called for a domain-blocked page")
	}
	if d.Reason.Domain != "bet365.com" {
		t.Errorf("reason domain = %q", d.Reason.Domain)
	}
}

func TestEvaluateConditionalRuleBlocksOnlyMatchingContent(t *testing.T) {
	rules := compileRules(t, "don't block all of youtube, only videos about gambling")

	cases := []struct {
		name   string
		domain string
		text   string
		score  float64
		want   Action
	}{
		{"gambling video on youtube", "youtube.com", "top 10 casino wins compilation", 0.92, ActionBlockContent},
		{"cooking video on youtube", "youtube.com", "how to make pasta carbonara", 0.02, ActionAllow},
		{"gambling page off scope", "example.com", "top 10 casino wins compilation", 0.92, ActionAllow},
		{"mobile subdomain in scope", "m.youtube.com", "casino slots big win", 0.92, ActionBlockContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEvaluator(&stubScorer{scores: map[Topic]float64{TopicGambling: tc.score}})
			d := e.Evaluate(context.Background(), rules, "", tc.domain, tc.text)
			if d.Action != tc.want {
				t.Errorf("action = %s, want %s", d.Action, tc.want)
			}
		})
	}
}

func TestEvaluateSpecificAllowOverridesCategoryBlock(t *testing.T) {
	e := NewEvaluator(&stubScorer{scores: map[Topic]float64{}})
	rules := compileRules(t, "no gambling sites", "always allow bet365.com")

	d := e.Evaluate(context.Background(), rules, "", "bet365.com", "")
	if d.Action == ActionBlockDomain {
		t.Fatal("explicit allow did not override category block")
	}

	// An explicit per-domain block is not overridable.
	rules = compileRules(t, "block bet365.com", "always allow bet365.com")
	d = e.Evaluate(context.Background(), rules, "", "bet365.com", "")
	if d.Action != ActionBlockDomain {
		t.Fatalf("explicit block was overridden, action = %s", d.Action)
	}
}

func TestEvaluateEducationalDomainRaisesThreshold(t *testing.T) {
	rules := compileRules(t, "block hate content")
	scorer := &stubScorer{scores: map[Topic]float64{TopicHate: 0.70}}
	e := NewEvaluator(scorer)

	d := e.Evaluate(context.Background(), rules, "", "en.wikipedia.org", "history of hate speech legislation")
	if d.Action != ActionAllow {
		t.Errorf("reference page: action = %s, want ALLOW", d.Action)
	}

	d = e.Evaluate(context.Background(), rules, "", "randomforum.com", "history of hate speech legislation")
	if d.Action != ActionBlockContent {
		t.Errorf("non-reference page: action = %s, want BLOCK_CONTENT", d.Action)
	}
}

func TestEvaluateEmptyPageTextIsInsufficientEvidence(t *testing.T) {
	scorer := &stubScorer{scores: map[Topic]float64{TopicGambling: 0.99}}
	e := NewEvaluator(scorer)
	rules := compileRules(t, "don't block all of youtube, only videos about gambling")

	d := e.Evaluate(context.Background(), rules, "", "youtube.com", "   ")
	if d.Action != ActionAllow {
		t.Fatalf("action = %s, want ALLOW", d.Action)
	}
	if scorer.calls != 0 {
		t.Error("classifier called with no content")
	}
}

func TestEvaluateClassifierFailureFailsOpen(t *testing.T) {
	e := NewEvaluator(&stubScorer{err: errors.New("model unavailable")})
	rules := compileRules(t, "don't block all of youtube, only videos about gambling")

	d := e.Evaluate(context.Background(), rules, "", "youtube.com", "casino slots big win")
	if d.Action != ActionAllow {
		t.Fatalf("action = %s, want ALLOW on classifier failure", d.Action)
	}
	last := d.Reason.DecisionPath[len(d.Reason.DecisionPath)-1]
	if last.Outcome != outcomeUnavailable {
		t.Errorf("outcome = %s, want %s", last.Outcome, outcomeUnavailable)
	}
}

func TestEvaluateUnparseableDomainFailsOpen(t *testing.T) {
	e := NewEvaluator(&stubScorer{scores: map[Topic]float64{TopicGambling: 0.99}})
	rules := compileRules(t, "no gambling sites")

	d := e.Evaluate(context.Background(), rules, "not a url", "", "casino casino casino")
	if d.Action != ActionAllow {
		t.Fatalf("action = %s, want ALLOW", d.Action)
	}
	if d.Anomaly != "unparseable_domain" {
		t.Errorf("anomaly = %q", d.Anomaly)
	}
}

func TestEvaluateInactiveRulesSkipped(t *testing.T) {
	rules := compileRules(t, "no gambling sites")
	rules[0].Active = false
	e := NewEvaluator(&stubScorer{scores: map[Topic]float64{}})

	d := e.Evaluate(context.Background(), rules, "", "bet365.com", "")
	if d.Action != ActionAllow {
		t.Fatalf("inactive rule enforced, action = %s", d.Action)
	}
	if len(d.Reason.DecisionPath) == 0 || d.Reason.DecisionPath[0].Outcome != outcomeSkipped {
		t.Error("inactive rule missing from decision path")
	}
}

func TestEvaluateSingleClassifierCallForLabelUnion(t *testing.T) {
	scorer := &stubScorer{scores: map[Topic]float64{}}
	e := NewEvaluator(scorer)
	rules := compileRules(t,
		"don't block all of youtube, only videos about gambling",
		"allow youtube but block violence",
	)

	e.Evaluate(context.Background(), rules, "", "youtube.com", "some video page")
	if scorer.calls != 1 {
		t.Fatalf("classifier calls = %d, want 1", scorer.calls)
	}
	if len(scorer.labels) != 2 {
		t.Errorf("label union = %v, want gambling and violence", scorer.labels)
	}
}

func TestEvaluateObfuscatedPageText(t *testing.T) {
	// The scorer sees normalized text; a leetspeak casino page still matches.
	scorer := &stubScorer{scores: map[Topic]float64{TopicGambling: 0.9}}
	e := NewEvaluator(scorer)
	rules := compileRules(t, "don't block all of youtube, only videos about gambling")

	d := e.Evaluate(context.Background(), rules, "", "youtube.com", "best c4sino games, huge p0ker wins")
	if d.Action != ActionBlockContent {
		t.Fatalf("action = %s, want BLOCK_CONTENT", d.Action)
	}
}
