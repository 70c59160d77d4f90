package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/havenlabs/haven/pkg/policy"
)

type fakeScorer struct {
	scores map[policy.Topic]float64
	err    error
	ready  bool
	calls  int
}

func (f *fakeScorer) IsReady() bool { return f.ready }

func (f *fakeScorer) Score(_ context.Context, _ string, _ []policy.Topic, _ policy.PageContext) (map[policy.Topic]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

func TestChainSkipsNotReadyBackends(t *testing.T) {
	notReady := &fakeScorer{ready: false, scores: map[policy.Topic]float64{policy.TopicGambling: 0.9}}
	ready := &fakeScorer{ready: true, scores: map[policy.Topic]float64{policy.TopicGambling: 0.3}}
	chain := NewChain(notReady, ready)

	scores, err := chain.Score(context.Background(), "text", []policy.Topic{policy.TopicGambling}, policy.PageContext{})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if notReady.calls != 0 {
		t.Error("not-ready backend was called")
	}
	if scores[policy.TopicGambling] != 0.3 {
		t.Errorf("score = %.2f, want 0.3 from ready backend", scores[policy.TopicGambling])
	}
}

func TestChainFallsThroughOnError(t *testing.T) {
	failing := &fakeScorer{ready: true, err: errors.New("model crashed")}
	chain := NewChain(failing, NewLexiconScorer())

	scores, err := chain.Score(context.Background(), "online casino jackpot", []policy.Topic{policy.TopicGambling}, policy.PageContext{})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if scores[policy.TopicGambling] == 0 {
		t.Error("lexicon floor did not score after backend failure")
	}
}

func TestChainAllBackendsFailing(t *testing.T) {
	chain := NewChain(
		&fakeScorer{ready: true, err: errors.New("a")},
		&fakeScorer{ready: true, err: errors.New("b")},
	)
	if _, err := chain.Score(context.Background(), "text", policy.AllTopics, policy.PageContext{}); err == nil {
		t.Error("expected error when every backend fails")
	}
}

func TestDefaultChainAlwaysHasLexiconFloor(t *testing.T) {
	chain := NewDefaultChain(nil, nil)
	scores, err := chain.Score(context.Background(), "poker night", []policy.Topic{policy.TopicGambling}, policy.PageContext{})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if scores[policy.TopicGambling] == 0 {
		t.Error("default chain returned no score for gambling text")
	}
}

func TestParseScoreJSONToleratesFences(t *testing.T) {
	labels := []policy.Topic{policy.TopicGambling, policy.TopicDrugs}

	cases := []string{
		`{"gambling": 0.8, "drugs": 0.1}`,
		"```json\n{\"gambling\": 0.8, \"drugs\": 0.1}\n```",
		"Here are the scores: {\"gambling\": 0.8, \"drugs\": 0.1}",
	}
	for _, in := range cases {
		scores, err := parseScoreJSON(in, labels)
		if err != nil {
			t.Errorf("%q: %v", in, err)
			continue
		}
		if scores[policy.TopicGambling] != 0.8 || scores[policy.TopicDrugs] != 0.1 {
			t.Errorf("%q: scores = %v", in, scores)
		}
	}

	if _, err := parseScoreJSON("no json here", labels); err == nil {
		t.Error("prose without JSON accepted")
	}

	scores, err := parseScoreJSON(`{"gambling": 7.5, "drugs": -2}`, labels)
	if err != nil {
		t.Fatalf("clamp case: %v", err)
	}
	if scores[policy.TopicGambling] != 1 || scores[policy.TopicDrugs] != 0 {
		t.Errorf("out-of-range scores not clamped: %v", scores)
	}
}
