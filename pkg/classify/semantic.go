package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/havenlabs/haven/pkg/httputil"
	"github.com/havenlabs/haven/pkg/policy"
)

// exemplarSeeds are short reference snippets per topic. They are embedded
// once at startup; at query time the page text is compared against them and
// a topic's score is its best exemplar similarity.
var exemplarSeeds = map[policy.Topic][]string{
	policy.TopicGambling: {
		"spin to win big at the best online casino with huge jackpots",
		"place your bets now, live odds on tonight's games",
		"poker tournament with real money buy-ins",
	},
	policy.TopicPornography: {
		"explicit adult content, must be 18 or older to enter",
		"watch free adult videos in HD",
	},
	policy.TopicViolence: {
		"graphic footage of a violent street fight",
		"uncensored gore and real death videos",
	},
	policy.TopicSelfHarm: {
		"ways to hurt yourself without anyone noticing",
		"i want to end my life and need to know how",
	},
	policy.TopicHate: {
		"this group of people is subhuman and should be removed",
	},
	policy.TopicDrugs: {
		"buy cannabis edibles online with discreet shipping",
		"how to get high using things at home",
	},
	policy.TopicWeapons: {
		"build an untraceable firearm at home with these parts",
	},
	policy.TopicGrooming: {
		"you're so mature for your age, let's keep this our little secret",
		"don't tell your parents about us, they wouldn't understand",
		"send me a private photo, i promise i won't show anyone",
	},
	policy.TopicBullying: {
		"everyone at school hates you and you should just disappear",
	},
	policy.TopicExtremism: {
		"join the cause, the race war is coming and you must pick a side",
	},
	policy.TopicScams: {
		"claim your free robux now, just enter your password to verify",
		"double your money guaranteed, send crypto to this address",
	},
	policy.TopicEatingDisorder: {
		"thinspo motivation: don't eat today, hunger is beautiful",
	},
}

// SemanticScorer scores text by embedding similarity against per-topic
// exemplars held in an in-process vector store. The embedding source is
// injected, so the same scorer works with a local ONNX embedder or a remote
// embedding API.
type SemanticScorer struct {
	db         *chromem.DB
	collection *chromem.Collection
	mu         sync.RWMutex
	ready      bool
}

var _ policy.Scorer = (*SemanticScorer)(nil)

// NewSemanticScorer creates the scorer over the given embedding function.
// Call LoadExemplars before first use.
func NewSemanticScorer(embed chromem.EmbeddingFunc) (*SemanticScorer, error) {
	if embed == nil {
		return nil, fmt.Errorf("embedding function is nil")
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection("topic_exemplars", nil, embed)
	if err != nil {
		return nil, fmt.Errorf("creating exemplar collection: %w", err)
	}

	return &SemanticScorer{db: db, collection: collection}, nil
}

// NewOllamaEmbeddingFunc builds an embedding function against a local Ollama
// server's /api/embeddings endpoint.
func NewOllamaEmbeddingFunc(model, baseURL string) chromem.EmbeddingFunc {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	client := httputil.Client(httputil.TierMedium)

	return func(ctx context.Context, text string) ([]float32, error) {
		payload, err := json.Marshal(map[string]string{
			"model":  model,
			"prompt": text,
		})
		if err != nil {
			return nil, fmt.Errorf("marshaling embedding request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			strings.TrimRight(baseURL, "/")+"/api/embeddings", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("embedding request: %w", err)
		}
		defer httputil.DrainAndClose(resp.Body)

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("embedding request returned %d", resp.StatusCode)
		}

		body, err := httputil.ReadResponseBody(resp.Body, 0)
		if err != nil {
			return nil, err
		}
		var out struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("decoding embedding response: %w", err)
		}
		if len(out.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding for %q model", model)
		}
		return out.Embedding, nil
	}
}

// LoadExemplars embeds the seed snippets into the vector store. Exemplars are
// added sequentially; embedding backends do not like concurrent bursts at
// startup.
func (s *SemanticScorer) LoadExemplars(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var docs []chromem.Document
	i := 0
	for _, topic := range policy.AllTopics {
		for _, text := range exemplarSeeds[topic] {
			docs = append(docs, chromem.Document{
				ID:      fmt.Sprintf("exemplar_%d", i),
				Content: text,
				Metadata: map[string]string{
					"topic": string(topic),
				},
			})
			i++
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("embedding exemplars: %w", err)
	}

	s.ready = true
	return nil
}

// IsReady reports whether exemplars have been loaded.
func (s *SemanticScorer) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Score embeds the text and takes each requested topic's best exemplar
// similarity as its score.
func (s *SemanticScorer) Score(ctx context.Context, text string, labels []policy.Topic, _ policy.PageContext) (map[policy.Topic]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready {
		return nil, fmt.Errorf("semantic scorer not initialized, call LoadExemplars first")
	}

	wanted := make(map[policy.Topic]bool, len(labels))
	scores := make(map[policy.Topic]float64, len(labels))
	for _, l := range labels {
		wanted[l] = true
		scores[l] = 0
	}

	results, err := s.collection.Query(ctx, strings.ToLower(text), 5, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("exemplar query: %w", err)
	}

	for _, r := range results {
		topic := policy.Topic(r.Metadata["topic"])
		if !wanted[topic] {
			continue
		}
		if sim := float64(r.Similarity); sim > scores[topic] {
			scores[topic] = sim
		}
	}
	return scores, nil
}
