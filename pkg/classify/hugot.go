package classify

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/havenlabs/haven/pkg/policy"
)

// HugotConfig configures the local ONNX topic classifier.
type HugotConfig struct {
	// ModelPath is the local directory holding model.onnx and tokenizer files.
	ModelPath string

	// OnnxLibraryPath points at libonnxruntime.so. Empty means pure Go
	// backend (slower, no native dependency).
	OnnxLibraryPath string

	// Timeout bounds one inference call.
	Timeout time.Duration
}

// modelLabelTopics maps the classification model's label names to the
// taxonomy. Multi-label content-category models emit their own label strings;
// anything unmapped is ignored.
var modelLabelTopics = map[string]policy.Topic{
	"gambling":        policy.TopicGambling,
	"adult":           policy.TopicPornography,
	"sexual":          policy.TopicPornography,
	"violence":        policy.TopicViolence,
	"self_harm":       policy.TopicSelfHarm,
	"self-harm":       policy.TopicSelfHarm,
	"hate":            policy.TopicHate,
	"drugs":           policy.TopicDrugs,
	"weapons":         policy.TopicWeapons,
	"grooming":        policy.TopicGrooming,
	"bullying":        policy.TopicBullying,
	"harassment":      policy.TopicBullying,
	"extremism":       policy.TopicExtremism,
	"scam":            policy.TopicScams,
	"fraud":           policy.TopicScams,
	"eating_disorder": policy.TopicEatingDisorder,
}

// HugotScorer runs a local ONNX text-classification model. Fully offline;
// degrades to not-ready when no model or runtime is available, letting the
// chain fall through to the next backend.
type HugotScorer struct {
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
	mu       sync.RWMutex
	config   HugotConfig
	ready    bool
}

var _ policy.Scorer = (*HugotScorer)(nil)

// NewHugotScorer initializes the session and pipeline. Returns an error when
// the model directory is missing or the pipeline cannot be built.
func NewHugotScorer(cfg HugotConfig) (*HugotScorer, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("no model path specified")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model path: %w", err)
	}

	h := &HugotScorer{config: cfg}
	if err := h.initialize(); err != nil {
		return nil, fmt.Errorf("hugot initialization failed: %w", err)
	}
	return h, nil
}

// NewHugotScorerWithFallback returns a not-ready scorer instead of an error,
// so the classifier chain can be assembled unconditionally.
func NewHugotScorerWithFallback(cfg HugotConfig) *HugotScorer {
	h, err := NewHugotScorer(cfg)
	if err != nil {
		log.Printf("WARNING: local model scorer unavailable: %v", err)
		return &HugotScorer{config: cfg}
	}
	return h
}

func (h *HugotScorer) initialize() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, err := h.createSession()
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	h.session = session

	config := hugot.TextClassificationConfig{
		ModelPath: h.config.ModelPath,
		Name:      "topic-classifier",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = h.session.Destroy()
		return fmt.Errorf("creating pipeline: %w", err)
	}

	h.pipeline = pipeline
	h.ready = true
	log.Printf("local topic classifier initialized (model: %s)", h.config.ModelPath)
	return nil
}

// createSession tries the ONNX Runtime backend first and falls back to the
// pure Go backend.
func (h *HugotScorer) createSession() (*hugot.Session, error) {
	if h.config.OnnxLibraryPath != "" {
		session, err := hugot.NewORTSession(
			options.WithOnnxLibraryPath(h.config.OnnxLibraryPath),
		)
		if err == nil {
			return session, nil
		}
		log.Printf("ONNX Runtime unavailable, falling back to Go backend: %v", err)
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("creating Go session: %w", err)
	}
	return session, nil
}

// IsReady reports whether the model loaded.
func (h *HugotScorer) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// Score runs one inference and maps model labels onto the requested topics.
func (h *HugotScorer) Score(ctx context.Context, text string, labels []policy.Topic, _ policy.PageContext) (map[policy.Topic]float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.ready || h.pipeline == nil {
		return nil, fmt.Errorf("local model scorer not ready")
	}

	result, err := h.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	wanted := make(map[policy.Topic]bool, len(labels))
	scores := make(map[policy.Topic]float64, len(labels))
	for _, l := range labels {
		wanted[l] = true
		scores[l] = 0
	}

	if len(result.ClassificationOutputs) == 0 {
		return scores, nil
	}
	for _, out := range result.ClassificationOutputs[0] {
		topic, ok := modelLabelTopics[out.Label]
		if !ok || !wanted[topic] {
			continue
		}
		if s := float64(out.Score); s > scores[topic] {
			scores[topic] = s
		}
	}
	return scores, nil
}

// Close releases the ONNX session.
func (h *HugotScorer) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.ready = false
	if h.session != nil {
		if err := h.session.Destroy(); err != nil {
			return fmt.Errorf("destroying session: %w", err)
		}
	}
	return nil
}
