package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/havenlabs/haven/pkg/classify"
	"github.com/havenlabs/haven/pkg/config"
	"github.com/havenlabs/haven/pkg/events"
	"github.com/havenlabs/haven/pkg/policy"
	"github.com/havenlabs/haven/pkg/risk"
)

const Version = "0.1.0"

// Engine wires the policy compiler, content evaluator and conversation risk
// accumulator behind one process. Classifier backends are optional and
// degrade gracefully when their model or service is unavailable.
type Engine struct {
	config      *config.Config
	compiler    *policy.Compiler
	ruleSet     *policy.RuleSet
	evaluator   *policy.Evaluator
	accumulator *risk.Accumulator
	store       risk.Store
	sink        events.Sink
}

func NewEngine(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	compiler := policy.NewCompiler(
		policy.WithModelVersion(cfg.ModelVersion),
		policy.WithThresholds(cfg.BlockThreshold, cfg.WarnThreshold),
	)

	e := &Engine{
		config:   cfg,
		compiler: compiler,
		ruleSet:  policy.NewRuleSet(compiler),
	}

	e.evaluator = policy.NewEvaluator(buildScorerChain(cfg),
		policy.WithScoreTimeout(cfg.ClassifierTimeout))

	// Conversation state: Redis when configured, in-process otherwise.
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		e.store = risk.NewRedisStore(client, risk.WithRedisArchiveAfter(cfg.ArchiveAfter))
		log.Printf("✓ conversation state in Redis (%s)", cfg.RedisAddr)
	} else {
		e.store = risk.NewInMemoryStore(risk.WithArchiveAfter(cfg.ArchiveAfter))
		log.Println("○ conversation state in memory (no HAVEN_REDIS_ADDR)")
	}

	e.accumulator = risk.NewAccumulator(e.store, risk.WithThresholds(risk.Thresholds{
		Monitor:    cfg.RiskMonitorThreshold,
		Alert:      cfg.RiskAlertThreshold,
		Block:      cfg.RiskBlockThreshold,
		AutoReport: cfg.RiskAutoReportThreshold,
	}))

	// Event delivery: process log always, Postgres when configured.
	sinks := []events.Sink{events.LogSink{}}
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
		if err != nil {
			log.Printf("○ postgres event sink disabled (connect failed: %v)", err)
		} else {
			sinks = append(sinks, events.NewPostgresSink(pool))
			log.Println("✓ postgres event sink enabled")
		}
	}
	e.sink = events.NewMultiSink(sinks...)

	if cfg.PolicyPackPath != "" {
		pack, err := policy.LoadPolicyPack(cfg.PolicyPackPath)
		if err != nil {
			log.Printf("WARNING: policy pack %s not loaded: %v", cfg.PolicyPackPath, err)
		} else if _, err := e.ruleSet.Apply(pack); err != nil {
			log.Printf("WARNING: policy pack %s rejected: %v", cfg.PolicyPackPath, err)
		} else {
			log.Printf("✓ policy pack applied (version %s, %d rules)",
				pack.PolicyVersion, len(pack.Rules))
		}
	}

	return e
}

// buildScorerChain assembles classifier backends in priority order: local
// ONNX model, semantic similarity, remote LLM, then the lexicon floor. Each
// optional backend is skipped when its prerequisites are missing.
func buildScorerChain(cfg *config.Config) *classify.Chain {
	var scorers []policy.Scorer

	if cfg.HugotModelPath != "" {
		hugot := classify.NewHugotScorerWithFallback(classify.HugotConfig{
			ModelPath:       cfg.HugotModelPath,
			OnnxLibraryPath: cfg.OnnxLibraryPath,
		})
		scorers = append(scorers, hugot)
		if hugot.IsReady() {
			log.Println("✓ local model scoring enabled (hugot/ONNX)")
		} else {
			log.Println("○ local model scoring disabled (model load failed)")
		}
	} else {
		log.Println("○ local model scoring disabled (no HAVEN_HUGOT_MODEL_PATH)")
	}

	if cfg.ClassifierProvider == config.ProviderOllama {
		embed := classify.NewOllamaEmbeddingFunc("embeddinggemma", cfg.ClassifierBaseURL)
		semantic, err := classify.NewSemanticScorer(embed)
		if err != nil {
			log.Printf("○ semantic scoring disabled (init failed: %v)", err)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			if err := semantic.LoadExemplars(ctx); err != nil {
				log.Printf("○ semantic scoring disabled (exemplar load failed: %v)", err)
			} else {
				scorers = append(scorers, semantic)
				log.Println("✓ semantic scoring enabled (chromem-go + Ollama embeddings)")
			}
			cancel()
		}
	}

	if cfg.ClassifierProvider != config.ProviderNone {
		scorers = append(scorers, classify.NewRemoteScorer(classify.RemoteConfig{
			Provider: classify.Provider(cfg.ClassifierProvider),
			APIKey:   cfg.ClassifierAPIKey,
			Model:    cfg.ClassifierModel,
			BaseURL:  cfg.ClassifierBaseURL,
		}))
		log.Printf("✓ remote classifier enabled (provider: %s)", cfg.ClassifierProvider)
	} else {
		log.Println("○ remote classifier disabled (no provider configured)")
	}

	scorers = append(scorers, classify.NewLexiconScorer())
	return classify.NewChain(scorers...)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		addr := ""
		if len(os.Args) > 2 {
			addr = os.Args[2]
		}
		runHTTPServer(addr)
	case "compile":
		if len(os.Args) < 3 {
			fmt.Println("Usage: haven compile <rule text>")
			os.Exit(1)
		}
		runCLICompile(strings.Join(os.Args[2:], " "))
	case "evaluate":
		if len(os.Args) < 3 {
			fmt.Println("Usage: haven evaluate <url-or-domain> [page text]")
			os.Exit(1)
		}
		pageText := ""
		if len(os.Args) > 3 {
			pageText = strings.Join(os.Args[3:], " ")
		}
		runCLIEvaluate(os.Args[2], pageText)
	case "version":
		fmt.Printf("Haven v%s\n", Version)
		fmt.Println("Parental policy compilation and content-risk enforcement engine")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Haven v%s - Parental Policy & Content-Risk Engine\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  haven serve [addr]              Start HTTP server (default: :8311)")
	fmt.Println("  haven compile <text>            Compile one natural-language rule")
	fmt.Println("  haven evaluate <url> [text]     Evaluate one page view against the loaded pack")
	fmt.Println("  haven version                   Show version")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  HAVEN_PRESET               Threshold preset: strict, lenient (default: balanced)")
	fmt.Println("  HAVEN_POLICY_PACK          Policy pack to load at startup (YAML or JSON)")
	fmt.Println("  HAVEN_REDIS_ADDR           Redis address for conversation state")
	fmt.Println("  HAVEN_POSTGRES_DSN         Postgres DSN for the event sink")
	fmt.Println("  HAVEN_HUGOT_MODEL_PATH     Path to ONNX classifier model directory")
	fmt.Println("  HAVEN_CLASSIFIER_PROVIDER  Remote classifier: ollama, openrouter, groq")
}

func runHTTPServer(addr string) {
	cfg := config.NewConfigFromEnv()
	if addr != "" {
		cfg.ListenAddr = addr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	engine := NewEngine(cfg)

	app := fiber.New(fiber.Config{
		AppName: "Haven",
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":         "ok",
			"version":        Version,
			"policy_version": engine.ruleSet.Version(),
		})
	})

	// Compile a single rule without applying it. Used by the dashboard for
	// live preview while the parent types.
	app.Post("/rules/compile", func(c fiber.Ctx) error {
		var req struct {
			Text string `json:"text"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if req.Text == "" {
			return c.Status(400).JSON(fiber.Map{"error": "text field is required"})
		}
		return c.JSON(engine.compiler.Compile(req.Text))
	})

	// Apply a full policy pack. Body is YAML or JSON.
	app.Post("/policy/pack", func(c fiber.Ctx) error {
		pack, err := policy.ParsePolicyPack(c.Body())
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		changed, err := engine.ruleSet.Apply(pack)
		if err != nil {
			return c.Status(422).JSON(fiber.Map{"error": err.Error()})
		}
		if changed {
			_ = engine.sink.Emit(c.Context(), events.Event{
				Type:       events.TypeRuleCompiled,
				ChildID:    pack.ChildID,
				ReasonCode: pack.PolicyVersion,
				Timestamp:  time.Now().UTC(),
			})
		}
		return c.JSON(fiber.Map{
			"applied":        changed,
			"policy_version": engine.ruleSet.Version(),
			"rules":          len(engine.ruleSet.Rules()),
		})
	})

	// Evaluate one page view against the applied rule set.
	app.Post("/policy/evaluate", func(c fiber.Ctx) error {
		var req struct {
			URL      string `json:"url"`
			Domain   string `json:"domain"`
			PageText string `json:"page_text"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if req.URL == "" && req.Domain == "" {
			return c.Status(400).JSON(fiber.Map{"error": "url or domain is required"})
		}

		decision := engine.evaluator.Evaluate(c.Context(), engine.ruleSet.Rules(),
			req.URL, req.Domain, req.PageText)

		evType := events.TypeDecision
		if decision.Anomaly != "" {
			evType = events.TypeAnomaly
		}
		_ = engine.sink.Emit(c.Context(), events.Event{
			Type:       evType,
			ChildID:    engine.ruleSet.ChildID(),
			Domain:     req.Domain,
			Action:     string(decision.Action),
			RuleID:     decision.MatchedRuleID,
			ReasonCode: decision.Anomaly,
			Timestamp:  time.Now().UTC(),
		})
		return c.JSON(decision)
	})

	// Network-enforceable block patterns for the applied rule set.
	app.Get("/dnr/patterns", func(c fiber.Ctx) error {
		patterns := policy.ExtractDNRPatterns(engine.ruleSet.Rules())
		return c.JSON(fiber.Map{
			"policy_version": engine.ruleSet.Version(),
			"patterns":       patterns,
		})
	})

	// Accumulate one conversation turn.
	app.Post("/conversation/turn", func(c fiber.Ctx) error {
		var req struct {
			ChildID     string                 `json:"child_id"`
			ContactID   string                 `json:"contact_id"`
			Platform    string                 `json:"platform"`
			Timestamp   time.Time              `json:"timestamp"`
			Text        string                 `json:"text,omitempty"`
			LabelScores map[risk.Label]float64 `json:"label_scores"`
			Behavior    risk.BehavioralSignals `json:"behavior"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if req.ChildID == "" || req.ContactID == "" || req.Platform == "" {
			return c.Status(400).JSON(fiber.Map{"error": "child_id, contact_id and platform are required"})
		}
		if req.Timestamp.IsZero() {
			req.Timestamp = time.Now().UTC()
		}

		// Deterministic pattern signals supplement whatever the caller's
		// classifier reported for this turn.
		labelScores := risk.MergeLabelScores(req.LabelScores, risk.LabelsFromText(req.Text))

		result, err := engine.accumulator.ProcessTurn(c.Context(), risk.TurnSignals{
			Key:         risk.Key{ChildID: req.ChildID, ContactID: req.ContactID, Platform: req.Platform},
			Timestamp:   req.Timestamp,
			LabelScores: labelScores,
			Behavior:    req.Behavior,
		})
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}

		if result.Action != risk.ActionAllow {
			_ = engine.sink.Emit(c.Context(), events.Event{
				Type:       events.TypeRiskThreshold,
				ChildID:    req.ChildID,
				Category:   result.Stage.String(),
				ReasonCode: string(result.Trajectory),
				Action:     string(result.Action),
				RiskScore:  result.RiskScore,
				Timestamp:  time.Now().UTC(),
			})
		}
		return c.JSON(result)
	})

	// Cross-platform risk summary for one child.
	app.Get("/risk/profile/:child_id", func(c fiber.Ctx) error {
		profile, err := engine.store.Profile(c.Context(), c.Params("child_id"))
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(profile)
	})

	log.Printf("Haven HTTP server starting on %s", cfg.ListenAddr)
	log.Printf("Endpoints:")
	log.Printf("  GET  /health                  - Health check")
	log.Printf("  POST /rules/compile           - Compile one rule (preview)")
	log.Printf("  POST /policy/pack             - Apply a policy pack")
	log.Printf("  POST /policy/evaluate         - Evaluate a page view")
	log.Printf("  GET  /dnr/patterns            - Network block patterns")
	log.Printf("  POST /conversation/turn       - Accumulate a conversation turn")
	log.Printf("  GET  /risk/profile/:child_id  - Cross-platform risk profile")

	if err := app.Listen(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}

func runCLIEvaluate(rawURL, pageText string) {
	cfg := config.NewConfigFromEnv()
	if cfg.PolicyPackPath == "" {
		log.Fatal("HAVEN_POLICY_PACK must point at a policy pack to evaluate against")
	}

	engine := NewEngine(cfg)
	decision := engine.evaluator.Evaluate(context.Background(), engine.ruleSet.Rules(),
		rawURL, "", pageText)

	output, _ := json.MarshalIndent(decision, "", "  ")
	fmt.Println(string(output))
}

func runCLICompile(text string) {
	cfg := config.NewConfigFromEnv()
	rule := policy.NewCompiler(
		policy.WithModelVersion(cfg.ModelVersion),
		policy.WithThresholds(cfg.BlockThreshold, cfg.WarnThreshold),
	).Compile(text)

	output, _ := json.MarshalIndent(rule, "", "  ")
	fmt.Println(string(output))
}
