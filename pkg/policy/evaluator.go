package policy

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/havenlabs/haven/pkg/textnorm"
)

// PageContext carries evaluation hints to the classifier. EducationalDomain
// is set for reference hosts (Wikipedia, search engines) so topic mentions
// are scored as discussion, not promotion.
type PageContext struct {
	EducationalDomain bool
	ObfuscationScore  float64
}

// Scorer is the pluggable content classifier interface. Implementations may
// be a local lexicon, a vector index, a local ONNX model, or a remote call;
// the evaluator depends only on this contract. A Scorer error means
// "insufficient evidence", never positive evidence.
type Scorer interface {
	Score(ctx context.Context, text string, labels []Topic, pageCtx PageContext) (map[Topic]float64, error)
}

// Decision is the transient outcome of one evaluation call.
type Decision struct {
	Action        Action       `json:"action"`
	MatchedRuleID string       `json:"matched_rule_id,omitempty"`
	Reason        *ReasonGraph `json:"reason_graph"`
	Anomaly       string       `json:"anomaly,omitempty"`
}

// ReasonStep records one rule's outcome at one evaluation stage.
type ReasonStep struct {
	RuleID  string `json:"rule_id"`
	Stage   string `json:"stage"`
	Outcome string `json:"outcome"`
}

// ReasonGraph makes a Decision auditable: every rule considered, in
// evaluation order, with its outcome. Parent-facing explanations are
// reconstructed from this alone.
type ReasonGraph struct {
	Domain         string       `json:"domain"`
	RulesEvaluated int          `json:"rules_evaluated"`
	DecisionPath   []ReasonStep `json:"decision_path"`
}

func (g *ReasonGraph) record(ruleID, stage, outcome string) {
	g.DecisionPath = append(g.DecisionPath, ReasonStep{RuleID: ruleID, Stage: stage, Outcome: outcome})
}

// Reason-step stages and outcomes.
const (
	stageDomainBlock = "domain_block"
	stageAllowlist   = "allowlist_gate"
	stageClassifier  = "classifier"

	outcomeMatched     = "matched"
	outcomeNotMatched  = "not_matched"
	outcomeSkipped     = "skipped_inactive"
	outcomeOverridden  = "overridden_by_specific_allow"
	outcomeNoEvidence  = "insufficient_evidence"
	outcomeUnavailable = "classifier_unavailable"
)

// EducationalShift is how far the effective classifier threshold moves up on
// reference/educational domains.
const EducationalShift = 0.25

// Evaluator applies a rule set to observed page signals. Stateless and safe
// for concurrent use; one instance serves all requests.
type Evaluator struct {
	scorer       Scorer
	scoreTimeout time.Duration
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithScoreTimeout bounds a single classifier call. On expiry the rule is
// treated as not fired (insufficient evidence).
func WithScoreTimeout(d time.Duration) EvaluatorOption {
	return func(e *Evaluator) { e.scoreTimeout = d }
}

// NewEvaluator creates an evaluator over the given classifier.
func NewEvaluator(scorer Scorer, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		scorer:       scorer,
		scoreTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs the full decision algorithm for one page view.
//
//  1. Domain blocklist check (highest priority, short-circuits).
//  2. Allowlist gating of content-scoped rules.
//  3. Classifier scoring of page text against gated rules.
//
// Edge policy is fail-open: an unparseable domain, empty page text, or an
// unavailable classifier all resolve to ALLOW with the anomaly recorded,
// never to a block.
func (e *Evaluator) Evaluate(ctx context.Context, rules []*CompiledRule, rawURL, domain, pageText string) Decision {
	graph := &ReasonGraph{}
	decision := Decision{Action: ActionAllow, Reason: graph}

	host, ok := normalizeDomain(rawURL, domain)
	if !ok {
		decision.Anomaly = "unparseable_domain"
		return decision
	}
	graph.Domain = host
	graph.RulesEvaluated = len(rules)

	// Stage 1: domain blocks. An explicit allow (ALLOW_DOMAIN or a
	// content-scoped rule naming this domain in its allowlist) overrides a
	// broader category block for exactly the domains it names, but never an
	// explicit per-domain block.
	for _, r := range rules {
		if !r.Active {
			graph.record(r.ID, stageDomainBlock, outcomeSkipped)
			continue
		}
		if r.Action != ActionBlockDomain {
			continue
		}
		if !blocklistMatches(r, host) {
			graph.record(r.ID, stageDomainBlock, outcomeNotMatched)
			continue
		}
		if r.Intent.UserIntentType == IntentCategoryDomainBlock && coveredBySpecificAllow(rules, host) {
			graph.record(r.ID, stageDomainBlock, outcomeOverridden)
			continue
		}
		graph.record(r.ID, stageDomainBlock, outcomeMatched)
		decision.Action = ActionBlockDomain
		decision.MatchedRuleID = r.ID
		return decision
	}

	// Stage 2: gate content-scoped rules on their allowlists.
	var gated []*CompiledRule
	for _, r := range rules {
		if !r.IsContentScoped() {
			continue
		}
		if !r.Active {
			graph.record(r.ID, stageAllowlist, outcomeSkipped)
			continue
		}
		if r.ScopeMatches(host) {
			graph.record(r.ID, stageAllowlist, outcomeMatched)
			gated = append(gated, r)
		} else {
			graph.record(r.ID, stageAllowlist, outcomeNotMatched)
		}
	}
	if len(gated) == 0 {
		return decision
	}

	// Stage 3: classify. Empty page text is insufficient evidence; a
	// content-scoped rule never blocks without content to judge.
	normalized := textnorm.Normalize(pageText)
	if strings.TrimSpace(normalized.Text) == "" {
		for _, r := range gated {
			graph.record(r.ID, stageClassifier, outcomeNoEvidence)
		}
		return decision
	}

	pageCtx := PageContext{
		EducationalDomain: IsEducationalDomain(host),
		ObfuscationScore:  normalized.ObfuscationScore,
	}

	scores := e.score(ctx, normalized.Text, gated, pageCtx)
	if scores == nil {
		for _, r := range gated {
			graph.record(r.ID, stageClassifier, outcomeUnavailable)
		}
		return decision
	}

	for _, r := range gated {
		threshold := r.Condition.Threshold
		if pageCtx.EducationalDomain {
			threshold += EducationalShift
		}
		if maxLabelScore(scores, r.Condition.LabelsAny) >= threshold {
			graph.record(r.ID, stageClassifier, outcomeMatched)
			decision.Action = r.Action
			decision.MatchedRuleID = r.ID
			return decision
		}
		graph.record(r.ID, stageClassifier, outcomeNotMatched)
	}

	return decision
}

// score calls the classifier once with the union of all gated labels.
// Failure returns nil: zero confidence, not a block.
func (e *Evaluator) score(ctx context.Context, text string, gated []*CompiledRule, pageCtx PageContext) map[Topic]float64 {
	if e.scorer == nil {
		return nil
	}

	seen := make(map[Topic]bool)
	var labels []Topic
	for _, r := range gated {
		for _, l := range r.Condition.LabelsAny {
			if !seen[l] {
				seen[l] = true
				labels = append(labels, l)
			}
		}
	}

	sctx, cancel := context.WithTimeout(ctx, e.scoreTimeout)
	defer cancel()

	scores, err := e.scorer.Score(sctx, text, labels, pageCtx)
	if err != nil {
		return nil
	}
	return scores
}

func maxLabelScore(scores map[Topic]float64, labels []Topic) float64 {
	max := 0.0
	for _, l := range labels {
		if s := scores[l]; s > max {
			max = s
		}
	}
	return max
}

func blocklistMatches(r *CompiledRule, host string) bool {
	for _, d := range r.Scope.DomainBlocklist {
		if domainMatches(host, d) {
			return true
		}
	}
	return false
}

// coveredBySpecificAllow reports whether any active rule explicitly allows
// this domain: either an ALLOW_DOMAIN rule or a content-scoped rule whose
// allowlist names it (wildcards do not count, only explicit coverage wins
// specificity).
func coveredBySpecificAllow(rules []*CompiledRule, host string) bool {
	for _, r := range rules {
		if !r.Active {
			continue
		}
		if r.Action != ActionAllowDomain && !r.IsContentScoped() {
			continue
		}
		for _, d := range r.Scope.DomainAllowlist {
			if d != WildcardDomain && domainMatches(host, d) {
				return true
			}
		}
	}
	return false
}

// normalizeDomain resolves the evaluation host from the explicit domain or
// the URL, lowercased with port stripped. Returns ok=false when neither
// yields a plausible host; the caller fails open to ALLOW.
func normalizeDomain(rawURL, domain string) (string, bool) {
	host := strings.ToLower(strings.TrimSpace(domain))

	if host == "" && rawURL != "" {
		if u, err := url.Parse(rawURL); err == nil {
			host = strings.ToLower(u.Hostname())
		}
	}

	host = strings.TrimPrefix(host, ".")
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	if host == "" || strings.ContainsAny(host, " /\\") || !strings.Contains(host, ".") {
		return "", false
	}
	return host, true
}
