package policy

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/havenlabs/haven/pkg/textnorm"
)

// DefaultModelVersion identifies the lexicon/pattern revision of this
// compiler. Rule IDs and compiled output are deterministic per
// (model version, source text) pair, so bump this whenever a table or
// pattern changes meaning.
const DefaultModelVersion = "rulec-v1"

// ruleNamespace is the UUIDv5 namespace for deterministic rule IDs.
var ruleNamespace = uuid.MustParse("b4a8e6d2-3f71-4c59-9a02-7e5cd8f1a640")

// Compiled once at package init; the compiler runs on every rule save from
// the dashboard, so no per-call compilation.
var (
	// "don't block all of youtube, only videos about gambling"
	reCondDontBlock = regexp.MustCompile(`^(?:please )?(?:don'?t|do not|dont) block (?:all of )?([\w.-]+)[,:]? ?(?:only|just|except)(?: for)?(?: the)?(?: videos?| content| stuff| pages?| posts?)?(?: about| on| of| related to)? (.+)$`)

	// "allow youtube but block gambling"
	reCondAllowBut = regexp.MustCompile(`^(?:please )?(?:allow|keep|leave) ([\w.-]+)(?: open| allowed)?,? but (?:block|no|not|warn(?: me)?(?: about)?) (.+)$`)

	// "on youtube block gambling" / "on youtube, no casino videos"
	reCondOn = regexp.MustCompile(`^on ([\w.-]+),? (?:block|no|warn(?: me)?(?: about)?) (.+)$`)

	// "block gambling videos on youtube"
	reCondBlockOn = regexp.MustCompile(`^(?:block|no|warn(?: me)?(?: about)?) (.+?) on ([\w.-]+)$`)

	// "allow youtube" / "always allow wikipedia.org"
	reExplicitAllow = regexp.MustCompile(`^(?:always )?(?:allow|unblock|permit) ([\w.-]+)$`)

	// "block youtube" / "never allow tiktok". The captured token is resolved
	// against the category table first, then the platform/domain tables.
	reExplicitBlock = regexp.MustCompile(`^(?:block|ban|never allow|disallow|no) ([\w.-]+(?: [\w.-]+)??)(?: completely| entirely| at all)?$`)

	// "no gambling sites" / "block adult content"
	reCategory = regexp.MustCompile(`^(?:no|block|ban|never allow) (.+?) (?:sites?|websites?|content|pages?|stuff)$`)

	reTrailingPunct = regexp.MustCompile(`[.!?\s]+$`)
)

// softMarkers downgrade a rule from BLOCK_CONTENT to WARN_CONTENT: the parent
// is expressing a preference, not a hard prohibition.
var softMarkers = []string{
	"prefer", "rather", "try to", "maybe", "if possible", "would like",
	"not a fan", "keep an eye",
}

// Compiler turns one natural-language rule string into a CompiledRule.
// Pure given a fixed model version and clock; it never returns an error,
// unparseable input yields Compiled=false plus a safe fallback action.
type Compiler struct {
	modelVersion   string
	blockThreshold float64
	warnThreshold  float64
	now            func() time.Time
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithModelVersion overrides the pattern/lexicon version stamp.
func WithModelVersion(v string) CompilerOption {
	return func(c *Compiler) { c.modelVersion = v }
}

// WithThresholds sets the classifier thresholds attached to hard and soft
// content conditions. The block/warn split is policy, not a constant.
func WithThresholds(block, warn float64) CompilerOption {
	return func(c *Compiler) {
		c.blockThreshold = block
		c.warnThreshold = warn
	}
}

// WithClock injects the timestamp source (tests pin it for reproducibility).
func WithClock(now func() time.Time) CompilerOption {
	return func(c *Compiler) { c.now = now }
}

// NewCompiler creates a rule compiler with default thresholds.
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{
		modelVersion:   DefaultModelVersion,
		blockThreshold: 0.55,
		warnThreshold:  0.40,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ModelVersion returns the compiler's pattern/lexicon version stamp.
func (c *Compiler) ModelVersion() string { return c.modelVersion }

// Compile parses one rule string. The returned rule is always non-nil and
// always structurally valid; ambiguity resolves toward the least surprising
// action (WARN_CONTENT), never toward a domain block.
func (c *Compiler) Compile(text string) *CompiledRule {
	rule := &CompiledRule{
		ID:         c.ruleID(text),
		SourceText: text,
		CreatedAt:  c.now(),
		Active:     true,
	}

	normalized := textnorm.Normalize(text)
	s := strings.ToLower(strings.TrimSpace(normalized.Text))
	s = reTrailingPunct.ReplaceAllString(s, "")

	if s == "" {
		rule.Compiled = false
		rule.Errors = append(rule.Errors, "empty rule text")
		c.applyVagueFallback(rule, 0.1)
		return rule
	}

	soft := hasSoftMarker(s)

	// Ordered pattern set. Conditional content-scoped patterns come first:
	// "don't block all of youtube ..." must never fall through to the
	// explicit-block matcher.
	if m := reCondDontBlock.FindStringSubmatch(s); m != nil {
		c.compileConditional(rule, m[1], m[2], soft, "pattern:conditional_dont_block")
		return rule
	}
	if m := reCondAllowBut.FindStringSubmatch(s); m != nil {
		c.compileConditional(rule, m[1], m[2], soft, "pattern:conditional_allow_but")
		return rule
	}
	if m := reCondOn.FindStringSubmatch(s); m != nil {
		c.compileConditional(rule, m[1], m[2], soft, "pattern:conditional_on")
		return rule
	}
	if m := reCondBlockOn.FindStringSubmatch(s); m != nil {
		c.compileConditional(rule, m[2], m[1], soft, "pattern:conditional_block_on")
		return rule
	}
	if m := reExplicitAllow.FindStringSubmatch(s); m != nil {
		if domains := PlatformDomains(m[1]); domains != nil {
			rule.Compiled = true
			rule.Action = ActionAllowDomain
			rule.Scope.DomainAllowlist = domains
			rule.Intent = IntentModel{
				UserIntentType:   IntentExplicitDomainAllow,
				Strength:         StrengthHard,
				ScopeGranularity: GranularityDomain,
				Confidence:       0.95,
			}
			rule.ReasonCodes = append(rule.ReasonCodes, "pattern:explicit_allow", "platform:"+m[1])
			return rule
		}
	}
	if m := reCategory.FindStringSubmatch(s); m != nil {
		if topics := ResolveTopics(m[1]); len(topics) > 0 {
			c.compileCategory(rule, topics, soft)
			return rule
		}
	}
	if m := reExplicitBlock.FindStringSubmatch(s); m != nil {
		token := m[1]
		// A bare category word ("no gambling") is a category rule even
		// without a "sites" suffix.
		if topics := ResolveTopics(token); len(topics) > 0 {
			c.compileCategory(rule, topics, soft)
			return rule
		}
		if domains := PlatformDomains(token); domains != nil {
			rule.Compiled = true
			rule.Action = ActionBlockDomain
			rule.Scope.DomainBlocklist = domains
			rule.Intent = IntentModel{
				UserIntentType:   IntentExplicitDomainBlock,
				Strength:         StrengthHard,
				ScopeGranularity: GranularityDomain,
				Confidence:       0.95,
			}
			rule.ReasonCodes = append(rule.ReasonCodes, "pattern:explicit_block", "platform:"+token)
			return rule
		}
	}

	// Nothing matched. Vague-but-non-empty input must not block a domain;
	// the safe floor is a broad, low-confidence warn rule.
	rule.Compiled = false
	rule.Errors = append(rule.Errors, "no intent pattern matched")
	c.applyVagueFallback(rule, 0.4)
	return rule
}

// compileConditional builds a content-scoped rule: allow the platform, gate
// the named topics. The allowlist invariant is enforced here by
// construction; conditional rules never receive a blocklist.
func (c *Compiler) compileConditional(rule *CompiledRule, platformToken, topicPhrase string, soft bool, reason string) {
	domains := PlatformDomains(platformToken)
	if domains == nil {
		rule.Compiled = false
		rule.Errors = append(rule.Errors, "unknown platform: "+platformToken)
		c.applyVagueFallback(rule, 0.3)
		return
	}

	topics := ResolveTopics(topicPhrase)
	if len(topics) == 0 {
		// Platform understood, topic not in the taxonomy. Warn broadly on
		// that platform rather than guessing a label.
		rule.Compiled = false
		rule.Errors = append(rule.Errors, "unknown topic: "+topicPhrase)
		rule.Action = ActionWarnContent
		rule.Scope.DomainAllowlist = domains
		rule.Condition = &ClassifierCondition{LabelsAny: AllTopics, Threshold: 0.85}
		rule.Intent = IntentModel{
			UserIntentType:   IntentConditionalContent,
			Strength:         StrengthSoft,
			ScopeGranularity: GranularityContent,
			Confidence:       0.5,
		}
		rule.ReasonCodes = append(rule.ReasonCodes, reason, "platform:"+platformToken, "topic:unresolved")
		return
	}

	rule.Compiled = true
	rule.Action = ActionBlockContent
	threshold := c.blockThreshold
	strength := StrengthHard
	if soft {
		rule.Action = ActionWarnContent
		threshold = c.warnThreshold
		strength = StrengthSoft
	}
	rule.Scope.DomainAllowlist = domains
	rule.Condition = &ClassifierCondition{LabelsAny: topics, Threshold: threshold}
	rule.Intent = IntentModel{
		UserIntentType:   IntentConditionalContent,
		Strength:         strength,
		ScopeGranularity: GranularityContent,
		Confidence:       0.9,
	}
	rule.ReasonCodes = append(rule.ReasonCodes, reason, "platform:"+platformToken)
	for _, t := range topics {
		rule.ReasonCodes = append(rule.ReasonCodes, "topic:"+string(t))
	}
}

// compileCategory resolves a category rule against the static domain table.
// Topics with a hard domain list become BLOCK_DOMAIN; topics without one
// become a broad content rule, since there is nothing safe to block at the
// network layer.
func (c *Compiler) compileCategory(rule *CompiledRule, topics []Topic, soft bool) {
	var blocklist []string
	for _, t := range topics {
		blocklist = append(blocklist, CategoryDomains(t)...)
	}

	if len(blocklist) > 0 && !soft {
		rule.Compiled = true
		rule.Action = ActionBlockDomain
		rule.Scope.DomainBlocklist = blocklist
		rule.Intent = IntentModel{
			UserIntentType:   IntentCategoryDomainBlock,
			Strength:         StrengthHard,
			ScopeGranularity: GranularityDomain,
			Confidence:       0.9,
		}
		rule.ReasonCodes = append(rule.ReasonCodes, "pattern:category_block")
		for _, t := range topics {
			rule.ReasonCodes = append(rule.ReasonCodes, "category:"+string(t))
		}
		return
	}

	rule.Compiled = true
	rule.Action = ActionWarnContent
	threshold := c.warnThreshold
	if !soft {
		rule.Action = ActionBlockContent
		threshold = c.blockThreshold
	}
	rule.Scope.DomainAllowlist = []string{WildcardDomain}
	rule.Condition = &ClassifierCondition{LabelsAny: topics, Threshold: threshold}
	rule.Intent = IntentModel{
		UserIntentType:   IntentCategoryDomainBlock,
		Strength:         strengthFor(soft),
		ScopeGranularity: GranularityContent,
		Confidence:       0.85,
	}
	rule.ReasonCodes = append(rule.ReasonCodes, "pattern:category_content")
	for _, t := range topics {
		rule.ReasonCodes = append(rule.ReasonCodes, "category:"+string(t))
	}
}

// applyVagueFallback sets the safe floor for input the compiler could not
// parse: a broad WARN_CONTENT rule. Never BLOCK_DOMAIN, since an ambiguous
// sentence must not take a site away from the child.
func (c *Compiler) applyVagueFallback(rule *CompiledRule, confidence float64) {
	rule.Action = ActionWarnContent
	rule.Scope = Scope{DomainAllowlist: []string{WildcardDomain}}
	rule.Condition = &ClassifierCondition{LabelsAny: AllTopics, Threshold: 0.85}
	rule.Intent = IntentModel{
		UserIntentType:   IntentVagueSafety,
		Strength:         StrengthSoft,
		ScopeGranularity: GranularityContent,
		Confidence:       confidence,
	}
	rule.ReasonCodes = append(rule.ReasonCodes, "pattern:vague_fallback")
}

// ruleID derives the deterministic rule identity from the model version and
// source text. Compiling the same text twice yields the same ID; the
// dashboard's storage layer may override it with its own persistent ID.
func (c *Compiler) ruleID(text string) string {
	return uuid.NewSHA1(ruleNamespace, []byte(c.modelVersion+"\x00"+text)).String()
}

func hasSoftMarker(s string) bool {
	for _, m := range softMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func strengthFor(soft bool) Strength {
	if soft {
		return StrengthSoft
	}
	return StrengthHard
}
