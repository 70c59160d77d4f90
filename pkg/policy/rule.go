package policy

import (
	"time"
)

// Action is the enforcement action a rule or decision carries. The set is
// closed; every switch over Action must handle all five members.
type Action string

const (
	ActionAllow        Action = "ALLOW"
	ActionAllowDomain  Action = "ALLOW_DOMAIN"
	ActionBlockDomain  Action = "BLOCK_DOMAIN"
	ActionBlockContent Action = "BLOCK_CONTENT"
	ActionWarnContent  Action = "WARN_CONTENT"
)

// IsContentScoped reports whether the action inspects page content rather
// than blocking at the domain level. Content-scoped actions never reach the
// network blocklist.
func (a Action) IsContentScoped() bool {
	return a == ActionBlockContent || a == ActionWarnContent
}

// IntentType classifies which compiler pattern produced a rule.
type IntentType string

const (
	IntentExplicitDomainBlock IntentType = "explicit_domain_block"
	IntentExplicitDomainAllow IntentType = "explicit_domain_allow"
	IntentCategoryDomainBlock IntentType = "category_domain_block"
	IntentConditionalContent  IntentType = "conditional_content"
	IntentVagueSafety         IntentType = "vague_safety"
)

// Strength distinguishes hard parental intent ("block X") from soft
// preference phrasing ("I'd rather they avoid X").
type Strength string

const (
	StrengthHard Strength = "hard"
	StrengthSoft Strength = "soft"
)

// ScopeGranularity is whether the rule binds to whole domains or to content
// within allowed domains.
type ScopeGranularity string

const (
	GranularityDomain  ScopeGranularity = "domain"
	GranularityContent ScopeGranularity = "content"
)

// Scope holds the domain lists a rule binds to. At most one of the two lists
// is populated for any rule: an allowlist scopes content inspection, a
// blocklist feeds network blocking. WildcardDomain in an allowlist matches
// every domain (broad fallback rules).
type Scope struct {
	DomainAllowlist []string `json:"domain_allowlist,omitempty" yaml:"domain_allowlist,omitempty"`
	DomainBlocklist []string `json:"domain_blocklist,omitempty" yaml:"domain_blocklist,omitempty"`
}

// WildcardDomain marks an allowlist entry that matches any domain.
const WildcardDomain = "*"

// ClassifierCondition gates a content-scoped rule on topic scores. The rule
// fires when any label in LabelsAny scores at or above Threshold.
type ClassifierCondition struct {
	LabelsAny []Topic `json:"labels_any" yaml:"labels_any"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// IntentModel records how confidently the compiler classified the parent's
// intent. Explicit pattern matches carry confidence >= 0.9; inferred or vague
// matches carry less.
type IntentModel struct {
	UserIntentType   IntentType       `json:"user_intent_type" yaml:"user_intent_type"`
	Strength         Strength         `json:"strength" yaml:"strength"`
	ScopeGranularity ScopeGranularity `json:"scope_granularity" yaml:"scope_granularity"`
	Confidence       float64          `json:"confidence" yaml:"confidence"`
}

// CompiledRule is the immutable unit of parental intent. Create-on-compile;
// an edit recompiles a fresh rule. Compiled=false rules carry their parse
// errors and act as safe WARN_CONTENT fallbacks rather than failing.
type CompiledRule struct {
	ID         string    `json:"id"`
	SourceText string    `json:"source_text"`
	CreatedAt  time.Time `json:"created_at"`

	Action    Action               `json:"action"`
	Scope     Scope                `json:"scope"`
	Condition *ClassifierCondition `json:"condition,omitempty"`
	Intent    IntentModel          `json:"intent_model"`

	ReasonCodes []string `json:"debug_reason_codes,omitempty"`

	Active   bool     `json:"active"`
	Compiled bool     `json:"compiled"`
	Errors   []string `json:"errors,omitempty"`
}

// IsContentScoped reports whether the rule inspects page content within an
// allowed domain scope.
func (r *CompiledRule) IsContentScoped() bool {
	return r.Action.IsContentScoped()
}

// Validate checks the structural invariants every compiled rule must hold.
// The load-bearing one: content-scoped rules carry a non-empty allowlist and
// never a blocklist, which is what keeps "allow youtube except gambling"
// from ever degrading into a full-domain block.
func (r *CompiledRule) Validate() []string {
	var problems []string

	if len(r.Scope.DomainAllowlist) > 0 && len(r.Scope.DomainBlocklist) > 0 {
		problems = append(problems, "scope has both allowlist and blocklist")
	}

	switch r.Action {
	case ActionBlockContent, ActionWarnContent:
		if len(r.Scope.DomainAllowlist) == 0 {
			problems = append(problems, "content-scoped rule without domain allowlist")
		}
		if len(r.Scope.DomainBlocklist) > 0 {
			problems = append(problems, "content-scoped rule with domain blocklist")
		}
		if r.Condition == nil || len(r.Condition.LabelsAny) == 0 {
			problems = append(problems, "content-scoped rule without classifier condition")
		}
	case ActionBlockDomain:
		if len(r.Scope.DomainBlocklist) == 0 {
			problems = append(problems, "domain-block rule without blocklist")
		}
	case ActionAllowDomain:
		if len(r.Scope.DomainAllowlist) == 0 {
			problems = append(problems, "domain-allow rule without allowlist")
		}
	}

	return problems
}

// ScopeMatches reports whether the rule's allowlist covers the given
// registrable or exact domain.
func (r *CompiledRule) ScopeMatches(domain string) bool {
	for _, d := range r.Scope.DomainAllowlist {
		if d == WildcardDomain || domainMatches(domain, d) {
			return true
		}
	}
	return false
}

// domainMatches is exact or registrable-suffix domain matching:
// "m.youtube.com" matches a rule domain of "youtube.com" but
// "notyoutube.com" does not.
func domainMatches(domain, ruleDomain string) bool {
	if domain == ruleDomain {
		return true
	}
	return len(domain) > len(ruleDomain) &&
		domain[len(domain)-len(ruleDomain)-1] == '.' &&
		domain[len(domain)-len(ruleDomain):] == ruleDomain
}
