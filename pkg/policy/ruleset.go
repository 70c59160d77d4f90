package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// PackRule is one rule entry as authored in a policy pack: the raw parental
// sentence plus its persistent identity and active flag.
type PackRule struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Text   string `json:"text" yaml:"text"`
	Active *bool  `json:"active,omitempty" yaml:"active,omitempty"`
}

// PolicyPack is the serialized per-child policy document the dashboard
// produces. PolicyVersion changes whenever any rule text, order or flag
// changes; the store uses it to decide whether a recompile is needed.
type PolicyPack struct {
	PolicyVersion string     `json:"policy_version" yaml:"policy_version"`
	ChildID       string     `json:"child_id" yaml:"child_id"`
	Tier          string     `json:"tier,omitempty" yaml:"tier,omitempty"`
	Rules         []PackRule `json:"rules" yaml:"rules"`
}

// ParsePolicyPack decodes a pack from YAML or JSON. YAML is tried first since
// yaml.v3 accepts JSON as a subset.
func ParsePolicyPack(data []byte) (*PolicyPack, error) {
	var pack PolicyPack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		if jerr := json.Unmarshal(data, &pack); jerr != nil {
			return nil, fmt.Errorf("decoding policy pack: %w", err)
		}
	}
	if pack.PolicyVersion == "" {
		return nil, fmt.Errorf("policy pack missing policy_version")
	}
	return &pack, nil
}

// LoadPolicyPack reads and decodes a pack file.
func LoadPolicyPack(path string) (*PolicyPack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy pack: %w", err)
	}
	return ParsePolicyPack(data)
}

// RuleSet holds the compiled rules for one child, guarded for concurrent
// evaluation while the dashboard swaps packs underneath. Compilation is
// deterministic, so Apply skips work when the policy version is unchanged.
type RuleSet struct {
	mu       sync.RWMutex
	compiler *Compiler

	childID string
	version string
	rules   []*CompiledRule
}

// NewRuleSet creates an empty rule set backed by the given compiler.
func NewRuleSet(compiler *Compiler) *RuleSet {
	if compiler == nil {
		compiler = NewCompiler()
	}
	return &RuleSet{compiler: compiler}
}

// Apply compiles the pack and swaps it in. Returns true when a recompile
// happened, false when the version already matched. A pack rule's persistent
// ID overrides the compiler's deterministic one; the active flag defaults to
// true when omitted.
func (rs *RuleSet) Apply(pack *PolicyPack) (bool, error) {
	if pack == nil {
		return false, fmt.Errorf("nil policy pack")
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if pack.PolicyVersion == rs.version && len(rs.rules) > 0 {
		return false, nil
	}

	compiled := make([]*CompiledRule, 0, len(pack.Rules))
	for _, pr := range pack.Rules {
		rule := rs.compiler.Compile(pr.Text)
		if pr.ID != "" {
			rule.ID = pr.ID
		}
		if pr.Active != nil {
			rule.Active = *pr.Active
		}
		if problems := rule.Validate(); len(problems) > 0 {
			return false, fmt.Errorf("rule %q compiled invalid: %v", pr.Text, problems)
		}
		compiled = append(compiled, rule)
	}

	rs.childID = pack.ChildID
	rs.version = pack.PolicyVersion
	rs.rules = compiled
	return true, nil
}

// Rules returns a snapshot of the current compiled rules. The slice is a
// copy; rules themselves are immutable after compilation.
func (rs *RuleSet) Rules() []*CompiledRule {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	out := make([]*CompiledRule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Version returns the applied policy version, empty before the first Apply.
func (rs *RuleSet) Version() string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.version
}

// ChildID returns the child the current pack belongs to.
func (rs *RuleSet) ChildID() string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.childID
}
