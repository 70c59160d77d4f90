package policy

import (
	"testing"
)

const samplePackYAML = `
policy_version: v3
child_id: child-7
tier: standard
rules:
  - id: rule-persistent-1
    text: "don't block all of youtube, only videos about gambling"
  - text: "no gambling sites"
  - text: "block tiktok"
    active: false
`

func TestParsePolicyPackYAML(t *testing.T) {
	pack, err := ParsePolicyPack([]byte(samplePackYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if pack.PolicyVersion != "v3" || pack.ChildID != "child-7" {
		t.Errorf("header = %q/%q", pack.PolicyVersion, pack.ChildID)
	}
	if len(pack.Rules) != 3 {
		t.Fatalf("rules = %d, want 3", len(pack.Rules))
	}
	if pack.Rules[2].Active == nil || *pack.Rules[2].Active {
		t.Error("explicit active:false not decoded")
	}
}

func TestParsePolicyPackJSON(t *testing.T) {
	data := []byte(`{"policy_version":"v1","child_id":"c1","rules":[{"text":"block youtube"}]}`)
	pack, err := ParsePolicyPack(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if pack.PolicyVersion != "v1" || len(pack.Rules) != 1 {
		t.Errorf("pack = %+v", pack)
	}
}

func TestParsePolicyPackRequiresVersion(t *testing.T) {
	if _, err := ParsePolicyPack([]byte(`child_id: c1`)); err == nil {
		t.Error("missing policy_version accepted")
	}
}

func TestRuleSetApply(t *testing.T) {
	pack, err := ParsePolicyPack([]byte(samplePackYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	rs := NewRuleSet(testCompiler())
	changed, err := rs.Apply(pack)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !changed {
		t.Error("first apply reported no change")
	}

	rules := rs.Rules()
	if len(rules) != 3 {
		t.Fatalf("compiled rules = %d, want 3", len(rules))
	}
	if rules[0].ID != "rule-persistent-1" {
		t.Errorf("persistent ID not honored: %q", rules[0].ID)
	}
	if rules[2].Active {
		t.Error("active:false pack rule compiled active")
	}
	if rs.Version() != "v3" || rs.ChildID() != "child-7" {
		t.Errorf("rule set header = %q/%q", rs.Version(), rs.ChildID())
	}
}

func TestRuleSetApplySkipsUnchangedVersion(t *testing.T) {
	pack, _ := ParsePolicyPack([]byte(samplePackYAML))
	rs := NewRuleSet(testCompiler())

	if _, err := rs.Apply(pack); err != nil {
		t.Fatalf("apply: %v", err)
	}
	changed, err := rs.Apply(pack)
	if err != nil {
		t.Fatalf("re-apply: %v", err)
	}
	if changed {
		t.Error("unchanged version recompiled")
	}

	pack.PolicyVersion = "v4"
	changed, _ = rs.Apply(pack)
	if !changed {
		t.Error("bumped version did not recompile")
	}
}
