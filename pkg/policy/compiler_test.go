package policy

import (
	"reflect"
	"testing"
	"time"
)

func testCompiler() *Compiler {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewCompiler(WithClock(func() time.Time { return fixed }))
}

func TestCompileExplicitDomainBlock(t *testing.T) {
	c := testCompiler()

	rule := c.Compile("block youtube")
	if !rule.Compiled {
		t.Fatalf("expected compiled rule, got errors %v", rule.Errors)
	}
	if rule.Action != ActionBlockDomain {
		t.Errorf("action = %s, want BLOCK_DOMAIN", rule.Action)
	}
	if rule.Intent.UserIntentType != IntentExplicitDomainBlock {
		t.Errorf("intent = %s, want explicit_domain_block", rule.Intent.UserIntentType)
	}
	found := false
	for _, d := range rule.Scope.DomainBlocklist {
		if d == "youtube.com" {
			found = true
		}
	}
	if !found {
		t.Errorf("blocklist %v missing youtube.com", rule.Scope.DomainBlocklist)
	}
}

func TestCompileExplicitLiteralDomain(t *testing.T) {
	c := testCompiler()

	rule := c.Compile("never allow bet365.com")
	if rule.Action != ActionBlockDomain {
		t.Fatalf("action = %s, want BLOCK_DOMAIN", rule.Action)
	}
	want := []string{"bet365.com", "www.bet365.com"}
	if !reflect.DeepEqual(rule.Scope.DomainBlocklist, want) {
		t.Errorf("blocklist = %v, want %v", rule.Scope.DomainBlocklist, want)
	}
}

func TestCompileExplicitAllow(t *testing.T) {
	c := testCompiler()

	rule := c.Compile("always allow wikipedia.org")
	if rule.Action != ActionAllowDomain {
		t.Fatalf("action = %s, want ALLOW_DOMAIN", rule.Action)
	}
	if rule.Intent.UserIntentType != IntentExplicitDomainAllow {
		t.Errorf("intent = %s, want explicit_domain_allow", rule.Intent.UserIntentType)
	}
}

func TestCompileConditionalKeepsPlatformReachable(t *testing.T) {
	c := testCompiler()

	inputs := []string{
		"don't block all of youtube, only videos about gambling",
		"dont block all of youtube only videos about gambling",
		"allow youtube but block gambling",
		"on youtube, block gambling",
		"block gambling videos on youtube",
	}
	for _, in := range inputs {
		rule := c.Compile(in)
		if !rule.Compiled {
			t.Errorf("%q: not compiled, errors %v", in, rule.Errors)
			continue
		}
		if rule.Action != ActionBlockContent {
			t.Errorf("%q: action = %s, want BLOCK_CONTENT", in, rule.Action)
		}
		if len(rule.Scope.DomainBlocklist) != 0 {
			t.Errorf("%q: conditional rule grew a blocklist %v", in, rule.Scope.DomainBlocklist)
		}
		if !rule.ScopeMatches("youtube.com") || !rule.ScopeMatches("m.youtube.com") {
			t.Errorf("%q: allowlist %v does not cover youtube hosts", in, rule.Scope.DomainAllowlist)
		}
		if rule.Condition == nil || !reflect.DeepEqual(rule.Condition.LabelsAny, []Topic{TopicGambling}) {
			t.Errorf("%q: condition = %+v, want gambling", in, rule.Condition)
		}
	}
}

func TestCompileSoftMarkerDowngradesToWarn(t *testing.T) {
	c := testCompiler()

	rule := c.Compile("dont block all of youtube only videos about gambling, i prefer warnings")
	if rule.Action != ActionWarnContent {
		t.Fatalf("action = %s, want WARN_CONTENT", rule.Action)
	}
	if rule.Intent.Strength != StrengthSoft {
		t.Errorf("strength = %s, want soft", rule.Intent.Strength)
	}
	if rule.Condition.Threshold >= 0.55 {
		t.Errorf("soft threshold = %v, want below block threshold", rule.Condition.Threshold)
	}
}

func TestCompileCategoryBlock(t *testing.T) {
	c := testCompiler()

	rule := c.Compile("no gambling sites")
	if rule.Action != ActionBlockDomain {
		t.Fatalf("action = %s, want BLOCK_DOMAIN", rule.Action)
	}
	if rule.Intent.UserIntentType != IntentCategoryDomainBlock {
		t.Errorf("intent = %s, want category_domain_block", rule.Intent.UserIntentType)
	}
	found := false
	for _, d := range rule.Scope.DomainBlocklist {
		if d == "bet365.com" {
			found = true
		}
	}
	if !found {
		t.Errorf("blocklist %v missing bet365.com", rule.Scope.DomainBlocklist)
	}
}

func TestCompileCategoryWithoutDomainListStaysContentScoped(t *testing.T) {
	c := testCompiler()

	rule := c.Compile("block bullying content")
	if rule.Action != ActionBlockContent {
		t.Fatalf("action = %s, want BLOCK_CONTENT", rule.Action)
	}
	if !rule.ScopeMatches("anything.example.com") {
		t.Errorf("expected wildcard allowlist, got %v", rule.Scope.DomainAllowlist)
	}
}

func TestCompileVagueNeverBlocksDomains(t *testing.T) {
	c := testCompiler()

	inputs := []string{
		"keep my child safe online",
		"make sure nothing bad happens",
		"be careful with the internet",
	}
	for _, in := range inputs {
		rule := c.Compile(in)
		if rule.Compiled {
			t.Errorf("%q: vague input marked compiled", in)
		}
		if rule.Action == ActionBlockDomain || rule.Action == ActionBlockContent {
			t.Errorf("%q: vague input escalated to %s", in, rule.Action)
		}
		if rule.Action != ActionWarnContent {
			t.Errorf("%q: action = %s, want WARN_CONTENT fallback", in, rule.Action)
		}
		if rule.Intent.UserIntentType != IntentVagueSafety {
			t.Errorf("%q: intent = %s, want vague_safety", in, rule.Intent.UserIntentType)
		}
	}
}

func TestCompileObfuscatedRuleText(t *testing.T) {
	c := testCompiler()

	rule := c.Compile("block c4sino sites")
	if rule.Action != ActionBlockDomain {
		t.Fatalf("leetspeak category rule: action = %s, want BLOCK_DOMAIN", rule.Action)
	}
}

func TestCompileDeterministic(t *testing.T) {
	c := testCompiler()

	a := c.Compile("don't block all of youtube, only videos about gambling")
	b := c.Compile("don't block all of youtube, only videos about gambling")
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same input compiled differently:\n%+v\n%+v", a, b)
	}

	other := NewCompiler(
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }),
		WithModelVersion("rulec-v2"),
	)
	if other.Compile(a.SourceText).ID == a.ID {
		t.Error("rule ID did not change with model version")
	}
}

func TestCompiledRulesAlwaysValidate(t *testing.T) {
	c := testCompiler()

	inputs := []string{
		"block youtube",
		"allow roblox",
		"no gambling sites",
		"don't block all of youtube, only videos about gambling",
		"block hate content",
		"keep my kid safe",
		"",
		"asdf qwerty",
	}
	for _, in := range inputs {
		rule := c.Compile(in)
		if problems := rule.Validate(); len(problems) > 0 {
			t.Errorf("%q: invalid compiled rule: %v", in, problems)
		}
	}
}

func TestCompileEmptyInput(t *testing.T) {
	c := testCompiler()

	rule := c.Compile("   ")
	if rule.Compiled {
		t.Error("blank input marked compiled")
	}
	if len(rule.Errors) == 0 {
		t.Error("blank input carried no errors")
	}
	if rule.Action != ActionWarnContent {
		t.Errorf("action = %s, want WARN_CONTENT fallback", rule.Action)
	}
}
