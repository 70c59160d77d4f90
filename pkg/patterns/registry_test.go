package patterns

import (
	"testing"
)

func TestRegistryInit(t *testing.T) {
	// Get should return a singleton registry
	r1 := Get()
	r2 := Get()

	if r1 != r2 {
		t.Error("Get() should return the same registry instance")
	}
}

func TestRegistryHasPatterns(t *testing.T) {
	r := Get()

	total := r.TotalPatterns()
	if total < 20 {
		t.Errorf("expected at least 20 patterns, got %d", total)
	}

	t.Logf("Registry loaded %d patterns", total)
}

func TestCategoryPatterns(t *testing.T) {
	r := Get()

	testCases := []struct {
		category    Category
		minPatterns int
	}{
		{CategoryContactExchange, 3},
		{CategoryMeetingArrange, 2},
		{CategorySecrecy, 3},
		{CategoryAgeProbing, 2},
		{CategoryImageRequest, 2},
		{CategoryGiftOffering, 2},
		{CategoryPlatformMigration, 1},
	}

	for _, tc := range testCases {
		t.Run(string(tc.category), func(t *testing.T) {
			patterns := r.GetByCategory(tc.category)
			if len(patterns) < tc.minPatterns {
				t.Errorf("category %s: expected at least %d patterns, got %d",
					tc.category, tc.minPatterns, len(patterns))
			}
		})
	}
}

func TestMatchAny(t *testing.T) {
	r := Get()

	testCases := []struct {
		name      string
		text      string
		category  Category
		wantMatch bool
	}{
		{"phone number", "call me at 555-867-5309 tonight", CategoryContactExchange, true},
		{"ask for number", "whats ur number", CategoryContactExchange, true},
		{"our secret", "this is our little secret ok", CategorySecrecy, true},
		{"dont tell", "dont tell your mom about this", CategorySecrecy, true},
		{"age question", "how old are u anyway", CategoryAgeProbing, true},
		{"photo request", "send me a pic of you", CategoryImageRequest, true},
		{"robux offer", "i can get you free robux", CategoryGiftOffering, true},
		{"move to snap", "add me on snapchat instead", CategoryPlatformMigration, true},
		{"meet up", "we should meet up sometime", CategoryMeetingArrange, true},
		{"benign chat", "did you finish the math homework", CategorySecrecy, false},
		{"benign game talk", "that boss fight was so hard", CategoryImageRequest, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := r.MatchAny(tc.text, tc.category)
			if tc.wantMatch && got == nil {
				t.Errorf("expected %q to match category %s", tc.text, tc.category)
			}
			if !tc.wantMatch && got != nil {
				t.Errorf("expected no match for %q, got pattern %s", tc.text, got.Name)
			}
		})
	}
}

func TestMatchAllReturnsEveryHit(t *testing.T) {
	r := Get()

	text := "dont tell anyone, this is our little secret"
	matches := r.MatchAll(text, CategorySecrecy)
	if len(matches) < 2 {
		t.Errorf("expected both secrecy patterns to fire, got %d", len(matches))
	}
}

func TestUnknownCategoryIsEmptyNotNil(t *testing.T) {
	r := Get()

	patterns := r.GetByCategory(Category("nonexistent"))
	if patterns == nil {
		t.Error("unknown category should return empty slice, not nil")
	}
	if len(patterns) != 0 {
		t.Errorf("unknown category returned %d patterns", len(patterns))
	}
}
