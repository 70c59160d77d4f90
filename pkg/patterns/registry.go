// Package patterns provides a centralized registry of conversation-risk
// regexes. All patterns are compiled once at package init and shared across
// the turn labeler and any future scanners.
//
// Design principles:
// - COMPILE ONCE: All patterns compiled at init, not per-turn
// - DRY: Single source of truth for deterministic turn signals
// - CATEGORIZED: Patterns organized by signal category for targeted scans
package patterns

import (
	"regexp"
	"sync"
)

// Category groups patterns by the conversation signal they evidence.
type Category string

const (
	CategoryContactExchange   Category = "contact_exchange"
	CategoryMeetingArrange    Category = "meeting_arrangement"
	CategorySecrecy           Category = "secrecy"
	CategoryAgeProbing        Category = "age_probing"
	CategoryImageRequest      Category = "image_request"
	CategoryGiftOffering      Category = "gift_offering"
	CategoryPlatformMigration Category = "platform_migration"
)

// Pattern holds a compiled regex with metadata.
type Pattern struct {
	Name        string         // Human-readable name for logging
	Regex       *regexp.Regexp // Compiled regex (never nil after init)
	Category    Category       // Signal category
	Severity    int            // Score contribution (0-100)
	Description string         // What this pattern detects
}

// Registry holds all compiled patterns, organized by category.
type Registry struct {
	mu         sync.RWMutex
	byCategory map[Category][]*Pattern
	all        []*Pattern
}

// global singleton - initialized once at package load
var (
	globalRegistry *Registry
	initOnce       sync.Once
)

// Get returns the global pattern registry (singleton).
// Thread-safe and guaranteed to be initialized.
func Get() *Registry {
	initOnce.Do(func() {
		globalRegistry = newRegistry()
	})
	return globalRegistry
}

func newRegistry() *Registry {
	r := &Registry{
		byCategory: make(map[Category][]*Pattern),
		all:        make([]*Pattern, 0, 64),
	}

	r.registerContactExchangePatterns()
	r.registerMeetingPatterns()
	r.registerSecrecyPatterns()
	r.registerAgeProbingPatterns()
	r.registerImageRequestPatterns()
	r.registerGiftPatterns()
	r.registerMigrationPatterns()

	return r
}

// register adds a pattern to the registry (internal use only).
func (r *Registry) register(name string, pattern string, category Category, severity int, description string) {
	compiled := regexp.MustCompile(pattern)
	p := &Pattern{
		Name:        name,
		Regex:       compiled,
		Category:    category,
		Severity:    severity,
		Description: description,
	}

	r.byCategory[category] = append(r.byCategory[category], p)
	r.all = append(r.all, p)
}

// GetByCategory returns all patterns for a category.
// Returns an empty slice if the category is unknown (never nil).
func (r *Registry) GetByCategory(cat Category) []*Pattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if patterns, ok := r.byCategory[cat]; ok {
		return patterns
	}
	return []*Pattern{}
}

// GetMultipleCategories returns patterns from several categories at once.
func (r *Registry) GetMultipleCategories(cats ...Category) []*Pattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Pattern
	for _, cat := range cats {
		if patterns, ok := r.byCategory[cat]; ok {
			result = append(result, patterns...)
		}
	}
	return result
}

// Categories lists every category with at least one registered pattern.
func (r *Registry) Categories() []Category {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cats := make([]Category, 0, len(r.byCategory))
	for cat := range r.byCategory {
		cats = append(cats, cat)
	}
	return cats
}

// MatchAny checks text against the given categories and returns the first
// matching pattern or nil. Optimized for early exit.
func (r *Registry) MatchAny(text string, cats ...Category) *Pattern {
	patterns := r.GetMultipleCategories(cats...)
	for _, p := range patterns {
		if p.Regex.MatchString(text) {
			return p
		}
	}
	return nil
}

// MatchAll returns every pattern in the given categories that matches the
// text. Use when all matches are needed for scoring.
func (r *Registry) MatchAll(text string, cats ...Category) []*Pattern {
	patterns := r.GetMultipleCategories(cats...)
	var matches []*Pattern
	for _, p := range patterns {
		if p.Regex.MatchString(text) {
			matches = append(matches, p)
		}
	}
	return matches
}

// TotalPatterns returns the total count of registered patterns.
func (r *Registry) TotalPatterns() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.all)
}

// CategoryCount returns the number of patterns in a category.
func (r *Registry) CategoryCount(cat Category) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byCategory[cat])
}
