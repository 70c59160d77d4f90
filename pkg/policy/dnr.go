package policy

import "sort"

// DNRPattern is one declarativeNetRequest-style network block rule, the form
// browser extensions and DNS filters consume. The urlFilter anchor syntax
// ("||domain^") matches the domain and every subdomain.
type DNRPattern struct {
	URLFilter string `json:"url_filter"`
	Domain    string `json:"domain"`
	RuleID    string `json:"rule_id"`
}

// ExtractDNRPatterns projects the network-enforceable subset of a rule set
// into block patterns. Only BLOCK_DOMAIN rules contribute; content-scoped
// rules are invisible here by construction, which is the structural guarantee
// that "allow youtube except gambling videos" never produces a youtube.com
// network block. Output is deduplicated by domain (first rule wins) and
// sorted for stable diffs.
func ExtractDNRPatterns(rules []*CompiledRule) []DNRPattern {
	seen := make(map[string]bool)
	var patterns []DNRPattern

	for _, r := range rules {
		if !r.Active || r.Action != ActionBlockDomain {
			continue
		}
		for _, d := range r.Scope.DomainBlocklist {
			if d == "" || d == WildcardDomain || seen[d] {
				continue
			}
			seen[d] = true
			patterns = append(patterns, DNRPattern{
				URLFilter: "||" + d + "^",
				Domain:    d,
				RuleID:    r.ID,
			})
		}
	}

	sort.Slice(patterns, func(i, j int) bool {
		return patterns[i].Domain < patterns[j].Domain
	})
	return patterns
}
