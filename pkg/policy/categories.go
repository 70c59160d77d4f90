package policy

import "strings"

// Topic is a canonical content-category label in the fixed taxonomy. Rule
// conditions, classifier scores and category tables all speak in Topics so
// that a parent's "casino videos" and "betting content" land on the same
// label.
type Topic string

const (
	TopicGambling       Topic = "gambling"
	TopicPornography    Topic = "pornography"
	TopicViolence       Topic = "violence"
	TopicSelfHarm       Topic = "self_harm"
	TopicHate           Topic = "hate"
	TopicDrugs          Topic = "drugs"
	TopicWeapons        Topic = "weapons"
	TopicGrooming       Topic = "grooming"
	TopicBullying       Topic = "bullying"
	TopicExtremism      Topic = "extremism"
	TopicScams          Topic = "scams"
	TopicEatingDisorder Topic = "eating_disorder"
)

// AllTopics lists every label in the taxonomy, in stable order. Used for
// broad low-confidence fallback rules.
var AllTopics = []Topic{
	TopicGambling, TopicPornography, TopicViolence, TopicSelfHarm,
	TopicHate, TopicDrugs, TopicWeapons, TopicGrooming,
	TopicBullying, TopicExtremism, TopicScams, TopicEatingDisorder,
}

// topicAliases maps normalized parent phrasing to canonical topics. Lookup is
// word-level against the normalized rule text.
var topicAliases = map[string]Topic{
	"gambling": TopicGambling, "gamble": TopicGambling, "casino": TopicGambling,
	"casinos": TopicGambling, "betting": TopicGambling, "bets": TopicGambling,
	"poker": TopicGambling, "slots": TopicGambling, "lottery": TopicGambling,
	"blackjack": TopicGambling, "roulette": TopicGambling,

	"porn": TopicPornography, "pornography": TopicPornography, "adult": TopicPornography,
	"nsfw": TopicPornography, "sexual": TopicPornography, "sex": TopicPornography,
	"nudity": TopicPornography, "explicit": TopicPornography,

	"violence": TopicViolence, "violent": TopicViolence, "gore": TopicViolence,
	"fighting": TopicViolence,

	"suicide": TopicSelfHarm, "cutting": TopicSelfHarm, "selfharm": TopicSelfHarm,
	"self-harm": TopicSelfHarm,

	"hate": TopicHate, "racism": TopicHate, "racist": TopicHate,

	"drugs": TopicDrugs, "drug": TopicDrugs, "weed": TopicDrugs,
	"cannabis": TopicDrugs, "vaping": TopicDrugs, "cocaine": TopicDrugs,

	"weapons": TopicWeapons, "weapon": TopicWeapons, "guns": TopicWeapons,
	"gun": TopicWeapons, "firearms": TopicWeapons, "knives": TopicWeapons,

	"grooming": TopicGrooming, "predators": TopicGrooming,

	"bullying": TopicBullying, "cyberbullying": TopicBullying, "harassment": TopicBullying,

	"extremism": TopicExtremism, "extremist": TopicExtremism, "radicalization": TopicExtremism,
	"terrorist": TopicExtremism, "terrorism": TopicExtremism,

	"scams": TopicScams, "scam": TopicScams, "phishing": TopicScams, "fraud": TopicScams,

	"anorexia": TopicEatingDisorder, "thinspo": TopicEatingDisorder,
	"proana": TopicEatingDisorder,
}

// categoryDomains is the static category-to-domain-list table used to resolve
// category rules like "no gambling sites" into a hard network blocklist.
// These lists fail closed: they are static, reviewed, and not subject to
// runtime ambiguity, so membership always means blocked.
var categoryDomains = map[Topic][]string{
	TopicGambling: {
		"bet365.com", "pokerstars.com", "draftkings.com", "fanduel.com",
		"stake.com", "888casino.com", "williamhill.com", "betway.com",
		"bovada.lv", "betmgm.com",
	},
	TopicPornography: {
		"pornhub.com", "xvideos.com", "xnxx.com", "xhamster.com",
		"redtube.com", "onlyfans.com", "youporn.com",
	},
	TopicViolence: {
		"bestgore.fun", "documentingreality.com",
	},
	TopicDrugs: {
		"weedmaps.com", "leafly.com",
	},
	TopicWeapons: {
		"gunbroker.com", "armslist.com",
	},
	TopicEatingDisorder: {
		"myproana.com",
	},
}

// platformDomains maps a platform token from rule text to its canonical
// domain set, including www. and mobile variants, so a content-scoped rule
// for "youtube" gates every host YouTube serves from.
var platformDomains = map[string][]string{
	"youtube":   {"youtube.com", "www.youtube.com", "m.youtube.com", "youtu.be"},
	"tiktok":    {"tiktok.com", "www.tiktok.com"},
	"instagram": {"instagram.com", "www.instagram.com"},
	"snapchat":  {"snapchat.com", "www.snapchat.com", "web.snapchat.com"},
	"roblox":    {"roblox.com", "www.roblox.com", "web.roblox.com"},
	"discord":   {"discord.com", "www.discord.com", "discord.gg"},
	"twitch":    {"twitch.tv", "www.twitch.tv", "m.twitch.tv"},
	"reddit":    {"reddit.com", "www.reddit.com", "old.reddit.com"},
	"facebook":  {"facebook.com", "www.facebook.com", "m.facebook.com"},
	"twitter":   {"twitter.com", "www.twitter.com", "x.com", "www.x.com"},
	"x":         {"x.com", "www.x.com", "twitter.com"},
	"pinterest": {"pinterest.com", "www.pinterest.com"},
	"tumblr":    {"tumblr.com", "www.tumblr.com"},
	"steam":     {"steampowered.com", "store.steampowered.com", "steamcommunity.com"},
}

// educationalDomains are registrable domains whose pages frequently discuss
// sensitive topics in a reference or educational register. Topic matches on
// these hosts get their effective threshold shifted upward so a Wikipedia
// article about gambling is not treated like a casino landing page.
var educationalDomains = map[string]bool{
	"wikipedia.org":          true,
	"wiktionary.org":         true,
	"britannica.com":         true,
	"khanacademy.org":        true,
	"nationalgeographic.com": true,
	"bbc.co.uk":              true,
	"google.com":             true,
	"bing.com":               true,
	"duckduckgo.com":         true,
	"dictionary.com":         true,
	"merriam-webster.com":    true,
	"healthline.com":         true,
	"nih.gov":                true,
	"who.int":                true,
}

// ResolveTopics scans normalized rule or topic text and returns the canonical
// topics named in it, in taxonomy order, deduplicated.
func ResolveTopics(text string) []Topic {
	found := make(map[Topic]bool)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '/' || r == ';'
	}) {
		if t, ok := topicAliases[word]; ok {
			found[t] = true
		}
	}

	var topics []Topic
	for _, t := range AllTopics {
		if found[t] {
			topics = append(topics, t)
		}
	}
	return topics
}

// PlatformDomains returns the canonical domain set for a platform token.
// Unknown tokens that look like a literal domain get the bare and www.
// variants; anything else resolves to nil.
func PlatformDomains(token string) []string {
	token = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(token), "www."))
	if domains, ok := platformDomains[token]; ok {
		return domains
	}
	if strings.Contains(token, ".") && isDomainLike(token) {
		return []string{token, "www." + token}
	}
	return nil
}

// CategoryDomains returns the static blocklist for a topic, or nil when the
// taxonomy has no hard domain list for it.
func CategoryDomains(t Topic) []string {
	return categoryDomains[t]
}

// IsEducationalDomain reports whether the registrable domain of host is in
// the reference/educational allowlist.
func IsEducationalDomain(host string) bool {
	return educationalDomains[RegistrableDomain(host)]
}

// RegistrableDomain reduces a host to its registrable domain: the last two
// labels, or three when the second-level label is itself a common registry
// suffix (bbc.co.uk).
func RegistrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}
	second := labels[len(labels)-2]
	switch second {
	case "co", "com", "org", "net", "ac", "gov", "edu":
		return strings.Join(labels[len(labels)-3:], ".")
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

func isDomainLike(s string) bool {
	if len(s) < 4 || strings.ContainsAny(s, " \t/") {
		return false
	}
	for _, r := range s {
		if !(r == '.' || r == '-' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return !strings.HasPrefix(s, ".") && !strings.HasSuffix(s, ".")
}
