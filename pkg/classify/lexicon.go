// Package classify provides the content classifiers behind the policy
// evaluator's Scorer interface: a deterministic lexicon scorer, an
// embedding-based semantic scorer, a local ONNX model scorer and a remote
// LLM scorer, plus a chain that picks the first available backend.
package classify

import (
	"context"
	"strings"

	"github.com/havenlabs/haven/pkg/policy"
)

// topicTerms are the weighted keyword tables for the deterministic scorer.
// Weights are the standalone score a single hit produces; additional distinct
// hits on the same topic raise the score toward 1.0.
var topicTerms = map[policy.Topic]map[string]float64{
	policy.TopicGambling: {
		"casino": 0.70, "poker": 0.65, "blackjack": 0.65, "roulette": 0.65,
		"slots": 0.60, "betting": 0.60, "jackpot": 0.55, "gambling": 0.75,
		"wager": 0.55, "bookmaker": 0.60, "odds": 0.30, "bet": 0.35,
	},
	policy.TopicPornography: {
		"porn": 0.80, "pornography": 0.80, "xxx": 0.70, "nude": 0.55,
		"nudes": 0.60, "sex": 0.45, "nsfw": 0.60, "explicit": 0.35,
		"onlyfans": 0.65,
	},
	policy.TopicViolence: {
		"gore": 0.70, "beheading": 0.85, "massacre": 0.60, "torture": 0.55,
		"murder": 0.45, "violence": 0.40, "brutal": 0.30, "stabbing": 0.55,
	},
	policy.TopicSelfHarm: {
		"suicide": 0.60, "self-harm": 0.70, "selfharm": 0.70, "cutting": 0.40,
		"overdose": 0.50, "kill yourself": 0.85, "end my life": 0.75,
		"want to die": 0.70,
	},
	policy.TopicHate: {
		"hate speech": 0.55, "racial slur": 0.65, "white power": 0.80,
		"ethnic cleansing": 0.75, "racist": 0.45,
	},
	policy.TopicDrugs: {
		"cocaine": 0.65, "heroin": 0.70, "meth": 0.65, "fentanyl": 0.70,
		"weed": 0.50, "cannabis": 0.45, "edibles": 0.40, "drugs": 0.40,
		"dealer": 0.35, "vape": 0.40,
	},
	policy.TopicWeapons: {
		"firearm": 0.55, "ammunition": 0.55, "ghost gun": 0.80, "pistol": 0.50,
		"rifle": 0.45, "gun": 0.35, "silencer": 0.60, "explosives": 0.70,
	},
	policy.TopicGrooming: {
		"keep it secret": 0.70, "our secret": 0.70, "dont tell your parents": 0.85,
		"don't tell your parents": 0.85, "how old are you": 0.35,
		"send me a photo": 0.55, "age sex location": 0.70, "meet in person": 0.50,
		"move to snapchat": 0.60, "move to telegram": 0.60,
	},
	policy.TopicBullying: {
		"nobody likes you": 0.65, "kill yourself": 0.80, "loser": 0.30,
		"everyone hates you": 0.70, "ugly": 0.25,
	},
	policy.TopicExtremism: {
		"jihad": 0.55, "manifesto": 0.40, "race war": 0.80, "terrorist": 0.50,
		"radicalization": 0.50,
	},
	policy.TopicScams: {
		"free robux": 0.75, "free v-bucks": 0.75, "claim your prize": 0.60,
		"verify your account": 0.45, "crypto giveaway": 0.70, "double your money": 0.70,
	},
	policy.TopicEatingDisorder: {
		"thinspo": 0.80, "proana": 0.80, "pro-ana": 0.80, "meanspo": 0.75,
		"thigh gap": 0.50, "purge": 0.45, "fasting tips": 0.55,
	},
}

// LexiconScorer scores text against static weighted keyword tables. Fully
// deterministic and dependency free; it is the floor of the classifier chain
// and the reference implementation the probabilistic backends are judged
// against in tests.
type LexiconScorer struct{}

var _ policy.Scorer = (*LexiconScorer)(nil)

// NewLexiconScorer creates the deterministic keyword scorer.
func NewLexiconScorer() *LexiconScorer {
	return &LexiconScorer{}
}

// Score rates the text for each requested label. The score for a topic is its
// strongest term hit plus 0.1 per additional distinct hit, capped at 1.0.
// Heavy obfuscation in the source text adds a small boost: a page that had to
// hide its words is more likely to mean them.
func (s *LexiconScorer) Score(_ context.Context, text string, labels []policy.Topic, pageCtx policy.PageContext) (map[policy.Topic]float64, error) {
	lower := strings.ToLower(text)
	scores := make(map[policy.Topic]float64, len(labels))

	for _, label := range labels {
		terms := topicTerms[label]
		best := 0.0
		hits := 0
		for term, weight := range terms {
			if containsTerm(lower, term) {
				hits++
				if weight > best {
					best = weight
				}
			}
		}
		if hits == 0 {
			scores[label] = 0
			continue
		}
		score := best + 0.1*float64(hits-1)
		if pageCtx.ObfuscationScore > 0.1 {
			score += 0.15
		}
		if score > 1.0 {
			score = 1.0
		}
		scores[label] = score
	}
	return scores, nil
}

// containsTerm matches a term on word boundaries. Multi-word terms fall back
// to substring matching since their boundaries are already implied.
func containsTerm(text, term string) bool {
	if strings.Contains(term, " ") || strings.Contains(term, "-") {
		return strings.Contains(text, term)
	}
	idx := 0
	for {
		i := strings.Index(text[idx:], term)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(term)
		if (start == 0 || !isWordByte(text[start-1])) &&
			(end == len(text) || !isWordByte(text[end])) {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
