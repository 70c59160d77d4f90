package risk

import (
	"strings"

	"github.com/havenlabs/haven/pkg/patterns"
	"github.com/havenlabs/haven/pkg/textnorm"
)

// categoryLabels maps pattern registry categories onto intent labels. One
// category may evidence only one label; the classifier remains free to report
// labels no regex can catch (flattery, sexual content, threats).
var categoryLabels = map[patterns.Category]Label{
	patterns.CategoryContactExchange:   LabelPersonalInfoProbe,
	patterns.CategoryMeetingArrange:    LabelMeetingRequest,
	patterns.CategorySecrecy:           LabelSecrecyInduction,
	patterns.CategoryAgeProbing:        LabelAgeProbing,
	patterns.CategoryImageRequest:      LabelImageRequest,
	patterns.CategoryGiftOffering:      LabelGiftOffering,
	patterns.CategoryPlatformMigration: LabelPlatformMigration,
}

// LabelsFromText runs the deterministic pattern registry over one message and
// returns label scores for every category that fired. The text is normalized
// first so obfuscated phrasing still matches. Scores complement classifier
// output; MergeLabelScores combines the two.
func LabelsFromText(text string) map[Label]float64 {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	normalized := strings.ToLower(textnorm.Normalize(text).Text)

	reg := patterns.Get()
	var scores map[Label]float64
	for cat, label := range categoryLabels {
		for _, p := range reg.MatchAll(normalized, cat) {
			score := float64(p.Severity) / 100
			if scores == nil {
				scores = make(map[Label]float64)
			}
			if score > scores[label] {
				scores[label] = score
			}
		}
	}
	return scores
}

// MergeLabelScores combines classifier scores with pattern-derived ones,
// keeping the higher score per label.
func MergeLabelScores(classifier, pattern map[Label]float64) map[Label]float64 {
	if len(pattern) == 0 {
		return classifier
	}
	merged := make(map[Label]float64, len(classifier)+len(pattern))
	for l, s := range classifier {
		merged[l] = s
	}
	for l, s := range pattern {
		if s > merged[l] {
			merged[l] = s
		}
	}
	return merged
}
