package risk

// BehavioralSignals are metadata-only observations about a conversation turn.
// None of these fields carry message content; they are derived from timing,
// frequency and account metadata by the surrounding collection layer.
type BehavioralSignals struct {
	// ChildAge and ContactAge in years; zero means unknown.
	ChildAge   int `json:"child_age,omitempty"`
	ContactAge int `json:"contact_age,omitempty"`

	// TurnsLastHour counts messages in this conversation over the last hour.
	TurnsLastHour int `json:"turns_last_hour,omitempty"`

	// NewPlatform is set when this contact first appeared on a different
	// platform and the conversation moved here.
	NewPlatform bool `json:"new_platform,omitempty"`

	// ContactDiversityDecline is set when the child's overall contact set
	// has been shrinking toward this one contact.
	ContactDiversityDecline bool `json:"contact_diversity_decline,omitempty"`

	// LateNight is set for turns between 22:00 and 06:00 child-local time.
	LateNight bool `json:"late_night,omitempty"`

	// ScreenTimeMinutes is the child's total screen time today.
	ScreenTimeMinutes int `json:"screen_time_minutes,omitempty"`

	// SentimentTrend is the rolling sentiment slope of the child's recent
	// outbound messages, negative meaning declining mood. Computed upstream
	// from per-message scores, only the trend number crosses this boundary.
	SentimentTrend float64 `json:"sentiment_trend,omitempty"`
}

// AnomalyScore converts metadata signals into score points that join the
// intent contribution for the turn. Capped so metadata alone cannot push a
// conversation into enforcement range.
func AnomalyScore(b BehavioralSignals) float64 {
	score := 0.0

	// Adult talking to a minor with a wide age gap.
	if b.ChildAge > 0 && b.ContactAge > 0 {
		gap := b.ContactAge - b.ChildAge
		if b.ChildAge < 16 && gap >= 8 {
			score += 6
		} else if b.ChildAge < 18 && gap >= 15 {
			score += 4
		}
	}

	// Frequency spike: a sudden message burst.
	if b.TurnsLastHour > 30 {
		score += 4
	} else if b.TurnsLastHour > 15 {
		score += 2
	}

	if b.NewPlatform {
		score += 5
	}
	if b.ContactDiversityDecline {
		score += 3
	}

	if score > 15 {
		score = 15
	}
	return score
}

// VulnerabilityBoost returns the additive part of the vulnerability
// multiplier, in [0, 1.8]. The accumulator applies it as (1 + boost).
func VulnerabilityBoost(b BehavioralSignals) float64 {
	boost := 0.0

	if b.LateNight {
		boost += 0.4
	}
	if b.ContactDiversityDecline {
		boost += 0.5
	}
	if b.ScreenTimeMinutes > 300 {
		boost += 0.4
	}
	if b.SentimentTrend < -0.3 {
		boost += 0.5
	}

	if boost > 1.8 {
		boost = 1.8
	}
	return boost
}
