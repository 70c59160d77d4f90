package risk

import "testing"

func TestAnomalyScoreSignals(t *testing.T) {
	if s := AnomalyScore(BehavioralSignals{}); s != 0 {
		t.Errorf("empty signals scored %v", s)
	}

	gap := AnomalyScore(BehavioralSignals{ChildAge: 12, ContactAge: 40})
	if gap <= 0 {
		t.Error("wide age gap scored zero")
	}
	peer := AnomalyScore(BehavioralSignals{ChildAge: 12, ContactAge: 13})
	if peer != 0 {
		t.Errorf("peer-age contact scored %v", peer)
	}

	everything := AnomalyScore(BehavioralSignals{
		ChildAge: 12, ContactAge: 40, TurnsLastHour: 50,
		NewPlatform: true, ContactDiversityDecline: true,
	})
	if everything > 15 {
		t.Errorf("anomaly score %v exceeds cap", everything)
	}
}

func TestVulnerabilityBoostBounds(t *testing.T) {
	if b := VulnerabilityBoost(BehavioralSignals{}); b != 0 {
		t.Errorf("empty signals boosted %v", b)
	}

	max := VulnerabilityBoost(BehavioralSignals{
		LateNight: true, ContactDiversityDecline: true,
		ScreenTimeMinutes: 600, SentimentTrend: -0.9,
	})
	if max > 1.8 {
		t.Errorf("boost %v exceeds 1.8", max)
	}
	if max <= 0 {
		t.Error("all signals produced zero boost")
	}
}
