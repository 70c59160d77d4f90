package risk

import "testing"

func TestDecideDefaults(t *testing.T) {
	th := DefaultThresholds()

	cases := []struct {
		score float64
		want  Action
	}{
		{0, ActionAllow},
		{29.9999, ActionAllow},
		{30, ActionMonitor}, // tie resolves to higher severity
		{49.9, ActionMonitor},
		{50, ActionAlertParent},
		{74.9, ActionAlertParent},
		{75, ActionBlockContact},
		{94.9, ActionBlockContact},
		{95, ActionAutoReport},
		{100, ActionAutoReport},
	}
	for _, tc := range cases {
		if got := Decide(tc.score, th); got != tc.want {
			t.Errorf("Decide(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestDecideCustomThresholds(t *testing.T) {
	th := Thresholds{Monitor: 10, Alert: 20, Block: 40, AutoReport: 80}
	if err := th.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got := Decide(40, th); got != ActionBlockContact {
		t.Errorf("Decide(40) = %s, want BLOCK_CONTACT", got)
	}
}

func TestThresholdsValidateRejectsReorder(t *testing.T) {
	bad := []Thresholds{
		{Monitor: 50, Alert: 30, Block: 75, AutoReport: 95},
		{Monitor: 30, Alert: 30, Block: 75, AutoReport: 95},
		{Monitor: 30, Alert: 50, Block: 96, AutoReport: 95},
	}
	for _, th := range bad {
		if err := th.Validate(); err == nil {
			t.Errorf("disordered thresholds %+v accepted", th)
		}
	}
}
