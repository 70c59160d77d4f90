package risk

import "fmt"

// Action is the enforcement outcome the threshold translator maps a risk
// score onto.
type Action string

const (
	ActionAllow        Action = "ALLOW"
	ActionMonitor      Action = "MONITOR"
	ActionAlertParent  Action = "ALERT_PARENT"
	ActionBlockContact Action = "BLOCK_CONTACT"
	ActionAutoReport   Action = "AUTO_REPORT"
)

// Thresholds are the parent-configurable score cutoffs. They may shift but
// never reorder: Monitor < Alert < Block < AutoReport.
type Thresholds struct {
	Monitor    float64 `json:"monitor" yaml:"monitor"`
	Alert      float64 `json:"alert" yaml:"alert"`
	Block      float64 `json:"block" yaml:"block"`
	AutoReport float64 `json:"auto_report" yaml:"auto_report"`
}

// DefaultThresholds returns the standard cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{Monitor: 30, Alert: 50, Block: 75, AutoReport: 95}
}

// Validate rejects disordered threshold sets.
func (t Thresholds) Validate() error {
	if !(t.Monitor < t.Alert && t.Alert < t.Block && t.Block < t.AutoReport) {
		return fmt.Errorf("thresholds out of order: monitor=%v alert=%v block=%v auto_report=%v",
			t.Monitor, t.Alert, t.Block, t.AutoReport)
	}
	return nil
}

// Decide maps a risk score to an action. Pure and total; a score exactly on
// a cutoff resolves to the higher-severity action.
func Decide(score float64, t Thresholds) Action {
	switch {
	case score >= t.AutoReport:
		return ActionAutoReport
	case score >= t.Block:
		return ActionBlockContact
	case score >= t.Alert:
		return ActionAlertParent
	case score >= t.Monitor:
		return ActionMonitor
	default:
		return ActionAllow
	}
}
