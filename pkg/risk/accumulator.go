package risk

import (
	"context"
	"math"
	"sync"
	"time"
)

// Activation is the per-label score floor. Labels below it contribute
// nothing, so a classifier's background noise never moves the risk score.
const Activation = 0.30

// Band half-lives for exponential decay. High risk persists longer: a
// conversation that reached enforcement range stays visible for a week of
// silence, while low-level noise fades within a day.
const (
	halfLifeLow  = 24 * time.Hour  // score < 40
	halfLifeMid  = 72 * time.Hour  // 40 <= score < 70
	halfLifeHigh = 168 * time.Hour // score >= 70
)

// maxTurnDelta is the anti-spike clamp: one turn can raise the score by at
// most this much, whatever the input signals claim.
const maxTurnDelta = 20.0

// reEngagementGap is the silence window after which the next message counts
// as a re-engagement event.
const reEngagementGap = 30 * time.Minute

const historyWindow = 50

// Accumulator folds per-turn signals into per-conversation risk state.
// Updates for the same key are serialized internally; different keys proceed
// in parallel.
type Accumulator struct {
	store      Store
	thresholds Thresholds
	now        func() time.Time

	locks sync.Map // key string -> *sync.Mutex
}

// AccumulatorOption configures an Accumulator.
type AccumulatorOption func(*Accumulator)

// WithThresholds overrides the default enforcement cutoffs.
func WithThresholds(t Thresholds) AccumulatorOption {
	return func(a *Accumulator) { a.thresholds = t }
}

// WithClock injects the time source.
func WithClock(now func() time.Time) AccumulatorOption {
	return func(a *Accumulator) { a.now = now }
}

// NewAccumulator creates an accumulator over the given state store.
func NewAccumulator(store Store, opts ...AccumulatorOption) *Accumulator {
	a := &Accumulator{
		store:      store,
		thresholds: DefaultThresholds(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ProcessTurn runs one accumulation step: decay, contribution, multipliers,
// clamp, persist. Corrupt or missing state reinitializes fresh rather than
// failing; a turn must always produce a decision.
func (a *Accumulator) ProcessTurn(ctx context.Context, signals TurnSignals) (*TurnResult, error) {
	mu := a.lockFor(signals.Key)
	mu.Lock()
	defer mu.Unlock()

	ts := signals.Timestamp
	if ts.IsZero() {
		ts = a.now()
	}

	state, err := a.store.Get(ctx, signals.Key)
	if err != nil || state == nil || state.StageTimestamps == nil {
		state = &ConversationState{
			Key:             signals.Key,
			StageTimestamps: make(map[Stage]time.Time),
		}
	}

	// Step 1: decay the previous score over the silent interval.
	score := state.RiskScore
	if state.TurnCount > 0 {
		elapsed := ts.Sub(state.LastUpdate)
		score = Decay(score, elapsed)
		if elapsed > reEngagementGap {
			state.ReEngagementCount++
		}
	}

	// Step 2: intent contribution from activated labels.
	contribution := 0.0
	coHigh := 0
	turnStage := StageNone
	for label, labelScore := range signals.LabelScores {
		traits, known := labelTraits[label]
		if !known || labelScore < Activation {
			continue
		}
		contribution += traits.weight * labelScore
		if traits.highRisk {
			coHigh++
		}
		if traits.stage > turnStage {
			turnStage = traits.stage
		}
	}
	contribution += AnomalyScore(signals.Behavior)

	delta := 0.0
	if contribution > 0 {
		delta = contribution *
			a.escalationFactor(state, turnStage, coHigh) *
			persistenceFactor(state.ReEngagementCount) *
			(1 + VulnerabilityBoost(signals.Behavior)) *
			a.carryoverFactor(ctx, signals.Key)

		// Step 7: anti-spike clamp.
		if delta > maxTurnDelta {
			delta = maxTurnDelta
		}
	}

	score = roundHalfUp4(clamp(score+delta, 0, 100))

	// Mutate state.
	if state.FirstTurnAt.IsZero() {
		state.FirstTurnAt = ts
	}
	if turnStage > state.HighestStage {
		state.HighestStage = turnStage
	}
	if turnStage != StageNone {
		if _, seen := state.StageTimestamps[turnStage]; !seen {
			state.StageTimestamps[turnStage] = ts
		}
	}
	state.RiskScore = score
	state.RiskHistory = append(state.RiskHistory, score)
	if len(state.RiskHistory) > historyWindow {
		state.RiskHistory = state.RiskHistory[len(state.RiskHistory)-historyWindow:]
	}
	state.TurnCount++
	state.LastUpdate = ts

	if err := a.store.Save(ctx, state); err != nil {
		return nil, err
	}

	return &TurnResult{
		Key:        signals.Key,
		RiskScore:  score,
		Delta:      roundHalfUp4(delta),
		Stage:      state.HighestStage,
		Trajectory: trajectory(state.RiskHistory),
		Velocity:   velocity(state, ts),
		Action:     Decide(score, a.thresholds),
	}, nil
}

// CurrentScore returns the decayed score as of now without mutating state.
func (a *Accumulator) CurrentScore(ctx context.Context, key Key) (float64, error) {
	state, err := a.store.Get(ctx, key)
	if err != nil || state == nil {
		return 0, err
	}
	return roundHalfUp4(Decay(state.RiskScore, a.now().Sub(state.LastUpdate))), nil
}

// escalationFactor amplifies turns that show multiple co-occurring high-risk
// labels or reach a deeper stage than any before; repeating an already-seen
// stage is dampened.
func (a *Accumulator) escalationFactor(state *ConversationState, turnStage Stage, coHigh int) float64 {
	if coHigh < 1 {
		coHigh = 1
	}
	progression := 0
	if turnStage > state.HighestStage {
		progression = int(turnStage - state.HighestStage)
	}

	factor := (1 + 0.20*float64(coHigh-1)) * (1 + 0.30*float64(progression))
	if factor > 3.0 {
		factor = 3.0
	}
	if turnStage != StageNone && turnStage <= state.HighestStage {
		factor *= 0.85
	}
	return factor
}

func persistenceFactor(reEngagements int) float64 {
	return math.Min(2.0, 1+0.15*float64(reEngagements))
}

// carryoverFactor checks the same contact's risk on the child's other
// platforms. A contact at 50 elsewhere carries 1.0x, scaling linearly to
// 1.5x at 100.
func (a *Accumulator) carryoverFactor(ctx context.Context, key Key) float64 {
	risks, err := a.store.ContactPlatformRisk(ctx, key.ChildID, key.ContactID)
	if err != nil {
		return 1.0
	}
	peak := 0.0
	for platform, r := range risks {
		if platform != key.Platform && r > peak {
			peak = r
		}
	}
	if peak < 50 {
		return 1.0
	}
	return 1.0 + 0.5*math.Min(1, (peak-50)/50)
}

// Decay applies band-dependent exponential decay to a score over elapsed
// silence.
func Decay(score float64, elapsed time.Duration) float64 {
	if elapsed <= 0 || score <= 0 {
		return score
	}
	halfLife := halfLifeLow
	switch {
	case score >= 70:
		halfLife = halfLifeHigh
	case score >= 40:
		halfLife = halfLifeMid
	}
	return score * math.Exp2(-elapsed.Hours()/halfLife.Hours())
}

// trajectory classifies the direction of the last ten scores. A spike is a
// big final jump out of a previously quiet history; a steady climb is
// escalation even when individual jumps are large.
func trajectory(history []float64) Trajectory {
	if len(history) > 10 {
		history = history[len(history)-10:]
	}
	if len(history) < 2 {
		return TrajectoryStable
	}

	lastDelta := history[len(history)-1] - history[len(history)-2]
	if len(history) >= 3 {
		priorSum := 0.0
		for i := 1; i < len(history)-1; i++ {
			priorSum += history[i] - history[i-1]
		}
		priorAvg := priorSum / float64(len(history)-2)
		if lastDelta >= 15 && priorAvg < 5 {
			return TrajectorySpiking
		}
	} else if lastDelta >= 15 {
		return TrajectorySpiking
	}

	slope := slopeOf(history)
	switch {
	case slope > 0.5:
		return TrajectoryEscalating
	case slope < -0.5:
		return TrajectoryDecelerating
	default:
		return TrajectoryStable
	}
}

// slopeOf is a least-squares slope over the index axis.
func slopeOf(ys []float64) float64 {
	n := float64(len(ys))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// velocity is stage transitions per elapsed hour of the conversation.
func velocity(state *ConversationState, now time.Time) float64 {
	hours := now.Sub(state.FirstTurnAt).Hours()
	if hours <= 0 {
		return 0
	}
	return roundHalfUp4(float64(len(state.StageTimestamps)) / hours)
}

func (a *Accumulator) lockFor(key Key) *sync.Mutex {
	v, _ := a.locks.LoadOrStore(key.String(), &sync.Mutex{})
	return v.(*sync.Mutex)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// roundHalfUp4 rounds half away from zero at 4 decimals, matching the audit
// format exactly so replayed histories compare byte for byte.
func roundHalfUp4(x float64) float64 {
	return math.Floor(x*1e4+0.5) / 1e4
}
