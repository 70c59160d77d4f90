package risk

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store persists conversation state. Get returns (nil, nil) for an unknown
// key; the accumulator treats that as a fresh conversation. Implementations
// must be safe for concurrent use across keys; per-key write serialization is
// the accumulator's job.
type Store interface {
	Get(ctx context.Context, key Key) (*ConversationState, error)
	Save(ctx context.Context, state *ConversationState) error

	// ContactPlatformRisk returns the current risk score of the same contact
	// on each platform the child talks to them on. Feeds cross-platform
	// carryover.
	ContactPlatformRisk(ctx context.Context, childID, contactID string) (map[string]float64, error)

	// Profile aggregates the child's conversations into per-platform and
	// per-contact maxima.
	Profile(ctx context.Context, childID string) (*ChildRiskProfile, error)
}

// InMemoryStore keeps conversation state in process. Suitable for a
// single-node agent; multi-node deployments use the Redis store. Archived
// conversations (silent past the retention window) are swept by a background
// goroutine.
type InMemoryStore struct {
	states map[string]*ConversationState
	mu     sync.RWMutex

	archiveAfter  time.Duration
	sweepInterval time.Duration

	stopSweep chan struct{}
	sweepOnce sync.Once
}

var _ Store = (*InMemoryStore)(nil)

// StoreOption configures an InMemoryStore.
type StoreOption func(*InMemoryStore)

// WithArchiveAfter sets the silence window after which a conversation is
// dropped from memory.
func WithArchiveAfter(d time.Duration) StoreOption {
	return func(s *InMemoryStore) { s.archiveAfter = d }
}

// WithSweepInterval sets how often the archival sweep runs.
func WithSweepInterval(d time.Duration) StoreOption {
	return func(s *InMemoryStore) { s.sweepInterval = d }
}

// NewInMemoryStore creates the store and starts its archival sweep.
func NewInMemoryStore(opts ...StoreOption) *InMemoryStore {
	s := &InMemoryStore{
		states:        make(map[string]*ConversationState),
		archiveAfter:  30 * 24 * time.Hour,
		sweepInterval: 1 * time.Hour,
		stopSweep:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.sweepLoop()
	return s
}

// Get returns a copy of the stored state, or (nil, nil) when absent.
func (s *InMemoryStore) Get(_ context.Context, key Key) (*ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[key.String()]
	if !ok {
		return nil, nil
	}
	cp := *state
	cp.RiskHistory = append([]float64(nil), state.RiskHistory...)
	cp.StageTimestamps = make(map[Stage]time.Time, len(state.StageTimestamps))
	for st, ts := range state.StageTimestamps {
		cp.StageTimestamps[st] = ts
	}
	return &cp, nil
}

// Save stores the state under its key.
func (s *InMemoryStore) Save(_ context.Context, state *ConversationState) error {
	if state == nil {
		return fmt.Errorf("conversation state is nil")
	}
	if state.Key.ChildID == "" || state.Key.ContactID == "" || state.Key.Platform == "" {
		return fmt.Errorf("incomplete conversation key: %+v", state.Key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.Key.String()] = state
	return nil
}

// ContactPlatformRisk scans the child's conversations with one contact.
func (s *InMemoryStore) ContactPlatformRisk(_ context.Context, childID, contactID string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	risks := make(map[string]float64)
	for _, state := range s.states {
		if state.Key.ChildID == childID && state.Key.ContactID == contactID {
			risks[state.Key.Platform] = state.RiskScore
		}
	}
	return risks, nil
}

// Profile aggregates per-platform and per-contact risk maxima for a child.
func (s *InMemoryStore) Profile(_ context.Context, childID string) (*ChildRiskProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile := &ChildRiskProfile{
		ChildID:      childID,
		PlatformRisk: make(map[string]float64),
		ContactRisk:  make(map[string]float64),
	}
	for _, state := range s.states {
		if state.Key.ChildID != childID {
			continue
		}
		if state.RiskScore > profile.PlatformRisk[state.Key.Platform] {
			profile.PlatformRisk[state.Key.Platform] = state.RiskScore
		}
		if state.RiskScore > profile.ContactRisk[state.Key.ContactID] {
			profile.ContactRisk[state.Key.ContactID] = state.RiskScore
		}
	}
	return profile, nil
}

// Close stops the archival sweep.
func (s *InMemoryStore) Close() {
	s.sweepOnce.Do(func() { close(s.stopSweep) })
}

func (s *InMemoryStore) sweepLoop() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopSweep:
			return
		}
	}
}

func (s *InMemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, state := range s.states {
		if now.Sub(state.LastUpdate) > s.archiveAfter {
			delete(s.states, id)
		}
	}
}

// Len reports the number of live conversations.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}
