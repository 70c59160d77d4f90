package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisConvPrefix  = "risk:conv:"
	redisChildPrefix = "risk:child:"
)

// RedisStore persists conversation state in Redis so multiple agent nodes
// share one risk picture per child. State documents live under
// risk:conv:<child>:<contact>:<platform> with the archival window as TTL; a
// per-child set indexes the child's conversations for aggregate reads.
type RedisStore struct {
	client       *redis.Client
	archiveAfter time.Duration
}

var _ Store = (*RedisStore)(nil)

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisArchiveAfter sets the retention TTL on conversation documents.
func WithRedisArchiveAfter(d time.Duration) RedisStoreOption {
	return func(s *RedisStore) { s.archiveAfter = d }
}

// NewRedisStore creates the store over an existing client.
func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:       client,
		archiveAfter: 30 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get fetches and decodes one conversation document.
func (s *RedisStore) Get(ctx context.Context, key Key) (*ConversationState, error) {
	raw, err := s.client.Get(ctx, redisConvPrefix+key.String()).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching conversation state: %w", err)
	}

	var state ConversationState
	if err := json.Unmarshal(raw, &state); err != nil {
		// Corrupt document: surface as missing, the accumulator
		// reinitializes fresh state.
		return nil, nil
	}
	return &state, nil
}

// Save writes the document and refreshes the child index.
func (s *RedisStore) Save(ctx context.Context, state *ConversationState) error {
	if state == nil {
		return fmt.Errorf("conversation state is nil")
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding conversation state: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisConvPrefix+state.Key.String(), raw, s.archiveAfter)
	pipe.SAdd(ctx, redisChildPrefix+state.Key.ChildID, state.Key.String())
	pipe.Expire(ctx, redisChildPrefix+state.Key.ChildID, s.archiveAfter)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving conversation state: %w", err)
	}
	return nil
}

// ContactPlatformRisk reads the same contact's score on every platform.
func (s *RedisStore) ContactPlatformRisk(ctx context.Context, childID, contactID string) (map[string]float64, error) {
	states, err := s.childStates(ctx, childID)
	if err != nil {
		return nil, err
	}

	risks := make(map[string]float64)
	for _, state := range states {
		if state.Key.ContactID == contactID {
			risks[state.Key.Platform] = state.RiskScore
		}
	}
	return risks, nil
}

// Profile aggregates the child's conversations into per-platform and
// per-contact maxima.
func (s *RedisStore) Profile(ctx context.Context, childID string) (*ChildRiskProfile, error) {
	states, err := s.childStates(ctx, childID)
	if err != nil {
		return nil, err
	}

	profile := &ChildRiskProfile{
		ChildID:      childID,
		PlatformRisk: make(map[string]float64),
		ContactRisk:  make(map[string]float64),
	}
	for _, state := range states {
		if state.RiskScore > profile.PlatformRisk[state.Key.Platform] {
			profile.PlatformRisk[state.Key.Platform] = state.RiskScore
		}
		if state.RiskScore > profile.ContactRisk[state.Key.ContactID] {
			profile.ContactRisk[state.Key.ContactID] = state.RiskScore
		}
	}
	return profile, nil
}

// childStates resolves the child's index set into live documents, pruning
// index entries whose documents have expired.
func (s *RedisStore) childStates(ctx context.Context, childID string) ([]*ConversationState, error) {
	members, err := s.client.SMembers(ctx, redisChildPrefix+childID).Result()
	if err != nil {
		return nil, fmt.Errorf("reading child index: %w", err)
	}

	var states []*ConversationState
	for _, member := range members {
		parts := strings.SplitN(member, ":", 3)
		if len(parts) != 3 {
			continue
		}
		key := Key{ChildID: parts[0], ContactID: parts[1], Platform: parts[2]}
		state, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if state == nil {
			s.client.SRem(ctx, redisChildPrefix+childID, member)
			continue
		}
		states = append(states, state)
	}
	return states, nil
}
