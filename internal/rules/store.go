package rules

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"kurir/internal/config"
	"kurir/internal/logger"
	pkgerrors "kurir/pkg/errors"
	"kurir/pkg/metrics"
	"kurir/pkg/models"
)

// EventPublisher broadcasts rule changes so other instances reload their
// caches. A nil publisher disables broadcasting.
type EventPublisher interface {
	PublishRuleEvent(ctx context.Context, action, sourcePattern string) error
}

// Store owns the forwarding rules: a write-through in-memory cache for
// dispatch-time lookups backed by the repository for durability. Readers
// never observe a partially written rule; the cache swap happens under the
// write lock.
type Store struct {
	repo      Repository
	cache     map[string]Rule
	mu        sync.RWMutex
	reloadCfg config.ReloadConfig
	publisher EventPublisher
	logger    logger.Logger
}

type StoreOption func(*Store)

func WithEventPublisher(publisher EventPublisher) StoreOption {
	return func(s *Store) {
		s.publisher = publisher
	}
}

func NewStore(repo Repository, cfg config.ReloadConfig, log logger.Logger, opts ...StoreOption) *Store {
	s := &Store{
		repo:      repo,
		cache:     make(map[string]Rule),
		reloadCfg: cfg,
		logger:    log,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Match is the dispatch-time lookup: exact source equality against active
// rules only. It never touches the repository.
func (s *Store) Match(sourcePattern string) (Rule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.cache[sourcePattern]
	if !ok || !rule.Active {
		return Rule{}, false
	}
	return rule, true
}

func (s *Store) Upsert(ctx context.Context, rule Rule) (*Rule, error) {
	if err := ValidateRule(rule); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	if rule.FieldPatterns == nil {
		rule.FieldPatterns = make(map[string]string)
	}

	if err := s.repo.Upsert(ctx, &rule); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.mu.Lock()
	s.cache[rule.SourcePattern] = rule
	s.mu.Unlock()
	s.recordActiveRules()

	s.publishEvent(ctx, models.ActionUpdate, rule.SourcePattern)

	return &rule, nil
}

func (s *Store) Get(ctx context.Context, sourcePattern string) (*Rule, error) {
	rule, err := s.repo.Get(ctx, sourcePattern)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if rule == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", "rule not found for source pattern")
	}
	return rule, nil
}

func (s *Store) List(ctx context.Context) ([]Rule, error) {
	ruleList, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return ruleList, nil
}

func (s *Store) SetActive(ctx context.Context, sourcePattern string, active bool) (*Rule, error) {
	if err := s.repo.SetActive(ctx, sourcePattern, active); err != nil {
		return nil, pkgerrors.ErrNotFound.WithCause(err)
	}

	rule, err := s.repo.Get(ctx, sourcePattern)
	if err != nil || rule == nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.mu.Lock()
	s.cache[sourcePattern] = *rule
	s.mu.Unlock()
	s.recordActiveRules()

	s.publishEvent(ctx, models.ActionToggle, sourcePattern)

	return rule, nil
}

func (s *Store) Delete(ctx context.Context, sourcePattern string) error {
	if err := s.repo.Delete(ctx, sourcePattern); err != nil {
		return pkgerrors.ErrNotFound.WithCause(err)
	}

	s.mu.Lock()
	delete(s.cache, sourcePattern)
	s.mu.Unlock()
	s.recordActiveRules()

	s.publishEvent(ctx, models.ActionDelete, sourcePattern)

	return nil
}

func (s *Store) ReloadRules(ctx context.Context, skipJitter ...bool) error {
	shouldSkipJitter := len(skipJitter) > 0 && skipJitter[0]

	if err := s.applyJitter(ctx, shouldSkipJitter); err != nil {
		return err
	}

	ruleList, err := s.repo.List(ctx)
	if err != nil {
		return err
	}

	cache := make(map[string]Rule, len(ruleList))
	for _, rule := range ruleList {
		cache[rule.SourcePattern] = rule
	}

	s.mu.Lock()
	s.cache = cache
	s.mu.Unlock()
	s.recordActiveRules()

	s.logger.InfowCtx(ctx, "Reloaded forwarding rules",
		"rules_count", len(ruleList),
	)
	return nil
}

func (s *Store) StartReloader(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(s.reloadCfg.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.ReloadRules(ctx); err != nil {
				s.logger.ErrorwCtx(ctx, "Failed to reload rules",
					"error", err,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Store) applyJitter(ctx context.Context, skipJitter bool) error {
	if skipJitter || s.reloadCfg.JitterMaxMilliseconds == 0 {
		return nil
	}

	jitter := time.Duration(rand.Intn(s.reloadCfg.JitterMaxMilliseconds)) * time.Millisecond

	select {
	case <-time.After(jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) recordActiveRules() {
	s.mu.RLock()
	active := 0
	for _, rule := range s.cache {
		if rule.Active {
			active++
		}
	}
	s.mu.RUnlock()

	metrics.SetActiveRules(active)
}

func (s *Store) publishEvent(ctx context.Context, action, sourcePattern string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRuleEvent(ctx, action, sourcePattern); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to publish rule config event",
			"error", err,
			"action", action,
			"source_pattern", sourcePattern,
		)
	}
}
