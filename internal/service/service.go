package service

import (
	"context"

	"go.uber.org/zap"

	"teamroping/internal/apperr"
	"teamroping/internal/cache"
	"teamroping/internal/draw"
	"teamroping/internal/models"
	"teamroping/internal/store"
)

// Live feed message kinds.
const (
	KindRunSaved       = "run_saved"
	KindEventLocked    = "event_locked"
	KindDrawGenerated  = "draw_generated"
	KindTeamsChanged   = "teams_changed"
	KindPayoffsChanged = "payoffs_changed"
	KindEventUpdated   = "event_updated"
	KindEventDeleted   = "event_deleted"
)

// Notifier receives per-event change notifications, typically the websocket hub.
type Notifier interface {
	Notify(eventID int64, kind string, data any)
}

type nopNotifier struct{}

func (nopNotifier) Notify(int64, string, any) {}

type Service struct {
	store          store.Store
	cache          *cache.StandingsCache
	log            *zap.Logger
	notifier       Notifier
	newRNG         func() *draw.XorShift32
	defaultEntries int
}

type Option func(*Service)

func WithCache(c *cache.StandingsCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithSeed makes every shuffle deterministic.
func WithSeed(seed uint32) Option {
	return func(s *Service) {
		rng := draw.NewXorShift32(seed)
		s.newRNG = func() *draw.XorShift32 { return rng }
	}
}

func WithDefaultEntries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultEntries = n
		}
	}
}

func New(st store.Store, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		store:          st,
		log:            log,
		notifier:       nopNotifier{},
		newRNG:         func() *draw.XorShift32 { return draw.NewXorShift32(draw.RandomSeed()) },
		defaultEntries: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetNotifier swaps the notifier after construction; the hub needs the
// service to exist first.
func (s *Service) SetNotifier(n Notifier) {
	if n != nil {
		s.notifier = n
	}
}

func (s *Service) invalidate(ctx context.Context, eventID int64) {
	if err := s.cache.Invalidate(ctx, eventID); err != nil {
		s.log.Warn("standings cache invalidate failed", zap.Int64("event_id", eventID), zap.Error(err))
	}
}

// ensureOpen rejects changes to team structure once results exist.
func ensureOpen(ev *models.Event) error {
	if ev.Status == models.EventLocked || ev.Status.Closed() {
		return apperr.Precondition("event %d is %s", ev.ID, ev.Status)
	}
	return nil
}

func ensureNotClosed(ev *models.Event) error {
	if ev.Status.Closed() {
		return apperr.Precondition("event %d is %s", ev.ID, ev.Status)
	}
	return nil
}
