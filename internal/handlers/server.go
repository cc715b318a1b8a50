package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"teamroping/internal/auth"
	"teamroping/internal/config"
	"teamroping/internal/service"
)

const adminSessionTTL = 8 * time.Hour

type Server struct {
	Cfg             config.Config
	Svc             *service.Service
	Redis           *redis.Client
	Hub             *Hub
	Log             *zap.Logger
	JWTSecret       []byte
	captureCounters sync.Map
}

// NewServer wires the live feed hub into the service so every change is
// broadcast to the event's subscribers. rdb may be nil.
func NewServer(cfg config.Config, svc *service.Service, rdb *redis.Client, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	srv := &Server{
		Cfg:       cfg,
		Svc:       svc,
		Redis:     rdb,
		Hub:       NewHub(log),
		Log:       log,
		JWTSecret: []byte(cfg.JWTSecret),
	}
	svc.SetNotifier(srv.Hub)
	return srv
}

func (s *Server) SignAdminToken(ctx context.Context) (string, error) {
	sessionID := newSessionID()
	if err := s.saveSession(ctx, sessionID, adminSessionTTL); err != nil {
		return "", err
	}
	return auth.GenerateAdminToken(s.JWTSecret, sessionID, adminSessionTTL)
}

func (s *Server) saveSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Set(ctx, sessionKey(sessionID), time.Now().UnixMilli(), ttl).Err()
}

func (s *Server) validateSession(ctx context.Context, sessionID string) error {
	if s.Redis == nil {
		return nil
	}
	if sessionID == "" {
		return errInvalidSession
	}
	_, err := s.Redis.Get(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return errInvalidSession
		}
		return err
	}
	return nil
}

func (s *Server) dropSession(ctx context.Context, sessionID string) error {
	if s.Redis == nil || sessionID == "" {
		return nil
	}
	return s.Redis.Del(ctx, sessionKey(sessionID)).Err()
}
