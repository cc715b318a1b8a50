package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const captureWindowSec = 5

func captureKey(eventID, sec int64) string {
	return fmt.Sprintf("event:%d:captures:%d", eventID, sec)
}

func (s *Server) bumpCaptures(eventID int64) {
	if s == nil || s.Redis == nil {
		return
	}
	val, _ := s.captureCounters.LoadOrStore(eventID, &atomic.Int64{})
	val.(*atomic.Int64).Add(1)
}

// StartCaptureFlusher pushes per-second capture counts to Redis until ctx ends.
func (s *Server) StartCaptureFlusher(ctx context.Context) {
	if s == nil || s.Redis == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.flushCaptures(ctx, time.Now().Unix())
			}
		}
	}()
}

func (s *Server) flushCaptures(ctx context.Context, nowSec int64) {
	if s == nil || s.Redis == nil {
		return
	}
	pipe := s.Redis.Pipeline()
	has := false
	s.captureCounters.Range(func(key, value any) bool {
		eventID, ok := key.(int64)
		if !ok {
			return true
		}
		counter, ok := value.(*atomic.Int64)
		if !ok {
			return true
		}
		n := counter.Swap(0)
		if n <= 0 {
			return true
		}
		has = true
		redisKey := captureKey(eventID, nowSec)
		pipe.IncrBy(ctx, redisKey, n)
		pipe.Expire(ctx, redisKey, 2*captureWindowSec*time.Second)
		return true
	})
	if has {
		if _, err := pipe.Exec(ctx); err != nil {
			s.Log.Warn("capture counter flush failed", zap.Error(err))
		}
	}
}

// captureRate returns the average over the window and the latest second.
func (s *Server) captureRate(ctx context.Context, eventID, nowSec int64) (float64, int64) {
	if s.Redis == nil {
		return 0, 0
	}
	var total, last int64
	for i := int64(0); i < captureWindowSec; i++ {
		val, _ := s.Redis.Get(ctx, captureKey(eventID, nowSec-i)).Int64()
		if i == 0 {
			last = val
		}
		total += val
	}
	return float64(total) / captureWindowSec, last
}

func (s *Server) GetEventMetrics(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	if _, err := s.Svc.GetEvent(c.Request.Context(), eventID); err != nil {
		s.writeError(c, err)
		return
	}
	avg, last := s.captureRate(c.Request.Context(), eventID, time.Now().Unix())
	c.JSON(http.StatusOK, gin.H{
		"event_id":        eventID,
		"captures_avg_5s": avg,
		"captures_last":   last,
		"subscribers":     s.Hub.Subscribers(eventID),
	})
}
