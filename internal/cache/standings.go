package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"teamroping/internal/models"
)

// StandingsCache keeps computed standings per event. A nil cache or nil
// client turns every call into a miss.
type StandingsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStandingsCache(rdb *redis.Client, ttl time.Duration) *StandingsCache {
	return &StandingsCache{rdb: rdb, ttl: ttl}
}

func standingsKey(eventID int64) string {
	return "event:" + strconv.FormatInt(eventID, 10) + ":standings"
}

func (c *StandingsCache) enabled() bool {
	return c != nil && c.rdb != nil && c.ttl > 0
}

func (c *StandingsCache) Get(ctx context.Context, eventID int64) ([]models.Standing, bool, error) {
	if !c.enabled() {
		return nil, false, nil
	}
	raw, err := c.rdb.Get(ctx, standingsKey(eventID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rows []models.Standing
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

func (c *StandingsCache) Set(ctx context.Context, eventID int64, rows []models.Standing) error {
	if !c.enabled() {
		return nil
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, standingsKey(eventID), raw, c.ttl).Err()
}

func (c *StandingsCache) Invalidate(ctx context.Context, eventID int64) error {
	if !c.enabled() {
		return nil
	}
	return c.rdb.Del(ctx, standingsKey(eventID)).Err()
}
