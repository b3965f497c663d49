package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mediguru/mediguru-gateway/internal/generation/domain"
	"github.com/redis/go-redis/v9"
)

const (
	recordKeyPrefix = "gen:record:" // gen:record:{id} -> JSON record
	recentKey       = "gen:recent"  // list of ids, newest first
	EventChannel    = "gen:events"  // every saved record is published here
	recordTTL       = 7 * 24 * time.Hour
	recentMax       = 100
)

// HistoryRepository stores generation records in redis.
type HistoryRepository struct {
	client *redis.Client
}

func NewHistoryRepository(client *redis.Client) *HistoryRepository {
	return &HistoryRepository{client: client}
}

// Save writes the record, pushes it onto the recent list and publishes it.
func (r *HistoryRepository) Save(ctx context.Context, record *domain.GenerationRecord) error {
	if record.ID == "" {
		return errors.New("record id is required")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.recordKey(record.ID), data, recordTTL)
	pipe.LRem(ctx, recentKey, 0, record.ID)
	pipe.LPush(ctx, recentKey, record.ID)
	pipe.LTrim(ctx, recentKey, 0, recentMax-1)
	pipe.Expire(ctx, recentKey, recordTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	if err := r.client.Publish(ctx, EventChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish record: %w", err)
	}
	return nil
}

// Get returns domain.ErrRecordNotFound for unknown or expired ids.
func (r *HistoryRepository) Get(ctx context.Context, id string) (*domain.GenerationRecord, error) {
	data, err := r.client.Get(ctx, r.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	var record domain.GenerationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &record, nil
}

// Recent returns up to limit records, newest first. Expired entries still on
// the list are skipped.
func (r *HistoryRepository) Recent(ctx context.Context, limit int64) ([]*domain.GenerationRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	ids, err := r.client.LRange(ctx, recentKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recent records: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.recordKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load recent records: %w", err)
	}

	records := make([]*domain.GenerationRecord, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var record domain.GenerationRecord
		if err := json.Unmarshal([]byte(s), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		records = append(records, &record)
	}
	return records, nil
}

func (r *HistoryRepository) recordKey(id string) string {
	return recordKeyPrefix + id
}
