package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mediguru/mediguru-gateway/internal/generation/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*HistoryRepository, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewHistoryRepository(client), mr
}

func TestHistoryRepository_SaveAndGet(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	record := &domain.GenerationRecord{
		ID:           "gen-1",
		RequestID:    "req-1",
		Status:       domain.StatusOK,
		ArtifactPath: "generated/gen-1/main.tf",
		Pushed:       true,
		Commit:       "abc123",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, repo.Save(ctx, record))

	got, err := repo.Get(ctx, "gen-1")
	require.NoError(t, err)
	assert.Equal(t, record, got)

	ttl := mr.TTL("gen:record:gen-1")
	assert.Equal(t, 7*24*time.Hour, ttl)
}

func TestHistoryRepository_GetMissing(t *testing.T) {
	repo, _ := setupTestRedis(t)

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestHistoryRepository_SaveRequiresID(t *testing.T) {
	repo, _ := setupTestRedis(t)

	err := repo.Save(context.Background(), &domain.GenerationRecord{})
	assert.Error(t, err)
}

func TestHistoryRepository_RecentNewestFirst(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, repo.Save(ctx, &domain.GenerationRecord{ID: fmt.Sprintf("gen-%d", i), Status: domain.StatusOK}))
	}
	// resaving moves the id to the front without duplicating it
	require.NoError(t, repo.Save(ctx, &domain.GenerationRecord{ID: "gen-1", Status: domain.StatusError}))

	records, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "gen-1", records[0].ID)
	assert.Equal(t, domain.StatusError, records[0].Status)
	assert.Equal(t, "gen-3", records[1].ID)

	mr.Del("gen:record:gen-3")
	records, err = repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 1, "expired records are skipped")
	assert.Equal(t, "gen-1", records[0].ID)
}

func TestHistoryRepository_RecentIsCapped(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	for i := 0; i < recentMax+5; i++ {
		require.NoError(t, repo.Save(ctx, &domain.GenerationRecord{ID: fmt.Sprintf("gen-%d", i)}))
	}

	ids, err := mr.List(recentKey)
	require.NoError(t, err)
	assert.Len(t, ids, recentMax)
}

func TestHistoryRepository_PublishesEvents(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	listener := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer listener.Close()
	sub := listener.Subscribe(ctx, EventChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, &domain.GenerationRecord{ID: "gen-1", Status: domain.StatusOK}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, EventChannel, msg.Channel)

	var record domain.GenerationRecord
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &record))
	assert.Equal(t, "gen-1", record.ID)
}
