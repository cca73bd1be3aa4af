package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Krimson/dig-music/internal/session"
)

// hrHistoryMaxLen ограничивает список истории пульса в Redis
const hrHistoryMaxLen = 600

// LiveStore кэширует живое состояние сессии в Redis: последний снапшот и
// историю пульса. Реализует session.Sink, поэтому обновляется на каждом
// принятом сэмпле.
type LiveStore struct {
	client *redis.Client
}

// NewLiveStore создает кэш живого состояния
func NewLiveStore(client *redis.Client) *LiveStore {
	return &LiveStore{client: client}
}

// ===== Ключи Redis =====

func liveSnapshotKey() string {
	return "live:snapshot:current"
}

func hrHistoryKey(sessionID string) string {
	return fmt.Sprintf("live:%s:hr_history", sessionID)
}

// Consume сохраняет снапшот и дописывает точку истории пульса
func (s *LiveStore) Consume(ctx context.Context, snap session.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, liveSnapshotKey(), data, 0)

	if snap.HRBPM != nil {
		point, err := json.Marshal(session.HRPoint{At: snap.At, HRBPM: *snap.HRBPM})
		if err != nil {
			return fmt.Errorf("failed to marshal hr point: %w", err)
		}
		key := hrHistoryKey(snap.SessionID)
		pipe.RPush(ctx, key, point)
		pipe.LTrim(ctx, key, -hrHistoryMaxLen, -1)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}
	return nil
}

// GetSnapshot возвращает последний сохраненный снапшот
func (s *LiveStore) GetSnapshot(ctx context.Context) (session.Snapshot, bool, error) {
	data, err := s.client.Get(ctx, liveSnapshotKey()).Result()
	if err != nil {
		if err == redis.Nil {
			return session.Snapshot{}, false, nil
		}
		return session.Snapshot{}, false, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return session.Snapshot{}, false, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}

// GetHRHistory возвращает сохраненную историю пульса сессии
func (s *LiveStore) GetHRHistory(ctx context.Context, sessionID string) ([]session.HRPoint, error) {
	data, err := s.client.LRange(ctx, hrHistoryKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get hr history: %w", err)
	}

	points := make([]session.HRPoint, 0, len(data))
	for _, item := range data {
		var point session.HRPoint
		if err := json.Unmarshal([]byte(item), &point); err != nil {
			continue // Пропускаем поврежденные записи
		}
		points = append(points, point)
	}
	return points, nil
}

// ClearSession удаляет историю пульса завершенной сессии
func (s *LiveStore) ClearSession(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, hrHistoryKey(sessionID)).Err()
}
