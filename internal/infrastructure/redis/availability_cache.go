package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// AvailabilityCache は上映ごとの空席数キャッシュを管理する
// 上映一覧などの読み取りパス専用で、予約トランザクションの判定には使わない
// （判定は常に DB 上のロック付き集計で行う）
type AvailabilityCache struct {
	client *redis.Client
}

// NewAvailabilityCache は新しいAvailabilityCacheインスタンスを作成する
func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

// GetAvailableSeats は上映の空席数をキャッシュから取得する
func (c *AvailabilityCache) GetAvailableSeats(ctx context.Context, showID string) (int, error) {
	val, err := c.client.Get(ctx, c.key(showID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// SetAvailableSeats は上映の空席数をキャッシュに保存する
func (c *AvailabilityCache) SetAvailableSeats(ctx context.Context, showID string, count int, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(showID), count, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は上映のキャッシュを無効化する
// 予約の作成・確定・キャンセル・期限切れの後に呼ぶ
func (c *AvailabilityCache) Invalidate(ctx context.Context, showID string) error {
	if err := c.client.Del(ctx, c.key(showID)).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) key(showID string) string {
	return fmt.Sprintf("shows:available:%s", showID)
}
