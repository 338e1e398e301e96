package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-cinema-booking/internal/domain/booking"
	"github.com/sanosuguru/go-cinema-booking/internal/domain/movie"
	"github.com/sanosuguru/go-cinema-booking/internal/domain/show"
	redisinfra "github.com/sanosuguru/go-cinema-booking/internal/infrastructure/redis"
	"github.com/sanosuguru/go-cinema-booking/internal/pkg/logger"
)

// availabilityCacheTTL は空席数キャッシュの有効期間
// 無効化漏れがあっても古い値はこの時間で消える
const availabilityCacheTTL = 30 * time.Second

// ShowService は上映カタログのユースケースを提供する
type ShowService struct {
	showRepo    show.Repository
	movieRepo   movie.Repository
	bookingRepo booking.Repository
	cache       *redisinfra.AvailabilityCache
}

// NewShowService はShowServiceを作成する（cache は nil 許容）
func NewShowService(sr show.Repository, mr movie.Repository, br booking.Repository, cache *redisinfra.AvailabilityCache) *ShowService {
	return &ShowService{showRepo: sr, movieRepo: mr, bookingRepo: br, cache: cache}
}

// CreateShowInput は上映作成の入力
type CreateShowInput struct {
	MovieID    string
	ScreenName string
	StartTime  time.Time
	TotalSeats int
}

// UpdateShowInput は上映更新の入力（nil のフィールドは変更しない）
type UpdateShowInput struct {
	ID         string
	ScreenName *string
	StartTime  *time.Time
	TotalSeats *int
}

// CreateShow は新しい上映回を作成する
func (s *ShowService) CreateShow(ctx context.Context, input CreateShowInput) (*show.Show, error) {
	if _, err := s.movieRepo.GetByID(ctx, input.MovieID); err != nil {
		return nil, err
	}

	sh := show.NewShow(input.MovieID, input.ScreenName, input.StartTime, input.TotalSeats)
	if err := sh.Validate(); err != nil {
		return nil, err
	}
	if err := s.showRepo.Create(ctx, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

// GetShow はIDから上映回を取得する
func (s *ShowService) GetShow(ctx context.Context, id string) (*show.Show, error) {
	return s.showRepo.GetByID(ctx, id)
}

// ListShows は上映一覧を取得する（管理用）
func (s *ShowService) ListShows(ctx context.Context, limit, offset int) ([]*show.Show, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.showRepo.List(ctx, limit, offset)
}

// ListUpcomingShows は今後の上映を空席情報付きで取得する（利用者向け）
func (s *ShowService) ListUpcomingShows(ctx context.Context) ([]*show.Availability, error) {
	return s.showRepo.ListUpcoming(ctx)
}

// GetAvailableSeats は上映の空席数を返す
// キャッシュ優先で取得し、ミス時はDBから集計してキャッシュを温める
// 予約の可否判定には使わない（判定はロック下の予約トランザクションで行う）
func (s *ShowService) GetAvailableSeats(ctx context.Context, showID string) (int, error) {
	if s.cache != nil {
		count, err := s.cache.GetAvailableSeats(ctx, showID)
		if err == nil {
			return count, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("空席キャッシュの取得に失敗", zap.String("show_id", showID), zap.Error(err))
		}
	}

	sh, err := s.showRepo.GetByID(ctx, showID)
	if err != nil {
		return 0, err
	}
	held, err := s.bookingRepo.CountHeldSeats(ctx, showID)
	if err != nil {
		return 0, err
	}
	available := sh.TotalSeats - held

	if s.cache != nil {
		if err := s.cache.SetAvailableSeats(ctx, showID, available, availabilityCacheTTL); err != nil {
			logger.Warn("空席キャッシュの保存に失敗", zap.String("show_id", showID), zap.Error(err))
		}
	}
	return available, nil
}

// UpdateShow は上映回を更新する（管理用）
func (s *ShowService) UpdateShow(ctx context.Context, input UpdateShowInput) (*show.Show, error) {
	sh, err := s.showRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.ScreenName != nil {
		sh.ScreenName = *input.ScreenName
	}
	if input.StartTime != nil {
		sh.StartTime = *input.StartTime
	}
	if input.TotalSeats != nil {
		sh.TotalSeats = *input.TotalSeats
	}
	if err := sh.Validate(); err != nil {
		return nil, err
	}
	if err := s.showRepo.Update(ctx, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

// DeleteShow は上映回を削除する（管理用）
func (s *ShowService) DeleteShow(ctx context.Context, id string) error {
	return s.showRepo.Delete(ctx, id)
}
