package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-cinema-booking/internal/domain/booking"
	"github.com/sanosuguru/go-cinema-booking/internal/domain/show"
	"github.com/sanosuguru/go-cinema-booking/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-cinema-booking/internal/infrastructure/redis"
	"github.com/sanosuguru/go-cinema-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-cinema-booking/internal/pkg/metrics"
)

// BookingService は予約台帳のユースケースを提供する
type BookingService struct {
	txManager   transaction.Manager
	bookingRepo booking.Repository
	showRepo    show.Repository
	lockManager *redisinfra.LockManager
	cache       *redisinfra.AvailabilityCache
	metrics     *metrics.Metrics
}

// NewBookingService はBookingServiceを作成する
// lockManager / cache / m は nil を許容する（テストや Redis なし構成）
func NewBookingService(
	txManager transaction.Manager,
	br booking.Repository,
	sr show.Repository,
	lm *redisinfra.LockManager,
	cache *redisinfra.AvailabilityCache,
	m *metrics.Metrics,
) *BookingService {
	return &BookingService{
		txManager:   txManager,
		bookingRepo: br,
		showRepo:    sr,
		lockManager: lm,
		cache:       cache,
		metrics:     m,
	}
}

// CreateBookingInput は予約リクエストを表す
// SeatNumbers が指定された場合は座席指定予約、空の場合は SeatCount 席の席数予約
type CreateBookingInput struct {
	ShowID      string
	UserEmail   string
	SeatCount   int
	SeatNumbers []int
}

// BookingResult は予約トランザクションの結果を表す
// FAILED は正常な業務上の結果であり、エラーとしては扱わない
type BookingResult struct {
	Booking *booking.Booking
	// Available はトランザクション時点の空席数
	Available int
	// ConflictSeats は他の予約と衝突した座席番号（座席指定時のみ）
	ConflictSeats []int
	Message       string
}

// CreateBooking は予約トランザクションを実行する
// 上映行の排他ロック下で空席判定を行い、PENDING または FAILED の台帳エントリを
// 1行コミットする。同一上映への並行リクエストはここで直列化される
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*BookingResult, error) {
	seatsBooked := input.SeatCount
	if len(input.SeatNumbers) > 0 {
		seatsBooked = len(input.SeatNumbers)
	}

	b := booking.NewBooking(input.ShowID, input.UserEmail, seatsBooked, input.SeatNumbers)
	if err := b.Validate(); err != nil {
		return nil, err
	}

	// 分散ロックを取得（DB の行ロックの手前で同一上映の競合をふるい落とす）
	if s.lockManager != nil {
		lockStart := time.Now()
		lock, err := s.lockManager.AcquireLockWithRetry(ctx, redisinfra.ShowLockKey(input.ShowID), 10*time.Second, 3, 100*time.Millisecond)
		if err != nil {
			s.observeLock("acquire", "failed", lockStart)
			if errors.Is(err, redisinfra.ErrLockNotAcquired) {
				s.countBooking("lock_failed")
				return nil, booking.ErrShowBusy
			}
			logger.Error("ロック取得に失敗", zap.String("show_id", input.ShowID), zap.Error(err))
			return nil, booking.ErrStoreUnavailable
		}
		s.observeLock("acquire", "success", lockStart)
		defer func() {
			releaseStart := time.Now()
			if err := lock.Release(ctx); err != nil {
				s.observeLock("release", "failed", releaseStart)
				logger.Warn("ロック解放に失敗", zap.String("show_id", input.ShowID), zap.Error(err))
				return
			}
			s.observeLock("release", "success", releaseStart)
		}()
	}

	txStart := time.Now()
	result, err := s.runReservationTx(ctx, b)
	if err != nil {
		s.countBooking("error")
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.BookingTransactionDuration.Observe(time.Since(txStart).Seconds())
	}

	switch {
	case len(result.ConflictSeats) > 0:
		s.countBooking("conflict")
	case result.Booking.Status == booking.StatusPending:
		s.countBooking("pending")
		s.invalidateCache(ctx, input.ShowID)
	default:
		s.countBooking("failed")
	}

	return result, nil
}

// runReservationTx は予約判定と台帳エントリ作成を1つのトランザクションで行う
// ロールバック・コミットのどちらでも上映行のロックは必ず解放される
func (s *BookingService) runReservationTx(ctx context.Context, b *booking.Booking) (*BookingResult, error) {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		logger.Error("トランザクション開始に失敗", zap.Error(err))
		return nil, booking.ErrStoreUnavailable
	}
	defer tx.Rollback()

	// 直列化ポイント。ここから先は同一上映について単独で実行される
	sh, err := s.showRepo.GetByIDForUpdate(ctx, tx, b.ShowID)
	if err != nil {
		return nil, err
	}

	if b.HasSeatNumbers() {
		for _, n := range b.SeatNumbers {
			if n > sh.TotalSeats {
				return nil, booking.ErrSeatNumberOutOfRange
			}
		}
	}

	consumed, err := s.bookingRepo.SumHeldSeats(ctx, tx, b.ShowID)
	if err != nil {
		return nil, err
	}
	available := sh.TotalSeats - consumed

	var conflicts []int
	if b.HasSeatNumbers() {
		held, err := s.bookingRepo.GetHeldSeatNumbersTx(ctx, tx, b.ShowID)
		if err != nil {
			return nil, err
		}
		heldSet := make(map[int]struct{}, len(held))
		for _, n := range held {
			heldSet[n] = struct{}{}
		}
		for _, n := range b.SeatNumbers {
			if _, ok := heldSet[n]; ok {
				conflicts = append(conflicts, n)
			}
		}
	}

	var message string
	switch {
	case len(conflicts) > 0:
		// 座席衝突は集計上の空席数に関わらずリクエスト全体を失敗させる
		b.Status = booking.StatusFailed
		message = fmt.Sprintf("既に予約されている座席があります: %v", conflicts)
	case available >= b.SeatsBooked:
		b.Status = booking.StatusPending
		message = "予約を仮押さえしました。猶予時間内に確定してください。"
	default:
		b.Status = booking.StatusFailed
		message = fmt.Sprintf("予約に失敗しました。%d席の要求に対し空席は%d席です。", b.SeatsBooked, available)
	}

	if err := s.bookingRepo.Create(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		logger.Error("コミットに失敗", zap.Error(err))
		return nil, booking.ErrStoreUnavailable
	}

	return &BookingResult{
		Booking:       b,
		Available:     available,
		ConflictSeats: conflicts,
		Message:       message,
	}, nil
}

// GetBooking はIDから予約を取得する
func (s *BookingService) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	return s.bookingRepo.GetByID(ctx, id)
}

// GetUserBookings はユーザーの予約一覧を取得する（新しい順）
func (s *BookingService) GetUserBookings(ctx context.Context, email string, limit, offset int) ([]*booking.Booking, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.bookingRepo.GetByUserEmail(ctx, email, limit, offset)
}

// ListBookings は全予約一覧を取得する（新しい順、管理用）
func (s *BookingService) ListBookings(ctx context.Context, limit, offset int) ([]*booking.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.bookingRepo.List(ctx, limit, offset)
}

// ConfirmBooking は PENDING の予約を CONFIRMED に遷移させる
// 条件付き更新のため、期限切れワーカーと競合しても一方のみが成功する
func (s *BookingService) ConfirmBooking(ctx context.Context, id string) (*booking.Booking, error) {
	return s.bookingRepo.ConfirmPending(ctx, id)
}

// CancelBooking は PENDING または CONFIRMED の予約を CANCELLED に遷移させ、
// 保持していた座席を解放する
func (s *BookingService) CancelBooking(ctx context.Context, id string) (*booking.Booking, error) {
	b, err := s.bookingRepo.CancelActive(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, b.ShowID)
	return b, nil
}

// GetHeldSeats は上映で保持中（PENDING/CONFIRMED）の座席番号一覧を返す
func (s *BookingService) GetHeldSeats(ctx context.Context, showID string) ([]int, error) {
	if _, err := s.showRepo.GetByID(ctx, showID); err != nil {
		return nil, err
	}
	return s.bookingRepo.GetHeldSeatNumbers(ctx, showID)
}

// ExpirePendingBookings は猶予時間を超えた PENDING の予約を FAILED に遷移させる
// 期限切れワーカーから呼ばれる
func (s *BookingService) ExpirePendingBookings(ctx context.Context, olderThan time.Duration) (int, error) {
	count, err := s.bookingRepo.ExpirePending(ctx, olderThan)
	if err != nil {
		return 0, err
	}
	if count > 0 && s.metrics != nil {
		s.metrics.ExpiredBookingsTotal.Add(float64(count))
	}
	return count, nil
}

func (s *BookingService) countBooking(outcome string) {
	if s.metrics != nil {
		s.metrics.BookingsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *BookingService) observeLock(operation, status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.DistributedLockDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
	}
}

// invalidateCache は空席数キャッシュを無効化する（ベストエフォート）
func (s *BookingService) invalidateCache(ctx context.Context, showID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, showID); err != nil {
		logger.Warn("空席キャッシュの無効化に失敗", zap.String("show_id", showID), zap.Error(err))
	}
}
