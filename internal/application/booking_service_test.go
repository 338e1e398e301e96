//go:build integration
// +build integration

package application

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-cinema-booking/internal/config"
	"github.com/sanosuguru/go-cinema-booking/internal/domain/booking"
	"github.com/sanosuguru/go-cinema-booking/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-cinema-booking/internal/infrastructure/redis"
)

func setupTestEnv(t *testing.T) (*BookingService, *ShowService, *MovieService, *sqlx.DB, func()) {
	cfg := config.Load()

	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		t.Skipf("DB接続エラー: %v", err)
	}

	redisClient, err := redisinfra.NewClient(&redisinfra.Config{
		Host: cfg.Redis.Host, Port: cfg.Redis.Port,
	})
	if err != nil {
		t.Skipf("Redis接続エラー: %v", err)
	}
	lockManager := redisinfra.NewLockManager(redisClient)
	cache := redisinfra.NewAvailabilityCache(redisClient)

	movieRepo := postgres.NewMovieRepository(db)
	showRepo := postgres.NewShowRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	txManager := postgres.NewTxManager(db)

	movieService := NewMovieService(movieRepo)
	showService := NewShowService(showRepo, movieRepo, bookingRepo, cache)
	bookingService := NewBookingService(txManager, bookingRepo, showRepo, lockManager, cache, nil)

	cleanup := func() {
		db.Exec("DELETE FROM bookings")
		db.Exec("DELETE FROM shows")
		db.Exec("DELETE FROM movies")
		redisClient.Close()
		db.Close()
	}

	return bookingService, showService, movieService, db, cleanup
}

func createTestShow(t *testing.T, showService *ShowService, movieService *MovieService, totalSeats int) string {
	ctx := context.Background()

	m, err := movieService.CreateMovie(ctx, CreateMovieInput{
		Title: "テスト映画", DurationMinutes: 120,
	})
	require.NoError(t, err)

	sh, err := showService.CreateShow(ctx, CreateShowInput{
		MovieID:    m.ID,
		ScreenName: "スクリーン1",
		StartTime:  time.Now().Add(24 * time.Hour),
		TotalSeats: totalSeats,
	})
	require.NoError(t, err)

	return sh.ID
}

func TestSequentialOverbooking(t *testing.T) {
	bookingService, showService, movieService, _, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()
	showID := createTestShow(t, showService, movieService, 10)

	t.Run("10席のうち6席の予約を2回行うと1回目のみ成功する", func(t *testing.T) {
		first, err := bookingService.CreateBooking(ctx, CreateBookingInput{
			ShowID: showID, UserEmail: "first@example.com", SeatCount: 6,
		})
		require.NoError(t, err)
		assert.Equal(t, booking.StatusPending, first.Booking.Status)

		second, err := bookingService.CreateBooking(ctx, CreateBookingInput{
			ShowID: showID, UserEmail: "second@example.com", SeatCount: 6,
		})
		require.NoError(t, err)
		assert.Equal(t, booking.StatusFailed, second.Booking.Status)
		assert.Equal(t, 4, second.Available)
	})
}

func TestConcurrentBooking(t *testing.T) {
	bookingService, showService, movieService, _, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()
	showID := createTestShow(t, showService, movieService, 1)

	t.Run("10並行リクエストで1席は1人のみが確保できる", func(t *testing.T) {
		const numGoroutines = 10
		var pendingCount int32
		var failedCount int32
		var wg sync.WaitGroup

		for i := 0; i < numGoroutines; i++ {
			wg.Add(1)
			go func(userNum int) {
				defer wg.Done()
				result, err := bookingService.CreateBooking(ctx, CreateBookingInput{
					ShowID:    showID,
					UserEmail: fmt.Sprintf("user%d@example.com", userNum),
					SeatCount: 1,
				})
				if err != nil {
					// ロック競合は失敗としてカウント
					atomic.AddInt32(&failedCount, 1)
					return
				}
				if result.Booking.Status == booking.StatusPending {
					atomic.AddInt32(&pendingCount, 1)
				} else {
					atomic.AddInt32(&failedCount, 1)
				}
			}(i)
		}
		wg.Wait()

		// 座席を確保できるのは1人だけ
		assert.Equal(t, int32(1), pendingCount, "確保は1つだけ")
		assert.Equal(t, int32(numGoroutines-1), failedCount, "残りは全て失敗")
	})
}

func TestSeatNumberConflict(t *testing.T) {
	bookingService, showService, movieService, _, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()
	showID := createTestShow(t, showService, movieService, 10)

	t.Run("衝突した座席指定はリクエスト全体が失敗する", func(t *testing.T) {
		first, err := bookingService.CreateBooking(ctx, CreateBookingInput{
			ShowID: showID, UserEmail: "first@example.com", SeatNumbers: []int{4},
		})
		require.NoError(t, err)
		require.Equal(t, booking.StatusPending, first.Booking.Status)

		second, err := bookingService.CreateBooking(ctx, CreateBookingInput{
			ShowID: showID, UserEmail: "second@example.com", SeatNumbers: []int{3, 4},
		})
		require.NoError(t, err)
		assert.Equal(t, booking.StatusFailed, second.Booking.Status)
		assert.Equal(t, []int{4}, second.ConflictSeats)

		// 座席3は確保されずに残っている
		held, err := bookingService.GetHeldSeats(ctx, showID)
		require.NoError(t, err)
		assert.Equal(t, []int{4}, held)
	})
}

func TestBookingLifecycle(t *testing.T) {
	bookingService, showService, movieService, _, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()
	showID := createTestShow(t, showService, movieService, 10)

	t.Run("確定済みの予約は再確定できない", func(t *testing.T) {
		result, err := bookingService.CreateBooking(ctx, CreateBookingInput{
			ShowID: showID, UserEmail: "user@example.com", SeatCount: 2,
		})
		require.NoError(t, err)
		require.Equal(t, booking.StatusPending, result.Booking.Status)

		confirmed, err := bookingService.ConfirmBooking(ctx, result.Booking.ID)
		require.NoError(t, err)
		assert.Equal(t, booking.StatusConfirmed, confirmed.Status)

		_, err = bookingService.ConfirmBooking(ctx, result.Booking.ID)
		assert.ErrorIs(t, err, booking.ErrBookingNotPending)
	})

	t.Run("キャンセルで座席が解放される", func(t *testing.T) {
		result, err := bookingService.CreateBooking(ctx, CreateBookingInput{
			ShowID: showID, UserEmail: "cancel@example.com", SeatCount: 8,
		})
		require.NoError(t, err)
		require.Equal(t, booking.StatusPending, result.Booking.Status)

		// 空席がないので失敗する
		blocked, err := bookingService.CreateBooking(ctx, CreateBookingInput{
			ShowID: showID, UserEmail: "other@example.com", SeatCount: 2,
		})
		require.NoError(t, err)
		require.Equal(t, booking.StatusFailed, blocked.Booking.Status)

		_, err = bookingService.CancelBooking(ctx, result.Booking.ID)
		require.NoError(t, err)

		// キャンセル後は同じ席数を確保できる
		retry, err := bookingService.CreateBooking(ctx, CreateBookingInput{
			ShowID: showID, UserEmail: "other@example.com", SeatCount: 2,
		})
		require.NoError(t, err)
		assert.Equal(t, booking.StatusPending, retry.Booking.Status)
	})
}

func TestExpiryReleasesSeats(t *testing.T) {
	bookingService, showService, movieService, db, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("猶予時間を超えたPENDING予約は回収され座席が解放される", func(t *testing.T) {
		showID := createTestShow(t, showService, movieService, 10)

		stale, err := bookingService.CreateBooking(ctx, CreateBookingInput{
			ShowID: showID, UserEmail: "stale@example.com", SeatNumbers: []int{1, 2, 3},
		})
		require.NoError(t, err)
		require.Equal(t, booking.StatusPending, stale.Booking.Status)

		// 作成時刻を猶予時間より前に巻き戻す
		_, err = db.Exec("UPDATE bookings SET created_at = NOW() - INTERVAL '3 minutes' WHERE id = $1", stale.Booking.ID)
		require.NoError(t, err)

		count, err := bookingService.ExpirePendingBookings(ctx, 2*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		expired, err := bookingService.GetBooking(ctx, stale.Booking.ID)
		require.NoError(t, err)
		assert.Equal(t, booking.StatusFailed, expired.Status)

		// 回収後は同じ座席を再予約できる
		retry, err := bookingService.CreateBooking(ctx, CreateBookingInput{
			ShowID: showID, UserEmail: "retry@example.com", SeatNumbers: []int{1, 2, 3},
		})
		require.NoError(t, err)
		assert.Equal(t, booking.StatusPending, retry.Booking.Status)
	})

	t.Run("猶予時間内のPENDING予約は回収されない", func(t *testing.T) {
		showID := createTestShow(t, showService, movieService, 10)

		fresh, err := bookingService.CreateBooking(ctx, CreateBookingInput{
			ShowID: showID, UserEmail: "fresh@example.com", SeatCount: 6,
		})
		require.NoError(t, err)
		require.Equal(t, booking.StatusPending, fresh.Booking.Status)

		count, err := bookingService.ExpirePendingBookings(ctx, 2*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		// 保持中のままなので残りは4席
		blocked, err := bookingService.CreateBooking(ctx, CreateBookingInput{
			ShowID: showID, UserEmail: "blocked@example.com", SeatCount: 6,
		})
		require.NoError(t, err)
		assert.Equal(t, booking.StatusFailed, blocked.Booking.Status)
		assert.Equal(t, 4, blocked.Available)
	})
}
