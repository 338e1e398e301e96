package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-cinema-booking/internal/pkg/logger"
)

// BookingExpirer は期限切れ予約を FAILED に遷移させるインターフェース
type BookingExpirer interface {
	ExpirePendingBookings(ctx context.Context, olderThan time.Duration) (int, error)
}

// ExpiryWorker は猶予時間を超えた PENDING 予約を回収するワーカー
// リクエスト処理とは独立したタイマーで動き、失敗しても次の周期で再試行する
type ExpiryWorker struct {
	bookingService BookingExpirer
	interval       time.Duration
	graceWindow    time.Duration
	stopCh         chan struct{}
	doneCh         chan struct{}
}

// NewExpiryWorker は新しいワーカーを作成する
func NewExpiryWorker(bs BookingExpirer, interval, graceWindow time.Duration) *ExpiryWorker {
	return &ExpiryWorker{
		bookingService: bs,
		interval:       interval,
		graceWindow:    graceWindow,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start はワーカーを開始する
// 起動直後に1回実行し、以降は interval ごとに実行する
func (w *ExpiryWorker) Start(ctx context.Context) {
	logger.Info("期限切れ予約ワーカー開始",
		zap.Duration("interval", w.interval),
		zap.Duration("grace_window", w.graceWindow),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneCh)

	w.reap(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info("期限切れ予約ワーカー停止（コンテキストキャンセル）")
			return
		case <-w.stopCh:
			logger.Info("期限切れ予約ワーカー停止（シグナル受信）")
			return
		case <-ticker.C:
			w.reap(ctx)
		}
	}
}

// Stop はワーカーを停止し、終了まで待機する
func (w *ExpiryWorker) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

// reap は1回分の回収処理を実行する
// エラーはログに残すだけで、次の周期に持ち越す
func (w *ExpiryWorker) reap(ctx context.Context) {
	log := logger.Get()
	log.Debug("期限切れ予約の回収開始")

	count, err := w.bookingService.ExpirePendingBookings(ctx, w.graceWindow)
	if err != nil {
		log.Error("期限切れ予約の回収失敗", zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("期限切れ予約を失効", zap.Int("count", count))
	} else {
		log.Debug("期限切れ予約なし")
	}
}
