package booking

import (
	"context"
	"time"

	"github.com/sanosuguru/go-cinema-booking/internal/domain/transaction"
)

// Repository は予約台帳リポジトリのインターフェース
// 状態遷移（Confirm/Cancel/Expire）はすべて期待ステータス付きの
// 条件付き単一行更新として実装すること（read-then-write は不可）
type Repository interface {
	// Create は新しい予約エントリを作成する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, b *Booking) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Booking, error)

	// GetByUserEmail はメールアドレスから予約一覧を取得する（作成日時の降順）
	GetByUserEmail(ctx context.Context, email string, limit, offset int) ([]*Booking, error)

	// List は全予約一覧を取得する（作成日時の降順、管理用）
	List(ctx context.Context, limit, offset int) ([]*Booking, error)

	// SumHeldSeats は座席を保持中（PENDING/CONFIRMED）の予約の座席数合計を返す
	// 予約トランザクション内で上映行のロック保持中に呼ぶこと
	SumHeldSeats(ctx context.Context, tx transaction.Tx, showID string) (int, error)

	// CountHeldSeats は保持中の座席数合計を返す（参照用、ロックなし）
	CountHeldSeats(ctx context.Context, showID string) (int, error)

	// GetHeldSeatNumbersTx は保持中の座席番号一覧をトランザクション内で取得する
	GetHeldSeatNumbersTx(ctx context.Context, tx transaction.Tx, showID string) ([]int, error)

	// GetHeldSeatNumbers は保持中の座席番号一覧を取得する（参照用）
	GetHeldSeatNumbers(ctx context.Context, showID string) ([]int, error)

	// ConfirmPending は PENDING の予約を CONFIRMED に遷移させる
	// 対象が PENDING でない場合は ErrBookingNotPending を返す
	ConfirmPending(ctx context.Context, id string) (*Booking, error)

	// CancelActive は PENDING または CONFIRMED の予約を CANCELLED に遷移させる
	// 対象が遷移可能でない場合は ErrBookingNotActive を返す
	CancelActive(ctx context.Context, id string) (*Booking, error)

	// ExpirePending は作成から olderThan を超えた PENDING の予約を
	// FAILED に遷移させ、遷移した件数を返す
	ExpirePending(ctx context.Context, olderThan time.Duration) (int, error)
}
