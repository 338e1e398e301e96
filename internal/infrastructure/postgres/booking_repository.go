package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-cinema-booking/internal/domain/booking"
	"github.com/sanosuguru/go-cinema-booking/internal/domain/transaction"
)

const bookingColumns = `id, show_id, user_email, seats_booked, seat_numbers, status, created_at, updated_at`

type bookingRow struct {
	ID          string        `db:"id"`
	ShowID      string        `db:"show_id"`
	UserEmail   string        `db:"user_email"`
	SeatsBooked int           `db:"seats_booked"`
	SeatNumbers pq.Int64Array `db:"seat_numbers"`
	Status      string        `db:"status"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

func (r *bookingRow) toEntity() *booking.Booking {
	var seatNumbers []int
	if len(r.SeatNumbers) > 0 {
		seatNumbers = make([]int, len(r.SeatNumbers))
		for i, n := range r.SeatNumbers {
			seatNumbers[i] = int(n)
		}
	}
	return &booking.Booking{
		ID:          r.ID,
		ShowID:      r.ShowID,
		UserEmail:   r.UserEmail,
		SeatsBooked: r.SeatsBooked,
		SeatNumbers: seatNumbers,
		Status:      booking.Status(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func seatNumbersArg(seatNumbers []int) interface{} {
	if len(seatNumbers) == 0 {
		return nil
	}
	arr := make(pq.Int64Array, len(seatNumbers))
	for i, n := range seatNumbers {
		arr[i] = int64(n)
	}
	return arr
}

// BookingRepository は予約台帳リポジトリのPostgreSQL実装
// 状態遷移はすべて期待ステータス付きの条件付き単一行 UPDATE で行う
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository はBookingRepositoryを作成する
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create は新しい予約エントリを作成する（トランザクション必須）
func (r *BookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return errTxRequired
	}

	query := `
		INSERT INTO bookings (show_id, user_email, seats_booked, seat_numbers, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := sqlxTx.QueryRowContext(ctx, query,
		b.ShowID, b.UserEmail, b.SeatsBooked, seatNumbersArg(b.SeatNumbers),
		string(b.Status), b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("予約作成に失敗: %w", err)
	}
	return nil
}

// GetByID はIDから予約を取得する
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	var row bookingRow
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

// GetByUserEmail はメールアドレスから予約一覧を取得する（新しい順）
func (r *BookingRepository) GetByUserEmail(ctx context.Context, email string, limit, offset int) ([]*booking.Booking, error) {
	var rows []bookingRow
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_email = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &rows, query, email, limit, offset); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	return toEntities(rows), nil
}

// List は全予約一覧を取得する（新しい順、管理用）
func (r *BookingRepository) List(ctx context.Context, limit, offset int) ([]*booking.Booking, error) {
	var rows []bookingRow
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	return toEntities(rows), nil
}

// SumHeldSeats は座席を保持中の予約（PENDING/CONFIRMED）の座席数合計を返す
// 呼び出し側が同一 tx 内で上映行のロックを保持していることが前提
func (r *BookingRepository) SumHeldSeats(ctx context.Context, tx transaction.Tx, showID string) (int, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return 0, errTxRequired
	}

	var total int
	query := `SELECT COALESCE(SUM(seats_booked), 0) FROM bookings WHERE show_id = $1 AND status IN ('PENDING', 'CONFIRMED')`
	if err := sqlxTx.GetContext(ctx, &total, query, showID); err != nil {
		return 0, fmt.Errorf("予約済み座席数の集計に失敗: %w", err)
	}
	return total, nil
}

// CountHeldSeats は保持中の座席数合計を返す（参照用、ロックなし）
func (r *BookingRepository) CountHeldSeats(ctx context.Context, showID string) (int, error) {
	var total int
	query := `SELECT COALESCE(SUM(seats_booked), 0) FROM bookings WHERE show_id = $1 AND status IN ('PENDING', 'CONFIRMED')`
	if err := r.db.GetContext(ctx, &total, query, showID); err != nil {
		return 0, fmt.Errorf("予約済み座席数の集計に失敗: %w", err)
	}
	return total, nil
}

const heldSeatNumbersQuery = `
	SELECT DISTINCT unnest(seat_numbers) AS seat_number
	FROM bookings
	WHERE show_id = $1 AND status IN ('PENDING', 'CONFIRMED')
	ORDER BY seat_number
`

// GetHeldSeatNumbersTx は保持中の座席番号一覧をトランザクション内で取得する
func (r *BookingRepository) GetHeldSeatNumbersTx(ctx context.Context, tx transaction.Tx, showID string) ([]int, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, errTxRequired
	}

	var seats []int
	if err := sqlxTx.SelectContext(ctx, &seats, heldSeatNumbersQuery, showID); err != nil {
		return nil, fmt.Errorf("予約済み座席番号の取得に失敗: %w", err)
	}
	return seats, nil
}

// GetHeldSeatNumbers は保持中の座席番号一覧を取得する（参照用）
func (r *BookingRepository) GetHeldSeatNumbers(ctx context.Context, showID string) ([]int, error) {
	var seats []int
	if err := r.db.SelectContext(ctx, &seats, heldSeatNumbersQuery, showID); err != nil {
		return nil, fmt.Errorf("予約済み座席番号の取得に失敗: %w", err)
	}
	return seats, nil
}

// ConfirmPending は PENDING の予約を CONFIRMED に遷移させる
// 条件付き単一行更新のため、並行する confirm / expire はどちらか一方のみ成功する
func (r *BookingRepository) ConfirmPending(ctx context.Context, id string) (*booking.Booking, error) {
	query := `
		UPDATE bookings
		SET status = 'CONFIRMED', updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING ` + bookingColumns
	var row bookingRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotPending
		}
		return nil, fmt.Errorf("予約確定に失敗: %w", err)
	}
	return row.toEntity(), nil
}

// CancelActive は PENDING または CONFIRMED の予約を CANCELLED に遷移させる
func (r *BookingRepository) CancelActive(ctx context.Context, id string) (*booking.Booking, error) {
	query := `
		UPDATE bookings
		SET status = 'CANCELLED', updated_at = NOW()
		WHERE id = $1 AND status IN ('PENDING', 'CONFIRMED')
		RETURNING ` + bookingColumns
	var row bookingRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotActive
		}
		return nil, fmt.Errorf("予約キャンセルに失敗: %w", err)
	}
	return row.toEntity(), nil
}

// ExpirePending は猶予時間を超えた PENDING の予約を FAILED に遷移させる
// 行ごとの条件付き更新が1文にまとまっているため、並行する confirm に負けた行は
// そのまま対象外になる
func (r *BookingRepository) ExpirePending(ctx context.Context, olderThan time.Duration) (int, error) {
	query := `
		UPDATE bookings
		SET status = 'FAILED', updated_at = NOW()
		WHERE status = 'PENDING' AND created_at < NOW() - make_interval(secs => $1)
	`
	result, err := r.db.ExecContext(ctx, query, olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("期限切れ予約の更新に失敗: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("更新結果の確認に失敗: %w", err)
	}
	return int(rows), nil
}

func toEntities(rows []bookingRow) []*booking.Booking {
	result := make([]*booking.Booking, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result
}

var _ booking.Repository = (*BookingRepository)(nil)
