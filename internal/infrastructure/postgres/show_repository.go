package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-cinema-booking/internal/domain/show"
	"github.com/sanosuguru/go-cinema-booking/internal/domain/transaction"
)

// errTxRequired は行ロックが必要な操作がトランザクション外で呼ばれた場合のエラー
var errTxRequired = errors.New("トランザクション内でのみ実行できます")

// showRow はDBの行を表す構造体
type showRow struct {
	ID         string    `db:"id"`
	MovieID    string    `db:"movie_id"`
	ScreenName string    `db:"screen_name"`
	StartTime  time.Time `db:"start_time"`
	TotalSeats int       `db:"total_seats"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r *showRow) toEntity() *show.Show {
	return &show.Show{
		ID:         r.ID,
		MovieID:    r.MovieID,
		ScreenName: r.ScreenName,
		StartTime:  r.StartTime,
		TotalSeats: r.TotalSeats,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// availabilityRow は空席情報付き上映一覧の行
type availabilityRow struct {
	showRow
	MovieTitle      string `db:"movie_title"`
	DurationMinutes int    `db:"duration_minutes"`
	BookedSeats     int    `db:"booked_seats"`
	AvailableSeats  int    `db:"available_seats"`
}

// ShowRepository は上映回リポジトリのPostgreSQL実装
type ShowRepository struct {
	db *sqlx.DB
}

// NewShowRepository はShowRepositoryを作成する
func NewShowRepository(db *sqlx.DB) *ShowRepository {
	return &ShowRepository{db: db}
}

// Create は新しい上映回を作成する
func (r *ShowRepository) Create(ctx context.Context, s *show.Show) error {
	query := `
		INSERT INTO shows (movie_id, screen_name, start_time, total_seats, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		s.MovieID, s.ScreenName, s.StartTime, s.TotalSeats, s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("上映作成に失敗: %w", err)
	}
	return nil
}

// GetByID はIDから上映回を取得する
func (r *ShowRepository) GetByID(ctx context.Context, id string) (*show.Show, error) {
	query := `SELECT id, movie_id, screen_name, start_time, total_seats, created_at, updated_at FROM shows WHERE id = $1`

	var row showRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, show.ErrShowNotFound
		}
		return nil, fmt.Errorf("上映取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

// GetByIDForUpdate は上映行を FOR UPDATE で取得する
// 同一上映への並行予約はここで直列化され、ロックは tx の終了まで保持される
func (r *ShowRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*show.Show, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, errTxRequired
	}

	query := `SELECT id, movie_id, screen_name, start_time, total_seats, created_at, updated_at FROM shows WHERE id = $1 FOR UPDATE`

	var row showRow
	if err := sqlxTx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, show.ErrShowNotFound
		}
		return nil, fmt.Errorf("上映行のロック取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

// List は上映一覧を取得する
func (r *ShowRepository) List(ctx context.Context, limit, offset int) ([]*show.Show, error) {
	query := `
		SELECT id, movie_id, screen_name, start_time, total_seats, created_at, updated_at
		FROM shows
		ORDER BY start_time
		LIMIT $1 OFFSET $2
	`
	var rows []showRow
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("上映一覧取得に失敗: %w", err)
	}
	shows := make([]*show.Show, len(rows))
	for i, row := range rows {
		shows[i] = row.toEntity()
	}
	return shows, nil
}

// ListUpcoming は今後の上映を空席情報付きで取得する
// PENDING も座席を保持するため、空席計算には PENDING と CONFIRMED の両方を含める
func (r *ShowRepository) ListUpcoming(ctx context.Context) ([]*show.Availability, error) {
	query := `
		SELECT
			s.id, s.movie_id, s.screen_name, s.start_time, s.total_seats, s.created_at, s.updated_at,
			m.title AS movie_title,
			m.duration_minutes,
			COALESCE(SUM(CASE WHEN b.status IN ('PENDING', 'CONFIRMED') THEN b.seats_booked ELSE 0 END), 0) AS booked_seats,
			s.total_seats - COALESCE(SUM(CASE WHEN b.status IN ('PENDING', 'CONFIRMED') THEN b.seats_booked ELSE 0 END), 0) AS available_seats
		FROM shows s
		JOIN movies m ON s.movie_id = m.id
		LEFT JOIN bookings b ON s.id = b.show_id
		WHERE s.start_time > NOW()
		GROUP BY s.id, m.id
		ORDER BY s.start_time
	`
	var rows []availabilityRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("上映空席一覧取得に失敗: %w", err)
	}
	result := make([]*show.Availability, len(rows))
	for i, row := range rows {
		result[i] = &show.Availability{
			Show:            *row.showRow.toEntity(),
			MovieTitle:      row.MovieTitle,
			DurationMinutes: row.DurationMinutes,
			BookedSeats:     row.BookedSeats,
			AvailableSeats:  row.AvailableSeats,
		}
	}
	return result, nil
}

// Update は上映回を更新する
func (r *ShowRepository) Update(ctx context.Context, s *show.Show) error {
	query := `
		UPDATE shows
		SET screen_name = $1, start_time = $2, total_seats = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := r.db.ExecContext(ctx, query, s.ScreenName, s.StartTime, s.TotalSeats, time.Now(), s.ID)
	if err != nil {
		return fmt.Errorf("上映更新に失敗: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗: %w", err)
	}
	if rows == 0 {
		return show.ErrShowNotFound
	}
	return nil
}

// Delete は上映回を削除する
func (r *ShowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM shows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("上映削除に失敗: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の確認に失敗: %w", err)
	}
	if rows == 0 {
		return show.ErrShowNotFound
	}
	return nil
}

// インターフェースを満たしているか確認
var _ show.Repository = (*ShowRepository)(nil)
