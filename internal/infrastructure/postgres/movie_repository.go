package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-cinema-booking/internal/domain/movie"
)

type movieRow struct {
	ID              string    `db:"id"`
	Title           string    `db:"title"`
	Description     *string   `db:"description"`
	DurationMinutes int       `db:"duration_minutes"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r *movieRow) toEntity() *movie.Movie {
	var desc string
	if r.Description != nil {
		desc = *r.Description
	}
	return &movie.Movie{
		ID:              r.ID,
		Title:           r.Title,
		Description:     desc,
		DurationMinutes: r.DurationMinutes,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// MovieRepository は映画リポジトリのPostgreSQL実装
type MovieRepository struct {
	db *sqlx.DB
}

// NewMovieRepository はMovieRepositoryを作成する
func NewMovieRepository(db *sqlx.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// Create は新しい映画を作成する
func (r *MovieRepository) Create(ctx context.Context, m *movie.Movie) error {
	query := `
		INSERT INTO movies (title, description, duration_minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	var desc *string
	if m.Description != "" {
		desc = &m.Description
	}
	err := r.db.QueryRowContext(ctx, query, m.Title, desc, m.DurationMinutes, m.CreatedAt, m.UpdatedAt).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("映画作成に失敗: %w", err)
	}
	return nil
}

// GetByID はIDから映画を取得する
func (r *MovieRepository) GetByID(ctx context.Context, id string) (*movie.Movie, error) {
	var row movieRow
	query := `SELECT id, title, description, duration_minutes, created_at, updated_at FROM movies WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, movie.ErrMovieNotFound
		}
		return nil, fmt.Errorf("映画取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

// List は映画一覧を取得する（新しい順）
func (r *MovieRepository) List(ctx context.Context, limit, offset int) ([]*movie.Movie, error) {
	var rows []movieRow
	query := `SELECT id, title, description, duration_minutes, created_at, updated_at FROM movies ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("映画一覧取得に失敗: %w", err)
	}
	movies := make([]*movie.Movie, len(rows))
	for i, row := range rows {
		movies[i] = row.toEntity()
	}
	return movies, nil
}

// Update は映画を更新する
func (r *MovieRepository) Update(ctx context.Context, m *movie.Movie) error {
	query := `
		UPDATE movies
		SET title = $1, description = $2, duration_minutes = $3, updated_at = $4
		WHERE id = $5
	`
	var desc *string
	if m.Description != "" {
		desc = &m.Description
	}
	result, err := r.db.ExecContext(ctx, query, m.Title, desc, m.DurationMinutes, time.Now(), m.ID)
	if err != nil {
		return fmt.Errorf("映画更新に失敗: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗: %w", err)
	}
	if rows == 0 {
		return movie.ErrMovieNotFound
	}
	return nil
}

// Delete は映画を削除する
func (r *MovieRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("映画削除に失敗: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の確認に失敗: %w", err)
	}
	if rows == 0 {
		return movie.ErrMovieNotFound
	}
	return nil
}

var _ movie.Repository = (*MovieRepository)(nil)
