package application

import (
	"context"

	"github.com/sanosuguru/go-cinema-booking/internal/domain/movie"
)

// MovieService は映画カタログのユースケースを提供する
type MovieService struct {
	movieRepo movie.Repository
}

// NewMovieService はMovieServiceを作成する
func NewMovieService(mr movie.Repository) *MovieService {
	return &MovieService{movieRepo: mr}
}

// CreateMovieInput は映画作成の入力
type CreateMovieInput struct {
	Title           string
	Description     string
	DurationMinutes int
}

// UpdateMovieInput は映画更新の入力（nil のフィールドは変更しない）
type UpdateMovieInput struct {
	ID              string
	Title           *string
	Description     *string
	DurationMinutes *int
}

// CreateMovie は新しい映画を作成する
func (s *MovieService) CreateMovie(ctx context.Context, input CreateMovieInput) (*movie.Movie, error) {
	m := movie.NewMovie(input.Title, input.Description, input.DurationMinutes)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := s.movieRepo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetMovie はIDから映画を取得する
func (s *MovieService) GetMovie(ctx context.Context, id string) (*movie.Movie, error) {
	return s.movieRepo.GetByID(ctx, id)
}

// ListMovies は映画一覧を取得する
func (s *MovieService) ListMovies(ctx context.Context, limit, offset int) ([]*movie.Movie, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.movieRepo.List(ctx, limit, offset)
}

// UpdateMovie は映画を更新する
func (s *MovieService) UpdateMovie(ctx context.Context, input UpdateMovieInput) (*movie.Movie, error) {
	m, err := s.movieRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		m.Title = *input.Title
	}
	if input.Description != nil {
		m.Description = *input.Description
	}
	if input.DurationMinutes != nil {
		m.DurationMinutes = *input.DurationMinutes
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := s.movieRepo.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteMovie は映画を削除する
func (s *MovieService) DeleteMovie(ctx context.Context, id string) error {
	return s.movieRepo.Delete(ctx, id)
}
