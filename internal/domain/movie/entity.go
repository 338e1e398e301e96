package movie

import "time"

// Movie は映画エンティティを表す
type Movie struct {
	ID              string
	Title           string
	Description     string
	DurationMinutes int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewMovie は新しい映画を作成する
func NewMovie(title, description string, durationMinutes int) *Movie {
	now := time.Now()
	return &Movie{
		Title:           title,
		Description:     description,
		DurationMinutes: durationMinutes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Validate は映画の検証を行う
func (m *Movie) Validate() error {
	if m.Title == "" {
		return ErrTitleRequired
	}
	if m.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	return nil
}
