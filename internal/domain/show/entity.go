package show

import "time"

// Show は上映回エンティティを表す
// TotalSeats は作成後、予約目的では不変として扱う
type Show struct {
	ID         string
	MovieID    string
	ScreenName string
	StartTime  time.Time
	TotalSeats int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewShow は新しい上映回を作成する
func NewShow(movieID, screenName string, startTime time.Time, totalSeats int) *Show {
	now := time.Now()
	return &Show{
		MovieID:    movieID,
		ScreenName: screenName,
		StartTime:  startTime,
		TotalSeats: totalSeats,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Validate は上映回の検証を行う
func (s *Show) Validate() error {
	if s.MovieID == "" {
		return ErrMovieIDRequired
	}
	if s.ScreenName == "" {
		return ErrScreenNameRequired
	}
	if s.TotalSeats <= 0 {
		return ErrInvalidTotalSeats
	}
	return nil
}

// Availability は上映回の空席情報を表す（利用者向け一覧用）
type Availability struct {
	Show
	MovieTitle      string
	DurationMinutes int
	BookedSeats     int
	AvailableSeats  int
}
