package handler

import (
	"context"
	"time"

	"github.com/sanosuguru/go-cinema-booking/internal/application"
	"github.com/sanosuguru/go-cinema-booking/internal/domain/booking"
	"github.com/sanosuguru/go-cinema-booking/internal/domain/movie"
	"github.com/sanosuguru/go-cinema-booking/internal/domain/show"
)

// MovieServiceInterface は映画サービスのインターフェース
type MovieServiceInterface interface {
	CreateMovie(ctx context.Context, input application.CreateMovieInput) (*movie.Movie, error)
	GetMovie(ctx context.Context, id string) (*movie.Movie, error)
	ListMovies(ctx context.Context, limit, offset int) ([]*movie.Movie, error)
	UpdateMovie(ctx context.Context, input application.UpdateMovieInput) (*movie.Movie, error)
	DeleteMovie(ctx context.Context, id string) error
}

// ShowServiceInterface は上映サービスのインターフェース
type ShowServiceInterface interface {
	CreateShow(ctx context.Context, input application.CreateShowInput) (*show.Show, error)
	GetShow(ctx context.Context, id string) (*show.Show, error)
	ListShows(ctx context.Context, limit, offset int) ([]*show.Show, error)
	ListUpcomingShows(ctx context.Context) ([]*show.Availability, error)
	GetAvailableSeats(ctx context.Context, showID string) (int, error)
	UpdateShow(ctx context.Context, input application.UpdateShowInput) (*show.Show, error)
	DeleteShow(ctx context.Context, id string) error
}

// BookingServiceInterface は予約サービスのインターフェース
type BookingServiceInterface interface {
	CreateBooking(ctx context.Context, input application.CreateBookingInput) (*application.BookingResult, error)
	GetBooking(ctx context.Context, id string) (*booking.Booking, error)
	GetUserBookings(ctx context.Context, email string, limit, offset int) ([]*booking.Booking, error)
	ListBookings(ctx context.Context, limit, offset int) ([]*booking.Booking, error)
	ConfirmBooking(ctx context.Context, id string) (*booking.Booking, error)
	CancelBooking(ctx context.Context, id string) (*booking.Booking, error)
	GetHeldSeats(ctx context.Context, showID string) ([]int, error)
	ExpirePendingBookings(ctx context.Context, olderThan time.Duration) (int, error)
}
