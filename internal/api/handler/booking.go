package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-cinema-booking/internal/application"
	"github.com/sanosuguru/go-cinema-booking/internal/domain/booking"
	"github.com/sanosuguru/go-cinema-booking/internal/domain/show"
)

type BookingHandler struct {
	service BookingServiceInterface
}

func NewBookingHandler(s BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: s}
}

type CreateBookingRequest struct {
	ShowID      string `json:"show_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	UserEmail   string `json:"user_email" validate:"required,email" example:"taro@example.com"`
	SeatCount   int    `json:"seat_count" validate:"required_without=SeatNumbers,omitempty,min=1" example:"2"`
	SeatNumbers []int  `json:"seat_numbers" validate:"omitempty,min=1,dive,min=1" example:"3,4"`
}

type BookingResponse struct {
	ID          string    `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	ShowID      string    `json:"show_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	UserEmail   string    `json:"user_email" example:"taro@example.com"`
	SeatsBooked int       `json:"seats_booked" example:"2"`
	SeatNumbers []int     `json:"seat_numbers,omitempty" example:"3,4"`
	Status      string    `json:"status" example:"PENDING"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateBookingResponse struct {
	BookingResponse
	AvailableSeats int    `json:"available_seats" example:"8"`
	Message        string `json:"message" example:"予約を仮押さえしました。猶予時間内に確定してください。"`
}

type ConflictResponse struct {
	CreateBookingResponse
	ConflictSeats []int `json:"conflict_seats" example:"4"`
}

type HeldSeatsResponse struct {
	ShowID      string `json:"show_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	SeatNumbers []int  `json:"seat_numbers" example:"1,3,5"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID: b.ID, ShowID: b.ShowID, UserEmail: b.UserEmail,
		SeatsBooked: b.SeatsBooked, SeatNumbers: b.SeatNumbers,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt,
	}
}

func toCreateBookingResponse(r *application.BookingResult) CreateBookingResponse {
	return CreateBookingResponse{
		BookingResponse: toBookingResponse(r.Booking),
		AvailableSeats:  r.Available,
		Message:         r.Message,
	}
}

// Create godoc
// @Summary 予約を作成
// @Description 空席があれば座席を仮押さえします（猶予時間内に確定が必要）。満席の場合もFAILEDの台帳エントリが記録されます
// @Tags bookings
// @Accept json
// @Produce json
// @Param request body CreateBookingRequest true "予約情報"
// @Success 201 {object} CreateBookingResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} ConflictResponse "指定座席が既に予約済み"
// @Failure 503 {object} map[string]string "一時的に処理できない（リトライ可能）"
// @Router /bookings [post]
func (h *BookingHandler) Create(c echo.Context) error {
	var req CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	result, err := h.service.CreateBooking(c.Request().Context(), application.CreateBookingInput{
		ShowID: req.ShowID, UserEmail: req.UserEmail,
		SeatCount: req.SeatCount, SeatNumbers: req.SeatNumbers,
	})
	if err != nil {
		if errors.Is(err, show.ErrShowNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		// ロック競合とストア障害はリトライ可能なため503で応答する
		if errors.Is(err, booking.ErrShowBusy) || errors.Is(err, booking.ErrStoreUnavailable) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	// 座席衝突は409で応答する（FAILEDの台帳エントリは記録済み）
	if len(result.ConflictSeats) > 0 {
		return c.JSON(http.StatusConflict, ConflictResponse{
			CreateBookingResponse: toCreateBookingResponse(result),
			ConflictSeats:         result.ConflictSeats,
		})
	}
	return c.JSON(http.StatusCreated, toCreateBookingResponse(result))
}

// GetByID godoc
// @Summary 予約を取得
// @Description 指定IDの予約を取得します
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 404 {object} map[string]string
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetByID(c echo.Context) error {
	id := c.Param("id")
	b, err := h.service.GetBooking(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// GetUserBookings godoc
// @Summary ユーザーの予約一覧を取得
// @Description メールアドレスに紐づく予約一覧を新しい順で取得します
// @Tags bookings
// @Produce json
// @Param email query string true "メールアドレス"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} BookingResponse
// @Failure 400 {object} map[string]string
// @Router /bookings [get]
func (h *BookingHandler) GetUserBookings(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "メールアドレスが必要です")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	bookings, err := h.service.GetUserBookings(c.Request().Context(), email, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = toBookingResponse(b)
	}
	return c.JSON(http.StatusOK, resp)
}

// List godoc
// @Summary 全予約一覧を取得
// @Description 全予約を新しい順で取得します（管理用）
// @Tags admin
// @Produce json
// @Param limit query int false "取得件数" default(50)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} BookingResponse
// @Router /admin/bookings [get]
func (h *BookingHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	bookings, err := h.service.ListBookings(c.Request().Context(), limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = toBookingResponse(b)
	}
	return c.JSON(http.StatusOK, resp)
}

// Confirm godoc
// @Summary 予約を確定
// @Description 仮押さえ中の予約を確定します
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 404 {object} map[string]string "保留中の予約が存在しない"
// @Router /bookings/{id}/confirm [post]
func (h *BookingHandler) Confirm(c echo.Context) error {
	id := c.Param("id")
	b, err := h.service.ConfirmBooking(c.Request().Context(), id)
	if err != nil {
		// 存在しない場合と既に処理済みの場合を区別しない
		if errors.Is(err, booking.ErrBookingNotPending) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// Cancel godoc
// @Summary 予約をキャンセル
// @Description 予約をキャンセルし、保持していた座席を解放します
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 404 {object} map[string]string "キャンセル可能な予約が存在しない"
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c echo.Context) error {
	id := c.Param("id")
	b, err := h.service.CancelBooking(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotActive) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// HeldSeats godoc
// @Summary 予約済み座席番号一覧を取得
// @Description 上映で保持中（仮押さえ・確定済み）の座席番号一覧を取得します
// @Tags shows
// @Produce json
// @Param id path string true "上映ID"
// @Success 200 {object} HeldSeatsResponse
// @Failure 404 {object} map[string]string
// @Router /shows/{id}/seats [get]
func (h *BookingHandler) HeldSeats(c echo.Context) error {
	showID := c.Param("id")
	seats, err := h.service.GetHeldSeats(c.Request().Context(), showID)
	if err != nil {
		if errors.Is(err, show.ErrShowNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if seats == nil {
		seats = []int{}
	}
	return c.JSON(http.StatusOK, HeldSeatsResponse{ShowID: showID, SeatNumbers: seats})
}
