package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-cinema-booking/internal/application"
	"github.com/sanosuguru/go-cinema-booking/internal/domain/movie"
	"github.com/sanosuguru/go-cinema-booking/internal/domain/show"
)

type ShowHandler struct {
	showService ShowServiceInterface
}

func NewShowHandler(showService ShowServiceInterface) *ShowHandler {
	return &ShowHandler{showService: showService}
}

type CreateShowRequest struct {
	MovieID    string `json:"movie_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	ScreenName string `json:"screen_name" validate:"required" example:"スクリーン1"`
	StartTime  string `json:"start_time" validate:"required" example:"2026-01-15T19:00:00+09:00"`
	TotalSeats int    `json:"total_seats" validate:"required,gt=0" example:"120"`
}

type ShowResponse struct {
	ID         string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	MovieID    string `json:"movie_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	ScreenName string `json:"screen_name" example:"スクリーン1"`
	StartTime  string `json:"start_time" example:"2026-01-15T19:00:00+09:00"`
	TotalSeats int    `json:"total_seats" example:"120"`
	CreatedAt  string `json:"created_at" example:"2026-01-06T10:00:00+09:00"`
	UpdatedAt  string `json:"updated_at" example:"2026-01-06T10:00:00+09:00"`
}

type ShowAvailabilityResponse struct {
	ShowResponse
	MovieTitle      string `json:"movie_title" example:"君の名前"`
	DurationMinutes int    `json:"duration_minutes" example:"120"`
	BookedSeats     int    `json:"booked_seats" example:"40"`
	AvailableSeats  int    `json:"available_seats" example:"80"`
}

type AvailableSeatsResponse struct {
	ShowID         string `json:"show_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	AvailableSeats int    `json:"available_seats" example:"80"`
}

func toShowResponse(s *show.Show) *ShowResponse {
	return &ShowResponse{
		ID:         s.ID,
		MovieID:    s.MovieID,
		ScreenName: s.ScreenName,
		StartTime:  s.StartTime.Format(time.RFC3339),
		TotalSeats: s.TotalSeats,
		CreatedAt:  s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  s.UpdatedAt.Format(time.RFC3339),
	}
}

func toShowAvailabilityResponse(a *show.Availability) *ShowAvailabilityResponse {
	return &ShowAvailabilityResponse{
		ShowResponse:    *toShowResponse(&a.Show),
		MovieTitle:      a.MovieTitle,
		DurationMinutes: a.DurationMinutes,
		BookedSeats:     a.BookedSeats,
		AvailableSeats:  a.AvailableSeats,
	}
}

// Create godoc
// @Summary 上映を作成
// @Description 新しい上映回を作成します（管理用）
// @Tags admin
// @Accept json
// @Produce json
// @Param request body CreateShowRequest true "上映情報"
// @Success 201 {object} ShowResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/shows [post]
func (h *ShowHandler) Create(c echo.Context) error {
	var req CreateShowRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "リクエストの形式が不正です"})
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "開始時刻の形式が不正です"})
	}

	input := application.CreateShowInput{
		MovieID:    req.MovieID,
		ScreenName: req.ScreenName,
		StartTime:  startTime,
		TotalSeats: req.TotalSeats,
	}

	s, err := h.showService.CreateShow(c.Request().Context(), input)
	if err != nil {
		if err == movie.ErrMovieNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "映画が見つかりません"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, toShowResponse(s))
}

// GetByID godoc
// @Summary 上映を取得
// @Description 指定IDの上映回を取得します
// @Tags shows
// @Produce json
// @Param id path string true "上映ID"
// @Success 200 {object} ShowResponse
// @Failure 404 {object} map[string]string
// @Router /shows/{id} [get]
func (h *ShowHandler) GetByID(c echo.Context) error {
	id := c.Param("id")
	s, err := h.showService.GetShow(c.Request().Context(), id)
	if err != nil {
		if err == show.ErrShowNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "上映が見つかりません"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, toShowResponse(s))
}

// ListUpcoming godoc
// @Summary 今後の上映一覧を取得
// @Description 今後の上映を空席情報付きで取得します
// @Tags shows
// @Produce json
// @Success 200 {array} ShowAvailabilityResponse
// @Router /shows [get]
func (h *ShowHandler) ListUpcoming(c echo.Context) error {
	shows, err := h.showService.ListUpcomingShows(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	responses := make([]*ShowAvailabilityResponse, len(shows))
	for i, a := range shows {
		responses[i] = toShowAvailabilityResponse(a)
	}
	return c.JSON(http.StatusOK, responses)
}

// List godoc
// @Summary 全上映一覧を取得
// @Description 過去分を含む全上映の一覧を取得します（管理用）
// @Tags admin
// @Produce json
// @Param limit query int false "取得件数" default(50)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} ShowResponse
// @Router /admin/shows [get]
func (h *ShowHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	shows, err := h.showService.ListShows(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	responses := make([]*ShowResponse, len(shows))
	for i, s := range shows {
		responses[i] = toShowResponse(s)
	}
	return c.JSON(http.StatusOK, responses)
}

// Availability godoc
// @Summary 空席数を取得
// @Description 指定上映の現在の空席数を取得します
// @Tags shows
// @Produce json
// @Param id path string true "上映ID"
// @Success 200 {object} AvailableSeatsResponse
// @Failure 404 {object} map[string]string
// @Router /shows/{id}/availability [get]
func (h *ShowHandler) Availability(c echo.Context) error {
	id := c.Param("id")
	available, err := h.showService.GetAvailableSeats(c.Request().Context(), id)
	if err != nil {
		if err == show.ErrShowNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "上映が見つかりません"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, AvailableSeatsResponse{ShowID: id, AvailableSeats: available})
}

// Update godoc
// @Summary 上映を更新
// @Description 指定IDの上映回を更新します（管理用）
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "上映ID"
// @Param request body CreateShowRequest true "上映情報"
// @Success 200 {object} ShowResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/shows/{id} [put]
func (h *ShowHandler) Update(c echo.Context) error {
	id := c.Param("id")
	var req CreateShowRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "リクエストの形式が不正です"})
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "開始時刻の形式が不正です"})
	}

	input := application.UpdateShowInput{
		ID:         id,
		ScreenName: &req.ScreenName,
		StartTime:  &startTime,
		TotalSeats: &req.TotalSeats,
	}

	s, err := h.showService.UpdateShow(c.Request().Context(), input)
	if err != nil {
		if err == show.ErrShowNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "上映が見つかりません"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, toShowResponse(s))
}

// Delete godoc
// @Summary 上映を削除
// @Description 指定IDの上映回を削除します（管理用）
// @Tags admin
// @Param id path string true "上映ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /admin/shows/{id} [delete]
func (h *ShowHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	err := h.showService.DeleteShow(c.Request().Context(), id)
	if err != nil {
		if err == show.ErrShowNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "上映が見つかりません"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}
