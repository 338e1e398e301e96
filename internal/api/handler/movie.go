package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-cinema-booking/internal/application"
	"github.com/sanosuguru/go-cinema-booking/internal/domain/movie"
)

type MovieHandler struct {
	movieService MovieServiceInterface
}

func NewMovieHandler(movieService MovieServiceInterface) *MovieHandler {
	return &MovieHandler{movieService: movieService}
}

type CreateMovieRequest struct {
	Title           string `json:"title" validate:"required" example:"君の名前"`
	Description     string `json:"description" example:"入れ替わりの物語"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,gt=0" example:"120"`
}

type MovieResponse struct {
	ID              string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Title           string `json:"title" example:"君の名前"`
	Description     string `json:"description" example:"入れ替わりの物語"`
	DurationMinutes int    `json:"duration_minutes" example:"120"`
	CreatedAt       string `json:"created_at" example:"2026-01-06T10:00:00+09:00"`
	UpdatedAt       string `json:"updated_at" example:"2026-01-06T10:00:00+09:00"`
}

func toMovieResponse(m *movie.Movie) *MovieResponse {
	return &MovieResponse{
		ID:              m.ID,
		Title:           m.Title,
		Description:     m.Description,
		DurationMinutes: m.DurationMinutes,
		CreatedAt:       m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       m.UpdatedAt.Format(time.RFC3339),
	}
}

// Create godoc
// @Summary 映画を作成
// @Description 新しい映画を登録します（管理用）
// @Tags admin
// @Accept json
// @Produce json
// @Param request body CreateMovieRequest true "映画情報"
// @Success 201 {object} MovieResponse
// @Failure 400 {object} map[string]string
// @Router /admin/movies [post]
func (h *MovieHandler) Create(c echo.Context) error {
	var req CreateMovieRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "リクエストの形式が不正です"})
	}

	input := application.CreateMovieInput{
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
	}

	m, err := h.movieService.CreateMovie(c.Request().Context(), input)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, toMovieResponse(m))
}

// GetByID godoc
// @Summary 映画を取得
// @Description 指定IDの映画を取得します
// @Tags movies
// @Produce json
// @Param id path string true "映画ID"
// @Success 200 {object} MovieResponse
// @Failure 404 {object} map[string]string
// @Router /movies/{id} [get]
func (h *MovieHandler) GetByID(c echo.Context) error {
	id := c.Param("id")
	m, err := h.movieService.GetMovie(c.Request().Context(), id)
	if err != nil {
		if err == movie.ErrMovieNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "映画が見つかりません"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, toMovieResponse(m))
}

// List godoc
// @Summary 映画一覧を取得
// @Description 映画の一覧を取得します
// @Tags movies
// @Produce json
// @Param limit query int false "取得件数" default(50)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} MovieResponse
// @Router /movies [get]
func (h *MovieHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	movies, err := h.movieService.ListMovies(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	responses := make([]*MovieResponse, len(movies))
	for i, m := range movies {
		responses[i] = toMovieResponse(m)
	}
	return c.JSON(http.StatusOK, responses)
}

// Update godoc
// @Summary 映画を更新
// @Description 指定IDの映画を更新します（管理用）
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "映画ID"
// @Param request body CreateMovieRequest true "映画情報"
// @Success 200 {object} MovieResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/movies/{id} [put]
func (h *MovieHandler) Update(c echo.Context) error {
	id := c.Param("id")
	var req CreateMovieRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "リクエストの形式が不正です"})
	}

	input := application.UpdateMovieInput{
		ID:              id,
		Title:           &req.Title,
		Description:     &req.Description,
		DurationMinutes: &req.DurationMinutes,
	}

	m, err := h.movieService.UpdateMovie(c.Request().Context(), input)
	if err != nil {
		if err == movie.ErrMovieNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "映画が見つかりません"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, toMovieResponse(m))
}

// Delete godoc
// @Summary 映画を削除
// @Description 指定IDの映画を削除します（管理用）
// @Tags admin
// @Param id path string true "映画ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /admin/movies/{id} [delete]
func (h *MovieHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	err := h.movieService.DeleteMovie(c.Request().Context(), id)
	if err != nil {
		if err == movie.ErrMovieNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "映画が見つかりません"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}
