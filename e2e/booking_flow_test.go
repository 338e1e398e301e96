package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestServer はE2Eテスト用のサーバー
type TestServer struct {
	Echo    *echo.Echo
	Cleanup func()
}

// Request はHTTPリクエストを実行
func (s *TestServer) Request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

// TestE2E_HealthCheck はヘルスチェックをテスト
func TestE2E_HealthCheck(t *testing.T) {
	server := getTestServer(t)

	rec := server.Request("GET", "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	err := json.Unmarshal(rec.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp["status"])
}

// TestE2E_CompleteBookingJourney は完全な予約ジャーニーをテスト
func TestE2E_CompleteBookingJourney(t *testing.T) {
	server := getTestServer(t)

	userEmail := "yamada@example.com"
	var movieID, showID, bookingID string

	// 1. 映画作成
	t.Run("映画作成", func(t *testing.T) {
		body := map[string]interface{}{
			"title":            "E2Eテスト映画",
			"description":      "E2Eテスト用の作品",
			"duration_minutes": 120,
		}

		rec := server.Request("POST", "/api/v1/admin/movies", body)
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		movieID = resp["id"].(string)
		assert.NotEmpty(t, movieID)
	})

	// 2. 上映作成
	t.Run("上映作成", func(t *testing.T) {
		body := map[string]interface{}{
			"movie_id":    movieID,
			"screen_name": "スクリーン1",
			"start_time":  time.Now().Add(24 * time.Hour).Format(time.RFC3339),
			"total_seats": 10,
		}

		rec := server.Request("POST", "/api/v1/admin/shows", body)
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		showID = resp["id"].(string)
		assert.NotEmpty(t, showID)
	})

	// 3. 空席数確認
	t.Run("空席数確認", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/shows/%s/availability", showID)
		rec := server.Request("GET", path, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		assert.Equal(t, float64(10), resp["available_seats"])
	})

	// 4. 予約作成
	t.Run("予約作成", func(t *testing.T) {
		body := map[string]interface{}{
			"show_id":      showID,
			"user_email":   userEmail,
			"seat_numbers": []int{3, 4},
		}

		rec := server.Request("POST", "/api/v1/bookings", body)
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		bookingID = resp["id"].(string)
		assert.Equal(t, "PENDING", resp["status"])
		assert.Equal(t, float64(2), resp["seats_booked"])
	})

	// 5. 空席数が減っている
	t.Run("予約後の空席数確認", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/shows/%s/availability", showID)
		rec := server.Request("GET", path, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		assert.Equal(t, float64(8), resp["available_seats"])
	})

	// 6. 衝突する座席指定は409
	t.Run("座席衝突", func(t *testing.T) {
		body := map[string]interface{}{
			"show_id":      showID,
			"user_email":   "suzuki@example.com",
			"seat_numbers": []int{4, 5},
		}

		rec := server.Request("POST", "/api/v1/bookings", body)
		require.Equal(t, http.StatusConflict, rec.Code)

		var resp map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		assert.Equal(t, "FAILED", resp["status"])
	})

	// 7. 予約確定
	t.Run("予約確定", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/bookings/%s/confirm", bookingID)
		rec := server.Request("POST", path, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		assert.Equal(t, "CONFIRMED", resp["status"])
	})

	// 8. 再確定は404
	t.Run("再確定は失敗", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/bookings/%s/confirm", bookingID)
		rec := server.Request("POST", path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	// 9. ユーザーの予約一覧
	t.Run("ユーザーの予約一覧", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/bookings?email=%s", userEmail)
		rec := server.Request("GET", path, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp []map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		require.Len(t, resp, 1)
		assert.Equal(t, "CONFIRMED", resp[0]["status"])
	})

	// 10. キャンセルで座席解放
	t.Run("キャンセル", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/bookings/%s/cancel", bookingID)
		rec := server.Request("POST", path, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		assert.Equal(t, "CANCELLED", resp["status"])

		availPath := fmt.Sprintf("/api/v1/shows/%s/availability", showID)
		availRec := server.Request("GET", availPath, nil)
		require.Equal(t, http.StatusOK, availRec.Code)

		var availResp map[string]interface{}
		json.Unmarshal(availRec.Body.Bytes(), &availResp)
		assert.Equal(t, float64(10), availResp["available_seats"])
	})
}

// TestE2E_Overbooking は満席時の挙動をテスト
func TestE2E_Overbooking(t *testing.T) {
	server := getTestServer(t)

	var movieID, showID string

	movieRec := server.Request("POST", "/api/v1/admin/movies", map[string]interface{}{
		"title": "満席テスト映画", "duration_minutes": 90,
	})
	require.Equal(t, http.StatusCreated, movieRec.Code)
	var movieResp map[string]interface{}
	json.Unmarshal(movieRec.Body.Bytes(), &movieResp)
	movieID = movieResp["id"].(string)

	showRec := server.Request("POST", "/api/v1/admin/shows", map[string]interface{}{
		"movie_id":    movieID,
		"screen_name": "スクリーン2",
		"start_time":  time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"total_seats": 10,
	})
	require.Equal(t, http.StatusCreated, showRec.Code)
	var showResp map[string]interface{}
	json.Unmarshal(showRec.Body.Bytes(), &showResp)
	showID = showResp["id"].(string)

	t.Run("6席の予約を2回行うと2回目はFAILED", func(t *testing.T) {
		first := server.Request("POST", "/api/v1/bookings", map[string]interface{}{
			"show_id": showID, "user_email": "first@example.com", "seat_count": 6,
		})
		require.Equal(t, http.StatusCreated, first.Code)
		var firstResp map[string]interface{}
		json.Unmarshal(first.Body.Bytes(), &firstResp)
		assert.Equal(t, "PENDING", firstResp["status"])

		second := server.Request("POST", "/api/v1/bookings", map[string]interface{}{
			"show_id": showID, "user_email": "second@example.com", "seat_count": 6,
		})
		require.Equal(t, http.StatusCreated, second.Code)
		var secondResp map[string]interface{}
		json.Unmarshal(second.Body.Bytes(), &secondResp)
		assert.Equal(t, "FAILED", secondResp["status"])
		assert.Equal(t, float64(4), secondResp["available_seats"])
	})

	t.Run("失敗した予約も台帳に残る", func(t *testing.T) {
		rec := server.Request("GET", "/api/v1/bookings?email=second%40example.com", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp []map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		require.Len(t, resp, 1)
		assert.Equal(t, "FAILED", resp[0]["status"])
	})
}
