package holiday

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepository struct {
	mu     sync.Mutex
	rows   map[int64]Holiday
	nextID int64
}

func newMemRepository() *memRepository {
	return &memRepository{rows: make(map[int64]Holiday)}
}

func (r *memRepository) dateTaken(date time.Time, except int64) bool {
	for id, h := range r.rows {
		if id != except && h.Date.Equal(date) {
			return true
		}
	}
	return false
}

func (r *memRepository) Create(_ context.Context, h *Holiday) (*Holiday, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dateTaken(h.Date, 0) {
		return nil, ErrHolidayExists
	}
	r.nextID++
	h.ID = r.nextID
	h.CreatedAt = time.Now()
	r.rows[h.ID] = *h
	return h, nil
}

func (r *memRepository) List(_ context.Context, from, to *time.Time) ([]Holiday, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Holiday, 0)
	for _, h := range r.rows {
		if from != nil && h.Date.Before(*from) {
			continue
		}
		if to != nil && h.Date.After(*to) {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *memRepository) GetByID(_ context.Context, id int64) (*Holiday, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.rows[id]
	if !ok {
		return nil, ErrHolidayNotFound
	}
	return &h, nil
}

func (r *memRepository) Update(_ context.Context, h *Holiday) (*Holiday, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.rows[h.ID]
	if !ok {
		return nil, ErrHolidayNotFound
	}
	if r.dateTaken(h.Date, h.ID) {
		return nil, ErrHolidayExists
	}
	existing.Date = h.Date
	existing.Reason = h.Reason
	r.rows[h.ID] = existing
	return &existing, nil
}

func (r *memRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return ErrHolidayNotFound
	}
	delete(r.rows, id)
	return nil
}

func setupRouter(t *testing.T) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(NewService(newMemRepository(), logger, nil), logger, true)

	router := chi.NewRouter()
	router.Route("/api", handler.RegisterRoutes)
	return router
}

func send(t *testing.T, router http.Handler, method, path, body string) (int, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return w.Code, response
}

func TestHolidayHandler(t *testing.T) {
	t.Run("CreateAndGet", func(t *testing.T) {
		router := setupRouter(t)

		code, response := send(t, router, http.MethodPost, "/api/holidays", `{"date":"2024-12-25T10:00:00Z","reason":"  Christmas "}`)
		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, "Holiday created successfully", response["message"])
		holiday := response["holiday"].(map[string]interface{})
		assert.Equal(t, "2024-12-25T00:00:00Z", holiday["date"])
		assert.Equal(t, "Christmas", holiday["reason"])

		code, response = send(t, router, http.MethodGet, "/api/holidays/1", "")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Christmas", response["reason"])
	})

	t.Run("DuplicateDate", func(t *testing.T) {
		router := setupRouter(t)

		code, _ := send(t, router, http.MethodPost, "/api/holidays", `{"date":"2024-12-25","reason":"Christmas"}`)
		require.Equal(t, http.StatusCreated, code)

		code, response := send(t, router, http.MethodPost, "/api/holidays", `{"date":"2024-12-25T18:00:00Z","reason":"Again"}`)
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, "Holiday already exists for date", response["error"])
	})

	t.Run("Validation", func(t *testing.T) {
		router := setupRouter(t)

		code, _ := send(t, router, http.MethodPost, "/api/holidays", `{"date":"2024-12-25","reason":"   "}`)
		assert.Equal(t, http.StatusBadRequest, code)

		code, _ = send(t, router, http.MethodPost, "/api/holidays", `{"reason":"Christmas"}`)
		assert.Equal(t, http.StatusBadRequest, code)

		code, response := send(t, router, http.MethodPost, "/api/holidays", `{"date":"someday","reason":"Christmas"}`)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Invalid date format", response["error"])
	})

	t.Run("ListInRange", func(t *testing.T) {
		router := setupRouter(t)
		for _, body := range []string{
			`{"date":"2024-12-25","reason":"Christmas"}`,
			`{"date":"2024-01-01","reason":"New Year"}`,
			`{"date":"2025-01-01","reason":"New Year"}`,
		} {
			code, _ := send(t, router, http.MethodPost, "/api/holidays", body)
			require.Equal(t, http.StatusCreated, code)
		}

		code, response := send(t, router, http.MethodGet, "/api/holidays", "")
		assert.Equal(t, http.StatusOK, code)
		all := response["holidays"].([]interface{})
		require.Len(t, all, 3)
		assert.Equal(t, "2024-01-01T00:00:00Z", all[0].(map[string]interface{})["date"])

		code, response = send(t, router, http.MethodGet, "/api/holidays?start=2024-06-01&end=2024-12-31", "")
		assert.Equal(t, http.StatusOK, code)
		assert.Len(t, response["holidays"], 1)

		code, _ = send(t, router, http.MethodGet, "/api/holidays?start=nope", "")
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("UpdateAndDelete", func(t *testing.T) {
		router := setupRouter(t)

		code, _ := send(t, router, http.MethodPost, "/api/holidays", `{"date":"2024-12-25","reason":"Christmas"}`)
		require.Equal(t, http.StatusCreated, code)

		code, response := send(t, router, http.MethodPut, "/api/holidays/1", `{"date":"2024-12-26","reason":"Boxing Day"}`)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Boxing Day", response["holiday"].(map[string]interface{})["reason"])

		code, _ = send(t, router, http.MethodPut, "/api/holidays/5", `{"date":"2024-12-26","reason":"Boxing Day"}`)
		assert.Equal(t, http.StatusNotFound, code)

		code, response = send(t, router, http.MethodDelete, "/api/holidays/1", "")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Holiday deleted successfully", response["message"])

		code, _ = send(t, router, http.MethodDelete, "/api/holidays/1", "")
		assert.Equal(t, http.StatusNotFound, code)

		code, _ = send(t, router, http.MethodGet, "/api/holidays/abc", "")
		assert.Equal(t, http.StatusBadRequest, code)
	})
}
