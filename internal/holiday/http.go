package holiday

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"attendance-service/common/httputil"
	"attendance-service/internal/daterange"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type holidayRequest struct {
	Date   string `json:"date" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}

type Handler struct {
	service       Service
	validate      *validator.Validate
	logger        *slog.Logger
	exposeDetails bool
}

func NewHandler(service Service, logger *slog.Logger, exposeDetails bool) *Handler {
	return &Handler{
		service:       service,
		validate:      httputil.NewValidator(),
		logger:        logger,
		exposeDetails: exposeDetails,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Route("/holidays", func(r chi.Router) {
		r.Post("/", h.CreateHoliday)
		r.Get("/", h.ListHolidays)
		r.Get("/{id}", h.GetHoliday)
		r.Put("/{id}", h.UpdateHoliday)
		r.Delete("/{id}", h.DeleteHoliday)
	})
}

func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	created, err := h.service.CreateHoliday(r.Context(), HolidayCommand{Date: req.Date, Reason: req.Reason})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Holiday created successfully",
		"holiday": created,
	})
}

func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	holidays, err := h.service.ListHolidays(r.Context(), ListQuery{
		Start: query.Get("start"),
		End:   query.Get("end"),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Holidays fetched successfully",
		"holidays": holidays,
	})
}

func (h *Handler) GetHoliday(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	holiday, err := h.service.GetHoliday(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, holiday)
}

func (h *Handler) UpdateHoliday(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	updated, err := h.service.UpdateHoliday(r.Context(), id, HolidayCommand{Date: req.Date, Reason: req.Reason})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Holiday updated successfully",
		"holiday": updated,
	})
}

func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteHoliday(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Holiday deleted successfully"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (holidayRequest, bool) {
	var req holidayRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, httputil.ValidationMessage(err, "Missing required fields: date and reason"))
		return req, false
	}
	return req, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid holiday ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, daterange.ErrInvalidDate):
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid date format")
	case errors.Is(err, ErrInvalidInput):
		httputil.RespondWithError(w, http.StatusBadRequest, "Missing required fields: date and reason")
	case errors.Is(err, ErrHolidayNotFound):
		h.logger.InfoContext(ctx, "holiday not found")
		httputil.RespondWithError(w, http.StatusNotFound, "Holiday not found")
	case errors.Is(err, ErrHolidayExists):
		h.logger.InfoContext(ctx, "holiday date already taken")
		httputil.RespondWithError(w, http.StatusConflict, "Holiday already exists for date")
	default:
		h.logger.ErrorContext(ctx, "holiday storage error", "error", err, "path", r.URL.Path)
		details := ""
		if h.exposeDetails {
			details = err.Error()
		}
		httputil.RespondWithErrorDetails(w, http.StatusInternalServerError, "Database error", details)
	}
}
