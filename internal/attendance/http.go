package attendance

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"attendance-service/common/httputil"
	"attendance-service/internal/daterange"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const (
	msgMissingFields     = "Missing required fields"
	msgMissingMarkFields = "Missing required fields: date and attendance (array)"
	msgInvalidBody       = "Invalid request body"
	msgInvalidDate       = "Invalid date format"
)

type findAttendanceRequest struct {
	StudentID StudentIDs `json:"studentId" validate:"required,min=1"`
	Month     *int       `json:"month" validate:"required,min=0,max=11"`
	Year      *int       `json:"year" validate:"required,min=1"`
}

type markAttendanceRequest struct {
	Date       string     `json:"date" validate:"required"`
	Attendance []RawEntry `json:"attendance" validate:"required,min=1"`
}

type absentStudentsRequest struct {
	Start      string     `json:"start" validate:"required"`
	End        string     `json:"end" validate:"required"`
	StudentIDs StudentIDs `json:"studentIds" validate:"required"`
}

type rangeRequest struct {
	Start      string     `json:"start" validate:"required"`
	End        string     `json:"end" validate:"required"`
	StudentIDs StudentIDs `json:"studentIds" validate:"required"`
	Status     string     `json:"status"`
}

type updateReasonRequest struct {
	AttendanceID int64   `json:"attendanceId" validate:"required,gt=0"`
	Reason       *string `json:"reason"`
}

type Handler struct {
	service       Service
	validate      *validator.Validate
	logger        *slog.Logger
	exposeDetails bool
}

// NewHandler builds the attendance endpoints. exposeDetails controls whether
// storage error text is returned to clients on 500 responses.
func NewHandler(service Service, logger *slog.Logger, exposeDetails bool) *Handler {
	return &Handler{
		service:       service,
		validate:      httputil.NewValidator(),
		logger:        logger,
		exposeDetails: exposeDetails,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/findattendance", h.FindAttendance)
	router.Post("/markattendance", h.MarkAttendance)
	router.Post("/getAbsentStudents", h.GetAbsentStudents)
	router.Put("/updateReason", h.UpdateReason)
	router.Post("/attendance/range", h.FindRange)
	router.Get("/attendance/{id}", h.GetAttendance)
}

func (h *Handler) FindAttendance(w http.ResponseWriter, r *http.Request) {
	var req findAttendanceRequest
	if !h.decode(w, r, &req, msgMissingFields) {
		return
	}

	h.logger.InfoContext(r.Context(), "fetching attendance", "students", len(req.StudentID), "month", *req.Month, "year", *req.Year)
	records, err := h.service.FindAttendance(r.Context(), FindAttendanceCommand{
		StudentIDs: req.StudentID,
		Month:      *req.Month,
		Year:       *req.Year,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":           "Attendance fetched successfully",
		"attendanceRecords": records,
	})
}

func (h *Handler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req markAttendanceRequest
	if !h.decode(w, r, &req, msgMissingMarkFields, "attendance") {
		return
	}

	result, err := h.service.MarkAttendance(r.Context(), MarkAttendanceCommand{
		Date:    req.Date,
		Entries: req.Attendance,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Attendance inserted",
		"inserted":  result.Inserted,
		"attempted": result.Attempted,
	})
}

func (h *Handler) GetAbsentStudents(w http.ResponseWriter, r *http.Request) {
	var req absentStudentsRequest
	if !h.decode(w, r, &req, msgMissingFields) {
		return
	}

	h.logger.InfoContext(r.Context(), "fetching absent students", "students", len(req.StudentIDs), "start", req.Start, "end", req.End)
	records, err := h.service.GetAbsentStudents(r.Context(), AbsenceQueryCommand{
		Start:      req.Start,
		End:        req.End,
		StudentIDs: req.StudentIDs,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Absent students fetched successfully",
		"absentRecords": records,
	})
}

func (h *Handler) FindRange(w http.ResponseWriter, r *http.Request) {
	var req rangeRequest
	if !h.decode(w, r, &req, msgMissingFields) {
		return
	}

	records, err := h.service.FindRange(r.Context(), RangeQueryCommand{
		Start:      req.Start,
		End:        req.End,
		StudentIDs: req.StudentIDs,
		Status:     strings.TrimSpace(req.Status),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":           "Attendance fetched successfully",
		"attendanceRecords": records,
	})
}

func (h *Handler) UpdateReason(w http.ResponseWriter, r *http.Request) {
	var req updateReasonRequest
	if !h.decode(w, r, &req, msgMissingFields) {
		return
	}

	h.logger.InfoContext(r.Context(), "updating absence reason", "attendance_id", req.AttendanceID)
	record, err := h.service.UpdateReason(r.Context(), UpdateReasonCommand{
		AttendanceID: req.AttendanceID,
		Reason:       req.Reason,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Reason updated successfully",
		"update":  record,
	})
}

func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid attendance ID")
		return
	}

	record, err := h.service.GetAttendance(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, record)
}

// decode reads and validates the body, writing a 400 on failure. A wrongly
// typed value in one of shapeFields is reported as missing.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}, missingMsg string, shapeFields ...string) bool {
	if err := httputil.DecodeJSON(r, dst); err != nil {
		h.logger.WarnContext(r.Context(), "failed to decode request", "error", err, "path", r.URL.Path)
		msg := msgInvalidBody
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && slices.Contains(shapeFields, typeErr.Field) {
			msg = missingMsg
		}
		httputil.RespondWithError(w, http.StatusBadRequest, msg)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.logger.WarnContext(r.Context(), "validation failed", "error", err, "path", r.URL.Path)
		httputil.RespondWithError(w, http.StatusBadRequest, httputil.ValidationMessage(err, missingMsg))
		return false
	}
	return true
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, daterange.ErrInvalidDate):
		h.logger.InfoContext(ctx, "invalid date", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, msgInvalidDate)
	case errors.Is(err, ErrNoValidRecords):
		h.logger.InfoContext(ctx, "no valid attendance records")
		httputil.RespondWithError(w, http.StatusBadRequest, "No valid attendance records")
	case errors.Is(err, ErrInvalidInput):
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAttendanceNotFound):
		h.logger.InfoContext(ctx, "attendance not found")
		httputil.RespondWithError(w, http.StatusNotFound, "Attendance not found")
	default:
		h.logger.ErrorContext(ctx, "attendance storage error", "error", err, "path", r.URL.Path)
		details := ""
		if h.exposeDetails {
			details = err.Error()
		}
		httputil.RespondWithErrorDetails(w, http.StatusInternalServerError, "Database error", details)
	}
}
