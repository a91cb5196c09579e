package appointment

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinicops/internal/platform/auth"
	"github.com/clinicops/clinicops/pkg/pagination"
	"github.com/clinicops/clinicops/pkg/timeutil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/doctors/:id/slots", h.ListSlots)
	api.POST("/appointments", h.Book)
	api.PUT("/appointments/:id", h.Reschedule)
	api.POST("/appointments/:id/cancel", h.Cancel)
	api.GET("/appointments/:id", h.Get)
	api.GET("/appointments", h.List)

	clinical := api.Group("", auth.RequireRole(auth.RoleDoctor))
	clinical.POST("/appointments/:id/complete", h.Complete)
}

// httpStatus maps scheduling failure kinds onto response codes.
func httpStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindSlotUnavailable, KindNotEditable, KindNotCancellable, KindInvalidTransition:
		return http.StatusConflict
	case KindOutsideWorkingHours:
		return http.StatusUnprocessableEntity
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func schedulingError(err error) error {
	if e, ok := err.(*Error); ok {
		return echo.NewHTTPError(httpStatus(err), e.Detail)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// actorFromContext derives the calling identity from the auth claims. Staff
// roles act on any appointment; patient tokens are bound to their own
// patient record.
func actorFromContext(c echo.Context) Actor {
	ctx := c.Request().Context()
	roles := auth.RolesFromContext(ctx)
	actor := Actor{
		Staff: auth.HasRole(roles, auth.RoleReceptionist) || auth.HasRole(roles, auth.RoleDoctor),
	}
	if pid, err := uuid.Parse(auth.PatientIDFromContext(ctx)); err == nil {
		actor.PatientID = pid
	}
	return actor
}

type bookPayload struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Reason    string `json:"reason"`
	Notes     string `json:"notes"`
}

func (h *Handler) Book(c echo.Context) error {
	var p bookPayload
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	doctorID, err := uuid.Parse(p.DoctorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	date, err := timeutil.ParseDate(p.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
	}
	slot, err := timeutil.Parse(p.Time)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid time, want HH:MM")
	}

	actor := actorFromContext(c)
	patientID := actor.PatientID
	if actor.Staff && p.PatientID != "" {
		patientID, err = uuid.Parse(p.PatientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
	}
	if patientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}

	a, err := h.svc.Book(c.Request().Context(), BookRequest{
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      date,
		Time:      slot,
		Reason:    p.Reason,
		Notes:     p.Notes,
	})
	if err != nil {
		return schedulingError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

type reschedulePayload struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Reason   string `json:"reason"`
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p reschedulePayload
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	doctorID, err := uuid.Parse(p.DoctorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	date, err := timeutil.ParseDate(p.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
	}
	slot, err := timeutil.Parse(p.Time)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid time, want HH:MM")
	}

	a, err := h.svc.Reschedule(c.Request().Context(), id, actorFromContext(c), RescheduleRequest{
		DoctorID: doctorID,
		Date:     date,
		Time:     slot,
		Reason:   p.Reason,
	})
	if err != nil {
		return schedulingError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Cancel(c.Request().Context(), id, actorFromContext(c))
	if err != nil {
		return schedulingError(err)
	}
	return c.JSON(http.StatusOK, a)
}

type completePayload struct {
	Diagnosis    string `json:"diagnosis"`
	Prescription string `json:"prescription"`
	Notes        string `json:"notes"`
}

func (h *Handler) Complete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p completePayload
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Complete(c.Request().Context(), id, CompleteRequest{
		Diagnosis:    p.Diagnosis,
		Prescription: p.Prescription,
		Notes:        p.Notes,
	})
	if err != nil {
		return schedulingError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return schedulingError(err)
	}

	actor := actorFromContext(c)
	if !actor.Staff && a.PatientID != actor.PatientID {
		return echo.NewHTTPError(http.StatusForbidden, "appointment belongs to another patient")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	actor := actorFromContext(c)

	if doctorID := c.QueryParam("doctor_id"); doctorID != "" {
		if !actor.Staff {
			return echo.NewHTTPError(http.StatusForbidden, "staff only")
		}
		did, err := uuid.Parse(doctorID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		items, total, err := h.svc.ListByDoctor(ctx, did, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}

	patientID := actor.PatientID
	if actor.Staff {
		if pid := c.QueryParam("patient_id"); pid != "" {
			parsed, err := uuid.Parse(pid)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
			}
			patientID = parsed
		}
	}
	if patientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id or doctor_id is required")
	}

	items, total, err := h.svc.ListByPatient(ctx, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListSlots(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	dateStr := c.QueryParam("date")
	if dateStr == "" {
		dateStr = time.Now().Format(timeutil.DateLayout)
	}
	date, err := timeutil.ParseDate(dateStr)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
	}

	slots, err := h.svc.AvailableSlots(c.Request().Context(), doctorID, date)
	if err != nil {
		return schedulingError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id": doctorID,
		"date":      dateStr,
		"slots":     formatSlots(slots),
	})
}
