package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"trimline/backend/internal/domain"
	"trimline/backend/internal/service/appointments"
)

type appointmentsService interface {
	Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListDay(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]domain.Appointment, error)
	ListUpcomingForClient(ctx context.Context, clientID uuid.UUID) ([]domain.Appointment, error)
	ListFreeSlots(ctx context.Context, professionalID, serviceID uuid.UUID, date time.Time) ([]domain.Slot, error)
	Confirm(ctx context.Context, appointmentID, professionalID uuid.UUID) (domain.Appointment, error)
	Start(ctx context.Context, appointmentID, professionalID uuid.UUID) (domain.Appointment, error)
	Complete(ctx context.Context, appointmentID, professionalID uuid.UUID) (domain.Appointment, error)
	MarkNoShow(ctx context.Context, appointmentID, professionalID uuid.UUID) (domain.Appointment, error)
	CancelByClient(ctx context.Context, appointmentID, clientID uuid.UUID, reason string) (domain.Appointment, error)
	CancelByProfessional(ctx context.Context, appointmentID, professionalID uuid.UUID, reason string) (domain.Appointment, error)
	CancelByShop(ctx context.Context, appointmentID, shopID uuid.UUID, reason string) (domain.Appointment, error)
}

type AppointmentsHandler struct {
	svc appointmentsService
	log *slog.Logger
}

func NewAppointmentsHandler(svc appointmentsService, log *slog.Logger) *AppointmentsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AppointmentsHandler{
		svc: svc,
		log: log.With(slog.String("component", "http.appointments")),
	}
}

type createAppointmentRequest struct {
	ProfessionalID string `json:"professionalId" binding:"required,uuid"`
	ServiceID      string `json:"serviceId" binding:"required,uuid"`
	Date           string `json:"date" binding:"required"`
	StartTime      string `json:"startTime" binding:"required"`
	Note           string `json:"note"`
}

func (h *AppointmentsHandler) Create(c *gin.Context) {
	var req createAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	start, ok := parseDateTime(c, req.Date, req.StartTime)
	if !ok {
		return
	}

	appt, err := h.svc.Create(c.Request.Context(), appointments.CreateInput{
		ClientID:       callerID(c),
		ProfessionalID: uuid.MustParse(req.ProfessionalID),
		ServiceID:      uuid.MustParse(req.ServiceID),
		StartTime:      start,
		Note:           req.Note,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	h.log.Info("appointment created",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("professional_id", appt.ProfessionalID.String()),
		slog.Time("start_time", appt.StartTime),
	)
	c.JSON(http.StatusCreated, toAppointmentResponse(appt))
}

func (h *AppointmentsHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	appt, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if !mayViewAppointment(c, appt) {
		forbidden(c, "you do not have permission to view this appointment")
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

func (h *AppointmentsHandler) Confirm(c *gin.Context)  { h.transition(c, h.svc.Confirm) }
func (h *AppointmentsHandler) Start(c *gin.Context)    { h.transition(c, h.svc.Start) }
func (h *AppointmentsHandler) Complete(c *gin.Context) { h.transition(c, h.svc.Complete) }
func (h *AppointmentsHandler) NoShow(c *gin.Context)   { h.transition(c, h.svc.MarkNoShow) }

func (h *AppointmentsHandler) transition(c *gin.Context, op func(ctx context.Context, appointmentID, professionalID uuid.UUID) (domain.Appointment, error)) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	appt, err := op(c.Request.Context(), id, callerID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel dispatches on the caller's role, so who cancelled is preserved in
// the resulting terminal status.
func (h *AppointmentsHandler) Cancel(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	var appt domain.Appointment
	var err error
	switch callerRole(c) {
	case RoleClient:
		appt, err = h.svc.CancelByClient(c.Request.Context(), id, callerID(c), req.Reason)
	case RoleProfessional:
		appt, err = h.svc.CancelByProfessional(c.Request.Context(), id, callerID(c), req.Reason)
	case RoleShopAdmin:
		shopID, ok := callerShopID(c)
		if !ok {
			forbidden(c, "shop admin token is missing its shop")
			return
		}
		appt, err = h.svc.CancelByShop(c.Request.Context(), id, shopID, req.Reason)
	default:
		forbidden(c, "you do not have permission to cancel appointments")
		return
	}
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	h.log.Info("appointment cancelled",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("status", string(appt.Status)),
	)
	c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

func (h *AppointmentsHandler) Agenda(c *gin.Context) {
	professionalID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	date, ok := queryDate(c)
	if !ok {
		return
	}
	appts, err := h.svc.ListDay(c.Request.Context(), professionalID, date)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{"appointments": out})
}

func (h *AppointmentsHandler) FreeSlots(c *gin.Context) {
	professionalID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	serviceID, err := uuid.Parse(c.Query("serviceId"))
	if err != nil {
		badRequest(c, "serviceId must be a UUID")
		return
	}
	date, ok := queryDate(c)
	if !ok {
		return
	}

	slots, err := h.svc.ListFreeSlots(c.Request.Context(), professionalID, serviceID, date)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotResponse{
			StartTime: s.Start.Format("15:04"),
			Available: s.Available,
		})
	}
	c.JSON(http.StatusOK, gin.H{"slots": out})
}

func (h *AppointmentsHandler) MyUpcoming(c *gin.Context) {
	appts, err := h.svc.ListUpcomingForClient(c.Request.Context(), callerID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{"appointments": out})
}

func mayViewAppointment(c *gin.Context, appt domain.Appointment) bool {
	switch callerRole(c) {
	case RoleClient:
		return appt.ClientID == callerID(c)
	case RoleProfessional:
		return appt.ProfessionalID == callerID(c)
	case RoleShopAdmin:
		shopID, ok := callerShopID(c)
		return ok && appt.ShopID == shopID
	}
	return false
}
