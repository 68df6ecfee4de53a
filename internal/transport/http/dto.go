package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"trimline/backend/internal/domain"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

type appointmentResponse struct {
	ID               string     `json:"id"`
	ClientID         string     `json:"clientId"`
	ProfessionalID   string     `json:"professionalId"`
	ShopID           string     `json:"shopId"`
	ServiceID        string     `json:"serviceId"`
	Date             string     `json:"date"`
	StartTime        time.Time  `json:"startTime"`
	EndTime          time.Time  `json:"endTime"`
	DurationMinutes  int        `json:"durationMinutes"`
	PriceCents       int64      `json:"priceCents"`
	Status           string     `json:"status"`
	ClientNote       string     `json:"clientNote,omitempty"`
	ProfessionalNote string     `json:"professionalNote,omitempty"`
	CancelReason     string     `json:"cancelReason,omitempty"`
	ConfirmedAt      *time.Time `json:"confirmedAt,omitempty"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	CancelledAt      *time.Time `json:"cancelledAt,omitempty"`
	NoShowAt         *time.Time `json:"noShowAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func toAppointmentResponse(a domain.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:               a.ID.String(),
		ClientID:         a.ClientID.String(),
		ProfessionalID:   a.ProfessionalID.String(),
		ShopID:           a.ShopID.String(),
		ServiceID:        a.ServiceID.String(),
		Date:             a.Date.Format(dateLayout),
		StartTime:        a.StartTime,
		EndTime:          a.EndTime,
		DurationMinutes:  a.DurationMinutes,
		PriceCents:       a.PriceCents,
		Status:           string(a.Status),
		ClientNote:       a.ClientNote,
		ProfessionalNote: a.ProfessionalNote,
		CancelReason:     a.CancelReason,
		ConfirmedAt:      a.ConfirmedAt,
		StartedAt:        a.StartedAt,
		CompletedAt:      a.CompletedAt,
		CancelledAt:      a.CancelledAt,
		NoShowAt:         a.NoShowAt,
		CreatedAt:        a.CreatedAt,
	}
}

type slotResponse struct {
	StartTime string `json:"startTime"`
	Available bool   `json:"available"`
}

type queueEntryResponse struct {
	ID               string     `json:"id"`
	ClientID         string     `json:"clientId"`
	ProfessionalID   string     `json:"professionalId"`
	ShopID           string     `json:"shopId,omitempty"`
	ServiceID        string     `json:"serviceId"`
	QueueDate        string     `json:"queueDate"`
	ArrivalTime      time.Time  `json:"arrivalTime"`
	ServiceStartTime *time.Time `json:"serviceStartTime,omitempty"`
	ServiceEndTime   *time.Time `json:"serviceEndTime,omitempty"`
	Position         *int       `json:"position,omitempty"`
	Status           string     `json:"status"`
	Note             string     `json:"note,omitempty"`
	CancelReason     string     `json:"cancelReason,omitempty"`

	// WaitedMinutes is only populated in the live queue snapshot.
	WaitedMinutes int64 `json:"waitedMinutes,omitempty"`
}

func toQueueEntryResponse(e domain.QueueEntry) queueEntryResponse {
	shopID := ""
	if e.ShopID != nil {
		shopID = e.ShopID.String()
	}
	return queueEntryResponse{
		ID:               e.ID.String(),
		ClientID:         e.ClientID.String(),
		ProfessionalID:   e.ProfessionalID.String(),
		ShopID:           shopID,
		ServiceID:        e.ServiceID.String(),
		QueueDate:        e.QueueDate.Format(dateLayout),
		ArrivalTime:      e.ArrivalTime,
		ServiceStartTime: e.ServiceStartTime,
		ServiceEndTime:   e.ServiceEndTime,
		Position:         e.QueuePosition,
		Status:           string(e.Status),
		Note:             e.Note,
		CancelReason:     e.CancelReason,
	}
}

// parseDateTime combines a calendar date and a wall-clock time into a UTC
// timestamp. It reports false after writing a 400 response.
func parseDateTime(c *gin.Context, date, clock string) (time.Time, bool) {
	d, err := time.ParseInLocation(dateLayout, date, time.UTC)
	if err != nil {
		badRequest(c, "date must be formatted as "+dateLayout)
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(clockLayout, clock, time.UTC)
	if err != nil {
		badRequest(c, "startTime must be formatted as "+clockLayout)
		return time.Time{}, false
	}
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func queryDate(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		badRequest(c, "date query parameter is required")
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		badRequest(c, "date must be formatted as "+dateLayout)
		return time.Time{}, false
	}
	return d, true
}
