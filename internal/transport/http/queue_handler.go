package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"trimline/backend/internal/domain"
	"trimline/backend/internal/service/queue"
	"trimline/backend/internal/store"
)

type queueService interface {
	Enqueue(ctx context.Context, in queue.EnqueueInput) (domain.QueueEntry, error)
	AdvanceNext(ctx context.Context, professionalID uuid.UUID) (domain.QueueEntry, error)
	StartSpecific(ctx context.Context, professionalID, entryID uuid.UUID) (domain.QueueEntry, error)
	Finish(ctx context.Context, professionalID uuid.UUID) (domain.QueueEntry, error)
	Cancel(ctx context.Context, professionalID, entryID uuid.UUID, reason string) (domain.QueueEntry, error)
	MarkNoShow(ctx context.Context, professionalID, entryID uuid.UUID) (domain.QueueEntry, error)
	Snapshot(ctx context.Context, professionalID uuid.UUID) (queue.Snapshot, error)
	ActiveForClient(ctx context.Context, clientID uuid.UUID) (domain.QueueEntry, error)
}

type QueueHandler struct {
	svc queueService
	log *slog.Logger
}

func NewQueueHandler(svc queueService, log *slog.Logger) *QueueHandler {
	if log == nil {
		log = slog.Default()
	}
	return &QueueHandler{
		svc: svc,
		log: log.With(slog.String("component", "http.queue")),
	}
}

type enqueueRequest struct {
	ProfessionalID string `json:"professionalId" binding:"required,uuid"`
	ServiceID      string `json:"serviceId" binding:"required,uuid"`
	Note           string `json:"note"`
}

func (h *QueueHandler) Enqueue(c *gin.Context) {
	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	entry, err := h.svc.Enqueue(c.Request.Context(), queue.EnqueueInput{
		ProfessionalID: uuid.MustParse(req.ProfessionalID),
		ClientID:       callerID(c),
		ServiceID:      uuid.MustParse(req.ServiceID),
		Note:           req.Note,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	h.log.Info("client enqueued",
		slog.String("entry_id", entry.ID.String()),
		slog.String("professional_id", entry.ProfessionalID.String()),
	)
	c.JSON(http.StatusCreated, toQueueEntryResponse(entry))
}

func (h *QueueHandler) Advance(c *gin.Context) {
	entry, err := h.svc.AdvanceNext(c.Request.Context(), callerID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toQueueEntryResponse(entry))
}

func (h *QueueHandler) Finish(c *gin.Context) {
	entry, err := h.svc.Finish(c.Request.Context(), callerID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	h.log.Info("queue service finished", slog.String("entry_id", entry.ID.String()))
	c.JSON(http.StatusOK, toQueueEntryResponse(entry))
}

func (h *QueueHandler) StartEntry(c *gin.Context) {
	h.entryOp(c, h.svc.StartSpecific)
}

func (h *QueueHandler) NoShowEntry(c *gin.Context) {
	h.entryOp(c, h.svc.MarkNoShow)
}

func (h *QueueHandler) entryOp(c *gin.Context, op func(ctx context.Context, professionalID, entryID uuid.UUID) (domain.QueueEntry, error)) {
	entryID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	entry, err := op(c.Request.Context(), callerID(c), entryID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toQueueEntryResponse(entry))
}

func (h *QueueHandler) CancelEntry(c *gin.Context) {
	entryID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	entry, err := h.svc.Cancel(c.Request.Context(), callerID(c), entryID, req.Reason)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toQueueEntryResponse(entry))
}

func (h *QueueHandler) Snapshot(c *gin.Context) {
	professionalID, err := uuid.Parse(c.Query("professionalId"))
	if err != nil {
		badRequest(c, "professionalId must be a UUID")
		return
	}
	snap, err := h.svc.Snapshot(c.Request.Context(), professionalID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toSnapshotResponse(snap))
}

// MyEntry returns the caller's active queue entry, or 204 when they are not
// queued anywhere.
func (h *QueueHandler) MyEntry(c *gin.Context) {
	entry, err := h.svc.ActiveForClient(c.Request.Context(), callerID(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.Status(http.StatusNoContent)
			return
		}
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toQueueEntryResponse(entry))
}

type snapshotResponse struct {
	ProfessionalID    string               `json:"professionalId"`
	ProfessionalName  string               `json:"professionalName"`
	Current           *queueEntryResponse  `json:"current,omitempty"`
	Waiting           []queueEntryResponse `json:"waiting"`
	WaitingCount      int                  `json:"waitingCount"`
	ServedToday       int                  `json:"servedToday"`
	AvgWaitMinutes    int64                `json:"avgWaitMinutes"`
	AvgServiceMinutes int64                `json:"avgServiceMinutes"`
}

func toSnapshotResponse(s queue.Snapshot) snapshotResponse {
	now := time.Now().UTC()
	out := snapshotResponse{
		ProfessionalID:    s.ProfessionalID.String(),
		ProfessionalName:  s.ProfessionalName,
		Waiting:           make([]queueEntryResponse, 0, len(s.Waiting)),
		WaitingCount:      s.WaitingCount,
		ServedToday:       s.ServedToday,
		AvgWaitMinutes:    s.AvgWaitMinutes,
		AvgServiceMinutes: s.AvgServiceMinutes,
	}
	if s.Current != nil {
		r := toQueueEntryResponse(*s.Current)
		r.WaitedMinutes = s.Current.WaitMinutes(now)
		out.Current = &r
	}
	for _, e := range s.Waiting {
		r := toQueueEntryResponse(e)
		r.WaitedMinutes = e.WaitMinutes(now)
		out.Waiting = append(out.Waiting, r)
	}
	return out
}
