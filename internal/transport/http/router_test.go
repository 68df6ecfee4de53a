package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"trimline/backend/internal/domain"
	"trimline/backend/internal/service/appointments"
	"trimline/backend/internal/service/queue"
	"trimline/backend/internal/store"
)

const testSecret = "test-secret"

type fakeAppointments struct {
	createFn       func(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	getFn          func(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	confirmFn      func(ctx context.Context, appointmentID, professionalID uuid.UUID) (domain.Appointment, error)
	cancelClientFn func(ctx context.Context, appointmentID, clientID uuid.UUID, reason string) (domain.Appointment, error)
	freeSlotsFn    func(ctx context.Context, professionalID, serviceID uuid.UUID, date time.Time) ([]domain.Slot, error)
}

func (f *fakeAppointments) Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, in)
}

func (f *fakeAppointments) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, id)
}

func (f *fakeAppointments) ListDay(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]domain.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointments) ListUpcomingForClient(ctx context.Context, clientID uuid.UUID) ([]domain.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointments) ListFreeSlots(ctx context.Context, professionalID, serviceID uuid.UUID, date time.Time) ([]domain.Slot, error) {
	if f.freeSlotsFn == nil {
		panic("ListFreeSlots not configured")
	}
	return f.freeSlotsFn(ctx, professionalID, serviceID, date)
}

func (f *fakeAppointments) Confirm(ctx context.Context, appointmentID, professionalID uuid.UUID) (domain.Appointment, error) {
	if f.confirmFn == nil {
		panic("Confirm not configured")
	}
	return f.confirmFn(ctx, appointmentID, professionalID)
}

func (f *fakeAppointments) Start(ctx context.Context, appointmentID, professionalID uuid.UUID) (domain.Appointment, error) {
	return domain.Appointment{}, nil
}

func (f *fakeAppointments) Complete(ctx context.Context, appointmentID, professionalID uuid.UUID) (domain.Appointment, error) {
	return domain.Appointment{}, nil
}

func (f *fakeAppointments) MarkNoShow(ctx context.Context, appointmentID, professionalID uuid.UUID) (domain.Appointment, error) {
	return domain.Appointment{}, nil
}

func (f *fakeAppointments) CancelByClient(ctx context.Context, appointmentID, clientID uuid.UUID, reason string) (domain.Appointment, error) {
	if f.cancelClientFn == nil {
		panic("CancelByClient not configured")
	}
	return f.cancelClientFn(ctx, appointmentID, clientID, reason)
}

func (f *fakeAppointments) CancelByProfessional(ctx context.Context, appointmentID, professionalID uuid.UUID, reason string) (domain.Appointment, error) {
	return domain.Appointment{}, nil
}

func (f *fakeAppointments) CancelByShop(ctx context.Context, appointmentID, shopID uuid.UUID, reason string) (domain.Appointment, error) {
	return domain.Appointment{}, nil
}

type fakeQueue struct {
	enqueueFn   func(ctx context.Context, in queue.EnqueueInput) (domain.QueueEntry, error)
	advanceFn   func(ctx context.Context, professionalID uuid.UUID) (domain.QueueEntry, error)
	snapshotFn  func(ctx context.Context, professionalID uuid.UUID) (queue.Snapshot, error)
	activeForFn func(ctx context.Context, clientID uuid.UUID) (domain.QueueEntry, error)
}

func (f *fakeQueue) Enqueue(ctx context.Context, in queue.EnqueueInput) (domain.QueueEntry, error) {
	if f.enqueueFn == nil {
		panic("Enqueue not configured")
	}
	return f.enqueueFn(ctx, in)
}

func (f *fakeQueue) AdvanceNext(ctx context.Context, professionalID uuid.UUID) (domain.QueueEntry, error) {
	if f.advanceFn == nil {
		panic("AdvanceNext not configured")
	}
	return f.advanceFn(ctx, professionalID)
}

func (f *fakeQueue) StartSpecific(ctx context.Context, professionalID, entryID uuid.UUID) (domain.QueueEntry, error) {
	return domain.QueueEntry{}, nil
}

func (f *fakeQueue) Finish(ctx context.Context, professionalID uuid.UUID) (domain.QueueEntry, error) {
	return domain.QueueEntry{}, nil
}

func (f *fakeQueue) Cancel(ctx context.Context, professionalID, entryID uuid.UUID, reason string) (domain.QueueEntry, error) {
	return domain.QueueEntry{}, nil
}

func (f *fakeQueue) MarkNoShow(ctx context.Context, professionalID, entryID uuid.UUID) (domain.QueueEntry, error) {
	return domain.QueueEntry{}, nil
}

func (f *fakeQueue) Snapshot(ctx context.Context, professionalID uuid.UUID) (queue.Snapshot, error) {
	if f.snapshotFn == nil {
		panic("Snapshot not configured")
	}
	return f.snapshotFn(ctx, professionalID)
}

func (f *fakeQueue) ActiveForClient(ctx context.Context, clientID uuid.UUID) (domain.QueueEntry, error) {
	if f.activeForFn == nil {
		return domain.QueueEntry{}, store.ErrNotFound
	}
	return f.activeForFn(ctx, clientID)
}

func newTestRouter(t *testing.T, appts *fakeAppointments, q *fakeQueue) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterConfig{
		JWTSecret:      testSecret,
		AllowedOrigins: []string{"*"},
	},
		NewAppointmentsHandler(appts, nil),
		NewQueueHandler(q, nil),
		nil,
	)
}

func signToken(t *testing.T, subject uuid.UUID, role string, shopID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:   role,
		ShopID: shopID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("SignedString error: %v", err)
	}
	return signed
}

func doRequest(t *testing.T, r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_RejectsMissingAndInvalidTokens(t *testing.T) {
	r := newTestRouter(t, &fakeAppointments{}, &fakeQueue{})

	w := doRequest(t, r, http.MethodGet, "/api/v1/me/appointments", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/appointments", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRouter_RoleGates(t *testing.T) {
	r := newTestRouter(t, &fakeAppointments{}, &fakeQueue{})
	proToken := signToken(t, uuid.New(), RoleProfessional, "")

	// Professionals cannot use the client-only booking route.
	w := doRequest(t, r, http.MethodPost, "/api/v1/appointments", proToken, `{}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}

	clientToken := signToken(t, uuid.New(), RoleClient, "")
	w = doRequest(t, r, http.MethodPost, "/api/v1/queue/advance", clientToken, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestCreateAppointment_EndToEnd(t *testing.T) {
	clientID := uuid.New()
	profID := uuid.New()
	serviceID := uuid.New()

	var gotInput appointments.CreateInput
	appts := &fakeAppointments{
		createFn: func(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error) {
			gotInput = in
			return domain.Appointment{
				ID:             uuid.New(),
				ClientID:       in.ClientID,
				ProfessionalID: in.ProfessionalID,
				ServiceID:      in.ServiceID,
				StartTime:      in.StartTime,
				EndTime:        in.StartTime.Add(45 * time.Minute),
				Status:         domain.AppointmentPending,
			}, nil
		},
	}
	r := newTestRouter(t, appts, &fakeQueue{})

	body := `{"professionalId":"` + profID.String() + `","serviceId":"` + serviceID.String() + `","date":"2026-03-10","startTime":"10:30","note":"fade"}`
	w := doRequest(t, r, http.MethodPost, "/api/v1/appointments", signToken(t, clientID, RoleClient, ""), body)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	if gotInput.ClientID != clientID {
		t.Fatalf("client_id = %s, want token subject %s", gotInput.ClientID, clientID)
	}
	want := time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)
	if !gotInput.StartTime.Equal(want) {
		t.Fatalf("start_time = %v, want %v", gotInput.StartTime, want)
	}

	var resp struct {
		Status string `json:"status"`
		Date   string `json:"date"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if resp.Status != string(domain.AppointmentPending) {
		t.Fatalf("status = %q, want %q", resp.Status, domain.AppointmentPending)
	}
}

func TestCreateAppointment_BadDateRejected(t *testing.T) {
	r := newTestRouter(t, &fakeAppointments{}, &fakeQueue{})
	body := `{"professionalId":"` + uuid.NewString() + `","serviceId":"` + uuid.NewString() + `","date":"10/03/2026","startTime":"10:30"}`
	w := doRequest(t, r, http.MethodPost, "/api/v1/appointments", signToken(t, uuid.New(), RoleClient, ""), body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestErrorMapping(t *testing.T) {
	apptID := uuid.New()
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"rule violation", domain.NewRuleError("slot taken"), http.StatusUnprocessableEntity},
		{"invalid state", &domain.StateError{Op: "confirm appointment", Current: "COMPLETED", Required: "PENDING"}, http.StatusConflict},
		{"permission denied", &domain.PermissionError{Reason: "not yours"}, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			appts := &fakeAppointments{
				confirmFn: func(ctx context.Context, appointmentID, professionalID uuid.UUID) (domain.Appointment, error) {
					return domain.Appointment{}, tc.err
				},
			}
			r := newTestRouter(t, appts, &fakeQueue{})
			token := signToken(t, uuid.New(), RoleProfessional, "")

			w := doRequest(t, r, http.MethodPost, "/api/v1/appointments/"+apptID.String()+"/confirm", token, "")
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestCancelAppointment_DispatchesOnRole(t *testing.T) {
	apptID := uuid.New()
	clientID := uuid.New()

	called := false
	appts := &fakeAppointments{
		cancelClientFn: func(ctx context.Context, appointmentID, callerID uuid.UUID, reason string) (domain.Appointment, error) {
			called = true
			if callerID != clientID {
				t.Fatalf("caller = %s, want %s", callerID, clientID)
			}
			if reason != "cant make it" {
				t.Fatalf("reason = %q", reason)
			}
			return domain.Appointment{ID: appointmentID, Status: domain.AppointmentCancelledClient}, nil
		},
	}
	r := newTestRouter(t, appts, &fakeQueue{})

	w := doRequest(t, r, http.MethodPost, "/api/v1/appointments/"+apptID.String()+"/cancel",
		signToken(t, clientID, RoleClient, ""), `{"reason":"cant make it"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if !called {
		t.Fatalf("expected CancelByClient to be called")
	}
}

func TestEnqueue_UsesTokenSubjectAsClient(t *testing.T) {
	clientID := uuid.New()
	profID := uuid.New()
	serviceID := uuid.New()

	q := &fakeQueue{
		enqueueFn: func(ctx context.Context, in queue.EnqueueInput) (domain.QueueEntry, error) {
			if in.ClientID != clientID {
				t.Fatalf("client_id = %s, want %s", in.ClientID, clientID)
			}
			pos := 1
			return domain.QueueEntry{
				ID:             uuid.New(),
				ClientID:       in.ClientID,
				ProfessionalID: in.ProfessionalID,
				ServiceID:      in.ServiceID,
				Status:         domain.QueueWaiting,
				QueuePosition:  &pos,
			}, nil
		},
	}
	r := newTestRouter(t, &fakeAppointments{}, q)

	body := `{"professionalId":"` + profID.String() + `","serviceId":"` + serviceID.String() + `"}`
	w := doRequest(t, r, http.MethodPost, "/api/v1/queue", signToken(t, clientID, RoleClient, ""), body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var resp struct {
		Position *int   `json:"position"`
		Status   string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if resp.Position == nil || *resp.Position != 1 {
		t.Fatalf("position = %v, want 1", resp.Position)
	}
}

func TestMyQueueEntry_NoContentWhenNotQueued(t *testing.T) {
	r := newTestRouter(t, &fakeAppointments{}, &fakeQueue{})
	w := doRequest(t, r, http.MethodGet, "/api/v1/me/queue-entry", signToken(t, uuid.New(), RoleClient, ""), "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

func TestSnapshot_RequiresProfessionalIDParam(t *testing.T) {
	q := &fakeQueue{
		snapshotFn: func(ctx context.Context, professionalID uuid.UUID) (queue.Snapshot, error) {
			return queue.Snapshot{ProfessionalID: professionalID, ProfessionalName: "Marcos"}, nil
		},
	}
	r := newTestRouter(t, &fakeAppointments{}, q)
	token := signToken(t, uuid.New(), RoleClient, "")

	w := doRequest(t, r, http.MethodGet, "/api/v1/queue", token, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	profID := uuid.New()
	w = doRequest(t, r, http.MethodGet, "/api/v1/queue?professionalId="+profID.String(), token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestSnapshot_ReportsPerEntryWait(t *testing.T) {
	entryID, _ := uuid.NewV7()
	waiting := domain.QueueEntry{
		ID:             entryID,
		ProfessionalID: uuid.New(),
		ClientID:       uuid.New(),
		ServiceID:      uuid.New(),
		Status:         domain.QueueWaiting,
		QueueDate:      domain.DateOf(time.Now().UTC()),
		ArrivalTime:    time.Now().UTC().Add(-20*time.Minute - 30*time.Second),
	}
	q := &fakeQueue{
		snapshotFn: func(ctx context.Context, professionalID uuid.UUID) (queue.Snapshot, error) {
			return queue.Snapshot{
				ProfessionalID:   professionalID,
				ProfessionalName: "Marcos",
				Waiting:          []domain.QueueEntry{waiting},
				WaitingCount:     1,
			}, nil
		},
	}
	r := newTestRouter(t, &fakeAppointments{}, q)
	token := signToken(t, uuid.New(), RoleClient, "")

	w := doRequest(t, r, http.MethodGet, "/api/v1/queue?professionalId="+uuid.New().String(), token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Waiting []struct {
			ID            string `json:"id"`
			WaitedMinutes int64  `json:"waitedMinutes"`
		} `json:"waiting"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(resp.Waiting) != 1 {
		t.Fatalf("len(waiting) = %d, want 1", len(resp.Waiting))
	}
	if resp.Waiting[0].WaitedMinutes != 20 {
		t.Fatalf("waitedMinutes = %d, want 20", resp.Waiting[0].WaitedMinutes)
	}
}

func TestFreeSlots_QueryValidation(t *testing.T) {
	profID := uuid.New()
	serviceID := uuid.New()
	slotStart := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	appts := &fakeAppointments{
		freeSlotsFn: func(ctx context.Context, gotProf, gotSvc uuid.UUID, date time.Time) ([]domain.Slot, error) {
			return []domain.Slot{{Start: slotStart, Available: true}}, nil
		},
	}
	r := newTestRouter(t, appts, &fakeQueue{})
	token := signToken(t, uuid.New(), RoleClient, "")

	base := "/api/v1/professionals/" + profID.String() + "/free-slots"
	w := doRequest(t, r, http.MethodGet, base+"?date=2026-03-10", token, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing serviceId: status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = doRequest(t, r, http.MethodGet, base+"?serviceId="+serviceID.String()+"&date=2026-03-10", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Slots []struct {
			StartTime string `json:"startTime"`
			Available bool   `json:"available"`
		} `json:"slots"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(resp.Slots) != 1 || resp.Slots[0].StartTime != "08:00" || !resp.Slots[0].Available {
		t.Fatalf("slots = %+v", resp.Slots)
	}
}
