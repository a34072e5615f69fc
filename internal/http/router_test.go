package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/condo/internal/actor"
	"github.com/MrJamesThe3rd/condo/internal/aggregate"
	"github.com/MrJamesThe3rd/condo/internal/document"
	"github.com/MrJamesThe3rd/condo/internal/fanout"
	api "github.com/MrJamesThe3rd/condo/internal/http"
	"github.com/MrJamesThe3rd/condo/internal/http/importcsv"
	notificationhttp "github.com/MrJamesThe3rd/condo/internal/http/notification"
	"github.com/MrJamesThe3rd/condo/internal/http/payment"
	propertyhttp "github.com/MrJamesThe3rd/condo/internal/http/property"
	"github.com/MrJamesThe3rd/condo/internal/http/request"
	"github.com/MrJamesThe3rd/condo/internal/importer"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/lifecycle"
	"github.com/MrJamesThe3rd/condo/internal/memstore"
	"github.com/MrJamesThe3rd/condo/internal/notification"
	"github.com/MrJamesThe3rd/condo/internal/property"
)

type server struct {
	srv      *httptest.Server
	dir      *property.Service
	admin    actor.Actor
	resident actor.Actor
	unit     *property.Unit
	building *property.Building
}

func newServer(t *testing.T) *server {
	t.Helper()

	renderer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	t.Cleanup(renderer.Close)

	store := memstore.New()
	ledgerSvc := ledger.NewService(store)
	dir := property.NewService(store)
	emitter := fanout.NewEmitter(fanout.NopPublisher{}, nil)
	recalc := aggregate.NewRecalculator(ledgerSvc, dir)

	queue := aggregate.NewQueue(recalc, time.Millisecond, time.Second, nil)
	t.Cleanup(queue.Close)

	orch := lifecycle.New(lifecycle.Deps{
		Ledger:       ledgerSvc,
		Directory:    dir,
		Documents:    document.NewClient(renderer.URL, "", t.TempDir(), time.Second),
		Notifier:     notification.NewService(store, emitter.Publisher(), nil),
		Recalculator: recalc,
		Batcher:      queue,
		Emitter:      emitter,
	})

	router := api.New(api.Handlers{
		Requests:      request.NewHandler(orch, ledgerSvc),
		Payments:      payment.NewHandler(orch, ledgerSvc),
		Property:      propertyhttp.NewHandler(dir, recalc),
		Notifications: notificationhttp.NewHandler(notification.NewService(store, nil, nil)),
		Import:        importcsv.NewHandler(importer.NewParser(), orch),
	}, []string{"*"})

	s := &server{
		srv:      httptest.NewServer(router),
		dir:      dir,
		admin:    actor.Actor{ID: uuid.New(), Role: actor.RoleBuildingAdmin},
		resident: actor.Actor{ID: uuid.New(), Role: actor.RoleResident},
	}
	t.Cleanup(s.srv.Close)

	owner := uuid.New()
	ctx := context.Background()

	var err error
	s.building, err = dir.CreateBuilding(ctx, property.BuildingParams{Name: "Riverside", AdminID: &s.admin.ID})
	require.NoError(t, err)

	s.unit, err = dir.CreateUnit(ctx, property.UnitParams{BuildingID: s.building.ID, Number: "2B", OwnerID: &owner})
	require.NoError(t, err)

	return s
}

func (s *server) do(t *testing.T, a *actor.Actor, method, path string, body any, out any) int {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)

		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, s.srv.URL+path, r)
	require.NoError(t, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if a != nil {
		req.Header.Set(actor.HeaderID, a.ID.String())
		req.Header.Set(actor.HeaderRole, string(a.Role))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

type requestResult struct {
	Request       ledger.Request `json:"request"`
	Created       bool           `json:"created"`
	FailedEffects []string       `json:"failed_effects"`
}

type paymentResult struct {
	Payment       ledger.Payment  `json:"payment"`
	Request       *ledger.Request `json:"request"`
	Created       bool            `json:"created"`
	Changed       bool            `json:"changed"`
	FailedEffects []string        `json:"failed_effects"`
}

func TestRouter_RequiresActor(t *testing.T) {
	s := newServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, nil, http.MethodGet, "/api/v1/requests", nil, nil))

	bogus := actor.Actor{ID: uuid.New(), Role: "landlord"}
	assert.Equal(t, http.StatusUnauthorized, s.do(t, &bogus, http.MethodGet, "/api/v1/requests", nil, nil))

	assert.Equal(t, http.StatusOK, s.do(t, nil, http.MethodGet, "/healthz", nil, nil))
}

func TestRouter_RentalFlow(t *testing.T) {
	s := newServer(t)

	var sub requestResult
	status := s.do(t, &s.resident, http.MethodPost, "/api/v1/requests", map[string]any{
		"type":    "rental",
		"title":   "Rent 2B",
		"unit_id": s.unit.ID,
	}, &sub)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, s.resident.ID, sub.Request.CreatorID)
	assert.Equal(t, s.building.ID, *sub.Request.BuildingID)

	reqPath := "/api/v1/requests/" + sub.Request.ID.String()

	// Submitting the same request again returns the original.
	var again requestResult
	require.Equal(t, http.StatusOK, s.do(t, &s.resident, http.MethodPost, "/api/v1/requests", map[string]any{
		"type":    "rental",
		"title":   "Rent 2B",
		"unit_id": s.unit.ID,
	}, &again))
	assert.Equal(t, sub.Request.ID, again.Request.ID)

	assert.Equal(t, http.StatusForbidden, s.do(t, &s.resident, http.MethodPost, reqPath+"/accept", nil, nil))

	var accepted requestResult
	require.Equal(t, http.StatusOK, s.do(t, &s.admin, http.MethodPost, reqPath+"/accept", nil, &accepted))
	assert.Empty(t, accepted.FailedEffects)
	assert.Equal(t, ledger.RequestAccepted, accepted.Request.Status)
	require.Len(t, accepted.Request.Documents, 2)

	for _, d := range accepted.Request.Documents {
		var signed requestResult
		require.Equal(t, http.StatusOK, s.do(t, &s.resident, http.MethodPost,
			reqPath+"/documents/"+d.ID.String()+"/sign", nil, &signed))
	}

	var created paymentResult
	require.Equal(t, http.StatusCreated, s.do(t, &s.admin, http.MethodPost, reqPath+"/payments", map[string]any{
		"amount":   "900.00",
		"due_date": "2026-04-01T00:00:00Z",
	}, &created))
	assert.Equal(t, s.resident.ID, created.Payment.PayerID)
	assert.Equal(t, ledger.PaymentTypeRent, created.Payment.Type)

	payPath := "/api/v1/payments/" + created.Payment.ID.String()

	assert.Equal(t, http.StatusForbidden, s.do(t, &s.resident, http.MethodPost, payPath+"/paid", nil, nil))

	var paid paymentResult
	require.Equal(t, http.StatusOK, s.do(t, &s.admin, http.MethodPost, payPath+"/paid", map[string]any{
		"method": "transfer",
	}, &paid))
	assert.True(t, paid.Changed)
	assert.Equal(t, ledger.PaymentPaid, paid.Payment.Status)
	require.NotNil(t, paid.Request)
	assert.Equal(t, ledger.RequestCompleted, paid.Request.Status)

	var unit struct {
		TenantID     *uuid.UUID            `json:"tenant_id"`
		Availability property.Availability `json:"availability"`
	}
	require.Equal(t, http.StatusOK, s.do(t, &s.resident, http.MethodGet, "/api/v1/units/"+s.unit.ID.String(), nil, &unit))
	assert.Equal(t, property.Rented, unit.Availability)
	require.NotNil(t, unit.TenantID)
	assert.Equal(t, s.resident.ID, *unit.TenantID)

	var agg ledger.Aggregate
	require.Equal(t, http.StatusOK, s.do(t, &s.resident, http.MethodGet, reqPath+"/aggregate", nil, &agg))
	require.Len(t, agg.Payments, 1)
	assert.Equal(t, ledger.PaymentPaid, agg.Payments[0].Status)

	var notes []notification.Notification
	require.Equal(t, http.StatusOK, s.do(t, &s.resident, http.MethodGet, "/api/v1/notifications?unread=true", nil, &notes))
	assert.NotEmpty(t, notes)

	require.Equal(t, http.StatusNoContent, s.do(t, &s.resident, http.MethodPost,
		"/api/v1/notifications/"+notes[0].ID.String()+"/read", nil, nil))
}

func TestRouter_PaymentVisibility(t *testing.T) {
	s := newServer(t)

	var rec paymentResult
	require.Equal(t, http.StatusCreated, s.do(t, &s.resident, http.MethodPost, "/api/v1/payments", map[string]any{
		"unit_id":  s.unit.ID,
		"amount":   "45.00",
		"type":     "charges",
		"due_date": "2026-05-01T00:00:00Z",
	}, &rec))
	assert.Equal(t, s.resident.ID, rec.Payment.PayerID)

	stranger := actor.Actor{ID: uuid.New(), Role: actor.RoleResident}
	assert.Equal(t, http.StatusForbidden, s.do(t, &stranger, http.MethodGet,
		"/api/v1/payments/"+rec.Payment.ID.String(), nil, nil))

	var mine []ledger.Payment
	require.Equal(t, http.StatusOK, s.do(t, &stranger, http.MethodGet, "/api/v1/payments", nil, &mine))
	assert.Empty(t, mine)

	var all []ledger.Payment
	require.Equal(t, http.StatusOK, s.do(t, &s.admin, http.MethodGet,
		"/api/v1/payments?unit_id="+s.unit.ID.String(), nil, &all))
	assert.Len(t, all, 1)

	assert.Equal(t, http.StatusBadRequest, s.do(t, &s.admin, http.MethodGet, "/api/v1/payments?unit_id=nope", nil, nil))
}

func TestRouter_BuildingsRequirePlatformAdmin(t *testing.T) {
	s := newServer(t)

	body := map[string]any{"name": "Harbour View"}
	assert.Equal(t, http.StatusForbidden, s.do(t, &s.admin, http.MethodPost, "/api/v1/buildings", body, nil))

	root := actor.Actor{ID: uuid.New(), Role: actor.RolePlatformAdmin}

	var b struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	}
	require.Equal(t, http.StatusCreated, s.do(t, &root, http.MethodPost, "/api/v1/buildings", body, &b))
	assert.Equal(t, "Harbour View", b.Name)

	var u struct {
		Number       string                `json:"number"`
		Availability property.Availability `json:"availability"`
	}
	require.Equal(t, http.StatusCreated, s.do(t, &root, http.MethodPost,
		"/api/v1/buildings/"+b.ID.String()+"/units", map[string]any{"number": "1A"}, &u))
	assert.Equal(t, property.Available, u.Availability)

	var stats property.BuildingStats
	require.Equal(t, http.StatusOK, s.do(t, &root, http.MethodPost,
		"/api/v1/buildings/"+b.ID.String()+"/recalculate", nil, &stats))
	assert.Equal(t, 1, stats.Units)
	assert.Equal(t, 1, stats.Available)
}

func TestRouter_ImportPayments(t *testing.T) {
	s := newServer(t)

	csv := "unit_id,payer_id,amount,type,due_date,description\n" +
		s.unit.ID.String() + "," + s.resident.ID.String() + ",950.00,rent,2026-04-01,April rent\n" +
		s.unit.ID.String() + "," + s.resident.ID.String() + ",950.00,rent,2026-05-01,May rent\n"

	upload := func(a actor.Actor) (int, lifecycle.ImportReport) {
		var buf bytes.Buffer

		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "rent-roll.csv")
		require.NoError(t, err)

		_, err = fw.Write([]byte(csv))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/api/v1/import", &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set(actor.HeaderID, a.ID.String())
		req.Header.Set(actor.HeaderRole, string(a.Role))

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		var report lifecycle.ImportReport
		if resp.StatusCode < 300 {
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
		}

		return resp.StatusCode, report
	}

	status, _ := upload(s.resident)
	assert.Equal(t, http.StatusForbidden, status)

	status, report := upload(s.admin)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, 2, report.Created)

	status, report = upload(s.admin)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 2, report.Duplicates)
}
