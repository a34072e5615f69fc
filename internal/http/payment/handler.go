package payment

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/condo/internal/actor"
	"github.com/MrJamesThe3rd/condo/internal/http/render"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/lifecycle"
)

type Handler struct {
	orch   *lifecycle.Orchestrator
	ledger *ledger.Service
}

func NewHandler(orch *lifecycle.Orchestrator, ledgerSvc *ledger.Service) *Handler {
	return &Handler{orch: orch, ledger: ledgerSvc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/paid", h.markPaid)
	r.Post("/{id}/cancel", h.cancel)
}

type createPaymentRequest struct {
	PayerID     *uuid.UUID         `json:"payer_id,omitempty"`
	RecipientID *uuid.UUID         `json:"recipient_id,omitempty"`
	UnitID      *uuid.UUID         `json:"unit_id,omitempty"`
	BuildingID  *uuid.UUID         `json:"building_id,omitempty"`
	RequestID   *uuid.UUID         `json:"request_id,omitempty"`
	Amount      decimal.Decimal    `json:"amount"`
	Type        ledger.PaymentType `json:"type"`
	DueDate     time.Time          `json:"due_date"`
	Description string             `json:"description"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	a, ok := render.Actor(w, r)
	if !ok {
		return
	}

	var req createPaymentRequest
	if !render.Decode(w, r, &req) {
		return
	}

	params := ledger.PaymentParams{
		UnitID:      req.UnitID,
		BuildingID:  req.BuildingID,
		RequestID:   req.RequestID,
		Amount:      req.Amount,
		Type:        req.Type,
		DueDate:     req.DueDate,
		Description: req.Description,
	}
	if req.PayerID != nil {
		params.PayerID = *req.PayerID
	}

	if req.RecipientID != nil {
		params.RecipientID = *req.RecipientID
	}

	res, err := h.orch.RecordPayment(r.Context(), a, params)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}

	render.JSON(w, status, toResultResponse(res))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	a, ok := render.Actor(w, r)
	if !ok {
		return
	}

	var (
		filter ledger.PaymentFilter
		err    error
	)

	for name, dst := range map[string]**uuid.UUID{
		"payer_id":     &filter.PayerID,
		"recipient_id": &filter.RecipientID,
		"unit_id":      &filter.UnitID,
		"building_id":  &filter.BuildingID,
		"request_id":   &filter.RequestID,
	} {
		if *dst, err = render.QueryID(r, name); err != nil {
			render.Error(w, r, err)
			return
		}
	}

	for _, s := range r.URL.Query()["status"] {
		filter.Statuses = append(filter.Statuses, ledger.PaymentStatus(s))
	}

	if !a.Manager() {
		filter.PayerID = &a.ID
	}

	ps, err := h.ledger.ListPayments(r.Context(), filter)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if ps == nil {
		ps = []*ledger.Payment{}
	}

	render.JSON(w, http.StatusOK, ps)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	a, ok := render.Actor(w, r)
	if !ok {
		return
	}

	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.ledger.GetPayment(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if !a.Manager() && a.ID != p.PayerID && a.ID != p.RecipientID {
		render.Error(w, r, actor.ErrForbidden)
		return
	}

	render.JSON(w, http.StatusOK, p)
}

type markPaidRequest struct {
	Method        string     `json:"method"`
	TransactionID string     `json:"transaction_id"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	a, ok := render.Actor(w, r)
	if !ok {
		return
	}

	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	var req markPaidRequest
	if r.ContentLength > 0 && !render.Decode(w, r, &req) {
		return
	}

	params := ledger.PaidParams{Method: req.Method, TransactionID: req.TransactionID}
	if req.PaidAt != nil {
		params.PaidAt = *req.PaidAt
	}

	res, err := h.orch.MarkPaid(r.Context(), a, id, params)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResultResponse(res))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	a, ok := render.Actor(w, r)
	if !ok {
		return
	}

	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	res, err := h.orch.CancelPayment(r.Context(), a, id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResultResponse(res))
}
