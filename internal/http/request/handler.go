package request

import (
	"context"
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
	r.Get("/{id}/aggregate", h.aggregate)
	r.Post("/{id}/accept", h.run(h.orch.Accept))
	r.Post("/{id}/reject", h.reject)
	r.Post("/{id}/start", h.run(h.orch.StartWork))
	r.Post("/{id}/complete", h.complete)
	r.Post("/{id}/documents", h.generateDocuments)
	r.Post("/{id}/documents/{documentID}/sign", h.sign)
	r.Post("/{id}/payments", h.createPayment)
}

type createRequestRequest struct {
	CreatorID   *uuid.UUID         `json:"creator_id,omitempty"`
	Type        ledger.RequestType `json:"type"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Priority    ledger.Priority    `json:"priority"`
	UnitID      *uuid.UUID         `json:"unit_id,omitempty"`
	BuildingID  *uuid.UUID         `json:"building_id,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	a, ok := render.Actor(w, r)
	if !ok {
		return
	}

	var req createRequestRequest
	if !render.Decode(w, r, &req) {
		return
	}

	params := ledger.RequestParams{
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		UnitID:      req.UnitID,
		BuildingID:  req.BuildingID,
	}
	if req.CreatorID != nil {
		params.CreatorID = *req.CreatorID
	}

	res, err := h.orch.SubmitRequest(r.Context(), a, params)
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

	filter := ledger.RequestFilter{}

	var err error
	if filter.UnitID, err = render.QueryID(r, "unit_id"); err != nil {
		render.Error(w, r, err)
		return
	}

	if filter.BuildingID, err = render.QueryID(r, "building_id"); err != nil {
		render.Error(w, r, err)
		return
	}

	for _, s := range r.URL.Query()["status"] {
		filter.Statuses = append(filter.Statuses, ledger.RequestStatus(s))
	}

	for _, s := range r.URL.Query()["type"] {
		filter.Types = append(filter.Types, ledger.RequestType(s))
	}

	if !a.Manager() {
		filter.CreatorID = &a.ID
	}

	reqs, err := h.ledger.ListRequests(r.Context(), filter)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if reqs == nil {
		reqs = []*ledger.Request{}
	}

	render.JSON(w, http.StatusOK, reqs)
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

	req, err := h.ledger.GetRequest(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if req.CreatorID != a.ID && !a.Manager() {
		render.Error(w, r, actor.ErrForbidden)
		return
	}

	render.JSON(w, http.StatusOK, req)
}

func (h *Handler) aggregate(w http.ResponseWriter, r *http.Request) {
	a, ok := render.Actor(w, r)
	if !ok {
		return
	}

	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	agg, err := h.orch.RequestAggregate(r.Context(), a, id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, agg)
}

// requestOp is a request operation that needs nothing but the request id.
type requestOp func(ctx context.Context, a actor.Actor, id uuid.UUID) (lifecycle.RequestResult, error)

func (h *Handler) run(op requestOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := render.Actor(w, r)
		if !ok {
			return
		}

		id, ok := render.ID(w, r, "id")
		if !ok {
			return
		}

		res, err := op(r.Context(), a, id)
		if err != nil {
			render.Error(w, r, err)
			return
		}

		render.JSON(w, http.StatusOK, toResultResponse(res))
	}
}

type reasonRequest struct {
	Reason  string `json:"reason"`
	Comment string `json:"comment"`
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	a, ok := render.Actor(w, r)
	if !ok {
		return
	}

	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	var req reasonRequest
	if !render.Decode(w, r, &req) {
		return
	}

	res, err := h.orch.Reject(r.Context(), a, id, req.Reason)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResultResponse(res))
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	a, ok := render.Actor(w, r)
	if !ok {
		return
	}

	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	var req reasonRequest
	if r.ContentLength > 0 && !render.Decode(w, r, &req) {
		return
	}

	res, err := h.orch.Complete(r.Context(), a, id, req.Comment)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResultResponse(res))
}

func (h *Handler) generateDocuments(w http.ResponseWriter, r *http.Request) {
	a, ok := render.Actor(w, r)
	if !ok {
		return
	}

	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	req, err := h.orch.GenerateDocuments(r.Context(), a, id)
	if err != nil && req == nil {
		render.Error(w, r, err)
		return
	}

	res := resultResponse{Request: req}
	if err != nil {
		res.FailedEffects = []string{"generate_documents"}
	}

	render.JSON(w, http.StatusOK, res)
}

func (h *Handler) sign(w http.ResponseWriter, r *http.Request) {
	a, ok := render.Actor(w, r)
	if !ok {
		return
	}

	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	docID, ok := render.ID(w, r, "documentID")
	if !ok {
		return
	}

	res, err := h.orch.SignDocument(r.Context(), a, id, docID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResultResponse(res))
}

type createPaymentRequest struct {
	PayerID     *uuid.UUID         `json:"payer_id,omitempty"`
	Amount      decimal.Decimal    `json:"amount"`
	Type        ledger.PaymentType `json:"type,omitempty"`
	DueDate     time.Time          `json:"due_date"`
	Description string             `json:"description"`
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	a, ok := render.Actor(w, r)
	if !ok {
		return
	}

	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	var req createPaymentRequest
	if !render.Decode(w, r, &req) {
		return
	}

	params := ledger.PaymentParams{
		Amount:      req.Amount,
		Type:        req.Type,
		DueDate:     req.DueDate,
		Description: req.Description,
	}
	if req.PayerID != nil {
		params.PayerID = *req.PayerID
	}

	res, err := h.orch.CreatePayment(r.Context(), a, id, params)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}

	render.JSON(w, status, toPaymentResultResponse(res))
}
