package property

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/actor"
	"github.com/MrJamesThe3rd/condo/internal/aggregate"
	"github.com/MrJamesThe3rd/condo/internal/http/render"
	"github.com/MrJamesThe3rd/condo/internal/property"
)

type Handler struct {
	service *property.Service
	recalc  *aggregate.Recalculator
}

func NewHandler(service *property.Service, recalc *aggregate.Recalculator) *Handler {
	return &Handler{service: service, recalc: recalc}
}

// BuildingRoutes mounts under /buildings.
func (h *Handler) BuildingRoutes(r chi.Router) {
	r.Post("/", h.createBuilding)
	r.Get("/", h.listBuildings)
	r.Get("/{id}", h.getBuilding)
	r.Post("/{id}/units", h.createUnit)
	r.Get("/{id}/units", h.listUnits)
	r.Post("/{id}/recalculate", h.recalculateBuilding)
}

// UnitRoutes mounts under /units.
func (h *Handler) UnitRoutes(r chi.Router) {
	r.Get("/{id}", h.getUnit)
	r.Post("/{id}/recalculate", h.recalculateUnit)
}

type createBuildingRequest struct {
	Name    string     `json:"name"`
	AdminID *uuid.UUID `json:"admin_id,omitempty"`
}

func (h *Handler) createBuilding(w http.ResponseWriter, r *http.Request) {
	a, ok := render.Actor(w, r)
	if !ok {
		return
	}

	if err := a.Require(actor.RolePlatformAdmin); err != nil {
		render.Error(w, r, err)
		return
	}

	var req createBuildingRequest
	if !render.Decode(w, r, &req) {
		return
	}

	b, err := h.service.CreateBuilding(r.Context(), property.BuildingParams{Name: req.Name, AdminID: req.AdminID})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toBuildingResponse(b))
}

func (h *Handler) listBuildings(w http.ResponseWriter, r *http.Request) {
	if _, ok := render.Actor(w, r); !ok {
		return
	}

	bs, err := h.service.ListBuildings(r.Context())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	out := make([]buildingResponse, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBuildingResponse(b))
	}

	render.JSON(w, http.StatusOK, out)
}

func (h *Handler) getBuilding(w http.ResponseWriter, r *http.Request) {
	if _, ok := render.Actor(w, r); !ok {
		return
	}

	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	b, err := h.service.GetBuilding(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toBuildingResponse(b))
}

type createUnitRequest struct {
	Number  string     `json:"number"`
	OwnerID *uuid.UUID `json:"owner_id,omitempty"`
}

func (h *Handler) createUnit(w http.ResponseWriter, r *http.Request) {
	a, ok := render.Actor(w, r)
	if !ok {
		return
	}

	if !a.Manager() {
		render.Error(w, r, actor.ErrForbidden)
		return
	}

	buildingID, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	var req createUnitRequest
	if !render.Decode(w, r, &req) {
		return
	}

	u, err := h.service.CreateUnit(r.Context(), property.UnitParams{
		BuildingID: buildingID,
		Number:     req.Number,
		OwnerID:    req.OwnerID,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toUnitResponse(u))
}

func (h *Handler) listUnits(w http.ResponseWriter, r *http.Request) {
	if _, ok := render.Actor(w, r); !ok {
		return
	}

	buildingID, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	us, err := h.service.ListUnits(r.Context(), buildingID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	out := make([]unitResponse, 0, len(us))
	for _, u := range us {
		out = append(out, toUnitResponse(u))
	}

	render.JSON(w, http.StatusOK, out)
}

func (h *Handler) getUnit(w http.ResponseWriter, r *http.Request) {
	if _, ok := render.Actor(w, r); !ok {
		return
	}

	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	u, err := h.service.GetUnit(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toUnitResponse(u))
}

func (h *Handler) recalculateUnit(w http.ResponseWriter, r *http.Request) {
	a, ok := render.Actor(w, r)
	if !ok {
		return
	}

	if !a.Manager() {
		render.Error(w, r, actor.ErrForbidden)
		return
	}

	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	md, err := h.recalc.UpdateUnit(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, md)
}

func (h *Handler) recalculateBuilding(w http.ResponseWriter, r *http.Request) {
	a, ok := render.Actor(w, r)
	if !ok {
		return
	}

	if !a.Manager() {
		render.Error(w, r, actor.ErrForbidden)
		return
	}

	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	st, err := h.recalc.UpdateBuildingStats(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, st)
}
