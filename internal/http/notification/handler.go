package notification

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/condo/internal/http/render"
	"github.com/MrJamesThe3rd/condo/internal/notification"
)

type Handler struct {
	service *notification.Service
}

func NewHandler(service *notification.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/{id}/read", h.markRead)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	a, ok := render.Actor(w, r)
	if !ok {
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"

	ns, err := h.service.List(r.Context(), a.ID, unreadOnly)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if ns == nil {
		ns = []*notification.Notification{}
	}

	render.JSON(w, http.StatusOK, ns)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	a, ok := render.Actor(w, r)
	if !ok {
		return
	}

	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.MarkRead(r.Context(), id, a.ID); err != nil {
		render.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
