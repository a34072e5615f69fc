package importcsv

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/condo/internal/actor"
	"github.com/MrJamesThe3rd/condo/internal/http/render"
	"github.com/MrJamesThe3rd/condo/internal/importer"
	"github.com/MrJamesThe3rd/condo/internal/lifecycle"
)

const maxUpload = 10 << 20

type Handler struct {
	parser *importer.Parser
	orch   *lifecycle.Orchestrator
}

func NewHandler(parser *importer.Parser, orch *lifecycle.Orchestrator) *Handler {
	return &Handler{parser: parser, orch: orch}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importPayments)
}

// importPayments takes a rent roll as the multipart "file" field and records every row as a payment.
func (h *Handler) importPayments(w http.ResponseWriter, r *http.Request) {
	a, ok := render.Actor(w, r)
	if !ok {
		return
	}

	// Checked before parsing so residents cannot make the server read a large upload.
	if !a.Manager() {
		render.Error(w, r, actor.ErrForbidden)
		return
	}

	if err := r.ParseMultipartForm(maxUpload); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	rows, err := h.parser.Parse(file)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	report, err := h.orch.ImportPayments(r.Context(), a, rows)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	status := http.StatusOK
	if report.Created > 0 {
		status = http.StatusCreated
	}

	render.JSON(w, status, report)
}
