package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/condo/internal/actor"
	"github.com/MrJamesThe3rd/condo/internal/http/importcsv"
	"github.com/MrJamesThe3rd/condo/internal/http/notification"
	"github.com/MrJamesThe3rd/condo/internal/http/payment"
	"github.com/MrJamesThe3rd/condo/internal/http/property"
	"github.com/MrJamesThe3rd/condo/internal/http/render"
	"github.com/MrJamesThe3rd/condo/internal/http/request"
)

type Handlers struct {
	Requests      *request.Handler
	Payments      *payment.Handler
	Property      *property.Handler
	Notifications *notification.Handler
	Import        *importcsv.Handler
	Realtime      http.Handler
}

func New(h Handlers, allowedOrigins []string) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", actor.HeaderID, actor.HeaderRole},
		MaxAge:         300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Group(func(r chi.Router) {
		r.Use(authenticate)

		if h.Realtime != nil {
			r.Handle("/ws", h.Realtime)
		}

		r.Route("/api/v1", func(r chi.Router) {
			r.Route("/requests", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.Requests.Routes(r)
			})

			r.Route("/payments", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.Payments.Routes(r)
			})

			r.Route("/buildings", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.Property.BuildingRoutes(r)
			})

			r.Route("/units", h.Property.UnitRoutes)
			r.Route("/notifications", h.Notifications.Routes)
			r.Route("/import", h.Import.Routes)
		})
	})

	return router
}

// authenticate attaches the gateway-supplied actor to the request context.
func authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, err := actor.FromHeaders(r.Header)
		if err != nil {
			render.Error(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(actor.WithActor(r.Context(), a)))
	})
}
