package overlay

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes wires the overlay transport's full HTTP surface: the
// websocket fan-out at /overlay/ws, the control endpoints the desktop
// tray / settings UI drives, and a bare health check.
func Routes(hub *Hub, ctrl Controller) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", healthzHandler)
	r.Get("/overlay/ws", hub.Handler())

	r.Route("/control", func(cr chi.Router) {
		cr.Get("/status", statusHandler(ctrl))
		cr.Post("/reload-key", reloadKeyHandler(ctrl))
	})

	return r
}
