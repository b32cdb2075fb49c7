package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/tolarian/cardtable-backend/internal/hub"
	"github.com/tolarian/cardtable-backend/internal/ws"
)

// SetupRoutes builds the router with the hub injected. The REST surface
// under /api is rate limited per client; the websocket endpoint is not,
// since it carries one long-lived connection per player.
func SetupRoutes(h *hub.Hub, log *zap.Logger, ratePerMinute int) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, log))

	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.Limit(
			ratePerMinute,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusTooManyRequests, "Too many requests, please try again later.")
			}),
		))

		r.Get("/gen-code", GenCode(h, log))
		r.Post("/rooms", CreateRoom(h))
		r.Put("/rooms/{id}/start", StartRoom(h))
		r.Get("/rooms", ListRooms(h))
		r.Get("/rooms/{id}", GetRoom(h))
		r.Get("/rooms/{id}/exists", RoomExists(h))
	})

	return r
}
