package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/msomdec/coursewatch/internal/service"
)

// Services bundles what the HTTP layer needs.
type Services struct {
	Auth         *service.AuthService
	Validations  *service.ValidationService
	Stats        *service.StatsService
	EventLimiter *service.TokenBucket
	DB           Pinger
	CookieSecure bool
}

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, s Services) {
	authH := NewAuthHandler(s.Auth, s.CookieSecure)
	watchH := NewWatchHandler(s.Validations)
	statsH := NewStatsHandler(s.Stats)

	requireAuth := func(h http.HandlerFunc) http.Handler {
		return RequireAuth(s.Auth, h)
	}
	limited := func(h http.HandlerFunc) http.Handler {
		return RequireAuth(s.Auth, RateLimitViewer(s.EventLimiter, h))
	}

	mux.HandleFunc("GET /healthz", HandleHealthz(s.DB))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/auth/register", authH.HandleRegister)
	mux.HandleFunc("POST /api/auth/login", authH.HandleLogin)
	mux.HandleFunc("POST /api/auth/logout", authH.HandleLogout)
	mux.Handle("GET /api/auth/me", requireAuth(authH.HandleMe))

	mux.Handle("POST /api/watch/sessions", requireAuth(watchH.HandleStart))
	mux.Handle("POST /api/watch/sessions/{id}/events", limited(watchH.HandleEvent))
	mux.Handle("POST /api/watch/sessions/{id}/save", requireAuth(watchH.HandleSave))
	mux.Handle("GET /api/watch/sessions/{id}", requireAuth(watchH.HandleGet))
	mux.Handle("DELETE /api/watch/sessions/{id}", requireAuth(watchH.HandleEnd))
	mux.Handle("POST /watch/sessions/{id}/tick", limited(watchH.HandleTick))

	mux.Handle("GET /api/stats", requireAuth(statsH.HandleStats))
}
