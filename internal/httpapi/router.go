// Package httpapi implements the HTTP sync API, routed with gorilla/mux
// and wrapped in gorilla/handlers CORS + combined-log middleware,
// grounded on dexidp-dex's server/server.go router construction
// (mux.NewRouter + handlers.CORS) and a standard gorilla/websocket
// upgrade pattern for the /sync/ws endpoint.
package httpapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/splenwilz/clipslot/internal/authsvc"
	"github.com/splenwilz/clipslot/internal/broker"
	"github.com/splenwilz/clipslot/internal/metrics"
	"github.com/splenwilz/clipslot/internal/store"
)

// FanOut is satisfied by natsfanout.Relay; kept as an interface here so
// httpapi doesn't import the NATS client when no cluster fan-out is
// configured.
type FanOut interface {
	Publish(userID, originDeviceID uuid.UUID, payload []byte)
}

// Server holds everything an HTTP handler needs: storage, the auth
// manager, the broadcast broker, and a logger. Handlers are methods on
// this type rather than closures so each one reads like a plain
// server.go handler method.
type Server struct {
	store     *store.Store
	auth      *authsvc.Manager
	broker    *broker.Broker
	fanout    FanOut
	metrics   *metrics.Metrics
	log       zerolog.Logger
	upgrader  websocket.Upgrader
	loginLim  *rateLimiterByKey
	registLim *rateLimiterByKey
}

// New builds a Server and its gorilla/mux router. corsOrigins is passed
// straight through to gorilla/handlers.AllowedOrigins. fanout may be nil,
// in which case publishes stay local to this instance.
func New(st *store.Store, auth *authsvc.Manager, br *broker.Broker, fanout FanOut, m *metrics.Metrics, log zerolog.Logger, corsOrigins []string, loginRatePerMinute int) (*Server, http.Handler) {
	s := &Server{
		store:   st,
		auth:    auth,
		broker:  br,
		fanout:  fanout,
		metrics: m,
		log:     log.With().Str("component", "httpapi").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		loginLim:  newRateLimiterByKey(rate.Limit(float64(loginRatePerMinute)/60.0), loginRatePerMinute),
		registLim: newRateLimiterByKey(rate.Limit(float64(loginRatePerMinute)/60.0), loginRatePerMinute),
	}

	r := mux.NewRouter().SkipClean(true)

	authRouter := r.PathPrefix("/api/auth").Subrouter()
	authRouter.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	authRouter.HandleFunc("/device", s.auth.RequireUser(s.handleRegisterDevice)).Methods(http.MethodPost)
	authRouter.HandleFunc("/device/{id}", s.auth.RequireUser(s.handleDeleteDevice)).Methods(http.MethodDelete)
	authRouter.HandleFunc("/devices", s.auth.RequireUser(s.handleListDevices)).Methods(http.MethodGet)
	authRouter.HandleFunc("/link-code", s.auth.RequireUser(s.handleGenerateLinkCode)).Methods(http.MethodPost)
	authRouter.HandleFunc("/redeem-code", s.auth.RequireUser(s.handleRedeemLinkCode)).Methods(http.MethodPost)

	syncRouter := r.PathPrefix("/api/sync").Subrouter()
	syncRouter.HandleFunc("/slots", s.auth.RequireUser(s.handleGetSlots)).Methods(http.MethodGet)
	syncRouter.HandleFunc("/slots/{n}", s.auth.RequireUser(s.handlePutSlot)).Methods(http.MethodPut)
	syncRouter.HandleFunc("/history", s.auth.RequireUser(s.handleGetHistory)).Methods(http.MethodGet)
	syncRouter.HandleFunc("/history", s.auth.RequireUser(s.handlePostHistory)).Methods(http.MethodPost)
	syncRouter.HandleFunc("/history/{id}", s.auth.RequireUser(s.handleDeleteHistory)).Methods(http.MethodDelete)
	syncRouter.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins(corsOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)

	loggedHandler := handlers.CombinedLoggingHandler(zerologWriter{log: s.log}, corsHandler(r))
	return s, loggedHandler
}

// zerologWriter adapts zerolog to the io.Writer gorilla/handlers'
// combined-log middleware expects, so access logs flow through the same
// structured sink as every other component.
type zerologWriter struct {
	log zerolog.Logger
}

func (w zerologWriter) Write(p []byte) (int, error) {
	w.log.Info().Str("subcomponent", "access_log").Msg(trimNewline(p))
	return len(p), nil
}

func trimNewline(p []byte) string {
	if n := len(p); n > 0 && p[n-1] == '\n' {
		return string(p[:n-1])
	}
	return string(p)
}
