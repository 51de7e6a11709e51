package api

import (
	"net/http"
	"time"

	"campusride/internal/realtime"
)

// NewServer wraps handler in an http.Server. Shutdown closes the hub so open
// SSE and WebSocket streams return instead of holding the drain open.
func NewServer(addr string, handler http.Handler, hub *realtime.Hub) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		// No WriteTimeout: message streams are long-lived.
		IdleTimeout: 60 * time.Second,
	}
	if hub != nil {
		srv.RegisterOnShutdown(hub.Close)
	}
	return srv
}
