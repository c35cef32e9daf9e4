package httpserver

import (
	"net/http"
	"time"
)

// New builds the process's HTTP server. Header and idle timeouts keep slow
// or silent clients from pinning connections.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
