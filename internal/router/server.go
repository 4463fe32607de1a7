package router

import (
	"net/http"
	"time"
)

// NewServer creates an HTTP server serving r on port.
func NewServer(port string, r *Router) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      r.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
