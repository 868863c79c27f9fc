package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/dropwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dropwatch/internal/httpserver/handlers"
)

func init() { Register(registerHealthz) }

// /healthz stays open to everyone: orchestrators probe it from anywhere.
func registerHealthz(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))
}
