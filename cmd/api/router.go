package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/droprelay/service/internal/config"
	"github.com/droprelay/service/internal/file"
	"github.com/droprelay/service/internal/logger"
	appMiddleware "github.com/droprelay/service/internal/middleware"
	"github.com/droprelay/service/internal/response"

	_ "github.com/droprelay/service/docs/swagger"
)

// newRouter wires the middleware stack and routes.
func newRouter(cfg *config.Config, log *logger.Logger, fileHandler *file.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(appMiddleware.RequireOrigin(cfg.AllowedOrigin))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.AllowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Swagger UI at /swagger/index.html
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Post("/upload", fileHandler.Upload)
	r.Get("/download", fileHandler.Download)

	// Browser UI
	r.Get("/*", http.FileServer(http.Dir(cfg.PublicDir)).ServeHTTP)

	return r
}
