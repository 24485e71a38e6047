// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liftlogapp/liftlog/internal/config"
)

// Router assembles the HTTP routes for the backup control API.
type Router struct {
	handler *Handler
	cfg     config.ServerConfig
}

// NewRouter returns a router for the given handler and server config.
func NewRouter(handler *Handler, cfg config.ServerConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(router.cfg.RateLimitReqs, router.cfg.RateLimitWindow))
		r.Use(requestLogger)

		r.Get("/health", router.handler.Health)

		r.Route("/backups", func(r chi.Router) {
			r.Get("/", router.handler.ListBackups)
			r.Post("/", router.handler.CreateBackup)
			r.Get("/stats", router.handler.BackupStats)

			r.Route("/{name}", func(r chi.Router) {
				r.Delete("/", router.handler.DeleteBackup)
				r.Get("/download", router.handler.DownloadBackup)
				r.Post("/restore", router.handler.RestoreBackup)
			})
		})

		r.Get("/export", router.handler.ExportArchive)
		r.Post("/import", router.handler.ImportArchive)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// timeoutOr returns d, or a fallback when d is zero. Keeps test
// configs terse.
func timeoutOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
