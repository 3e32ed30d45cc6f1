package main

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/databunker/pricewatch/internal/blob"
	"github.com/databunker/pricewatch/internal/config"
	"github.com/databunker/pricewatch/internal/logger"
)

type application struct {
	config    apiConfig
	pipeline  config.Config
	blobs     blob.Store
	appLogger *logger.Logger
}

type apiConfig struct {
	addr string
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	// Set a timeout value on the request context (ctx), that will signal
	// through ctx.Done() that the request has timed out and further
	// processing should be stopped.
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", app.healthCheckHandler)
		r.Route("/snapshots", func(r chi.Router) {
			r.Get("/", app.handleListSnapshots)
			r.Get("/latest", app.handleGetLatestSnapshot)
		})
		r.Route("/permanence", func(r chi.Router) {
			r.Get("/", app.handleGetPermanence)
		})
		r.Route("/validation", func(r chi.Router) {
			r.Get("/report", app.handleGetValidationReport)
		})
	})

	return r
}

func (app *application) run(mux http.Handler) error {

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 120,
		ReadTimeout:  time.Second * 40,
		IdleTimeout:  time.Minute,
	}

	log.Printf("Server started on %s", app.config.addr)
	return srv.ListenAndServe()
}
