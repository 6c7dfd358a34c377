package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/interpose/middleware"
	"github.com/justinas/alice"
)

func router(h *handler) http.Handler {
	router := mux.NewRouter()
	GET := router.Methods("GET", "HEAD").Subrouter()

	GET.HandleFunc("/", h.Index).Name("index")
	GET.HandleFunc("/healthz", h.Health)

	// The reports themselves are static artifacts
	GET.PathPrefix("/reports/").Handler(
		middleware.MaxAgeHandler(60*60,
			http.StripPrefix("/reports/", http.FileServer(http.Dir(h.reportDir)))))

	standard := alice.New(
		// Log all requests to STDOUT
		middleware.GorillaLog(),
	)

	return standard.Then(router)
}
