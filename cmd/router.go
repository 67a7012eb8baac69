package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/markjakearzadon/homigo-gobackend/internal/handlers"
	"github.com/markjakearzadon/homigo-gobackend/internal/middleware"
)

type routes struct {
	gate     *middleware.OriginGate
	auth     *middleware.Authenticator
	payments *handlers.PaymentHandler
	bookings *handlers.BookingHandler
	health   http.HandlerFunc
}

// newRouter wires every endpoint. The origin gate wraps everything; bearer
// tokens are only read under /api, so the payment link endpoint answers
// regardless of what Authorization header a browser sends.
func newRouter(logger *logrus.Logger, rt routes) http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.RequestLogger(logger))

	router.HandleFunc("/healthz", rt.health).Methods(http.MethodGet, http.MethodHead)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.Handle("/payments/link", middleware.Restrict(http.MethodPost)(http.HandlerFunc(rt.payments.CreateLink)))

	api := router.PathPrefix("/api").Subrouter()
	api.Use(rt.auth.Middleware)
	rt.bookings.Register(api)

	return rt.gate.Middleware(router)
}
