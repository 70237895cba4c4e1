// Package middleware provides the HTTP middleware of the graphview server.
//
// Every middleware has the standard shape func(http.Handler) http.Handler
// and plugs into a chi router with Use:
//
//	r := chi.NewRouter()
//	r.Use(middleware.RequestID())
//	r.Use(middleware.PanicRecovery(logger))
//	r.Use(middleware.Logging(logger))
//	r.Use(middleware.Metrics(registry))
//
// Logging and PanicRecovery read the request id set by RequestID, so
// RequestID goes first.
package middleware
