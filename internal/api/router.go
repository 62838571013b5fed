package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/auth"
)

// defaultWSPath is used when the websocket path is not configured.
const defaultWSPath = "/ws"

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeBadRequest, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Unauthenticated operational endpoints
		r.Get("/health", s.handleHealth)
		if s.metrics != nil {
			r.Handle("/metrics", s.metrics)
		}

		// WebSocket authenticates with a token query parameter, checked in the handler
		wsPath := s.wsCfg.Path
		if wsPath == "" {
			wsPath = defaultWSPath
		}
		r.Get(wsPath, s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/keycards", func(r chi.Router) {
				r.With(s.requirePermission(auth.PermKeycardRead)).Get("/", s.handleListKeycards)
				r.With(s.requirePermission(auth.PermKeycardManage)).Post("/", s.handleCreateKeycard)
				r.With(s.requirePermission(auth.PermKeycardRead)).Get("/statuses", s.handleListKeycardStatuses)
				r.With(s.requirePermission(auth.PermKeycardRead)).Get("/logs", s.handleListAccessLog)

				// Commands
				r.With(s.requirePermission(auth.PermDeviceOperate)).Post("/rfid", s.handleLockCommand)
				r.With(s.requirePermission(auth.PermDeviceManage)).Post("/rfid/assign", s.handleAssignCommand)

				r.Route("/{id}", func(r chi.Router) {
					r.With(s.requirePermission(auth.PermKeycardRead)).Get("/", s.handleGetKeycard)
					r.With(s.requirePermission(auth.PermKeycardManage)).Put("/", s.handleUpdateKeycard)
					r.With(s.requirePermission(auth.PermKeycardManage)).Delete("/", s.handleDeleteKeycard)
				})
			})

			r.Route("/temperature", func(r chi.Router) {
				r.With(s.requirePermission(auth.PermDeviceOperate)).Post("/device/setting", s.handleThresholdCommand)
				r.With(s.requirePermission(auth.PermDeviceOperate)).Post("/fan", s.handleFanCommand)

				r.Group(func(r chi.Router) {
					r.Use(s.requirePermission(auth.PermTelemetryRead))
					r.Get("/fan/{id}/readings", s.handleListFanReadings)
					r.Get("/{id}/readings", s.handleListTemperatureReadings)
					r.Get("/{id}/settings", s.handleGetTemperatureSettings)
				})
			})

			r.With(s.requirePermission(auth.PermTelemetryRead)).Get("/camera/{id}/captures", s.handleListCameraCaptures)

			r.Route("/devices", func(r chi.Router) {
				r.With(s.requirePermission(auth.PermTelemetryRead)).Get("/", s.handleListDevices)
				r.With(s.requirePermission(auth.PermDeviceManage)).Post("/", s.handleCreateDevice)

				r.Route("/{kind}/{id}", func(r chi.Router) {
					r.With(s.requirePermission(auth.PermTelemetryRead)).Get("/", s.handleGetDevice)
					r.With(s.requirePermission(auth.PermDeviceManage)).Delete("/", s.handleDeleteDevice)
				})
			})
		})
	})

	return r
}
