package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/yogaportal/attendance-kiosk/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	kioskHandler := handlers.NewKioskHandler(s.kiosk)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1/kiosk", func(r chi.Router) {
		r.Get("/status", kioskHandler.Status)
		r.Post("/mode", kioskHandler.SetMode)
		r.Post("/reload", kioskHandler.Reload)

		// Camera
		r.Post("/camera/start", kioskHandler.StartCamera)
		r.Post("/camera/stop", kioskHandler.StopCamera)

		// Enrollment
		r.Post("/capture", kioskHandler.Capture)
		r.Post("/students", kioskHandler.SaveStudent)

		// Recognition and review
		r.Post("/attendance", kioskHandler.MarkAttendance)
		r.Get("/attendance/{date}", kioskHandler.ReviewAttendance)
	})
}
