package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"studytime-backend/internal/handlers"
	"studytime-backend/internal/middleware"
	"studytime-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	rateLimiter *middleware.RateLimiter,
	studySessionHandler *handlers.StudySessionHandler,
	subjectHandler *handlers.SubjectHandler,
	semesterHandler *handlers.SemesterHandler,
	healthHandler *handlers.HealthHandler,
	wsHub *websocket.Hub,
	frontendURL string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(frontendURL))

	r.Get("/health", healthHandler.Check)

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Study Session Routes ────
		r.Route("/sessions", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(rateLimiter.Middleware)
			r.Get("/", studySessionHandler.List)
			r.Post("/start", studySessionHandler.Start)
			r.Get("/active", studySessionHandler.Active)
			r.Post("/{id}/pause", studySessionHandler.Pause)
			r.Post("/{id}/resume", studySessionHandler.Resume)
			r.Post("/{id}/stop", studySessionHandler.Stop)
			r.Delete("/{id}", studySessionHandler.Delete)
		})

		// ──── Subject Routes ────
		r.Route("/subjects", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(rateLimiter.Middleware)
			r.Get("/", subjectHandler.List)
			r.Post("/", subjectHandler.Create)
			r.Put("/{id}", subjectHandler.Update)
			r.Delete("/{id}", subjectHandler.Delete)
		})

		// ──── Semester Routes ────
		r.Route("/semesters", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(rateLimiter.Middleware)
			r.Get("/", semesterHandler.List)
			r.Post("/", semesterHandler.Create)
			r.Get("/active", semesterHandler.Active)
			r.Put("/{id}", semesterHandler.Update)
			r.Delete("/{id}", semesterHandler.Delete)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
