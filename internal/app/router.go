package app

import (
	"database/sql"
	"net/http"
	"time"

	"quizgen/internal/app/observability"
	"quizgen/internal/auth"
	"quizgen/internal/batch"
	"quizgen/internal/generator"
	"quizgen/internal/quiz"
	"quizgen/internal/report"
	"quizgen/internal/textextract"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(cfg Config, db *sql.DB) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	collector := observability.NewCollector(db)
	r.Use(collector.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	batches := batch.NewValidator(cfg.Batches)
	tokens := auth.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute)

	authSvc := auth.NewService(db, auth.ServiceConfig{BatchValidator: batches})
	authHandler := auth.NewHandler(authSvc, tokens)

	quizSvc := quiz.NewService(quiz.NewSQLStore(db), batches, quiz.Scorer{StrictSets: cfg.ScoringStrictSets})
	quizHandler := quiz.NewHandler(quizSvc)

	reportHandler := report.NewHandler(report.NewService(quizSvc))

	genHandler := generator.NewHandler(generator.NewService(generator.ServiceConfig{
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
	}))

	extractHandler := textextract.NewHandler(textextract.NewService(textextract.ServiceConfig{}))

	authLimiter := NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/api/v1", func(api chi.Router) {
		api.Group(func(public chi.Router) {
			public.Use(RateLimitMiddleware(authLimiter))
			public.Post("/token", authHandler.Token)
			public.Post("/teachers/register", authHandler.RegisterTeacher)
			public.Post("/students/register", authHandler.RegisterStudent)
		})

		api.Post("/generate-quiz", genHandler.Generate)
		api.Post("/upload-pdf", extractHandler.UploadPDF)
		api.Post("/scrape-website", extractHandler.ScrapeWebsite)

		api.Group(func(teacher chi.Router) {
			teacher.Use(authHandler.RequireTeacher)
			teacher.Get("/teachers/me", authHandler.MeTeacher)
			teacher.Patch("/teachers/me/batches", authHandler.UpdateTeacherBatches)

			teacher.Post("/quizzes", quizHandler.Create)
			teacher.Get("/quizzes/teacher", quizHandler.ListTeacher)
			teacher.Get("/quizzes/teacher/{id}", quizHandler.GetTeacherQuiz)
			teacher.Get("/quizzes/{id}/attempts", reportHandler.ListAttempts)
			teacher.Get("/quizzes/{id}/attempts/summary", reportHandler.Summary)
			teacher.Get("/quizzes/{id}/attempts/export", reportHandler.ExportAttempts)
		})

		api.Group(func(student chi.Router) {
			student.Use(authHandler.RequireStudent)
			student.Get("/students/me", authHandler.MeStudent)
			student.Patch("/students/me/batch", authHandler.UpdateStudentBatch)

			student.Get("/quizzes", quizHandler.ListForStudent)
			student.Post("/quizzes/access", quizHandler.Access)
			student.Get("/quizzes/{id}", quizHandler.Get)
			student.Post("/quizzes/submit", quizHandler.Submit)
			student.Get("/attempts", quizHandler.ListStudentAttempts)
		})
	})

	return r
}
