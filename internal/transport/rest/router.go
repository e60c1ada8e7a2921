package rest

import "net/http"

// NewRouter registers every REST route on a fresh ServeMux.
func NewRouter(health *HealthHandler, progress *ProgressHandler, catalog *CatalogHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /live", health.Live)
	mux.HandleFunc("GET /ready", health.Ready)
	mux.HandleFunc("GET /health", health.Health)

	mux.HandleFunc("GET /api/progress", progress.Get)
	mux.HandleFunc("POST /api/progress/reload", progress.Reload)
	mux.HandleFunc("POST /api/progress/xp", progress.AddXP)
	mux.HandleFunc("GET /api/levels/unlocked", progress.UnlockedLevels)
	mux.HandleFunc("GET /api/lessons/{id}", progress.Lesson)
	mux.HandleFunc("GET /api/lessons/{id}/questions", progress.Questions)
	mux.HandleFunc("POST /api/lessons/{id}/complete", progress.CompleteLesson)
	mux.HandleFunc("POST /api/answers", progress.Answer)
	mux.HandleFunc("POST /api/session/sign-out", progress.SignOut)

	mux.HandleFunc("POST /api/admin/levels", catalog.AddLevel)
	mux.HandleFunc("POST /api/admin/lessons", catalog.AddLesson)
	mux.HandleFunc("PATCH /api/admin/lessons/{id}", catalog.UpdateLesson)
	mux.HandleFunc("DELETE /api/admin/lessons/{id}", catalog.DeleteLesson)
	mux.HandleFunc("POST /api/admin/questions", catalog.AddQuestion)
	mux.HandleFunc("PATCH /api/admin/questions/{id}", catalog.UpdateQuestion)
	mux.HandleFunc("DELETE /api/admin/questions/{id}", catalog.DeleteQuestion)

	return mux
}
