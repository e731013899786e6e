package routes

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/templui/taskboard/assets"
	"github.com/templui/taskboard/internal/app"
	"github.com/templui/taskboard/internal/handler"
	"github.com/templui/taskboard/internal/metrics"
	"github.com/templui/taskboard/internal/middleware"
	"github.com/templui/taskboard/internal/storage"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	home := handler.NewHomeHandler(app.AuthService)
	auth := handler.NewAuthHandler(app.AuthService, app.Platform)
	tasks := handler.NewTaskHandler()
	live := handler.NewLiveHandler(app.Registry)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	// Static files
	sub, _ := fs.Sub(assets.AssetsFS, ".")
	mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServer(http.FS(sub))))

	// Uploads kept in memory during development
	if app.Files != nil {
		mux.Handle("GET "+storage.FilesPrefix, app.Files)
	}

	// Operations
	mux.HandleFunc("GET /healthz", home.Healthz)
	if app.Metrics != nil {
		mux.Handle("GET /metrics", metrics.Handler(app.Metrics))
	}

	// Every page below runs against the browser's task board view
	view := middleware.View(app.Registry)

	mux.HandleFunc("GET /{$}", view(home.Index))

	// Auth Actions (rate limited)
	rateLimiter := middleware.RateLimitAuth(5, 15*time.Minute)

	mux.HandleFunc("POST /auth/signin", rateLimiter(view(auth.SignIn)))
	mux.HandleFunc("POST /auth/signup", rateLimiter(view(auth.SignUp)))
	mux.HandleFunc("POST /auth/mode", view(auth.SetMode))
	mux.HandleFunc("POST /auth/signout", view(auth.SignOut))

	// Token Verifications
	mux.HandleFunc("GET /auth/confirm/{token}", auth.Confirm)

	// ============================================================================
	// SIGNED-IN ROUTES (/app/*)
	// ============================================================================

	mux.HandleFunc("POST /app/tasks", view(middleware.RequireSignedIn(tasks.Create)))
	mux.HandleFunc("POST /app/tasks/{id}/description", view(middleware.RequireSignedIn(tasks.UpdateDescription)))
	mux.HandleFunc("POST /app/tasks/{id}/delete", view(middleware.RequireSignedIn(tasks.Delete)))

	// Live updates; the handler itself tells signed-out pages to reload
	mux.HandleFunc("GET /app/live", view(live.Live))

	// ============================================================================
	// FALLBACK
	// ============================================================================

	// 404
	mux.HandleFunc("/{path...}", home.NotFoundPage)

	// Global middleware - executed in order (top to bottom)
	h := middleware.Chain(
		mux,
		middleware.Recovery,
		middleware.Config(app.Cfg), // Config must come before SecurityHeaders (storage host for CSP)
		middleware.NonceMiddleware, // Nonce must come before SecurityHeaders
		middleware.SecurityHeaders,
		middleware.RequestLogging,
		middleware.MaxBodyBytes(handler.MaxRequestBody),
		middleware.CSRFProtection,
	)

	return h
}
