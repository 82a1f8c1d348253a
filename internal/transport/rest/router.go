package rest

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"blockiq/internal/config"
	"blockiq/internal/metrics"
	"blockiq/internal/service"
	"blockiq/internal/transport/rest/handler"
	"blockiq/internal/transport/rest/middleware"
	"blockiq/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService        *service.AuthService
	QuizService        *service.QuizService
	PaymentService     *service.PaymentService
	LeaderboardService *service.LeaderboardService
	WSHub              *ws.Hub
	Metrics            *metrics.Metrics
	CORS               config.ServerConfig
	Logger             *slog.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	quizHandler := handler.NewQuizHandler(c.QuizService, c.PaymentService)
	paymentHandler := handler.NewPaymentHandler(c.PaymentService)
	boardHandler := handler.NewLeaderboardHandler(c.LeaderboardService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, nil, c.Logger)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORS))
	r.Use(middleware.Metrics(c.Metrics))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", c.Metrics.Handler()).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/quiz/sessions", quizHandler.Start).Methods("POST", "OPTIONS")
	v1.HandleFunc("/payments/quote", paymentHandler.Quote).Methods("GET", "OPTIONS")
	v1.HandleFunc("/leaderboard", boardHandler.Top).Methods("GET", "OPTIONS")
	v1.HandleFunc("/catalog/categories", boardHandler.Categories).Methods("GET", "OPTIONS")

	// WebSocket route (public with token in query param)
	v1.HandleFunc("/ws/quiz", wsHandler.QuizWS).Methods("GET")

	// Session routes (require a session token)
	sessionRoutes := v1.NewRoute().Subrouter()
	sessionRoutes.Use(authMW.RequireSession)

	sessionRoutes.HandleFunc("/quiz/sessions/current", quizHandler.Current).Methods("GET", "OPTIONS")
	sessionRoutes.HandleFunc("/quiz/sessions/current", quizHandler.Reset).Methods("DELETE", "OPTIONS")
	sessionRoutes.HandleFunc("/quiz/sessions/current/answer", quizHandler.Answer).Methods("PUT", "OPTIONS")
	sessionRoutes.HandleFunc("/quiz/sessions/current/next", quizHandler.Next).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/quiz/sessions/current/submit", quizHandler.Submit).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/quiz/sessions/current/payment", paymentHandler.Confirm).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/quiz/sessions/current/result", paymentHandler.Result).Methods("GET", "OPTIONS")
	sessionRoutes.HandleFunc("/quiz/history", quizHandler.History).Methods("GET", "OPTIONS")
	sessionRoutes.HandleFunc("/leaderboard/me", boardHandler.Me).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(cfg config.ServerConfig) mux.MiddlewareFunc {
	allowedOrigins := cfg.AllowedOrigins
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	allowedMethods := cfg.AllowedMethods
	if allowedMethods == "" {
		allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
	}
	allowedHeaders := cfg.AllowedHeaders
	if allowedHeaders == "" {
		allowedHeaders = "Content-Type, Authorization"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
