package router

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cucihub/api/internal/authprovider"
	"github.com/cucihub/api/internal/config"
	"github.com/cucihub/api/internal/database"
	"github.com/cucihub/api/internal/enum"
	"github.com/cucihub/api/internal/handler"
	"github.com/cucihub/api/internal/logger"
	mw "github.com/cucihub/api/internal/middleware"
	"github.com/cucihub/api/internal/notify"
	"github.com/cucihub/api/internal/payment"
	"github.com/cucihub/api/internal/service"
	"github.com/cucihub/api/internal/ws"
)

// New creates a Chi router with all application routes wired up: the JSON
// API under /api, WebSocket endpoints under /ws, and the role-gated page
// routes served from the static build.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, gateway payment.Gateway, provider *authprovider.Client) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "https://cucihub.id", "https://staff.cucihub.id"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	statusService := service.NewStatusService(pool, func(db database.DBTX) service.StatusStore {
		return database.New(db)
	})
	dispatcher := notify.NewDispatcher(queries)

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	orderHandler := handler.NewOrderHandler(statusService, queries, dispatcher, hub)
	paymentHandler := handler.NewPaymentHandler(queries, statusService, gateway, dispatcher, hub)
	serviceHandler := handler.NewServiceHandler(queries)
	announcementHandler := handler.NewAnnouncementHandler(queries)
	notificationHandler := handler.NewNotificationHandler(queries)
	reviewHandler := handler.NewReviewHandler(queries)
	accountHandler := handler.NewAccountHandler(queries, pool, func(db database.DBTX) handler.AccountStore {
		return database.New(db)
	}, provider)
	userHandler := handler.NewUserHandler(provider)

	r.Route("/api", func(r chi.Router) {
		r.Use(logger.RequestIDMiddleware)
		r.Use(logger.RequestLogger)

		// Public surface. Auth and payment endpoints are rate limited
		// per client IP.
		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit)
			authHandler.RegisterRoutes(r)
			// The gateway calls the notification URL directly; the
			// request is authenticated by its signature instead.
			r.Post("/payments/confirm", paymentHandler.Confirm)
		})
		serviceHandler.RegisterPublicRoutes(r)
		announcementHandler.RegisterPublicRoutes(r)
		reviewHandler.RegisterPublicRoutes(r)
		r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"midtrans_client_key":"` + cfg.MidtransClientKey + `"}`))
		})

		// Customer routes.
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))
			r.Use(mw.RequireRole(enum.RoleCustomer))

			accountHandler.RegisterRoutes(r)
			orderHandler.RegisterCustomerRoutes(r)
			reviewHandler.RegisterCustomerRoutes(r)
			notificationHandler.RegisterRoutes(r)
			r.With(mw.RateLimit).Post("/payments/token", paymentHandler.CreateToken)
		})

		// Staff routes.
		r.Route("/staff", func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))
			r.Use(mw.RequireRole(enum.RoleStaff))

			orderHandler.RegisterStaffRoutes(r)
			serviceHandler.RegisterStaffRoutes(r)
			announcementHandler.RegisterStaffRoutes(r)
			userHandler.RegisterRoutes(r)
		})
	})

	// WebSocket endpoints handle auth internally and must not pass through
	// the logging recorder, which breaks the connection hijack.
	r.Get("/ws/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeOrderWS(hub, cfg.JWTSecret, w, r)
	})
	r.Get("/ws/staff/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeStaffWS(hub, cfg.JWTSecret, w, r)
	})

	// Page routes. The landing page is open; everything else goes through
	// the role gate.
	spa := spaHandler(cfg.StaticDir)
	r.Get("/", spa)
	gated := mw.RoleGate(cfg.JWTSecret)(spa)
	r.NotFound(gated.ServeHTTP)

	return r
}

// spaHandler serves the static frontend build, falling back to index.html
// for client-side routes.
func spaHandler(dir string) http.HandlerFunc {
	fs := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean(r.URL.Path))
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			http.ServeFile(w, r, index)
			return
		}
		fs.ServeHTTP(w, r)
	}
}
