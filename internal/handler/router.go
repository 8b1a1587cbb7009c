package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/fixman/internal/metrics"
	"github.com/hitoshi/fixman/internal/middleware"
	"github.com/hitoshi/fixman/internal/repository"
	"github.com/hitoshi/fixman/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authenticator     middleware.Authenticator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface

	// リポジトリ
	Users    repository.UserRepository
	Roles    repository.RoleRepository
	Tokens   repository.RefreshTokenRepository
	Catalog  repository.CatalogRepository
	Devices  repository.DeviceRepository
	Orders   repository.OrderRepository
	Payments repository.PaymentRepository

	// 付帯
	Sanitizer security.NoteSanitizerService
	Collector metrics.MetricsCollector
	Gatherer  prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → [Auth → RateLimit(General)]
//
// 認証ルート（/v1/auth/*）と/health、/metricsは認証ミドルウェアの外に配置する。
// ログインのみ送信元IP単位のレート制限が追加で掛かる。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.Collector)
	userHandler := NewUserHandler(deps.Users, deps.Roles, deps.Tokens, deps.Sanitizer)
	deviceHandler := NewDeviceHandler(deps.Catalog, deps.Devices, deps.Users, deps.Sanitizer)
	orderHandler := NewOrderHandler(deps.Orders, deps.Devices, deps.Sanitizer)
	assignHandler := NewAssignHandler(deps.Orders, deps.Users)
	paymentHandler := NewPaymentHandler(deps.Payments, deps.Orders)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		// ログインはブルートフォース対策として送信元IP単位のレート制限付き
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.Authenticator))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ユーザー・役割管理
		r.Route("/v1/users", func(r chi.Router) {
			r.Get("/", userHandler.ListUsers)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", userHandler.GetUser)
				r.Put("/", userHandler.UpdateUser)
				r.Delete("/", userHandler.DeleteUser)
			})
		})
		r.Route("/v1/roles", func(r chi.Router) {
			r.Get("/", userHandler.ListRoles)
			r.Post("/", userHandler.CreateRole)
			r.Post("/enroll", userHandler.EnrollRole)
		})

		// 機器カタログ
		r.Route("/v1/device-types", func(r chi.Router) {
			r.Get("/", deviceHandler.ListDeviceTypes)
			r.Post("/", deviceHandler.CreateDeviceType)
		})
		r.Route("/v1/brands", func(r chi.Router) {
			r.Get("/", deviceHandler.ListBrands)
			r.Post("/", deviceHandler.CreateBrand)
		})
		r.Route("/v1/models", func(r chi.Router) {
			r.Get("/", deviceHandler.ListModels)
			r.Post("/", deviceHandler.CreateModel)
		})

		// 機器管理
		r.Route("/v1/devices", func(r chi.Router) {
			r.Get("/", deviceHandler.ListDevices)
			r.Post("/", deviceHandler.CreateDevice)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", deviceHandler.GetDevice)
				r.Put("/", deviceHandler.UpdateDevice)
				r.Delete("/", deviceHandler.DeleteDevice)
			})
		})

		// オーダー管理
		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", orderHandler.ListOrders)
			r.Post("/", orderHandler.CreateOrder)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", orderHandler.GetOrder)
				r.Put("/", orderHandler.UpdateOrder)
				r.Delete("/", orderHandler.DeleteOrder)
				r.Get("/history", orderHandler.ListHistory)
			})
		})

		// 割り当て管理
		r.Route("/v1/assigns", func(r chi.Router) {
			r.Get("/", assignHandler.ListAssigns)
			r.Post("/", assignHandler.CreateAssign)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", assignHandler.GetAssign)
				r.Delete("/", assignHandler.DeleteAssign)
			})
		})

		// 支払い管理
		r.Route("/v1/payments", func(r chi.Router) {
			r.Get("/", paymentHandler.ListPayments)
			r.Post("/", paymentHandler.CreatePayment)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", paymentHandler.GetPayment)
				r.Put("/", paymentHandler.UpdatePayment)
				r.Delete("/", paymentHandler.DeletePayment)
			})
		})
	})

	return r
}
