package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zaki-44/bio-hackathon/internal/handlers"
	"github.com/zaki-44/bio-hackathon/internal/metrics"
	"github.com/zaki-44/bio-hackathon/internal/model"
	"github.com/zaki-44/bio-hackathon/internal/service"
	"github.com/zaki-44/bio-hackathon/internal/storage"
)

// OpenDB connects to postgres. Unique violations come back as
// gorm.ErrDuplicatedKey.
func OpenDB(dsn string, log *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

type Services struct {
	Auth     service.AuthService
	Apps     service.ApplicationService
	Catalog  service.CatalogService
	Orders   service.OrderService
	Cart     service.CartService
	Checkout service.CheckoutService
	Ratings  service.RatingService
	Delivery service.DeliveryService
}

func NewServices(db *gorm.DB, cfg Config, log *logrus.Logger) (*Services, error) {
	files, err := storage.New(cfg.UploadDir)
	if err != nil {
		return nil, err
	}
	email := service.NewEmailService(service.SMTPConfig{Host: cfg.SMTPHost, Port: cfg.SMTPPort, From: cfg.SMTPFrom}, log)
	notify := service.NewNotifier(email, log)
	creds := service.NewCredentials(cfg.BcryptCost)

	return &Services{
		Auth:     service.NewAuthService(db, creds, service.AuthConfig{Secret: []byte(cfg.JWTSecret), TokenTTL: cfg.TokenTTL}, log),
		Apps:     service.NewApplicationService(db, creds, files, notify, log),
		Catalog:  service.NewCatalogService(db, files, log),
		Orders:   service.NewOrderService(db, log),
		Cart:     service.NewCartService(db),
		Checkout: service.NewCheckoutService(db, notify, log),
		Ratings:  service.NewRatingService(db, log),
		Delivery: service.NewDeliveryService(db, log),
	}, nil
}

func NewServer(cfg Config, log *logrus.Logger) (*gin.Engine, func(), error) {
	db, err := OpenDB(cfg.DSN, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if s, err := db.DB(); err == nil {
			_ = s.Close()
		}
	}
	if err := Migrate(db); err != nil {
		cleanup()
		return nil, nil, err
	}
	svc, err := NewServices(db, cfg, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return NewRouter(cfg, svc, log), cleanup, nil
}

// NewRouter builds the gin engine over already constructed services.
func NewRouter(cfg Config, svc *Services, log *logrus.Logger) *gin.Engine {
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = cfg.MaxUploadBytes
	r.Use(
		gin.Recovery(),
		handlers.RequestLogger(log),
		metricsMiddleware(),
		cors(cfg.AllowedOrigins()),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	authH := handlers.NewAuthHTTP(svc.Auth, svc.Apps, cfg.TokenTTL, cfg.CookieSecure)
	appH := handlers.NewApplicationHTTP(svc.Apps)
	prodH := handlers.NewProductHTTP(svc.Catalog)
	orderH := handlers.NewOrderHTTP(svc.Orders, svc.Cart, svc.Checkout)
	rateH := handlers.NewRatingHTTP(svc.Ratings)
	delH := handlers.NewDeliveryHTTP(svc.Delivery)

	requireAuth := handlers.RequireAuth(svc.Auth)
	optionalAuth := handlers.OptionalAuth(svc.Auth)
	limitBody := handlers.LimitBody(cfg.MaxUploadBytes)
	limiter := newIPLimiter(cfg.LoginRatePerMin, log).handler()

	api := r.Group("/api", noStore)

	// accounts
	api.POST("/register", limiter, limitBody, authH.Register)
	api.POST("/login", limiter, authH.Login)
	api.POST("/logout", authH.Logout)
	api.GET("/profile", requireAuth, authH.Profile)
	api.GET("/session", optionalAuth, authH.Session)
	api.POST("/admin/create-admin", limiter, authH.CreateAdmin)

	// farmer applications
	api.POST("/farmers/apply", limiter, limitBody, authH.Apply)
	api.GET("/farmers/applications/status", authH.ApplicationStatus)
	api.GET("/farmers/applications/:id/certification", requireAuth, appH.Certification)
	adm := api.Group("/admin/farmers/applications", requireAuth)
	adm.GET("", appH.List)
	adm.GET("/stats", appH.Stats)
	adm.POST("/:id/approve", appH.Approve)
	adm.POST("/:id/deny", appH.Deny)

	// catalog
	api.GET("/products", prodH.List)
	api.POST("/products", requireAuth, limitBody, prodH.Create)
	api.GET("/products/search", prodH.Search)
	api.GET("/products/:id", prodH.Get)
	api.GET("/products/:id/photo", prodH.Photo)

	// orders and cart
	api.POST("/orders", requireAuth, orderH.Create)
	api.GET("/orders", requireAuth, orderH.List)
	api.GET("/cart", requireAuth, orderH.Cart)
	api.POST("/cart", requireAuth, orderH.AddToCart)
	api.DELETE("/cart", requireAuth, orderH.ClearCart)
	api.DELETE("/cart/:product_id", requireAuth, orderH.RemoveFromCart)
	api.POST("/checkout", requireAuth, orderH.Checkout)

	// ratings
	api.POST("/farmers/:id/ratings", requireAuth, rateH.Rate)
	api.GET("/farmers/:id/ratings", optionalAuth, rateH.Summary)

	// delivery
	api.GET("/delivery/packages", requireAuth, delH.List)
	api.POST("/delivery/packages", requireAuth, delH.Create)
	api.PUT("/delivery/packages/:id/status", requireAuth, delH.UpdateStatus)
	api.GET("/delivery/track/:tracking_number", delH.Track)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "code": "not_found", "error": "not found"})
	})
	return r
}
