package router

import (
	"time"

	"referral-purchase-service/internal/backend"
	"referral-purchase-service/internal/controller"
	"referral-purchase-service/internal/dashboard"
	"referral-purchase-service/internal/form"
	"referral-purchase-service/internal/live"
	"referral-purchase-service/internal/middleware"
	"referral-purchase-service/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps son las dependencias ya construidas que necesita el router.
type Deps struct {
	Auth         *service.AuthService
	Storage      backend.Storage
	Objects      controller.ObjectOpener
	Table        backend.Table
	Bucket       string
	MaxFileSize  int64
	Location     *time.Location
	HealthChecks map[string]controller.Check
	CORSOrigins  []string
	Release      bool
}

// New arma el engine: Handler ← Service ← backend.
func New(deps Deps) *gin.Engine {
	if deps.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.ErrorHandler())
	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  deps.CORSOrigins,
			AllowMethods:  []string{"GET", "POST"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders: []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
			MaxAge:        12 * time.Hour,
		}))
	}

	purchaseSvc := service.NewPurchaseService(deps.Table, deps.Location)
	bucket := deps.Bucket
	if bucket == "" {
		bucket = form.DefaultBucket
	}
	formOpts := form.Options{Bucket: bucket, MaxFileSize: deps.MaxFileSize}

	purchases := controller.NewPurchaseController(deps.Storage, deps.Table, formOpts, purchaseSvc)
	authCtl := controller.NewAuthController(deps.Auth)
	storageCtl := controller.NewStorageController(deps.Objects, formOpts.Bucket)
	liveSrv := live.NewServer(deps.Auth, deps.Storage, deps.Table, dashboard.Options{Location: deps.Location}, deps.CORSOrigins)

	// Rutas públicas
	r.GET("/health", controller.Health(deps.HealthChecks))
	r.POST("/compras", purchases.Submit)
	r.GET("/storage/:bucket/:name", storageCtl.Download)

	loginLimiter := middleware.NewRateLimiter(20, time.Minute)
	r.POST("/auth/login", loginLimiter.Handler(), authCtl.Login)
	r.GET("/auth/session", authCtl.Session)

	// Panel en vivo: la autenticación va dentro de la conexión
	r.GET("/admin/live", liveSrv.Handle)

	// Rutas protegidas (requieren token)
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(deps.Auth))
	auth.POST("/auth/logout", authCtl.Logout)

	admin := auth.Group("/admin")
	admin.GET("/compras", purchases.List)
	admin.GET("/compras/stats", purchases.Stats)
	admin.GET("/compras/export", purchases.Export)

	return r
}
