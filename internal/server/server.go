package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	chargedomain "github.com/smallbiznis/chargeway/internal/charge/domain"
	"github.com/smallbiznis/chargeway/internal/config"
	"github.com/smallbiznis/chargeway/internal/observability"
	obsmiddleware "github.com/smallbiznis/chargeway/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/chargeway/internal/observability/metrics"
	obstracing "github.com/smallbiznis/chargeway/internal/observability/tracing"
	onboardingdomain "github.com/smallbiznis/chargeway/internal/onboarding/domain"
	paymentdomain "github.com/smallbiznis/chargeway/internal/payment/domain"
	paymethoddomain "github.com/smallbiznis/chargeway/internal/paymethod/domain"
	"github.com/smallbiznis/chargeway/internal/ratelimit"
	"github.com/smallbiznis/chargeway/internal/recon"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	log            *zap.Logger
	onboardingSvc  onboardingdomain.Service
	paymethodSvc   paymethoddomain.Service
	chargeSvc      chargedomain.Orchestrator
	webhookSvc     paymentdomain.WebhookService
	gateway        paymentdomain.Gateway
	auditor        recon.Auditor
	webhookLimiter *ratelimit.WebhookLimiter
	obsMetrics     *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	Log            *zap.Logger
	OnboardingSvc  onboardingdomain.Service
	PaymethodSvc   paymethoddomain.Service
	ChargeSvc      chargedomain.Orchestrator
	WebhookSvc     paymentdomain.WebhookService
	Gateway        paymentdomain.Gateway
	Auditor        recon.Auditor
	WebhookLimiter *ratelimit.WebhookLimiter
	ObsMetrics     *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		log:            p.Log.Named("http.server"),
		onboardingSvc:  p.OnboardingSvc,
		paymethodSvc:   p.PaymethodSvc,
		chargeSvc:      p.ChargeSvc,
		webhookSvc:     p.WebhookSvc,
		gateway:        p.Gateway,
		auditor:        p.Auditor,
		webhookLimiter: p.WebhookLimiter,
		obsMetrics:     p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/applications", s.CreateApplication)
	api.GET("/customers/:id/payment-methods", s.ListPaymentMethods)
	api.POST("/customers/:id/payment-methods/default", s.SetDefaultPaymentMethod)
	api.POST("/customers/:id/payment-session", s.CreatePaymentSession)
	api.POST("/charges/:type_code", s.RunChargeBatch)
	api.POST("/recon/audit", s.RunExistenceAudit)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/stripe", s.HandleStripeWebhook)
}
