package provider

import (
	"github.com/payout-next/internal/cache"
	"github.com/payout-next/internal/config"
	"github.com/payout-next/internal/logger"
	"github.com/payout-next/internal/models"
	"github.com/payout-next/internal/payment/xendit"
	"github.com/payout-next/internal/queue"
	"github.com/payout-next/internal/repository"
	"github.com/payout-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config        *config.Config
	QueueClient   *queue.Client
	GatewayConfig *xendit.Config

	// Repositories
	AdminRepo         repository.AdminRepository
	AffiliateRepo     repository.AffiliateRepository
	ConversionRepo    repository.ConversionRepository
	PayoutRepo        repository.PayoutRepository
	ClearingAuditRepo repository.ClearingAuditRepository
	SettingRepo       repository.SettingRepository

	// Services
	AuthService         *service.AuthService
	SettingService      *service.SettingService
	EmailService        *service.EmailService
	AffiliateService    *service.AffiliateService
	ConversionService   *service.ConversionService
	FeeService          *service.FeeService
	ClearingService     *service.ClearingService
	EligibilityService  *service.EligibilityService
	PayoutService       *service.PayoutService
	WebhookService      *service.WebhookService
	NotificationService *service.NotificationService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.ConversionRepo = repository.NewConversionRepository(db)
	c.PayoutRepo = repository.NewPayoutRepository(db)
	c.ClearingAuditRepo = repository.NewClearingAuditRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
}

func (c *Container) initServices() {
	c.GatewayConfig = &xendit.Config{
		BaseURL:       c.Config.Gateway.BaseURL,
		APIKey:        c.Config.Gateway.APIKey,
		CallbackToken: c.Config.Gateway.CallbackToken,
		TimeoutMS:     c.Config.Gateway.TimeoutMS,
	}
	c.GatewayConfig.Normalize()

	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.AffiliateService = service.NewAffiliateService(c.AffiliateRepo)
	c.ConversionService = service.NewConversionService(c.ConversionRepo)
	c.FeeService = service.NewFeeService()
	c.ClearingService = service.NewClearingService(c.ConversionRepo, c.ClearingAuditRepo, c.SettingService)
	c.EligibilityService = service.NewEligibilityService(c.AffiliateRepo, c.ConversionRepo, c.PayoutRepo, c.SettingService)
	c.PayoutService = service.NewPayoutService(c.AffiliateRepo, c.ConversionRepo, c.PayoutRepo, c.FeeService, c.EligibilityService, c.SettingService, c.GatewayConfig, c.QueueClient)
	c.WebhookService = service.NewWebhookService(c.PayoutRepo, c.ConversionRepo, c.QueueClient)
	c.NotificationService = service.NewNotificationService(c.PayoutRepo, c.AffiliateRepo, c.EmailService)
}
