package router

import (
	"fmt"
	"strings"

	"github.com/payout-next/internal/cache"
	"github.com/payout-next/internal/config"
	adminhandlers "github.com/payout-next/internal/http/handlers/admin"
	publichandlers "github.com/payout-next/internal/http/handlers/public"
	"github.com/payout-next/internal/logger"
	"github.com/payout-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按公开/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "pn"
	}
	redisClient := cache.Client()
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "登录尝试过于频繁，请 %d 秒后再试",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 网关回调（Token 校验在 handler 内完成）
		webhooks := apiV1.Group("/webhooks")
		{
			webhooks.POST("/disbursement", publicHandler.DisbursementWebhook)
			webhooks.GET("/disbursement", publicHandler.DisbursementWebhookStatus)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo))
			{
				authorized.PUT("/password", adminHandler.UpdateAdminPassword) // 修改密码

				// 联盟成员管理
				authorized.GET("/affiliates", adminHandler.GetAffiliates)
				authorized.GET("/affiliates/:id", adminHandler.GetAffiliate)
				authorized.POST("/affiliates", adminHandler.CreateAffiliate)
				authorized.PUT("/affiliates/:id", adminHandler.UpdateAffiliate)
				authorized.PATCH("/affiliates/:id/status", adminHandler.UpdateAffiliateStatus)
				authorized.PATCH("/affiliates/:id/verification", adminHandler.VerifyAffiliate)

				// 转化记录
				authorized.GET("/conversions", adminHandler.GetConversions)
				authorized.GET("/conversions/:id", adminHandler.GetConversion)

				// 自动结算
				authorized.POST("/clearing/run", adminHandler.RunClearing)
				authorized.GET("/clearing/stats", adminHandler.GetClearingStats)
				authorized.GET("/clearing/audits", adminHandler.GetClearingAudits)

				// 打款
				authorized.GET("/payouts/preview", adminHandler.GetPayoutPreview)
				authorized.GET("/payouts/rollover-balances", adminHandler.GetRolloverBalances)
				authorized.POST("/payouts/process", adminHandler.ProcessPayouts)
				authorized.POST("/payouts/:id/retry", adminHandler.RetryPayout)
				authorized.GET("/payouts", adminHandler.GetPayouts)
				authorized.GET("/payouts/:id", adminHandler.GetPayout)

				// 设置管理
				authorized.GET("/settings/clearing", adminHandler.GetClearingSettings)
				authorized.PUT("/settings/clearing", adminHandler.UpdateClearingSettings)
				authorized.GET("/settings/payout", adminHandler.GetPayoutSettings)
				authorized.PUT("/settings/payout", adminHandler.UpdatePayoutSettings)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
