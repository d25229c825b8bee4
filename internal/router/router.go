package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"uzum_erp_v1_202608/internal/controller"
	"uzum_erp_v1_202608/internal/middleware"
)

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	authCtl *controller.AuthController,
	partnerCtl *controller.PartnerController,
	credentialCtl *controller.CredentialController,
	listingCtl *controller.ListingController,
	marketplaceCtl *controller.MarketplaceController,
	billingCtl *controller.BillingController) {

	// 1. Swagger 文档路由
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 2. Prometheus 指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 3. API 路由组
	api := r.Group("/api")
	{
		// auth 鉴权组
		auth := api.Group("/auth")
		{
			// POST /api/auth/login
			auth.POST("/login", authCtl.Login)
		}

		// partner 伙伴管理（写操作要 JWT）
		partners := api.Group("/partners")
		{
			partners.GET("", partnerCtl.List)
			partners.GET("/:partner_id", partnerCtl.Get)
			partners.POST("", middleware.JWTAuth(), partnerCtl.Create)
		}

		// credential 凭证保险柜（全部要 JWT）
		credentials := api.Group("/credentials", middleware.JWTAuth())
		{
			credentials.POST("", credentialCtl.Save)
			credentials.GET("/:partner_id", credentialCtl.List)
			credentials.DELETE("/:partner_id/:marketplace", credentialCtl.Deactivate)
			credentials.POST("/:partner_id/:marketplace/test", credentialCtl.TestConnection)
		}

		// listing 上架流水线
		listings := api.Group("/listings")
		{
			// POST /api/listings — 一张图到上架
			listings.POST("", middleware.JWTAuth(), listingCtl.CreateListing)
			listings.GET("/runs", listingCtl.ListRuns)
			listings.GET("/runs/:run_id", listingCtl.GetRun)
		}

		// marketplace 市场读写面
		mp := api.Group("/marketplace/:partner_id/:marketplace")
		{
			mp.GET("/offers", marketplaceCtl.ListOffers)
			mp.GET("/offers/:offer_id/status", marketplaceCtl.GetOfferStatus)
			mp.PUT("/offers/:offer_id/price", middleware.JWTAuth(), marketplaceCtl.UpdatePrice)
			mp.PUT("/offers/:offer_id/stock", middleware.JWTAuth(), marketplaceCtl.UpdateStock)
			mp.GET("/orders", marketplaceCtl.FetchOrders)
			mp.GET("/sales", marketplaceCtl.GetSalesStats)
		}

		// billing 计费
		billing := api.Group("/billing")
		{
			billing.GET("/:partner_id/status", billingCtl.GetStatus)
			billing.GET("/:partner_id/invoices", billingCtl.ListInvoices)
			billing.POST("/:partner_id/run", middleware.JWTAuth(), billingCtl.RunCycle)
			billing.POST("/:partner_id/payments", middleware.JWTAuth(), billingCtl.RegisterPayment)
		}
	}
}
