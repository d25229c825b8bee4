package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"uzum_erp_v1_202608/internal/controller"
	"uzum_erp_v1_202608/internal/marketplace"
	"uzum_erp_v1_202608/internal/middleware"
	"uzum_erp_v1_202608/internal/model"
	"uzum_erp_v1_202608/internal/pipeline"
	"uzum_erp_v1_202608/internal/repository"
	"uzum_erp_v1_202608/internal/router"
	"uzum_erp_v1_202608/internal/service"
	"uzum_erp_v1_202608/internal/task"
	"uzum_erp_v1_202608/pkg/database"
)

func main() {
	// 0. 加载 .env（容器环境下没有也无妨）
	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用进程环境变量")
	}

	// 1. 初始化数据库
	db := initDatabase()

	// 2. 初始化依赖
	deps := initDependencies(db)

	// 3. 启动定时任务
	initTasks(deps)

	// 4. 初始化路由
	r := gin.Default()
	router.InitRoutes(r,
		deps.Controllers.Auth,
		deps.Controllers.Partner,
		deps.Controllers.Credential,
		deps.Controllers.Listing,
		deps.Controllers.Marketplace,
		deps.Controllers.Billing,
	)

	// 5. 启动服务
	startServer(r)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Controllers *Controllers
}

// Repositories 仓库集合
type Repositories struct {
	Partner    repository.PartnerRepository
	Credential repository.CredentialRepository
	Invoice    repository.InvoiceRepository
	Run        repository.PipelineRunRepository
}

// Services 服务集合
type Services struct {
	Fees         *service.FeeTableService
	IKPU         *service.IKPUService
	AI           *service.AIService
	Storage      *service.StorageService
	Infographics *service.InfographicService
	Pricing      *service.PricingService
	Vault        *service.VaultService
	Billing      *service.BillingService
	Adapters     *marketplace.Registry
	Orchestrator *pipeline.Orchestrator
}

// Controllers 控制器集合
type Controllers struct {
	Auth        *controller.AuthController
	Partner     *controller.PartnerController
	Credential  *controller.CredentialController
	Listing     *controller.ListingController
	Marketplace *controller.MarketplaceController
	Billing     *controller.BillingController
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	dsn := getEnv("DATABASE_URL",
		"host=localhost user=postgres password=postgres dbname=uzum_erp port=5432 sslmode=disable")
	return database.InitDB(dsn,
		&model.Partner{},
		&model.MarketplaceCredential{},
		&model.Invoice{},
		&model.PipelineRun{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Partner:    repository.NewPartnerRepository(db),
		Credential: repository.NewCredentialRepository(db),
		Invoice:    repository.NewInvoiceRepository(db),
		Run:        repository.NewPipelineRunRepository(db),
	}

	// -------- JWT --------
	if secret := getEnv("JWT_SECRET", ""); secret != "" {
		cfg := middleware.DefaultJWTConfig()
		cfg.SecretKey = secret
		middleware.SetJWTConfig(cfg)
	}

	// -------- 基础服务 --------
	gate := middleware.NewProviderGate(middleware.DefaultGateConfig(), nil)
	fees := service.NewFeeTableService()
	ikpuSvc := service.NewIKPUService(&service.IKPUConfig{
		BaseURL: getEnv("TASNIF_BASE_URL", "https://tasnif.soliq.uz"),
	})

	aiSvc := service.NewAIService(&service.AIConfig{
		ApiKey: getEnv("LLM_API_KEY", ""),
	}, fees, gate)

	storageSvc := initStorageService()

	// -------- 业务服务 --------
	services := &Services{
		Fees:    fees,
		IKPU:    ikpuSvc,
		AI:      aiSvc,
		Storage: storageSvc,
	}
	services.Infographics = service.NewInfographicService(aiSvc, storageSvc, gate)
	services.Pricing = service.NewPricingService(fees, aiSvc)

	vault, err := service.NewVaultService(getEnv("ENCRYPTION_KEY", ""), repos.Credential)
	if err != nil {
		log.Fatalf("凭证保险柜初始化失败: %v", err)
	}
	services.Vault = vault

	// 浏览器引擎由部署方注入；未配置时 uzum 写通道直接报不支持
	services.Adapters = marketplace.NewRegistry(vault, nil)

	// 单租户部署兜底：没有伙伴级 yandex 凭证时用进程级密钥
	if apiKey := getEnv("YANDEX_API_KEY", ""); apiKey != "" {
		services.Adapters.SetDefaultYandexCredential(&service.Credential{
			Marketplace: model.MarketplaceYandex,
			APIKey:      apiKey,
			CampaignID:  getEnv("YANDEX_CAMPAIGN_ID", ""),
			BusinessID:  getEnv("YANDEX_BUSINESS_ID", ""),
			IsActive:    true,
			Decrypted:   true,
		})
	}

	services.Billing = service.NewBillingService(
		loadBillingConfig(), repos.Partner, repos.Invoice, services.Adapters)

	services.Orchestrator = pipeline.NewOrchestrator(
		aiSvc, ikpuSvc, services.Pricing, services.Infographics,
		services.Billing, services.Adapters, repos.Run)

	// -------- Controller 层 --------
	controllers := &Controllers{
		Auth: controller.NewAuthController(
			getEnv("OPERATOR_ID", "admin"),
			getEnv("OPERATOR_PASSWORD", ""),
		),
		Partner:     controller.NewPartnerController(repos.Partner),
		Credential:  controller.NewCredentialController(vault, services.Adapters),
		Listing:     controller.NewListingController(services.Orchestrator, repos.Run),
		Marketplace: controller.NewMarketplaceController(services.Adapters),
		Billing:     controller.NewBillingController(services.Billing, repos.Partner, repos.Invoice),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    services,
		Controllers: controllers,
	}
}

// initStorageService 初始化图床服务
func initStorageService() *service.StorageService {
	storageSvc, err := service.NewStorageService(&service.StorageConfig{
		Provider:  getEnv("STORAGE_PROVIDER", "imgbb"),
		ImgbbKey:  getEnv("IMGBB_API_KEY", ""),
		Bucket:    getEnv("AWS_BUCKET", ""),
		Region:    getEnv("AWS_REGION", ""),
		AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		CDNDomain: getEnv("AWS_CDN_DOMAIN", ""),
		BasePath:  getEnv("STORAGE_BASE_PATH", "uzum-erp"),
		LocalDir:  getEnv("STORAGE_LOCAL_DIR", "./uploads"),
	})
	if err != nil {
		log.Printf("警告: 存储服务初始化失败: %v", err)
		return nil
	}
	return storageSvc
}

// loadBillingConfig 计费参数（环境变量覆盖默认值）
func loadBillingConfig() *service.BillingConfig {
	cfg := service.DefaultBillingConfig()
	if v := getEnvFloat("MONTHLY_FEE_USD"); v > 0 {
		cfg.MonthlyFeeUSD = v
	}
	if v := getEnvFloat("SETUP_FEE_USD"); v > 0 {
		cfg.SetupFeeUSD = v
	}
	if v := getEnvFloat("REVENUE_SHARE_PERCENT"); v > 0 {
		cfg.RevenueSharePercent = v
	}
	if v := getEnvFloat("USD_TO_UZS"); v > 0 {
		cfg.USDToUZS = v
	}
	if v, err := strconv.Atoi(getEnv("GRACE_DAYS", "")); err == nil && v > 0 {
		cfg.GraceDays = v
	}
	if v, err := strconv.Atoi(getEnv("BLOCK_DURATION_DAYS", "")); err == nil && v > 0 {
		cfg.BlockDurationDays = v
	}
	return cfg
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(deps *Dependencies) {
	billingTask := task.NewBillingTask(deps.Services.Billing, deps.Repos.Partner, deps.Repos.Invoice)
	billingTask.Start()

	cleanupTask := task.NewCleanupTask(deps.Repos.Run)
	cleanupTask.Start()

	log.Println("定时任务已启动")
}

// ==================== 服务启动 ====================

// startServer 启动服务并等待退出信号
func startServer(r *gin.Engine) {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Printf("服务启动于 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("收到退出信号，开始优雅关停...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("关停超时: %v", err)
	}
	log.Println("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return 0
	}
	return v
}
