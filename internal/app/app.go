package app

import (
	"context"
	"interview_bot_backend/internal/config"
	"interview_bot_backend/internal/controller"
	"interview_bot_backend/internal/repository"
	"interview_bot_backend/internal/service"
	"interview_bot_backend/internal/util"
	"interview_bot_backend/pkg/configwatcher"
	"interview_bot_backend/pkg/database"
	"interview_bot_backend/pkg/logger"
	"interview_bot_backend/pkg/monitoring"
	"interview_bot_backend/pkg/security"
	"interview_bot_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracerProvider  *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	session      *repository.SessionRepository
	progress     *repository.LevelProgressRepository
	submission   *repository.SubmissionRepository
	questionBank *repository.QuestionBankRepository
}

type services struct {
	auth         *service.AuthService
	storage      *service.StorageService
	ai           *service.AIService
	similarity   *service.SimilarityService
	judge        *service.JudgeService
	interview    *service.InterviewService
	speech       *service.SpeechService
	questionBank *service.QuestionBankService
	webhook      *service.WebhookService
}

type controllers struct {
	auth      *controller.AuthController
	interview *controller.InterviewController
	admin     *controller.AdminController
	webhook   *controller.WebhookController
	health    *controller.HealthController
}

// RegisterConfigCallback 配置热更新时依次回调
func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	bankRepo, err := repository.NewQuestionBankRepository(cfg.Evaluation.QuestionBankPath)
	if err != nil {
		logger.Log.Fatal("Failed to load question bank", zap.Error(err))
	}

	return &repositories{
		user:         repository.NewUserRepository(db),
		session:      repository.NewSessionRepository(rdb),
		progress:     repository.NewLevelProgressRepository(db),
		submission:   repository.NewSubmissionRepository(db),
		questionBank: bankRepo,
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.ai = service.NewAIService(cfg.AI)
	s.similarity = service.NewSimilarityService(cfg.AI)
	s.judge = service.NewJudgeService(s.similarity, cfg.Evaluation)
	s.interview = service.NewInterviewService(
		repos.session,
		repos.progress,
		repos.questionBank,
		s.ai,
		s.judge,
		cfg.Evaluation,
		logger.Log,
	)
	s.speech = service.NewSpeechService(cfg.AI, cfg.Speech, s.storage)
	// 语音作答依赖本机ffmpeg，启动时探测一次
	if _, err := util.GetFFmpegVersion(); err != nil {
		logger.Log.Warn("ffmpeg not available, audio answers will fail until it is installed", zap.Error(err))
	}
	s.questionBank = service.NewQuestionBankService(repos.questionBank, logger.Log)
	s.webhook = service.NewWebhookService(repos.submission, logger.Log)

	// 判题阈值随配置文件热更新
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.judge.SetThresholds(newCfg.Evaluation.Threshold, newCfg.Evaluation.FuzzyThreshold)
		logger.Log.Info("evaluation thresholds reloaded",
			zap.Float64("threshold", newCfg.Evaluation.Threshold),
			zap.Int("fuzzyThreshold", newCfg.Evaluation.FuzzyThreshold))
	})

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.auth),
		interview: controller.NewInterviewController(s.interview, s.speech),
		admin:     controller.NewAdminController(s.questionBank),
		webhook:   controller.NewWebhookController(s.webhook),
		health:    controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// watchConfig 后台监听配置文件，变更后把新配置推给注册的回调
func (a *App) watchConfig() {
	configFile := filepath.Join("configs", "config.yaml")
	go configwatcher.WatchConfig(configFile, func(cfg *config.Config) {
		for _, callback := range a.configCallbacks {
			callback(cfg)
		}
	})
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	migrate := cfg.Server.Mode != "release" || cfg.ForceMigrate
	db, err := database.InitDB(&cfg.Database, migrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	if cfg.MigrateOnly {
		return app
	}

	repos := app.initRepositories(db, rdb, cfg)
	services := app.initServices(repos, cfg)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("interview-bot", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerProvider = tp
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.watchConfig()

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}
