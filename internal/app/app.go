package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizgen_gateway/internal/config"
	"quizgen_gateway/internal/controller"
	"quizgen_gateway/internal/repository"
	"quizgen_gateway/internal/service"
	"quizgen_gateway/pkg/configwatcher"
	"quizgen_gateway/pkg/database"
	"quizgen_gateway/pkg/logger"
	"quizgen_gateway/pkg/monitoring"
	"quizgen_gateway/pkg/security"
	"quizgen_gateway/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	repos           *repositories
	services        *services
	cron            *cron.Cron
	tracer          *sdktrace.TracerProvider
	ctx             context.Context
	cancel          context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	sessions       repository.SessionRepository
	memorySessions *repository.MemorySessionRepository
	results        service.ResultHistory
}

type services struct {
	api      *service.QuizAPIClient
	storage  *service.StorageService
	creation *service.QuizCreationService
	jobs     *service.CreationJobService
	quiz     *service.QuizService
	exam     *service.ExamService
	result   *service.ResultService
	identity *service.IdentityService
}

type controllers struct {
	health   *controller.HealthController
	session  *controller.SessionController
	subject  *controller.SubjectController
	quiz     *controller.QuizController
	exam     *controller.ExamController
	result   *controller.ResultController
	material *controller.MaterialController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(cfg *config.Config) *repositories {
	r := &repositories{}

	if cfg.Exam.Store == "redis" {
		r.sessions = repository.NewRedisSessionRepository(a.Redis, cfg.Exam.SessionTTL())
	} else {
		r.memorySessions = repository.NewMemorySessionRepository(cfg.Exam.SessionTTL())
		r.sessions = r.memorySessions
	}

	// 未启用数据库时不记录本地成绩历史
	if a.DB != nil {
		r.results = repository.NewResultRepository(a.DB)
	}
	return r
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	exposeDetail := !cfg.Server.IsRelease()

	s.api = service.NewQuizAPIClient(cfg.API)
	s.storage = service.NewStorageService(cfg)
	s.identity = service.NewIdentityService(s.api, cfg.API.IdentityCacheTTL())
	s.creation = service.NewQuizCreationService(s.api, exposeDetail)
	s.jobs = service.NewCreationJobService(s.creation, s.api, s.storage, service.PollerSettingsFromConfig(cfg.Polling), exposeDetail)
	s.quiz = service.NewQuizService(s.api, s.creation)
	s.result = service.NewResultService(s.api, repos.results)
	s.exam = service.NewExamService(
		s.api,
		repos.sessions,
		service.NewLocalScorer(),
		service.NewRemoteScorer(s.api),
		cfg.Exam.DefaultScorer,
		s.result,
		cfg.Exam.PageSize,
	)

	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		health:   controller.NewHealthController(a.DB, a.Redis),
		session:  controller.NewSessionController(s.identity),
		subject:  controller.NewSubjectController(s.quiz),
		quiz:     controller.NewQuizController(s.quiz, s.creation, s.jobs),
		exam:     controller.NewExamController(s.exam),
		result:   controller.NewResultController(s.result),
		material: controller.NewMaterialController(s.storage),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window()))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 定时清理已结束的生成任务、过期会话与身份缓存
func (a *App) startBackgroundTasks(cfg *config.Config) error {
	a.cron = cron.New()
	_, err := a.cron.AddFunc(cfg.Jobs.JanitorSchedule, func() {
		jobs := a.services.jobs.Evict(cfg.Jobs.Retention())
		sessions := 0
		if a.repos.memorySessions != nil {
			sessions = a.repos.memorySessions.EvictExpired()
		}
		identities := a.services.identity.EvictExpired()
		if jobs+sessions+identities > 0 {
			logger.Log.Debug("Janitor evicted entries",
				zap.Int("jobs", jobs),
				zap.Int("sessions", sessions),
				zap.Int("identities", identities))
		}
	})
	if err != nil {
		return err
	}
	a.cron.Start()

	if cfg.File != "" {
		go func() {
			if err := configwatcher.WatchConfig(a.ctx, cfg.File, a.applyConfig); err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}
	return nil
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	if cfg.Server.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.Database.Enabled {
		db, err := database.InitDB(&cfg.Database, !cfg.Server.IsRelease())
		if err != nil {
			logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		}
		app.DB = db
	}

	if cfg.Exam.Store == "redis" {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
		app.Redis = rdb
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.repos = app.initRepositories(cfg)
	app.services = app.initServices(app.repos, cfg)
	controllers := app.initControllers(app.services)

	// 轮询参数热加载
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		app.services.jobs.UpdateSettings(service.PollerSettingsFromConfig(newCfg.Polling))
		logger.Log.Info("Polling settings updated",
			zap.Duration("interval", newCfg.Polling.Interval()),
			zap.Duration("maxWait", newCfg.Polling.MaxWait()),
			zap.Int("maxChecks", newCfg.Polling.MaxChecks))
	})

	// 监控初始化
	monitoring.Init()

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers)

	if err := app.startBackgroundTasks(cfg); err != nil {
		logger.Log.Fatal("Failed to schedule janitor", zap.Error(err))
	}

	return app
}

// Migrate 只执行数据库迁移
func Migrate(cfg *config.Config) error {
	logger.InitLogger(cfg)
	if !cfg.Database.Enabled {
		return errors.New("database is not enabled")
	}
	db, err := database.InitDB(&cfg.Database, true)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	// 停止后台任务与生成 job
	a.cancel()
	<-a.cron.Stop().Done()
	if err := a.services.jobs.Shutdown(ctx); err != nil {
		logger.Log.Warn("Creation jobs did not stop in time", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
	logger.Log.Sync()
}
