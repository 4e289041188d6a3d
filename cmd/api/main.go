package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/hearthside/hearthside-backend/internal/config"
	"github.com/hearthside/hearthside-backend/internal/handler"
	"github.com/hearthside/hearthside-backend/internal/middleware"
	"github.com/hearthside/hearthside-backend/internal/migration"
	"github.com/hearthside/hearthside-backend/internal/push"
	"github.com/hearthside/hearthside-backend/internal/repository"
	"github.com/hearthside/hearthside-backend/internal/routes"
	"github.com/hearthside/hearthside-backend/internal/service"
	"github.com/hearthside/hearthside-backend/internal/ws"
	pkgcache "github.com/hearthside/hearthside-backend/pkg/cache"
	pkges "github.com/hearthside/hearthside-backend/pkg/elasticsearch"
	"github.com/hearthside/hearthside-backend/pkg/jwt"
	pkglogger "github.com/hearthside/hearthside-backend/pkg/logger"
	pkgredis "github.com/hearthside/hearthside-backend/pkg/redis"
	pkgstorage "github.com/hearthside/hearthside-backend/pkg/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title           Hearthside Chat API
// @version         1.0
// @description     Family chat backend: rooms, messages, reactions and realtime fan-out
//
// @host            localhost:8080
// @BasePath        /api
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Authorization header using the Bearer scheme. Example: "Bearer {token}"

// getConfigPath returns config file path based on APP_ENV environment variable
func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	dotenvFiles := config.LoadDotEnv()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env)
	pkglogger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)

	configPath := getConfigPath()
	pkglogger.Info("Loading config from: %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config.LogResolved(cfg)

	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	pkglogger.Info("Connected to MySQL")
	if err := migration.Run(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	redisClient, err := pkgredis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
	)
	if err != nil {
		pkglogger.Warn("Failed to connect to Redis: %v (continuing without Redis)", err)
		redisClient = nil
	} else {
		pkglogger.Info("Connected to Redis")
	}

	var cacheService pkgcache.Service
	if redisClient != nil {
		cacheService = pkgcache.NewService(redisClient)
		pkglogger.Info("Cache service initialized")
	}

	var esClient *pkges.Client
	if cfg.Elasticsearch.Enabled && len(cfg.Elasticsearch.Addresses) > 0 {
		var esErr error
		esClient, esErr = pkges.NewClient(cfg.Elasticsearch.Addresses, cfg.Elasticsearch.Username, cfg.Elasticsearch.Password)
		if esErr != nil {
			pkglogger.Warn("Elasticsearch connection failed: %v (continuing without ES)", esErr)
			esClient = nil
		} else {
			pkglogger.Info("Connected to Elasticsearch")
		}
	}

	var s3Client *pkgstorage.S3Client
	if cfg.Storage.Enabled && cfg.Storage.Bucket != "" {
		var s3Err error
		s3Client, s3Err = pkgstorage.NewS3Client(pkgstorage.S3Config{
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			Bucket:          cfg.Storage.Bucket,
			CDNURL:          cfg.Storage.CDNURL,
			BasePath:        cfg.Storage.BasePath,
			ForcePathStyle:  cfg.Storage.ForcePathStyle,
		})
		if s3Err != nil {
			pkglogger.Warn("S3 storage init failed: %v (continuing without S3)", s3Err)
			s3Client = nil
		} else {
			pkglogger.Info("Connected to S3 storage")
		}
	}

	wsHub := ws.NewHub(redisClient)
	go wsHub.Run()

	pushClient := push.NewClient(
		cfg.Push.Endpoint,
		cfg.Push.APIKey,
		time.Duration(cfg.Push.TimeoutSeconds)*time.Second,
	)
	if pushClient.Enabled() {
		pkglogger.Info("Push gateway configured: %s", cfg.Push.Endpoint)
	}

	jwtManager := jwt.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTTL,
		cfg.JWT.RefreshTTL,
	)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID"},
		MaxAge:           86400,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(corsConfig))

	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "hearthside-backend",
			"time":    time.Now().Unix(),
		})
	})

	// Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Repositories
	familyRepo := repository.NewFamilyRepository(db)
	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	memberRepo := repository.NewRoomMemberRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	reactionRepo := repository.NewReactionRepository(db)

	// Services
	directorySvc := service.NewDirectoryService(familyRepo, cacheService)
	membershipSvc := service.NewMembershipService(memberRepo)
	roomSvc := service.NewRoomService(roomRepo, memberRepo, userRepo, membershipSvc, directorySvc, wsHub)
	messageSvc := service.NewMessageService(messageRepo, memberRepo, roomRepo, reactionRepo, membershipSvc, wsHub, pushClient, esClient)
	reactionSvc := service.NewReactionService(reactionRepo, messageRepo, memberRepo, membershipSvc, wsHub)

	// Handlers
	roomHandler := handler.NewRoomHandler(roomSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	reactionHandler := handler.NewReactionHandler(reactionSvc)
	uploadHandler := handler.NewUploadHandler(s3Client)
	wsHandler := handler.NewWSHandler(wsHub, joinOrigins(cfg.CORS.AllowedOrigins))

	routes.Setup(router, roomHandler, messageHandler, reactionHandler, uploadHandler, wsHandler, jwtManager, directorySvc)

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	pkglogger.Info("Server listening on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func joinOrigins(origins []string) string {
	result := ""
	for i, o := range origins {
		if i > 0 {
			result += ","
		}
		result += o
	}
	return result
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	logMode := gormlogger.Warn
	if cfg.IsDevelopment() {
		logMode = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.GetDSN()), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logMode),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)
	middleware.SetDBConnectionsActive(float64(cfg.Database.MaxOpenConns))

	return db, nil
}
