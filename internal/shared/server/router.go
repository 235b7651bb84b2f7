package server

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"contract-backend/internal/analysis"
	"contract-backend/internal/chat"
	"contract-backend/internal/documents"
	"contract-backend/internal/llm"
	llmanthropic "contract-backend/internal/llm/anthropic"
	llmopenai "contract-backend/internal/llm/openai"
	"contract-backend/internal/shared/config"
	"contract-backend/internal/shared/metrics"
	"contract-backend/internal/shared/server/middleware"
	"contract-backend/internal/shared/server/respond"
	"contract-backend/internal/shared/storage/db"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	// Dependencies
	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		dbConn, err := db.Connect(context.Background(), cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			log.Printf("failed to connect database, falling back to memory: %v", err)
		} else {
			if err := db.RunMigrations(context.Background(), dbConn); err != nil {
				log.Printf("failed to run migrations, falling back to memory: %v", err)
				dbConn.Close()
				dbConn = nil
			}
		}
		sqlDB = dbConn
	}

	var locker analysis.DocLocker
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Printf("invalid REDIS_URL, using in-process analysis lock: %v", err)
		} else {
			locker = analysis.NewRedisLocker(redis.NewClient(redisOpts))
		}
	}
	if locker == nil {
		locker = analysis.NewMemoryLocker()
	}

	llmClient := newLLMClient(cfg)

	var docRepo documents.Repo
	var chatRepo chat.Repo
	if sqlDB != nil {
		docRepo = &documents.PGRepo{DB: sqlDB}
		chatRepo = &chat.PGRepo{DB: sqlDB}
	} else {
		docRepo = documents.NewMemoryRepo()
		chatRepo = chat.NewMemoryRepo()
	}

	analysisSvc := analysis.NewService(docRepo, llmClient, locker, cfg.AnalysisTimeout)
	docSvc := documents.NewService(docRepo, analysisSvc, cfg.MaxUploadBytes)
	chatSvc := chat.NewService(docRepo, chatRepo, llmClient)

	docHandler := documents.NewHandler(docSvc)
	analysisHandler := analysis.NewHandler(analysisSvc)
	chatHandler := chat.NewHandler(chatSvc)

	r.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTSecret))
	docHandler.RegisterRoutes(api)
	analysisHandler.RegisterRoutes(api)
	chatHandler.RegisterRoutes(api)

	return r
}

func newLLMClient(cfg config.Config) llm.Client {
	switch cfg.LLMProvider {
	case "anthropic":
		return llmanthropic.New(os.Getenv("ANTHROPIC_API_KEY"), cfg.LLMModel)
	default:
		return llmopenai.New(os.Getenv("OPENAI_API_KEY"), cfg.LLMModel)
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
