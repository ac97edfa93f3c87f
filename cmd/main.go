package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"

	"edgeinsight-backend/config"
	_ "edgeinsight-backend/docs"
	"edgeinsight-backend/internal/cache"
	"edgeinsight-backend/internal/controller"
	"edgeinsight-backend/internal/elasticsearch"
	"edgeinsight-backend/internal/kafka"
	"edgeinsight-backend/internal/parser"
	"edgeinsight-backend/internal/scheduler"
	"edgeinsight-backend/internal/service"
	"edgeinsight-backend/internal/store"
)

// @title           EdgeInsight API
// @version         1.0
// @description     Upload a table, ask questions about it in Chinese and get answers, highlights and chart suggestions, from the Qwen model when a key is configured and from the local rule engine otherwise.

// @contact.name   EdgeInsight Team

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @schemes   http https

// @tag.name         analysis
// @tag.description  Remote analysis and chat

// @tag.name         sessions
// @tag.description  Dataset sessions and the local question engine

// @tag.name         charts
// @tag.description  Chart specs of a session

// @tag.name         kv
// @tag.description  Session data store

// @tag.name         cache
// @tag.description  Analysis answer cache

// @tag.name         history
// @tag.description  Archived answers

// @tag.name         health
// @tag.description  API health check operations

// @securityDefinitions.apikey ApiKey
// @in header
// @name X-API-Key
// @description Optional Qwen API key overriding the server key.

func main() {
	var wg sync.WaitGroup

	app := fx.New(
		// Core Dependencies
		fx.Provide(
			config.NewConfig,
		),
		// Infrastructure Dependencies
		fx.Provide(
			NewGinEngine,
			store.ProvideKV,
			store.ProvideTTLPolicy,
			parser.NewDatasetParser,
			cache.NewAnalysisCache,
			kafka.NewAnswerProducer,
			kafka.NewAnswerConsumer,
			elasticsearch.NewElasticAnswerStore,
			elasticsearch.NewElasticsearchHistoryRepository,
		),
		// Services
		fx.Provide(
			service.NewQwenLLMService,
			service.NewSessionService,
			service.NewKVService,
			service.NewArchiveService,
			service.NewArchiveConsumerService,
			service.NewHistoryService,
			service.NewAnalysisService,
		),
		// Controllers
		fx.Provide(
			controller.NewEdgeController,
			controller.NewKVController,
			controller.NewSessionController,
			controller.NewHistoryController,
		),
		fx.Invoke(RegisterAPIRoutes,
			RegisterScheduler,
			func(lc fx.Lifecycle, cfg *config.Config, consumerService service.ArchiveConsumerService) {
				if !cfg.Archive.Enabled {
					log.Info().Msg("Answer archive disabled, consumer not started")
					return
				}
				startArchiveConsumer(lc, &wg, consumerService)
			},
		),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}
	<-app.Done()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()
	log.Info().Msg("Shutting down application...")
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown due to error or timeout")
	}

	// The archive consumer may still be committing its last batch.
	log.Info().Msg("Waiting for background goroutines to finish...")
	wg.Wait()
	log.Info().Msg("All background processes finished. Exiting.")
}

func NewGinEngine(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", controller.APIKeyHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func RegisterAPIRoutes(
	lifecycle fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	edgeController *controller.EdgeController,
	kvController *controller.KVController,
	sessionController *controller.SessionController,
	historyController *controller.HistoryController,
) {
	controller.RegisterEdgeRoutes(router, edgeController)
	controller.RegisterKVRoutes(router, kvController)
	controller.RegisterSessionRoutes(router, sessionController)
	controller.RegisterHistoryRoutes(router, historyController)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Starting HTTP server on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("HTTP server ListenAndServe error")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Shutting down HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}

// --- Invoker Functions ---

func RegisterScheduler(lc fx.Lifecycle, cfg *config.Config, kv store.KV, archiveSvc service.ArchiveService) error {
	_, err := scheduler.NewScheduler(lc, cfg, kv, archiveSvc)
	return err
}

// startArchiveConsumer runs the consumer loop until the app stops.
func startArchiveConsumer(lc fx.Lifecycle, wg *sync.WaitGroup, consumerService service.ArchiveConsumerService) {
	wg.Add(1)
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info().Msg("Starting Archive Consumer goroutine")
			go consumerService.Run(ctx, wg)
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			log.Info().Msg("Signaling Archive Consumer goroutine to stop...")
			cancel()
			return nil
		},
	})
}
