package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"core/internal/config"
	"core/internal/handler"
	"core/internal/repository"
	"core/internal/search"
	"core/internal/service"
	"core/internal/vectorindex"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	log.Printf("Recipe Search Engine")
	log.Printf("Version: %s", Version)
	log.Printf("Build Time: %s", BuildTime)
	log.Printf("Git Commit: %s", GitCommit)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	gin.SetMode(cfg.Server.GinMode)

	// Initialize database connection
	repo, err := repository.NewRecipeRepository(
		cfg.GetPostgreSQLDSN(),
		cfg.PostgreSQL.MaxConnections,
		cfg.PostgreSQL.MaxIdleConnections,
	)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()
	log.Println("Connected to PostgreSQL database")

	// Vector index client. Collection creation is idempotent; a failure here
	// is survivable because deterministic search works without the index.
	vecIndex := vectorindex.NewClient(vectorindex.Config{
		BaseURL:    cfg.VectorIndex.URL,
		Collection: cfg.VectorIndex.Collection,
		Dimension:  cfg.VectorIndex.Dimension,
		Timeout:    cfg.VectorIndex.Timeout,
	})
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := vecIndex.CreateCollection(ctx); err != nil {
			log.Printf("Warning: vector collection setup failed: %v", err)
		}
		cancel()
	}

	// Embedding providers: local service first, remote API as fallback.
	localEmbedder := service.NewLocalEmbedder(
		cfg.Embedding.LocalURL,
		cfg.Embedding.Model,
		cfg.Embedding.Dimension,
		cfg.Embedding.Timeout,
	)

	openaiClient := service.NewOpenAIClient(&cfg.OpenAI)
	if cfg.OpenAI.Enabled {
		log.Printf("OpenAI client initialized (chat: %s, embeddings: %s)", cfg.OpenAI.ChatModel, cfg.OpenAI.EmbeddingModel)
	} else {
		log.Println("Warning: OPENAI_API_KEY not set; classification and chat are disabled")
	}

	classifier := service.NewIntentClassifier(openaiClient)

	primary := search.NewSearcher(localEmbedder, vecIndex, repo, cfg.Search.Oversample)

	var fallback search.Executor
	if cfg.OpenAI.Enabled {
		remoteSearcher := search.NewSearcher(service.NewRemoteEmbedder(openaiClient), vecIndex, repo, cfg.Search.Oversample)
		fallback = service.NewAgentExecutor(openaiClient, remoteSearcher)
	}

	coordinator := search.NewCoordinator(classifier, primary, fallback, cfg.Search.DefaultLimit)

	composer := service.NewResponseComposer(openaiClient)
	sessions := service.NewSessionStore(cfg.Sessions.TTL, cfg.Sessions.MaxSessions, cfg.Sessions.MaxTurns)
	backfiller := service.NewBackfiller(repo, localEmbedder, vecIndex, cfg.Search.BackfillBatch, cfg.Search.BackfillConcurrent)

	log.Println("Services initialized")

	// Initialize handlers
	searchHandler := handler.NewSearchHandler(coordinator, repo)
	chatHandler := handler.NewChatHandler(coordinator, composer, sessions)
	recipeHandler := handler.NewRecipeHandler(repo)
	embeddingHandler := handler.NewEmbeddingHandler(backfiller)

	// Setup Gin router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.Server.AllowedOrigins, ",")
	corsConfig.AllowMethods = strings.Split(cfg.Server.AllowedMethods, ",")
	corsConfig.AllowHeaders = strings.Split(cfg.Server.AllowedHeaders, ",")
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":     "healthy",
			"service":    "recipe-search-engine",
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/search", searchHandler.Search)
		apiV1.POST("/chat", chatHandler.Chat)

		apiV1.GET("/recipes/:id", recipeHandler.Get)
		apiV1.POST("/recipes/:id/like", recipeHandler.Like)

		apiV1.POST("/embeddings/backfill", embeddingHandler.Backfill)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Printf("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
