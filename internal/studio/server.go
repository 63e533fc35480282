package studio

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/agent-studio/internal/pipeline"
	"github.com/kart-io/agent-studio/internal/studio/biz"
	"github.com/kart-io/agent-studio/internal/studio/handler"
	"github.com/kart-io/agent-studio/internal/studio/router"
	"github.com/kart-io/agent-studio/internal/studio/store"
	"github.com/kart-io/agent-studio/internal/vectorstore"
	localstore "github.com/kart-io/agent-studio/internal/vectorstore/local"
	milvusstore "github.com/kart-io/agent-studio/internal/vectorstore/milvus"
	"github.com/kart-io/agent-studio/pkg/app"
	milvuscomp "github.com/kart-io/agent-studio/pkg/component/milvus"
	"github.com/kart-io/agent-studio/pkg/llm"
	"github.com/kart-io/agent-studio/pkg/llm/resilience"
	redisopts "github.com/kart-io/agent-studio/pkg/options/redis"
	vsopts "github.com/kart-io/agent-studio/pkg/options/vectorstore"

	// Register LLM providers.
	_ "github.com/kart-io/agent-studio/pkg/llm/deepseek"
	_ "github.com/kart-io/agent-studio/pkg/llm/gemini"
	_ "github.com/kart-io/agent-studio/pkg/llm/huggingface"
	_ "github.com/kart-io/agent-studio/pkg/llm/ollama"
	_ "github.com/kart-io/agent-studio/pkg/llm/openai"
	_ "github.com/kart-io/agent-studio/pkg/llm/siliconflow"
)

// Run starts the agent studio server and blocks until shutdown.
func Run(opts *Options) error {
	printBanner(opts)

	// 1. 初始化日志
	opts.Log.AddInitialField("service.name", appName)
	opts.Log.AddInitialField("service.version", app.GetVersion())
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting agent studio...")

	// 2. 初始化向量存储
	vectorStore, milvusClient, err := newVectorStore(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	if milvusClient != nil {
		defer milvusClient.Close(context.Background())
	}
	logger.Infof("Vector store initialized: backend=%s", opts.VectorStore.Backend)

	// 3. 初始化 Redis（查询与 Embedding 缓存共用连接）
	var redisClient *goredis.Client
	if opts.Cache.Enabled {
		redisClient = newRedisClient(opts.Cache.Redis)
		defer redisClient.Close()
		logger.Infof("Redis client initialized: %s:%d", opts.Cache.Redis.Host, opts.Cache.Redis.Port)
	}

	// 4. 初始化 LLM 供应商
	rawEmbedder, err := llm.NewEmbeddingProvider(opts.Embedding.Provider, opts.Embedding.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	var embedder llm.EmbeddingProvider = resilience.NewResilientEmbeddingProvider(rawEmbedder, nil, nil)
	if redisClient != nil {
		embedder = llm.NewCachedEmbeddingProvider(embedder, redisClient, &llm.EmbeddingCacheConfig{
			Enabled: true,
			TTL:     opts.Cache.TTL,
		})
	}
	rawChat, err := llm.NewChatProvider(opts.Chat.Provider, opts.Chat.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	var chat llm.ChatProvider = resilience.NewResilientChatProvider(rawChat, nil, nil)
	logger.Infof("LLM providers initialized: embedding=%s chat=%s",
		opts.Embedding.Provider, opts.Chat.Provider)

	// 5. 初始化数据库
	factory, err := store.New(opts.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer factory.Close()
	logger.Infof("Database initialized: driver=%s", opts.Database.Driver)

	// 6. 初始化 Biz 层
	engine := pipeline.NewEngine(vectorStore, embedder, chat, pipeline.Config{
		MaxBuildAttempts: opts.Pipeline.MaxBuildAttempts,
		TopK:             opts.Pipeline.TopK,
		ContextTopK:      opts.Pipeline.ContextTopK,
	})

	var queryCache *biz.QueryCache
	if redisClient != nil {
		queryCache = biz.NewQueryCache(redisClient, &biz.QueryCacheConfig{
			Enabled:   opts.Cache.Enabled,
			TTL:       opts.Cache.TTL,
			KeyPrefix: opts.Cache.KeyPrefix,
		})
	}

	ragRuntime := biz.NewRAGRuntime(engine, queryCache)
	runtimes := biz.NewRuntimeFactory(chat, ragRuntime)
	agentService, err := biz.NewAgentService(factory, runtimes, ragRuntime, queryCache,
		opts.Pipeline.UploadDir, opts.Pipeline.IngestWorkers)
	if err != nil {
		return fmt.Errorf("failed to initialize agent service: %w", err)
	}
	defer agentService.Close()
	logger.Info("Agent service initialized")

	// 7. 初始化 Handler 层与路由
	gin.SetMode(opts.HTTP.Mode)
	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery())
	router.Register(ginEngine, handler.NewAgentHandler(agentService))

	// 8. 启动服务器
	srv := &http.Server{
		Addr:         opts.HTTP.Addr,
		Handler:      ginEngine,
		ReadTimeout:  opts.HTTP.ReadTimeout,
		WriteTimeout: opts.HTTP.WriteTimeout,
		IdleTimeout:  opts.HTTP.IdleTimeout,
	}
	return serve(srv, opts.HTTP.ShutdownTimeout)
}

// serve runs the HTTP server until SIGINT/SIGTERM, then shuts down gracefully.
func serve(srv *http.Server, shutdownTimeout time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down agent studio...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Agent studio stopped")
	return nil
}

// newVectorStore builds the configured vector store backend. The returned
// milvus client is non-nil only for the milvus backend; the caller owns it.
func newVectorStore(opts *Options) (vectorstore.Store, *milvuscomp.Client, error) {
	switch opts.VectorStore.Backend {
	case vsopts.BackendMilvus:
		client, err := milvuscomp.New(opts.Milvus)
		if err != nil {
			return nil, nil, err
		}
		return milvusstore.New(client), client, nil
	default:
		s, err := localstore.New(opts.VectorStore.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	}
}

func newRedisClient(o *redisopts.Options) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:         fmt.Sprintf("%s:%d", o.Host, o.Port),
		Password:     o.Password,
		DB:           o.Database,
		MaxRetries:   o.MaxRetries,
		PoolSize:     o.PoolSize,
		MinIdleConns: o.MinIdleConns,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  o.ReadTimeout,
		WriteTimeout: o.WriteTimeout,
		PoolTimeout:  o.PoolTimeout,
	})
}
