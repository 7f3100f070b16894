// @title           Document RAG API
// @version         1.0
// @description     This API handles document ingestion and retrieval augmented question answering
// @termsOfService  http://swagger.io/terms/

// @contact.name    me lol
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/config"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/data/store"
	jobmodel "github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/jobModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/handlers"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/job"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/answer"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/chunker"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/embedding"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/embedding/googleEmbedding"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/embedding/openaiEmbedding"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/ingest"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/llm"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/llm/gemini"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/llm/openaiLLM"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/registry"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/retrieval"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/session"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/vectorDB"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/vectorDB/localDB"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/vectorDB/qdrantDB"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/server"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/worker"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service and job store
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		JobStore:          jobStoreOrFallback(serviceContext, logger),
	}
	logger.Info("Starting job service")
	service := job.InitJobService(serviceConfig)

	sessionStore := sessionStoreOrFallback(serviceContext, logger)

	vectorStore := buildVectorStore(serviceContext, logger)
	if vectorStore == nil {
		logger.Error("Vector store failed to initialize. Shutting down.")
		return
	}

	reg := registry.NewRegistry(config.DataDir)
	if err := reg.Load(); err != nil {
		logger.Error("Failed to load document registry. Shutting down.", "error", err)
		return
	}

	embeddingService, llmProvider, modelName := buildProviders(serviceContext, logger)
	if embeddingService == nil {
		logger.Error("Embedding service failed to initialize. Shutting down.")
		return
	}
	if llmProvider == nil {
		logger.Warn("LLM provider unavailable, answers degrade to keyword fallback")
	}

	chunkerInst, err := chunker.New(config.ChunkSize, config.ChunkOverlap)
	if err != nil {
		logger.Error("Invalid chunking policy. Shutting down.", "error", err)
		return
	}

	pipeline := ingest.NewPipeline(chunkerInst, embeddingService, vectorStore, reg)
	retriever := retrieval.NewEngine(embeddingService, vectorStore)
	generator := answer.NewGenerator(reg, llmProvider, modelName)

	// the answer cache rides on qdrant, the local index has no collection
	// to put it in
	var answerCache rag.AnswerCache
	if holder, ok := vectorStore.(*qdrantDB.ClientHolder); ok {
		answerCache = holder
	}

	ragService := rag.NewService(vectorStore, embeddingService, reg, sessionStore, pipeline, retriever, generator, answerCache)

	handlers.InitJobHandler(service, ragService)

	//init worker pool
	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
		PersistState:     ragService.Persist,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}

func jobStoreOrFallback(ctx context.Context, logger *logger_i.Logger) jobmodel.JobStore {
	if redisStore := store.GetRedisJobStore(ctx); redisStore != nil {
		return redisStore
	}
	logger.Error("Redis job store is offline, using in-memory store")
	return store.InitInMemoryJobStore()
}

func sessionStoreOrFallback(ctx context.Context, logger *logger_i.Logger) session.Store {
	if redisStore := store.GetRedisSessionStore(ctx); redisStore != nil {
		return redisStore
	}
	logger.Error("Redis session store is offline, using in-memory store")
	return session.NewMemoryStore()
}

// buildVectorStore picks the index backend: the local file-backed index by
// default, qdrant when VECTOR_BACKEND=qdrant.
func buildVectorStore(ctx context.Context, logger *logger_i.Logger) vectorDB.DataProcessor {
	backend := config.GetEnv("VECTOR_BACKEND", "local")

	if backend == "qdrant" {
		client := qdrantDB.GetQdrantClient(ctx)
		if client == nil {
			logger.Error("Qdrant is unreachable")
			return nil
		}
		return client
	}

	local, err := localDB.NewStore(config.VectorStorePath, int(config.EmbeddingDimension), config.CompactionTombstoneRatio)
	if err != nil {
		logger.Error("Failed to create local vector store", "error", err)
		return nil
	}
	if err := local.Load(); err != nil {
		logger.Error("Failed to load persisted vector index", "error", err)
		return nil
	}
	return local
}

// buildProviders wires the embedding and generation clients for the
// configured provider. LLM failures are tolerated, embedding failures
// are not.
func buildProviders(ctx context.Context, logger *logger_i.Logger) (embedding.Embedder, llm.Provider, string) {
	provider := config.GetEnv("LLM_PROVIDER", "gemini")

	if provider == "openai" {
		apiKey := config.GetEnv("OPENAI_API_KEY", "")
		embedder := openaiEmbedding.GetOpenAIEmbeddingClient(config.OpenAIEmbeddingModel, apiKey)
		llmClient := openaiLLM.GetOpenAIClient(config.OpenAIModelName, apiKey)
		return embedder, llmClient, config.OpenAIModelName
	}

	apiKey := config.GetEnv("GEMINI_API_KEY", "")
	embedder := googleEmbedding.GetGoogleEmbeddingClient(ctx, config.GoogleEmbeddingModel, apiKey)
	llmClient := gemini.GetGeminiClient(ctx, config.GeminiModelName, apiKey)
	logger.Debug("Using gemini provider")
	return embedder, llmClient, config.GeminiModelName
}
