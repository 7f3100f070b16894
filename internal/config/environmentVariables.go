package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	NoAuthBypass = true //flip to false once a real token is provisioned
	AuthToken    = ""

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//text chunking
	ChunkSize    = 800
	ChunkOverlap = 150

	//embeddings
	EmbeddingDimension   int32 = 384
	EmbeddingBatchSize         = 32
	GeminiModelName            = "gemini-2.5-flash-lite-preview-09-2025"
	GoogleEmbeddingModel       = "gemini-embedding-001"
	OpenAIModelName            = "gpt-4o-mini"
	OpenAIEmbeddingModel       = "text-embedding-3-small"

	//retrieval
	TopKResults         = 5
	SimilarityThreshold = 0.7
	MaxContextLength    = 4000

	//semantic answer cache
	CacheSimilarityCutoff float32 = 0.95

	//vector index
	CompactionTombstoneRatio = 0.30
	VectorStorePath          = "./vector_store"
	QdrantCollectionName     = "document-chunks"
	QdrantHost               = "localhost"
	QdrantGrpcPort           = 6334
	QdrantUseTLS             = false
	QdrantPoolSize           = 1

	//document storage
	MaxUploadSize = 32 << 20 //32mb
	DataDir       = "./documents"

	//llm
	ModelTemperature float32 = 0.1
	LLMMaxTokens     int32   = 1000
	ModelContext             = "You are a helpful AI assistant that answers questions based on provided document context. Answer using ONLY the information in the context. If the context doesn't contain enough information, say so. Do not make up information."

	//external call timeouts
	EmbeddingCallTimeout = 30 * time.Second
	LLMCallTimeout       = 30 * time.Second
	IngestJobTimeout     = 5 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 30 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost     = "127.0.0.1"
	redisPort     = "6379"
	RedisAddr     = redisHost + ":" + redisPort
	RedisPassword = ""

	//redis has 16 DB we can use
	RedisJobStore     = 0
	RedisSessionStore = 2

	//redis timeouts
	RedisJobStoreTTL = 24 * time.Hour
)

// GetEnv returns the env value or the given fallback.
func GetEnv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetEnvInt parses an integer env var, falling back on absence or parse failure.
func GetEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// GetEnvFloat parses a float env var, falling back on absence or parse failure.
func GetEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
