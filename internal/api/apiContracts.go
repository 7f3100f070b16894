package api

import (
	"time"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/answer"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/vectorDB"
)

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type IngestResult struct {
	DocumentId    string `json:"document_id"`
	Filename      string `json:"filename"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

type Result struct {
	Status string        `json:"status"`
	Ingest *IngestResult `json:"ingest,omitempty"`
}

type InitJobResponse struct {
	Id         string `json:"id"`
	DocumentId string `json:"document_id"`
	StatusURL  string `json:"status_url"`
}

type AskResponse struct {
	Question string          `json:"question"`
	Answer   string          `json:"answer"`
	Sources  []answer.Source `json:"sources"`
	Meta     AskMeta         `json:"meta"`
}

type AskMeta struct {
	Mode             string `json:"mode" example:"llm"`
	Model            string `json:"model,omitempty" example:"gpt-4o-mini"`
	ScopeDocumentId  string `json:"scope_document_id,omitempty"`
	ContextLength    int    `json:"context_length"`
	GenerationTimeMs int64  `json:"generation_time_ms"`
}

type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Count     int                `json:"count"`
}

type DocumentResponse struct {
	Id            string    `json:"document_id"`
	Filename      string    `json:"filename"`
	FileSize      int64     `json:"file_size"`
	FileType      string    `json:"file_type" example:"pdf"`
	UploadTime    time.Time `json:"upload_time"`
	ProcessedTime time.Time `json:"processed_time,omitempty"`
	TextLength    int       `json:"text_length"`
	ChunkCount    int       `json:"chunk_count"`
	Status        string    `json:"status" example:"indexed"`
}

type DocumentContentResponse struct {
	Id      string `json:"document_id"`
	Content string `json:"content"`
}

type DeleteDocumentResponse struct {
	Id             string `json:"document_id"`
	VectorsRemoved int    `json:"vectors_removed"`
}

type ActiveDocumentResponse struct {
	DocumentId string `json:"document_id"`
}

type StatsResponse struct {
	Documents   int            `json:"documents"`
	VectorStore vectorDB.Stats `json:"vector_store"`
}

type ErrorResponse struct {
	Error string `json:"error" example:"document not found"`
}

// requests---------------------

type AskRequest struct {
	Question   string `json:"question" validate:"required"`
	DocumentId string `json:"document_id,omitempty"`
}

type ActiveDocumentRequest struct {
	DocumentId string `json:"document_id" validate:"required"`
}
