package adapter

import (
	"fmt"
	"time"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/api"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/docModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/jobModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/answer"
)

func ToAskResponse(question string, result rag.AskResult) api.AskResponse {
	sources := result.Answer.Sources
	if sources == nil {
		sources = []answer.Source{}
	}
	return api.AskResponse{
		Question: question,
		Answer:   result.Answer.Text,
		Sources:  sources,
		Meta: api.AskMeta{
			Mode:             string(result.Answer.Mode),
			Model:            result.Answer.Model,
			ScopeDocumentId:  result.ScopeDocumentId,
			ContextLength:    result.ContextLength,
			GenerationTimeMs: result.Elapsed.Milliseconds(),
		},
	}
}

func ToInitJobResponse(jobId string, documentId string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:         jobId,
		DocumentId: documentId,
		StatusURL:  fmt.Sprintf("status/%s", jobId), //pass "status/job.Id"
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status: string(job.Status),
		Ingest: ToIngestResult(job),
	}

	return api.JobResponse{
		Id:        job.Id,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToIngestResult(job jobModel.Job) *api.IngestResult {
	if job.Status != jobModel.JobStatusComplete {
		return nil
	}

	return &api.IngestResult{
		DocumentId:    job.JobPayload.DocumentId,
		Filename:      job.JobPayload.Filename,
		ChunksIndexed: job.JobPayload.ChunksIndexed,
	}
}

func ToDocumentResponse(doc docModel.Document) api.DocumentResponse {
	return api.DocumentResponse{
		Id:            doc.Id,
		Filename:      doc.Filename,
		FileSize:      doc.FileSize,
		FileType:      string(doc.FileType),
		UploadTime:    doc.UploadTime,
		ProcessedTime: doc.ProcessedTime,
		TextLength:    doc.TextLength,
		ChunkCount:    doc.ChunkCount,
		Status:        string(doc.Status),
	}
}

func ToDocumentListResponse(docs []docModel.Document) api.DocumentListResponse {
	out := make([]api.DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, ToDocumentResponse(doc))
	}
	return api.DocumentListResponse{Documents: out, Count: len(out)}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
