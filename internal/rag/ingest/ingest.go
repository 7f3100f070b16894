package ingest

import (
	"context"
	"os"
	"time"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/docModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/jobModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/metrics"
)

// ProcessDocumentIngestion is the worker-side entry point for an upload job:
// extract, persist the raw text, then run the indexing pipeline. The returned
// job carries final status and chunk count for the job store.
func ProcessDocumentIngestion(ctx context.Context, job jobModel.Job, p *Pipeline) jobModel.Job {
	log := logger.With("traceId", job.TraceId, "documentId", job.JobPayload.DocumentId)
	start := time.Now()

	documentId := job.JobPayload.DocumentId
	docPath := job.JobPayload.SourcePath
	log.Debug("Processing document", "filename", job.JobPayload.Filename, "path", docPath)

	job.CurrentStep = jobModel.ExtractCall
	docType := GetDocType(docPath)
	if docType == docModel.ERR {
		log.Error("Unsupported document type", "path", docPath)
		return failJob(job, p, documentId, "Unsupported document type", start)
	}

	text, err := ExtractText(docPath, docType)
	if err != nil {
		log.Error("Error extracting document content", "error", err)
		return failJob(job, p, documentId, "Error extracting document content", start)
	}

	if err := p.registry.StoreContent(documentId, text); err != nil {
		log.Error("Error storing processed text", "error", err)
		return failJob(job, p, documentId, "Error storing processed text", start)
	}
	if err := p.registry.MarkProcessed(documentId, len(text)); err != nil {
		log.Error("Error updating document status", "error", err)
		return failJob(job, p, documentId, "Error updating document status", start)
	}

	job.CurrentStep = jobModel.EmbeddingAPICall
	indexed, err := p.Ingest(ctx, documentId, text)
	if err != nil {
		// Ingest already marked the document errored and rolled back
		log.Error("Error indexing document", "error", err)
		job.Status = jobModel.JobStatusError
		job.CurrentStep = jobModel.Error
		job.Error.Message = "Error indexing document"
		job.EndTime = time.Now().UTC()
		metrics.CountDocumentIndexed("error")
		metrics.CaptureJobMetrics(string(jobModel.JobStatusError), time.Since(start))
		return job
	}

	if err := os.Remove(docPath); err != nil {
		log.Error("Error removing uploaded file", "error", err)
	}

	job.Status = jobModel.JobStatusComplete
	job.CurrentStep = jobModel.Complete
	job.JobPayload.ChunksIndexed = indexed
	job.EndTime = time.Now().UTC()
	metrics.CountDocumentIndexed("success")
	metrics.CaptureJobMetrics(string(jobModel.JobStatusComplete), time.Since(start))

	log.Info("Document ingestion complete", "chunks", indexed)
	return job
}

// failJob handles failures before the pipeline ran, where no vectors exist
// yet but the registry still needs the error status.
func failJob(job jobModel.Job, p *Pipeline, documentId string, msg string, start time.Time) jobModel.Job {
	if err := p.registry.MarkError(documentId); err != nil {
		logger.Error("Could not mark document errored", "documentId", documentId, "error", err)
	}
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	job.Error.Message = msg
	job.EndTime = time.Now().UTC()
	metrics.CountDocumentIndexed("error")
	metrics.CaptureJobMetrics(string(jobModel.JobStatusError), time.Since(start))
	return job
}
