package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/config"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/jobModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/job"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/metrics"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
)

type JobHandler struct {
	service *job.Service
	rag     rag.Service
}

func InitJobHandler(jobService *job.Service, ragService rag.Service) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService, rag: ragService}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logJH.Info("Starting job handler")
	})

}

func CreateNewJob(newJob newJobData) {
	logJH.With("traceId", newJob.traceId, "job id", newJob.id)
	logJH.Info("To create new job")
	handlerInstance.pushToJobChannel(newJob)
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

func ragService() rag.Service {
	if handlerInstance == nil {
		return nil
	}
	return handlerInstance.rag
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData) {

	_job := jobModel.Job{}
	_job.Id = newJob.id
	_job.CreatedTime = time.Now()
	_job.TraceId = newJob.traceId
	_job.Status = jobModel.JobStatusQueued
	_job.CurrentStep = jobModel.IngestInit
	_job.JobPayload.DocumentId = newJob.documentId
	_job.JobPayload.Filename = newJob.documentName
	_job.JobPayload.SourcePath = newJob.documentSource
	_job.JobPayload.FileSize = newJob.fileSize

	//metrics
	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //this is a blocking send to prevent the system from being overwhelmed
	logJH.Info("Created new job")

	//every job here is a document ingestion - batch embedding plus an external
	//system call which might take time - so each queued job signals the
	//dispatcher for a possible extra worker
	//worker will be removed if it has idle time - so it should be ok
	//this also allows us to only keep 1 worker running at most times therefore cutting resource spend

	atomic.AddInt64(&h.service.RequestCount, 1) //after sending a request increment counter
	metrics.StartDispatcherSignalCount()        //metrics
	h.service.DispatcherChannel <- true
}
