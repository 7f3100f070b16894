package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/adapter"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/adapter/utils"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/api"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/config"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/docModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/ingest"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/pkg/logger_i"
)

var logRH *logger_i.Logger

// carries everything pushToJobChannel needs to build an ingestion job
type newJobData struct {
	id             string
	documentId     string
	documentName   string
	documentSource string
	fileSize       int64
	traceId        string
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	return
}

// HealthHandler godoc
// @Summary      Health check
// @Description  Returns service health and basic corpus counts.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	stats := ragService().Stats()
	writeJsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"documents": stats.Documents,
		"vectors":   stats.VectorStore.LiveVectors,
	})
}

// AskHandler godoc
// @Summary      Ask a question
// @Description  Answers a question against the indexed documents, scoped to a single document when document_id is given or the session has an active document.
// @Tags         Questions
// @Accept       json
// @Produce      json
// @Param        request  body      api.AskRequest  true  "Question and optional document scope"
// @Success      200      {object}  api.AskResponse
// @Failure      400      {object}  api.JobResponse  "Missing question"
// @Failure      404      {object}  api.JobResponse  "Unknown document_id"
// @Failure      500      {object}  api.JobResponse  "Embedding or index failure"
// @Router       /ask [post]
func AskHandler(w http.ResponseWriter, request *http.Request) {

	if validateContext(request.Context()) {

		var requestData api.AskRequest
		defer func(Body io.ReadCloser) {
			err := Body.Close()
			if err != nil {
				logRH.Error("Couldn't close the Ask handler reader :", "error", err)
			}
		}(request.Body)
		if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil || requestData.Question == "" {
			logRH.Warn("Bad Ask Request: ", "error:", err, "request data:", requestData)
			WriteErrorResponse(w, http.StatusBadRequest, requestData.DocumentId, "question is required")
			return
		}

		result, err := ragService().Ask(request.Context(), requestData.Question, sessionKey(request), requestData.DocumentId)
		if errors.Is(err, docModel.ErrNotFound) {
			WriteErrorResponse(w, http.StatusNotFound, requestData.DocumentId, "Document not found")
			return
		}
		if err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, requestData.DocumentId, "Internal Server Error")
			return
		}

		writeJsonResponse(w, http.StatusOK, adapter.ToAskResponse(requestData.Question, result))
		return
	}
	logRH.Warn("Invalid Context by request ", "remoteAddr", request.RemoteAddr)
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a specific ingestion job using its ID.
// @Tags         Job Status
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Job ID "
// @Success      200  {object}  api.JobResponse   "Successful retrieval of job status"
// @Failure      404  {object}  api.JobResponse   "Job not found (returns Error object within JobResponse)"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		//use chi get the url id
		idString := utils.GetChiURLParam(r, "id")
		result, isFound := validateId(idString, r.Context().Value(config.TRACE_ID_KEY).(string))

		logRH.Debug("Get Status Request:", "URL path", r.URL.Path)
		if !isFound {
			WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
			return
		}

		writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
	}
}

// UploadHandler handles the uploading of PDF, DOCX or TXT documents for ingestion.
// @Summary      Upload a document for ingestion
// @Description  Receives a file via multipart/form-data, saves it to a temporary directory, registers the document and queues an ingestion job.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        document  formData  file  true  "The PDF, DOCX or TXT file to upload"
// @Success      202  {object}  api.InitJobResponse "Accepted - returns job and document ids"
// @Failure      400  {object}  api.JobResponse "Bad Request - Missing file, unsupported type or file too large"
// @Failure      500  {object}  api.JobResponse "Internal Server Error - Storage or Write Error"
// @Router       /upload [post]
func UploadHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {

		targetDir, errString := getTargetDirectory()

		if errString != "" {
			logRH.Error("Couldn't get target directory :", "err", errString)
			WriteErrorResponse(w, http.StatusInternalServerError, "", errString)
			return
		}

		err := r.ParseMultipartForm(config.MaxUploadSize)
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
			return
		}

		//get the document the user uploads
		fileReader, fileMetadata, err := r.FormFile("document")
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "", "Could not retrieve file")
			return
		}
		defer fileReader.Close()

		fileType := ingest.GetDocType(fileMetadata.Filename)
		if fileType == docModel.ERR {
			WriteErrorResponse(w, http.StatusBadRequest, fileMetadata.Filename, "Unsupported file type")
			return
		}

		filename := fmt.Sprintf("%d-%s", time.Now().UnixNano(), fileMetadata.Filename)
		tempFilePath := filepath.Join(targetDir, filename)
		destinationFileWriter, err := os.Create(tempFilePath)
		if err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, fileMetadata.Filename, "Storage error")
			return
		}
		defer destinationFileWriter.Close()

		if _, err := io.Copy(destinationFileWriter, fileReader); err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, fileMetadata.Filename, "Write error")
			return
		}

		documentId := utils.GetNewUUID()
		ragService().RegisterDocument(docModel.Document{
			Id:       documentId,
			Filename: fileMetadata.Filename,
			FileSize: fileMetadata.Size,
			FileType: fileType,
		})

		newJob := newJobData{
			id:             utils.GetNewUUID(),
			documentId:     documentId,
			documentName:   fileMetadata.Filename,
			documentSource: tempFilePath,
			fileSize:       fileMetadata.Size,
			traceId:        r.Context().Value(config.TRACE_ID_KEY).(string),
		}
		CreateNewJob(newJob)

		writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id, documentId))
		return
	}
	logRH.Warn("Invalid Context by request ", "remoteAddr", r.RemoteAddr)
}
