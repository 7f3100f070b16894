package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/adapter"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/adapter/utils"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/api"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/docModel"
)

// DocumentsHandler godoc
// @Summary      List documents
// @Description  Returns all known documents in upload order with their lifecycle status.
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  api.DocumentListResponse
// @Router       /documents [get]
func DocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		writeJsonResponse(w, http.StatusOK, adapter.ToDocumentListResponse(ragService().ListDocuments()))
	}
}

// DeleteDocumentHandler godoc
// @Summary      Delete a document
// @Description  Removes a document, its stored text and its vectors from the index.
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DeleteDocumentResponse
// @Failure      404  {object}  api.JobResponse  "Document not found"
// @Router       /documents/{id} [delete]
func DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		idString := utils.GetChiURLParam(r, "id")

		removed, err := ragService().DeleteDocument(r.Context(), idString)
		if errors.Is(err, docModel.ErrNotFound) {
			WriteErrorResponse(w, http.StatusNotFound, idString, "Document not found")
			return
		}
		if err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, idString, "Internal Server Error")
			return
		}

		writeJsonResponse(w, http.StatusOK, api.DeleteDocumentResponse{Id: idString, VectorsRemoved: removed})
	}
}

// DocumentContentHandler godoc
// @Summary      Get extracted document text
// @Description  Returns the processed text of a document. Only available once ingestion has extracted it.
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DocumentContentResponse
// @Failure      404  {object}  api.JobResponse  "Document or text not found"
// @Router       /documents/{id}/content [get]
func DocumentContentHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		idString := utils.GetChiURLParam(r, "id")

		content, err := ragService().DocumentContent(idString)
		if errors.Is(err, docModel.ErrNotFound) {
			WriteErrorResponse(w, http.StatusNotFound, idString, "Document not found")
			return
		}
		if err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, idString, "Internal Server Error")
			return
		}

		writeJsonResponse(w, http.StatusOK, api.DocumentContentResponse{Id: idString, Content: content})
	}
}

// ActiveDocumentGetHandler godoc
// @Summary      Get the session's active document
// @Description  Returns the document currently pinned for this session, empty when unscoped.
// @Tags         Session
// @Produce      json
// @Success      200  {object}  api.ActiveDocumentResponse
// @Router       /active-document [get]
func ActiveDocumentGetHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		active, err := ragService().ActiveDocument(r.Context(), sessionKey(r))
		if err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, "", "Internal Server Error")
			return
		}
		writeJsonResponse(w, http.StatusOK, api.ActiveDocumentResponse{DocumentId: active})
	}
}

// ActiveDocumentPostHandler godoc
// @Summary      Pin a document for the session
// @Description  Scopes subsequent questions from this session to one document. An empty document_id clears the pin.
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        request  body      api.ActiveDocumentRequest  true  "Document to pin"
// @Success      200      {object}  api.ActiveDocumentResponse
// @Failure      404      {object}  api.JobResponse  "Document not found"
// @Router       /active-document [post]
func ActiveDocumentPostHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		var requestData api.ActiveDocumentRequest
		defer func(Body io.ReadCloser) {
			if err := Body.Close(); err != nil {
				logRH.Error("Couldn't close the active document reader :", "error", err)
			}
		}(r.Body)
		if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
			return
		}

		err := ragService().SetActiveDocument(r.Context(), sessionKey(r), requestData.DocumentId)
		if errors.Is(err, docModel.ErrNotFound) {
			WriteErrorResponse(w, http.StatusNotFound, requestData.DocumentId, "Document not found")
			return
		}
		if err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, requestData.DocumentId, "Internal Server Error")
			return
		}

		writeJsonResponse(w, http.StatusOK, api.ActiveDocumentResponse{DocumentId: requestData.DocumentId})
	}
}

// StatsHandler godoc
// @Summary      Index statistics
// @Description  Reports document counts and vector store internals including tombstones.
// @Tags         Stats
// @Produce      json
// @Success      200  {object}  api.StatsResponse
// @Router       /rag/stats [get]
func StatsHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		stats := ragService().Stats()
		writeJsonResponse(w, http.StatusOK, api.StatsResponse{
			Documents:   stats.Documents,
			VectorStore: stats.VectorStore,
		})
	}
}

// WarmupHandler godoc
// @Summary      Warm up the embedding client
// @Description  Runs a throwaway embedding call so the first real question doesn't pay the cold start.
// @Tags         Stats
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      502  {object}  api.JobResponse  "Embedding backend unavailable"
// @Router       /rag/warmup [post]
func WarmupHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		if err := ragService().Warmup(r.Context()); err != nil {
			logRH.Error("Warmup failed", "error", err)
			WriteErrorResponse(w, http.StatusBadGateway, "", "Embedding backend unavailable")
			return
		}
		writeJsonResponse(w, http.StatusOK, map[string]string{"status": "warmed"})
	}
}
