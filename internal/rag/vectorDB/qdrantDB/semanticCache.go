package qdrantDB

import (
	"context"
	"time"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/config"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

var answerCacheCollection = "answer-cache"

func initCacheCollection(ctx context.Context, client *qdrant.Client) {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))
	err := createCollection(ctx, client, answerCacheCollection)
	if err != nil {
		loggr.Error("Answer cache collection creation failed", "error", err)
	}
}

// Lookup returns a previously generated answer whose question embedding lands
// within the similarity cutoff. Scope must match exactly, an answer computed
// against one document cannot serve a question scoped to another.
func (db *ClientHolder) Lookup(ctx context.Context, queryVector []float32, scopeDocumentId string) (string, string, bool) {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	searchResult, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: answerCacheCollection,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("scope_document_id", scopeDocumentId),
			},
		},
	})
	if err != nil {
		loggr.Error("Cache query failed", "error", err)
		return "", "", false
	}
	if len(searchResult) == 0 {
		return "", "", false
	}

	loggr.Debug("Found cached candidate", "semantic similarity score", searchResult[0].Score)
	// Threshold Check: 0.95 is a safe "semantic match"
	if searchResult[0].Score < config.CacheSimilarityCutoff {
		return "", "", false
	}

	loggr.Info("---------------cache hit---------------------")
	return searchResult[0].Payload["answer"].GetStringValue(),
		searchResult[0].Payload["model"].GetStringValue(),
		true
}

func (db *ClientHolder) Store(ctx context.Context, queryVector []float32, question string, answerText string, model string, scopeDocumentId string) error {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	loggr.Debug("Saving answer to cache")
	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: answerCacheCollection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(uuid.NewString()),
				Vectors: qdrant.NewVectors(queryVector...),
				Payload: qdrant.NewValueMap(map[string]any{
					"question":          question,
					"answer":            answerText,
					"model":             model,
					"scope_document_id": scopeDocumentId,
					"timestamp":         time.Now().Unix(),
				}),
			},
		},
	})
	if err != nil {
		loggr.Error("Saving answer to cache failed", "error", err)
	}
	return err
}

// Invalidate drops every cached answer. Called after any corpus change, a
// cached answer has no record of which chunks produced it.
func (db *ClientHolder) Invalidate(ctx context.Context) error {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	_, err := db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: answerCacheCollection,
		Points:         qdrant.NewPointsSelectorFilter(&qdrant.Filter{}),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		loggr.Error("Answer cache invalidation failed", "error", err)
		return err
	}
	loggr.Debug("Answer cache invalidated")
	return nil
}
