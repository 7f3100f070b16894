package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/adapter/utils"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/config"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/middleware"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/pkg/logger_i"
)

var (
	server  *http.Server
	_logger *logger_i.Logger
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
	PersistState     func() error
}

func CreateServer(listenAddr string) {
	_logger = logger_i.NewLogger("Server")

	r := utils.GetRouter()

	r.Router.Get("/", middleware.GetHandler)
	r.Router.Get("/health", middleware.HealthHandler)

	r.Router.Post("/ask", middleware.AskHandler)
	r.Router.Post("/upload", middleware.UploadHandler)
	r.Router.Get("/status/{id}", middleware.GetStatusHandler)

	r.Router.Get("/documents", middleware.DocumentsHandler)
	r.Router.Delete("/documents/{id}", middleware.DeleteDocumentHandler)
	r.Router.Get("/documents/{id}/content", middleware.DocumentContentHandler)

	r.Router.Get("/active-document", middleware.ActiveDocumentGetHandler)
	r.Router.Post("/active-document", middleware.ActiveDocumentPostHandler)

	r.Router.Get("/rag/stats", middleware.StatsHandler)
	r.Router.Post("/rag/warmup", middleware.WarmupHandler)

	server = &http.Server{
		Addr:         listenAddr,
		Handler:      r.Router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error :", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	println("\nServer is shutting down", state)

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		server.SetKeepAlivesEnabled(false)

		if err := server.Shutdown(ctx); err != nil {
			_logger.Error("Could not shutdown gracefully: %s", err)
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()

		//flush the vector index and registry before the process dies
		if shutdownParams.PersistState != nil {
			if err := shutdownParams.PersistState(); err != nil {
				_logger.Error("Failed to persist state on shutdown", "error", err)
			}
		}

		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully is shutting down")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}
