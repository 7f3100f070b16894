package customHttpClient

import (
	"net/http"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/config"
)

var customTransport = &http.Transport{
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

var pooledClient = &http.Client{
	Transport: customTransport,
}

// GetPooledClient returns the shared keep-alive client used for the OpenAI
// SDK so repeated embedding and completion calls reuse connections.
func GetPooledClient() *http.Client {
	return pooledClient
}
