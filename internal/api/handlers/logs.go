package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"codebuild-logs/internal/storage"
	"codebuild-logs/pkg/logger"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
)

const logsSuffix = "/build.log"

// Store reads copied build logs
type Store interface {
	DownloadFile(ctx context.Context, key string) ([]byte, error)
}

// LogsHandlers serves copied build logs by key
type LogsHandlers struct {
	store  Store
	logger *logger.Logger
}

// NewLogsHandlers creates a new LogsHandlers instance
func NewLogsHandlers(store Store, logger *logger.Logger) *LogsHandlers {
	return &LogsHandlers{
		store:  store,
		logger: logger,
	}
}

// fetch loads the logs for key and returns the HTTP status to answer with
// and either the log text or an error message.
func (h *LogsHandlers) fetch(ctx context.Context, key string) (int, string) {
	if key == "" {
		return http.StatusBadRequest, "key is required"
	}
	if !strings.HasSuffix(key, logsSuffix) || strings.HasPrefix(key, "/") {
		return http.StatusBadRequest, "invalid key"
	}

	data, err := h.store.DownloadFile(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			h.logger.Debug().
				Str("key", key).
				Msg("Build logs not found")
			return http.StatusNotFound, "logs not found"
		}
		h.logger.Error().
			Err(err).
			Str("key", key).
			Msg("Failed to get build logs")
		return http.StatusInternalServerError, "failed to get build logs"
	}

	return http.StatusOK, string(data)
}

// GetLogs handles GET /buildlogs?key=<key>
func (h *LogsHandlers) GetLogs(c *gin.Context) {
	status, body := h.fetch(c.Request.Context(), c.Query("key"))
	if status != http.StatusOK {
		c.JSON(status, gin.H{"error": body})
		return
	}
	c.Data(status, "text/plain; charset=utf-8", []byte(body))
}

// HandleAPIGateway serves the same lookup behind an API Gateway proxy integration
func (h *LogsHandlers) HandleAPIGateway(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	status, body := h.fetch(ctx, req.QueryStringParameters["key"])

	resp := events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:       body,
	}
	return resp, nil
}
