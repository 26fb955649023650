package handler

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ecoroute/ecoroute/internal/api/middleware"
	"github.com/ecoroute/ecoroute/internal/api/models"
	"github.com/ecoroute/ecoroute/internal/api/response"
	"github.com/ecoroute/ecoroute/internal/assistant"
)

const maxAssistantBodyBytes = 32 << 10

// Completer answers free-form prompts.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// AssistantHandler proxies prompts to the LLM assistant.
type AssistantHandler struct {
	completer Completer
	logger    zerolog.Logger
}

// NewAssistantHandler creates a new AssistantHandler.
func NewAssistantHandler(completer Completer, logger zerolog.Logger) *AssistantHandler {
	return &AssistantHandler{completer: completer, logger: logger}
}

// Complete handles POST /v1/assistant:complete. The prompt is read from a
// JSON body {"content": ...} or from a "content" form field.
func (h *AssistantHandler) Complete(w http.ResponseWriter, r *http.Request) {
	content, err := readAssistantContent(w, r)
	if err != nil {
		response.BadBody(w, r, err)
		return
	}

	if h.completer == nil {
		response.ServiceUnavailable(w, r, "assistant is not configured")
		return
	}

	text, err := h.completer.Complete(r.Context(), content)
	switch {
	case err == nil:
		response.JSON(w, r, http.StatusOK, models.AssistantResponse{Text: text})
	case errors.Is(err, assistant.ErrEmptyPrompt):
		response.BadRequest(w, r, "content is required", []models.FieldError{
			{Field: "content", Message: "required", Code: "REQUIRED"},
		})
	case errors.Is(err, assistant.ErrPromptTooLong):
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "content", Message: "too long", Code: "TOO_LONG"},
		})
	case errors.Is(err, assistant.ErrNotConfigured):
		response.ServiceUnavailable(w, r, "assistant is not configured")
	default:
		h.logger.Warn().Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("assistant completion failed")
		response.BadGateway(w, r, "assistant provider unavailable")
	}
}

func readAssistantContent(w http.ResponseWriter, r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxAssistantBodyBytes)
		if err := r.ParseMultipartForm(maxAssistantBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return "", fmt.Errorf("%w: %w", response.ErrInvalidBody, err)
		}
		return r.FormValue("content"), nil
	default:
		var input models.AssistantRequest
		if err := response.DecodeJSON(w, r, &input, maxAssistantBodyBytes); err != nil {
			return "", err
		}
		return input.Content, nil
	}
}
