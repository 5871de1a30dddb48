package gateway

import (
	"net/http"
	"time"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/orchestrator"
)

// ChatRequest is the body of POST /v1/chat and each client frame on
// /v1/chat/stream.
type ChatRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
	Language  string `json:"language,omitempty"` // "th" | "en"
	Mode      string `json:"mode,omitempty"`     // "conversation" | "intelligence"
}

func (r ChatRequest) raw(now time.Time) domain.RawMessage {
	return domain.RawMessage{
		SessionID:  r.SessionID,
		Text:       r.Message,
		Language:   domain.Language(r.Language),
		ReceivedAt: now,
	}
}

// ChatResponse is a finished turn. Result is present whenever the pipeline
// produced user-facing text, including failed turns.
type ChatResponse struct {
	*orchestrator.Result
	Error *ErrorShape `json:"error,omitempty"`
}

// ErrorShape is the standard error body.
type ErrorShape struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

const codeCanceled = "CANCELED"

func errorShape(err error) *ErrorShape {
	if err == nil {
		return nil
	}
	if domain.IsCanceled(err) {
		return &ErrorShape{Code: codeCanceled, Message: err.Error(), Retryable: true}
	}
	kind := domain.KindOf(err)
	return &ErrorShape{
		Code:      string(kind),
		Message:   err.Error(),
		Retryable: kind == domain.KindProviderTransient || kind == domain.KindStreamInterrupted,
	}
}

// statusFor maps a turn error to an HTTP status.
func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if domain.IsCanceled(err) {
		return http.StatusServiceUnavailable
	}
	switch domain.KindOf(err) {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindProviderTransient:
		return http.StatusServiceUnavailable
	case domain.KindProviderFatal, domain.KindStreamInterrupted:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Frame types sent on /v1/chat/stream.
const (
	FrameTypeDelta = "delta"
	FrameTypeDone  = "done"
	FrameTypeError = "error"
)

// Frame is one server message on the stream endpoint. A turn is a run of
// delta frames closed by one done frame; requests that never start a turn
// get a single error frame.
type Frame struct {
	Type   string               `json:"type"`
	Seq    int64                `json:"seq"`
	Text   string               `json:"text,omitempty"`
	Result *orchestrator.Result `json:"result,omitempty"`
	Error  *ErrorShape          `json:"error,omitempty"`
}
