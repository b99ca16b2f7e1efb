package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"workitems-ai/internal/contextutil"
	"workitems-ai/internal/query"
)

// Answerer produces streamed answers for questions. Implemented by
// query.Orchestrator.
type Answerer interface {
	Answer(ctx context.Context, question string, topK int, emit query.EmitFunc) error
}

// AskHandler handles HTTP requests for work item questions.
type AskHandler struct {
	answerer Answerer
	markdown goldmark.Markdown
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(answerer Answerer) *AskHandler {
	return &AskHandler{
		answerer: answerer,
		markdown: goldmark.New(),
	}
}

// AskRequest represents the HTTP request payload for questions.
type AskRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
	// Render selects the answer format for non-streamed responses:
	// "markdown" (default) or "html".
	Render string `json:"render,omitempty"`
}

// AskResponse represents the HTTP response payload for questions.
type AskResponse struct {
	// The answer in markdown.
	Answer string `json:"answer"`
	// HTML-rendered answer, present when render=html was requested.
	HTML string `json:"html,omitempty"`
}

// ServeHTTP handles HTTP requests for questions. With ?stream=true the
// answer is delivered as Server-Sent Events; otherwise the full answer is
// returned as JSON.
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}

	if r.URL.Query().Get("stream") == "true" {
		h.streamAnswer(w, r, req)
		return
	}

	var answer strings.Builder
	err := h.answerer.Answer(ctx, req.Question, req.TopK, func(chunk string) error {
		answer.WriteString(chunk)
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to answer question", "error", err)
		writeError(w, http.StatusBadGateway, "Failed to answer question")
		return
	}

	resp := AskResponse{Answer: answer.String()}
	if req.Render == "html" {
		var html bytes.Buffer
		if err := h.markdown.Convert([]byte(resp.Answer), &html); err != nil {
			logger.ErrorContext(ctx, "failed to render answer", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to render answer")
			return
		}
		resp.HTML = html.String()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// streamAnswer delivers the answer as Server-Sent Events, one data event per
// chunk, terminated by a [DONE] event.
func (h *AskHandler) streamAnswer(w http.ResponseWriter, r *http.Request, req AskRequest) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.ErrorContext(ctx, "streaming not supported by response writer")
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	err := h.answerer.Answer(ctx, req.Question, req.TopK, func(chunk string) error {
		if _, err := fmt.Fprintf(w, "data: %s\n\n", encodeChunk(chunk)); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "error streaming answer", "error", err)
		_, _ = fmt.Fprintf(w, "data: %s\n\n", encodeChunk("Error: "+err.Error()))
		flusher.Flush()
		return
	}

	_, _ = fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// encodeChunk makes a chunk safe for a single SSE data line. Chunks carry
// markdown with newlines, so they are sent as JSON strings.
func encodeChunk(chunk string) string {
	encoded, err := json.Marshal(chunk)
	if err != nil {
		return chunk
	}
	return string(encoded)
}
