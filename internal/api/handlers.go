package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/yekaditya11/Acma-Insights/internal/agent/graph"
	"github.com/yekaditya11/Acma-Insights/internal/agent/model"
	"github.com/yekaditya11/Acma-Insights/internal/agent/semantics"
	errx "github.com/yekaditya11/Acma-Insights/internal/core/error"
	logx "github.com/yekaditya11/Acma-Insights/pkg/logger"
)

// maxBodyBytes bounds a chat request body.
const maxBodyBytes = 1 << 20

// ChatRequest is the body of POST /chat and POST /chat/stream.
type ChatRequest struct {
	Question string `json:"question"`
	ThreadID string `json:"thread_id,omitempty"`
	Stream   bool   `json:"stream,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the chat endpoints on top of a workflow runner.
type Handler struct {
	runner    graph.Runner
	semantics semantics.Provider
	locks     *threadLocks
}

func NewHandler(runner graph.Runner, provider semantics.Provider) *Handler {
	return &Handler{runner: runner, semantics: provider, locks: newThreadLocks()}
}

// Chat runs the workflow and returns the answer bundle. stream=true in the
// body switches to the SSE response of ChatStream.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	req, err := decodeChatRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Stream {
		h.stream(w, r, req)
		return
	}

	in, err := h.buildInput(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	release := h.locks.lock(in.ThreadID)
	defer release()

	bundle, err := h.runner.Run(r.Context(), in)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", in.ThreadID).Msg("Chat run failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

// ChatStream runs the workflow and relays its events as server-sent events.
func (h *Handler) ChatStream(w http.ResponseWriter, r *http.Request) {
	req, err := decodeChatRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	h.stream(w, r, req)
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request, req ChatRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, errx.New(errors.New("response writer cannot flush"), http.StatusInternalServerError, "Streaming not supported"))
		return
	}

	in, err := h.buildInput(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	release := h.locks.lock(in.ThreadID)
	defer release()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	st := h.runner.RunStream(r.Context(), in)
	for ev := range st.Events() {
		b, err := json.Marshal(ev)
		if err != nil {
			logx.Error().Err(err).Str("thread_id", in.ThreadID).Msg("Failed to marshal stream event")
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", b)
		flusher.Flush()
	}

	if err := st.Err(); err != nil {
		logx.Error().Err(err).Str("thread_id", in.ThreadID).Msg("Chat stream failed")
		b, _ := json.Marshal(errorResponse{Error: errx.MessageOf(err)})
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", b)
		flusher.Flush()
	}
}

// ClearThread forgets a thread's history.
func (h *Handler) ClearThread(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	release := h.locks.lock(threadID)
	defer release()

	if err := h.runner.ClearHistory(r.Context(), threadID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Schema returns the DDL and semantics the workflow currently runs with.
func (h *Handler) Schema(w http.ResponseWriter, r *http.Request) {
	snap, err := h.semantics.Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) buildInput(ctx context.Context, req ChatRequest) (model.QueryInput, error) {
	snap, err := h.semantics.Snapshot(ctx)
	if err != nil {
		return model.QueryInput{}, err
	}
	sem, err := snap.Semantics.Map()
	if err != nil {
		return model.QueryInput{}, fmt.Errorf("encode semantics: %w", err)
	}

	threadID := strings.TrimSpace(req.ThreadID)
	if threadID == "" {
		threadID = uuid.NewString()
	}
	return model.QueryInput{
		ThreadID:        threadID,
		Question:        req.Question,
		SchemaDDL:       snap.DDL,
		SchemaSemantics: sem,
	}, nil
}

func decodeChatRequest(r *http.Request) (ChatRequest, error) {
	var req ChatRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return ChatRequest{}, errx.InvalidInput("request body must be a JSON object")
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return ChatRequest{}, errx.InvalidInput("question is required")
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errx.StatusOf(err), errorResponse{Error: errx.MessageOf(err)})
}
