package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aetherchat/aether/internal/gateway"
)

// maxChatBody bounds the request body size.
const maxChatBody = 1 << 20

type chatRequest struct {
	Question string        `json:"question"`
	History  []chatMessage `json:"history,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse carries exactly one of Data and Error.
type chatResponse struct {
	Data  string `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type chatHandler struct {
	logger    *slog.Logger
	generator Generator
}

// send answers one question. Gateway failures are part of the response
// contract, not HTTP errors: the status stays 200 and the body carries
// the user-facing error string.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBody)

	var req chatRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	history := make([]gateway.Message, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, gateway.Message{Role: m.Role, Content: m.Content})
	}

	result := h.generator.Generate(r.Context(), req.Question, history)
	writeJSON(w, http.StatusOK, chatResponse{Data: result.Data, Error: result.Err})
}
