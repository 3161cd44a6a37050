package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bidcraft/bidcraft/internal/api"
	"github.com/bidcraft/bidcraft/internal/domain"
	"github.com/bidcraft/bidcraft/internal/service"
)

const (
	explanationAIGenerated = "This text appears to be AI-generated content based on the contract information, " +
		"not directly from the source document."
	explanationDocumentFormat = "This text appears in the contract document. " +
		"Here's the surrounding context: \"%s\""
)

type SessionAccessor interface {
	Get(id string) (*domain.Session, error)
	AppendHistory(id string, entries ...domain.Message) error
	History(id string) ([]domain.Message, error)
	Delete(ctx context.Context, id string) error
	SnapshotURL(ctx context.Context, id string) (string, error)
}

type TurnEngine interface {
	Respond(ctx context.Context, sessionID string, history []domain.Message, userInput string) (*service.TurnResult, error)
}

// SessionHandler serves chat, highlight, and session lifecycle routes.
type SessionHandler struct {
	store  SessionAccessor
	engine TurnEngine
}

func NewSessionHandler(store SessionAccessor, engine TurnEngine) *SessionHandler {
	return &SessionHandler{store: store, engine: engine}
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	SessionID string   `json:"session_id"`
}

// Chat runs one conversation turn. History gains the turn only after
// the engine succeeds; a failed turn leaves it untouched.
func (h *SessionHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" || req.Message == "" {
		api.Error(w, http.StatusBadRequest, "Missing required fields: session_id and message")
		return
	}

	session, err := h.store.Get(req.SessionID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	result, err := h.engine.Respond(r.Context(), session.ID, session.History, req.Message)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.store.AppendHistory(session.ID,
		domain.Message{Role: domain.RoleHuman, Content: req.Message},
		domain.Message{Role: domain.RoleAI, Content: result.Answer},
	); err != nil {
		api.HandleError(w, err)
		return
	}

	sources := result.Sources
	if sources == nil {
		sources = []string{}
	}

	api.JSON(w, http.StatusOK, ChatResponse{
		Answer:    result.Answer,
		Sources:   sources,
		SessionID: session.ID,
	})
}

type HighlightRequest struct {
	SessionID       string `json:"session_id"`
	HighlightedText string `json:"highlighted_text"`
}

type HighlightResponse struct {
	Source          string `json:"source"`
	Context         string `json:"context,omitempty"`
	HighlightedText string `json:"highlighted_text"`
	Explanation     string `json:"explanation"`
}

// Highlight classifies a span of previously generated text against the
// session's extracted record.
func (h *SessionHandler) Highlight(w http.ResponseWriter, r *http.Request) {
	var req HighlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" || req.HighlightedText == "" {
		api.Error(w, http.StatusBadRequest, "Missing required fields: session_id and highlighted_text")
		return
	}

	session, err := h.store.Get(req.SessionID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	result := service.ClassifyProvenance(session.Record, req.HighlightedText)

	explanation := explanationAIGenerated
	if result.Source == service.SourceContractDocument {
		explanation = fmt.Sprintf(explanationDocumentFormat, result.Context)
	}

	api.JSON(w, http.StatusOK, HighlightResponse{
		Source:          result.Source,
		Context:         result.Context,
		HighlightedText: req.HighlightedText,
		Explanation:     explanation,
	})
}

type DeleteSessionResponse struct {
	Message string `json:"message"`
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, DeleteSessionResponse{Message: "Session ended successfully"})
}

type SessionSnapshotResponse struct {
	SessionID   string `json:"session_id"`
	DownloadURL string `json:"download_url"`
}

// Snapshot returns a time-limited download link for the raw markup the
// session was built from. The link points at object storage directly,
// so the service never proxies the archived bytes.
func (h *SessionHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	url, err := h.store.SnapshotURL(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, SessionSnapshotResponse{
		SessionID:   id,
		DownloadURL: url,
	})
}

type SessionHistoryResponse struct {
	SessionID   string           `json:"session_id"`
	ContractURL string           `json:"contract_url"`
	ChatHistory []domain.Message `json:"chat_history"`
}

func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	session, err := h.store.Get(id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	history := session.History
	if history == nil {
		history = []domain.Message{}
	}

	api.JSON(w, http.StatusOK, SessionHistoryResponse{
		SessionID:   session.ID,
		ContractURL: session.ContractURL,
		ChatHistory: history,
	})
}
