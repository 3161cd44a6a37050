package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bidcraft/bidcraft/internal/api"
	"github.com/bidcraft/bidcraft/internal/domain"
	"github.com/bidcraft/bidcraft/internal/extract"
	"github.com/bidcraft/bidcraft/internal/fetch"
)

// extractRecord is a seam for tests; extraction itself is pure.
var extractRecord = extract.Extract

// contentPreviewChars bounds the contract text echoed back on process.
const contentPreviewChars = 1000

type SuggestedLister interface {
	Suggested(ctx context.Context) ([]fetch.Listing, error)
}

type ContractFetcher interface {
	Page(ctx context.Context, url string) (string, error)
}

type SessionCreator interface {
	Create(ctx context.Context, contractURL string, record *domain.ContractRecord, rawMarkup string) (*domain.Session, error)
}

// ContractsHandler serves listing discovery and the process pipeline.
type ContractsHandler struct {
	lister  SuggestedLister
	fetcher ContractFetcher
	store   SessionCreator
}

func NewContractsHandler(lister SuggestedLister, fetcher ContractFetcher, store SessionCreator) *ContractsHandler {
	return &ContractsHandler{lister: lister, fetcher: fetcher, store: store}
}

type SuggestedContractsResponse struct {
	Contracts []fetch.Listing `json:"contracts"`
}

func (h *ContractsHandler) Suggested(w http.ResponseWriter, r *http.Request) {
	listings, err := h.lister.Suggested(r.Context())
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to fetch contracts: "+err.Error())
		return
	}
	if listings == nil {
		listings = []fetch.Listing{}
	}

	api.JSON(w, http.StatusOK, SuggestedContractsResponse{Contracts: listings})
}

type ProcessContractRequest struct {
	URL string `json:"url"`
}

type ProcessContractResponse struct {
	SessionID       string `json:"session_id"`
	ContractURL     string `json:"contract_url"`
	InitialOutline  string `json:"initial_outline"`
	ContractContent string `json:"contract_content"`
}

// Process fetches a listing page, extracts its record, and builds a
// session around it. Unreachable or unparseable pages are the caller's
// fault (400); pipeline failures past extraction are ours (500).
func (h *ContractsHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req ProcessContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		api.Error(w, http.StatusBadRequest, "URL is required")
		return
	}

	markup, err := h.fetcher.Page(r.Context(), req.URL)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to fetch contract content: "+err.Error())
		return
	}

	record, err := extractRecord(markup)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to extract contract content: "+err.Error())
		return
	}

	session, err := h.store.Create(r.Context(), req.URL, record, markup)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, ProcessContractResponse{
		SessionID:       session.ID,
		ContractURL:     session.ContractURL,
		InitialOutline:  initialOutline(session),
		ContractContent: previewContent(record.RawText),
	})
}

func initialOutline(session *domain.Session) string {
	for _, m := range session.History {
		if m.Role == domain.RoleAI {
			return m.Content
		}
	}
	return ""
}

func previewContent(text string) string {
	runes := []rune(text)
	if len(runes) <= contentPreviewChars {
		return text
	}
	return string(runes[:contentPreviewChars]) + "..."
}
