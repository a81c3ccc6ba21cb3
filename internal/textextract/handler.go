package textextract

import (
	"encoding/json"
	"net/http"
	"strings"

	"quizgen/internal/app/apiresp"
)

const maxUploadMemory = 8 << 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type extractResponse struct {
	Text     string    `json:"text"`
	Metadata *Metadata `json:"metadata,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// UploadPDF accepts a multipart upload under the "file" field and answers
// with the extracted text. Extraction failures come back as a soft error
// payload with status 200.
func (h *Handler) UploadPDF(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid multipart payload")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	text, err := h.svc.ExtractPDF(file)
	if err != nil {
		apiresp.WriteOK(w, r, http.StatusOK, extractResponse{Text: "", Error: err.Error()})
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, extractResponse{Text: text})
}

type scrapeRequest struct {
	URL string `json:"url"`
}

// ScrapeWebsite fetches the given page and answers with its visible text.
// Fetch and extraction failures come back as a soft error payload.
func (h *Handler) ScrapeWebsite(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid payload")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		apiresp.WriteError(w, r, http.StatusBadRequest, "url is required")
		return
	}

	text, meta, err := h.svc.ScrapeWebsite(r.Context(), req.URL)
	if err != nil {
		apiresp.WriteOK(w, r, http.StatusOK, extractResponse{Text: "", Error: err.Error()})
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, extractResponse{Text: text, Metadata: &meta})
}
