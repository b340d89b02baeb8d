package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/quotify/api/internal/branding"
	"github.com/quotify/api/internal/editor"
	"github.com/quotify/api/internal/quote"
)

// QuoteHandler serves the editing actions on the current quote.
type QuoteHandler struct {
	editor *editor.Controller
	logger *slog.Logger
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(ed *editor.Controller, logger *slog.Logger) *QuoteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuoteHandler{editor: ed, logger: logger}
}

// RegisterRoutes registers all quote API routes on the given mux.
func (h *QuoteHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/quote", h.Get)
	mux.HandleFunc("POST /api/v1/quote/reset", h.Reset)
	mux.HandleFunc("POST /api/v1/quote/items", h.AddItem)
	mux.HandleFunc("PATCH /api/v1/quote/items/{id}", h.UpdateItem)
	mux.HandleFunc("DELETE /api/v1/quote/items/{id}", h.RemoveItem)
	mux.HandleFunc("PATCH /api/v1/quote/sender", h.SetParty(editor.RoleSender))
	mux.HandleFunc("PATCH /api/v1/quote/client", h.SetParty(editor.RoleClient))
	mux.HandleFunc("PATCH /api/v1/quote/meta", h.SetMeta)
	mux.HandleFunc("PATCH /api/v1/quote/settings", h.SetSettings)
	mux.HandleFunc("PUT /api/v1/quote/notes", h.SetNotes)
	mux.HandleFunc("PUT /api/v1/quote/branding/color", h.SetAccentColor)
	mux.HandleFunc("POST /api/v1/quote/branding/logo", h.UploadLogo)
	mux.HandleFunc("DELETE /api/v1/quote/branding/logo", h.ClearLogo)
}

// --- JSON request/response types ---

type documentResponse struct {
	State   quote.State         `json:"state"`
	Totals  quote.GroupedTotals `json:"totals"`
	Summary string              `json:"summary,omitempty"`
}

type addItemResponse struct {
	Item quote.LineItem `json:"item"`
	documentResponse
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type colorRequest struct {
	Color string `json:"color"`
}

func toDocumentResponse(doc quote.Document) documentResponse {
	return documentResponse{
		State:   doc.State,
		Totals:  doc.Totals,
		Summary: doc.Totals.Summary(doc.Currency()),
	}
}

// --- Handlers ---

// Get handles GET /api/v1/quote.
func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toDocumentResponse(h.editor.View()))
}

// Reset handles POST /api/v1/quote/reset.
func (h *QuoteHandler) Reset(w http.ResponseWriter, r *http.Request) {
	doc, err := h.editor.Reset(r.Context())
	h.respond(w, "failed to reset quote", doc, err)
}

// AddItem handles POST /api/v1/quote/items.
func (h *QuoteHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	item, doc, err := h.editor.AddItem(r.Context())
	if err != nil {
		writeError(w, h.logger, "failed to add item", err)
		return
	}
	writeJSON(w, http.StatusCreated, addItemResponse{Item: item, documentResponse: toDocumentResponse(doc)})
}

// UpdateItem handles PATCH /api/v1/quote/items/{id}.
func (h *QuoteHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var patch quote.ItemPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := h.editor.UpdateItem(r.Context(), quote.ItemID(r.PathValue("id")), patch)
	h.respond(w, "failed to update item", doc, err)
}

// RemoveItem handles DELETE /api/v1/quote/items/{id}.
func (h *QuoteHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	doc, err := h.editor.RemoveItem(r.Context(), quote.ItemID(r.PathValue("id")))
	h.respond(w, "failed to remove item", doc, err)
}

// SetParty returns the handler for PATCH /api/v1/quote/{sender,client}.
func (h *QuoteHandler) SetParty(role editor.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch editor.PartyPatch
		if err := decodeJSON(w, r, &patch); err != nil {
			errorJSON(w, http.StatusBadRequest, err.Error())
			return
		}
		doc, err := h.editor.SetParty(r.Context(), role, patch)
		h.respond(w, "failed to update "+string(role), doc, err)
	}
}

// SetMeta handles PATCH /api/v1/quote/meta.
func (h *QuoteHandler) SetMeta(w http.ResponseWriter, r *http.Request) {
	var patch editor.MetaPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := h.editor.SetMeta(r.Context(), patch)
	h.respond(w, "failed to update meta", doc, err)
}

// SetSettings handles PATCH /api/v1/quote/settings.
func (h *QuoteHandler) SetSettings(w http.ResponseWriter, r *http.Request) {
	var patch editor.SettingsPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := h.editor.SetSettings(r.Context(), patch)
	h.respond(w, "failed to update settings", doc, err)
}

// SetNotes handles PUT /api/v1/quote/notes.
func (h *QuoteHandler) SetNotes(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := h.editor.SetNotes(r.Context(), req.Notes)
	h.respond(w, "failed to update notes", doc, err)
}

// SetAccentColor handles PUT /api/v1/quote/branding/color.
func (h *QuoteHandler) SetAccentColor(w http.ResponseWriter, r *http.Request) {
	var req colorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := h.editor.SetAccentColor(r.Context(), req.Color)
	h.respond(w, "failed to update accent color", doc, err)
}

// UploadLogo handles POST /api/v1/quote/branding/logo with a multipart
// "logo" file field.
func (h *QuoteHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, branding.MaxLogoSize+64*1024)
	if err := r.ParseMultipartForm(branding.MaxLogoSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorJSON(w, http.StatusRequestEntityTooLarge, branding.ErrFileTooLarge.Error())
			return
		}
		errorJSON(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("logo")
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "missing logo file")
		return
	}
	defer file.Close()

	data, contentType, err := branding.ReadLogo(file, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, h.logger, "failed to read logo", err)
		return
	}

	doc, err := h.editor.SetLogo(r.Context(), data, contentType)
	h.respond(w, "failed to set logo", doc, err)
}

// ClearLogo handles DELETE /api/v1/quote/branding/logo.
func (h *QuoteHandler) ClearLogo(w http.ResponseWriter, r *http.Request) {
	doc, err := h.editor.ClearLogo(r.Context())
	h.respond(w, "failed to clear logo", doc, err)
}

func (h *QuoteHandler) respond(w http.ResponseWriter, msg string, doc quote.Document, err error) {
	if err != nil {
		writeError(w, h.logger, msg, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}
