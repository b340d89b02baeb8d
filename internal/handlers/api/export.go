package api

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/quotify/api/internal/export"
	"github.com/quotify/api/internal/preview"
	"github.com/quotify/api/internal/quote"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// QuoteSource supplies the current document to render.
type QuoteSource interface {
	View() quote.Document
}

// RenderObserver is told about every preview or export render.
type RenderObserver interface {
	Rendered(surface string, err error)
}

// ExportHandler serves the read-only projections of the quote: the HTML
// preview and the downloadable files.
type ExportHandler struct {
	quotes   QuoteSource
	pdf      *export.PDFRenderer
	observer RenderObserver
	logger   *slog.Logger
}

// NewExportHandler creates a new export handler. observer may be nil.
func NewExportHandler(quotes QuoteSource, observer RenderObserver, logger *slog.Logger) *ExportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportHandler{
		quotes:   quotes,
		pdf:      export.NewPDFRenderer(logger),
		observer: observer,
		logger:   logger,
	}
}

// RegisterRoutes registers the preview and download routes.
func (h *ExportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /preview", h.Preview)
	mux.HandleFunc("GET /export/pdf", h.PDF)
	mux.HandleFunc("GET /export/xlsx", h.XLSX)
	mux.HandleFunc("GET /export/payment-qr.png", h.PaymentQR)
}

// Preview handles GET /preview. The page is rendered into a buffer first so
// a failure can still be reported with a proper status.
func (h *ExportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := preview.Document(h.quotes.View()).Render(r.Context(), &buf)
	h.rendered("preview", err)
	if err != nil {
		h.logger.Error("failed to render preview", "error", err)
		http.Error(w, "failed to render preview", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// PDF handles GET /export/pdf.
func (h *ExportHandler) PDF(w http.ResponseWriter, r *http.Request) {
	h.servePDF(w, h.quotes.View())
}

// XLSX handles GET /export/xlsx.
func (h *ExportHandler) XLSX(w http.ResponseWriter, r *http.Request) {
	doc := h.quotes.View()
	out, err := export.XLSX(doc)
	h.rendered("xlsx", err)
	if err != nil {
		h.logger.Error("failed to render spreadsheet", "error", err)
		errorJSON(w, http.StatusInternalServerError, "failed to render spreadsheet")
		return
	}
	attachment(w, xlsxContentType, export.Filename(doc.State.Meta, "xlsx"), out)
}

// PaymentQR handles GET /export/payment-qr.png. It answers 422 when the quote
// cannot be paid by SEPA transfer.
func (h *ExportHandler) PaymentQR(w http.ResponseWriter, r *http.Request) {
	out, err := export.PaymentQR(h.quotes.View(), 256)
	if err != nil {
		if errors.Is(err, export.ErrNoIBAN) || errors.Is(err, export.ErrNotPayable) {
			errorJSON(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.Error("failed to render payment qr", "error", err)
		errorJSON(w, http.StatusInternalServerError, "failed to render payment qr")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(out)
}

func (h *ExportHandler) servePDF(w http.ResponseWriter, doc quote.Document) {
	out, err := h.pdf.Render(doc)
	h.rendered("pdf", err)
	if err != nil {
		h.logger.Error("failed to render pdf", "error", err)
		errorJSON(w, http.StatusInternalServerError, "failed to render pdf")
		return
	}
	attachment(w, "application/pdf", export.Filename(doc.State.Meta, "pdf"), out)
}

func (h *ExportHandler) rendered(surface string, err error) {
	if h.observer != nil {
		h.observer.Rendered(surface, err)
	}
}

func attachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
