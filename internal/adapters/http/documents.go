package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Shoaibzaak/visa-docverify/internal/core/domain"
	"github.com/Shoaibzaak/visa-docverify/internal/infrastructure/mediatype"
	"github.com/Shoaibzaak/visa-docverify/internal/infrastructure/report/xlsx"
)

const (
	documentField     = "document"
	documentTypeField = "documentType"
	multipartMemory   = 32 << 20
)

type documentView struct {
	domain.DocumentItem
	TypeLabel   string `json:"type_label"`
	SizeLabel   string `json:"size_label"`
	FormatLabel string `json:"format_label"`
}

func newDocumentView(item domain.DocumentItem) documentView {
	return documentView{
		DocumentItem: item,
		TypeLabel:    item.DocumentType.Label(),
		SizeLabel:    item.File.SizeLabel(),
		FormatLabel:  item.File.FormatLabel(),
	}
}

func newDocumentViews(items []domain.DocumentItem) []documentView {
	out := make([]documentView, 0, len(items))
	for _, item := range items {
		out = append(out, newDocumentView(item))
	}
	return out
}

func (rt *Router) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			rt.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[documentField]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'document' is required"})
		return
	}
	docType, err := domain.ParseDocumentType(r.FormValue(documentTypeField))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	uploads := make([]domain.Upload, 0, len(headers))
	for _, header := range headers {
		upload, err := readUpload(header, docType)
		if err != nil {
			rt.writeError(w, r, err)
			return
		}
		uploads = append(uploads, upload)
	}

	result, err := rt.intake.Intake(r.Context(), uploads)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		for _, item := range result.Accepted {
			rt.metrics.RecordUpload(serviceName, item.File.MediaType, item.File.Size)
		}
	}

	if len(result.Accepted) == 0 && result.Notice != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  result.Notice.Message,
			"notice": result.Notice,
		})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"items":  newDocumentViews(result.Accepted),
		"notice": result.Notice,
	})
}

func readUpload(header *multipart.FileHeader, docType domain.DocumentType) (domain.Upload, error) {
	file, err := header.Open()
	if err != nil {
		return domain.Upload{}, fmt.Errorf("open upload %s: %w", header.Filename, err)
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		return domain.Upload{}, fmt.Errorf("read upload %s: %w", header.Filename, err)
	}
	return domain.Upload{
		File: domain.FileRef{
			Name:      header.Filename,
			MediaType: mediatype.Resolve(header.Header.Get("Content-Type"), header.Filename),
			Size:      int64(len(body)),
		},
		DocumentType: docType,
		Body:         body,
	}, nil
}

func (rt *Router) listDocuments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items": newDocumentViews(rt.registry.List()),
		"stats": rt.registry.Stats(),
	})
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	item, err := rt.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDocumentView(item))
}

func (rt *Router) updateDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentType string `json:"documentType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.DocumentType) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "documentType is required"})
		return
	}
	docType, err := domain.ParseDocumentType(req.DocumentType)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	item, err := rt.editor.SetDocumentType(chi.URLParam(r, "id"), docType)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDocumentView(item))
}

func (rt *Router) removeDocument(w http.ResponseWriter, r *http.Request) {
	if err := rt.editor.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// analyzeDocument starts one analysis. With ?wait=true the call blocks
// until the item reaches a terminal state.
func (rt *Router) analyzeDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if waitRequested(r) {
		item, err := rt.analysis.Analyze(r.Context(), id)
		if err != nil {
			rt.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newDocumentView(item))
		return
	}

	if err := rt.analysis.Submit(id); err != nil {
		rt.writeError(w, r, err)
		return
	}
	item, err := rt.registry.Get(id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, newDocumentView(item))
}

func (rt *Router) analyzeAll(w http.ResponseWriter, r *http.Request) {
	if waitRequested(r) {
		writeJSON(w, http.StatusOK, rt.analysis.AnalyzeAll(r.Context()))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"submitted": rt.analysis.SubmitAll()})
}

func (rt *Router) previewDocument(w http.ResponseWriter, r *http.Request) {
	body, preview, err := rt.previews.OpenPreview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", preview.MediaType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	if preview.Width > 0 && preview.Height > 0 {
		w.Header().Set("X-Image-Width", strconv.Itoa(preview.Width))
		w.Header().Set("X-Image-Height", strconv.Itoa(preview.Height))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}

func (rt *Router) currentNotice(w http.ResponseWriter, _ *http.Request) {
	notice, ok := rt.notices.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, notice)
}

func (rt *Router) dismissNotice(w http.ResponseWriter, _ *http.Request) {
	rt.notices.Dismiss()
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) exportReport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := xlsx.Write(&buf, rt.registry.List()); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="document-verification.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func waitRequested(r *http.Request) bool {
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	return wait
}
