package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shoaibzaak/visa-docverify/internal/core/domain"
	"github.com/Shoaibzaak/visa-docverify/internal/core/ports"
)

// DocumentRegistry owns every DocumentItem of the session. Each item is one
// record carrying its own state, result and error; all transitions happen
// under mu and remote work always runs outside it.
type DocumentRegistry struct {
	storage   ports.BlobStorage
	inspector ports.ImageInspector
	logger    *slog.Logger
	newID     func() string
	now       func() time.Time

	mu    sync.Mutex
	items map[string]*registryEntry
	order []string
}

type registryEntry struct {
	item    domain.DocumentItem
	attempt uint64
	cancel  context.CancelFunc
}

// analysisClaim is the ticket for one in-flight analysis of one item.
// A completion is applied only while the claim's attempt is still current.
type analysisClaim struct {
	ctx          context.Context
	id           string
	attempt      uint64
	file         domain.FileRef
	previewKey   string
	documentType domain.DocumentType
}

type RegistryOption func(*DocumentRegistry)

func WithImageInspector(inspector ports.ImageInspector) RegistryOption {
	return func(r *DocumentRegistry) { r.inspector = inspector }
}

func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *DocumentRegistry) { r.logger = logger }
}

func WithClock(now func() time.Time) RegistryOption {
	return func(r *DocumentRegistry) { r.now = now }
}

func NewDocumentRegistry(storage ports.BlobStorage, opts ...RegistryOption) *DocumentRegistry {
	r := &DocumentRegistry{
		storage: storage,
		logger:  slog.Default(),
		newID:   uuid.NewString,
		now:     func() time.Time { return time.Now().UTC() },
		items:   make(map[string]*registryEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add stores the binary behind a fresh preview handle and appends a Queued item.
func (r *DocumentRegistry) Add(ctx context.Context, upload domain.Upload) (domain.DocumentItem, error) {
	docType := upload.DocumentType
	if docType == "" {
		docType = domain.DefaultDocumentType
	}
	if !docType.Valid() {
		return domain.DocumentItem{}, domain.WrapError(domain.ErrInvalidInput, "add document", fmt.Errorf("unknown document type %q", docType))
	}

	id := r.newID()
	key := fmt.Sprintf("%s_%s", id, sanitizeFilename(upload.File.Name))
	if err := r.storage.Save(ctx, key, bytes.NewReader(upload.Body)); err != nil {
		return domain.DocumentItem{}, fmt.Errorf("save preview blob: %w", err)
	}

	preview := domain.PreviewHandle{Key: key, MediaType: upload.File.MediaType}
	if r.inspector != nil {
		if w, h, err := r.inspector.Dimensions(bytes.NewReader(upload.Body)); err == nil {
			preview.Width, preview.Height = w, h
		} else {
			r.logger.Debug("preview_dimensions_unavailable", "document_id", id, "error", err)
		}
	}

	file := upload.File
	if file.Size == 0 {
		file.Size = int64(len(upload.Body))
	}
	now := r.now()
	item := domain.DocumentItem{
		ID:           id,
		File:         file,
		Preview:      preview,
		DocumentType: docType,
		State:        domain.StateQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.mu.Lock()
	r.items[id] = &registryEntry{item: item}
	r.order = append(r.order, id)
	r.mu.Unlock()

	return item, nil
}

func (r *DocumentRegistry) Get(id string) (domain.DocumentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.items[id]
	if !ok {
		return domain.DocumentItem{}, notFound("get document", id)
	}
	return entry.item, nil
}

// List returns item snapshots in intake order.
func (r *DocumentRegistry) List() []domain.DocumentItem {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.DocumentItem, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id].item)
	}
	return out
}

func (r *DocumentRegistry) Stats() domain.RegistryStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := domain.RegistryStats{Total: len(r.order)}
	for _, id := range r.order {
		item := r.items[id].item
		switch item.State {
		case domain.StateQueued:
			stats.Queued++
		case domain.StateAnalyzing:
			stats.Analyzing++
		case domain.StateFailed:
			stats.Analyzed++
			stats.Failed++
		case domain.StateCompleted:
			stats.Analyzed++
			switch item.Result.Verdict {
			case domain.VerdictGenuine:
				stats.Genuine++
			case domain.VerdictSuspicious:
				stats.Suspicious++
			case domain.VerdictFraudulent:
				stats.Fraudulent++
			default:
				stats.Inconclusive++
			}
		}
	}
	stats.AnyAnalyzing = stats.Analyzing > 0
	stats.HasFailures = stats.Failed > 0
	return stats
}

// SetDocumentType changes the requested type of an item that was never analyzed.
func (r *DocumentRegistry) SetDocumentType(id string, docType domain.DocumentType) (domain.DocumentItem, error) {
	if !docType.Valid() {
		return domain.DocumentItem{}, domain.WrapError(domain.ErrInvalidInput, "set document type", fmt.Errorf("unknown document type %q", docType))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.items[id]
	if !ok {
		return domain.DocumentItem{}, notFound("set document type", id)
	}
	if entry.item.State != domain.StateQueued {
		return domain.DocumentItem{}, domain.WrapError(domain.ErrInvalidState, "set document type",
			fmt.Errorf("document %s is %s", id, entry.item.State))
	}
	entry.item.DocumentType = docType
	entry.item.UpdatedAt = r.now()
	return entry.item, nil
}

// Remove deletes the item with its derived state, cancels any in-flight
// analysis and releases the preview blob.
func (r *DocumentRegistry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	entry, ok := r.items[id]
	if !ok {
		r.mu.Unlock()
		return notFound("remove document", id)
	}
	delete(r.items, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	cancel := entry.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.releasePreview(ctx, id, entry.item.Preview.Key)
	return nil
}

// Close ends the session: in-flight analyses are cancelled and every preview released.
func (r *DocumentRegistry) Close(ctx context.Context) {
	r.mu.Lock()
	entries := make([]*registryEntry, 0, len(r.order))
	for _, id := range r.order {
		entries = append(entries, r.items[id])
	}
	r.items = make(map[string]*registryEntry)
	r.order = nil
	r.mu.Unlock()

	for _, entry := range entries {
		if entry.cancel != nil {
			entry.cancel()
		}
		r.releasePreview(ctx, entry.item.ID, entry.item.Preview.Key)
	}
}

// OpenPreview streams the stored binary of an item.
func (r *DocumentRegistry) OpenPreview(ctx context.Context, id string) (io.ReadCloser, domain.PreviewHandle, error) {
	item, err := r.Get(id)
	if err != nil {
		return nil, domain.PreviewHandle{}, err
	}
	body, err := r.storage.Open(ctx, item.Preview.Key)
	if err != nil {
		return nil, domain.PreviewHandle{}, fmt.Errorf("open preview: %w", err)
	}
	return body, item.Preview, nil
}

func (r *DocumentRegistry) releasePreview(ctx context.Context, id, key string) {
	if key == "" {
		return
	}
	if err := r.storage.Delete(ctx, key); err != nil {
		r.logger.Warn("preview_release_failed", "document_id", id, "key", key, "error", err)
	}
}

// claim moves one analyzable item to Analyzing and hands out its ticket.
func (r *DocumentRegistry) claim(parent context.Context, id string) (analysisClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.items[id]
	if !ok {
		return analysisClaim{}, notFound("analyze document", id)
	}
	if !entry.item.State.CanAnalyze() {
		return analysisClaim{}, domain.WrapError(domain.ErrInvalidState, "analyze document",
			fmt.Errorf("document %s is already %s", id, entry.item.State))
	}
	return r.claimLocked(parent, entry), nil
}

// claimQueued claims every Queued item in intake order.
func (r *DocumentRegistry) claimQueued(parent context.Context) []analysisClaim {
	r.mu.Lock()
	defer r.mu.Unlock()

	var claims []analysisClaim
	for _, id := range r.order {
		entry := r.items[id]
		if entry.item.State != domain.StateQueued {
			continue
		}
		claims = append(claims, r.claimLocked(parent, entry))
	}
	return claims
}

func (r *DocumentRegistry) claimLocked(parent context.Context, entry *registryEntry) analysisClaim {
	ctx, cancel := context.WithCancel(parent)
	entry.attempt++
	entry.cancel = cancel
	entry.item.State = domain.StateAnalyzing
	entry.item.Result = nil
	entry.item.ErrorMessage = ""
	entry.item.UpdatedAt = r.now()

	return analysisClaim{
		ctx:          ctx,
		id:           entry.item.ID,
		attempt:      entry.attempt,
		file:         entry.item.File,
		previewKey:   entry.item.Preview.Key,
		documentType: entry.item.DocumentType,
	}
}

// complete applies a result; it reports false when the claim went stale.
func (r *DocumentRegistry) complete(c analysisClaim, result *domain.AnalysisResult) (domain.DocumentItem, bool) {
	return r.finish(c, func(item *domain.DocumentItem) {
		item.State = domain.StateCompleted
		item.Result = result
	})
}

// fail records a failure; it reports false when the claim went stale.
func (r *DocumentRegistry) fail(c analysisClaim, message string) (domain.DocumentItem, bool) {
	return r.finish(c, func(item *domain.DocumentItem) {
		item.State = domain.StateFailed
		item.ErrorMessage = message
	})
}

func (r *DocumentRegistry) finish(c analysisClaim, apply func(*domain.DocumentItem)) (domain.DocumentItem, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.items[c.id]
	if !ok || entry.attempt != c.attempt || entry.item.State != domain.StateAnalyzing {
		return domain.DocumentItem{}, false
	}
	if entry.cancel != nil {
		entry.cancel()
		entry.cancel = nil
	}
	apply(&entry.item)
	entry.item.UpdatedAt = r.now()
	return entry.item, true
}

func notFound(operation, id string) error {
	return domain.WrapError(domain.ErrDocumentNotFound, operation, errors.New(id))
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "_" {
		return "document.bin"
	}
	return base
}
