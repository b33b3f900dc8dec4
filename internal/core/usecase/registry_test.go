package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/Shoaibzaak/visa-docverify/internal/core/domain"
)

func newTestRegistry(storage *memStorageFake, opts ...RegistryOption) *DocumentRegistry {
	r := NewDocumentRegistry(storage, opts...)
	seq := 0
	r.newID = func() string {
		seq++
		return fmt.Sprintf("doc-%d", seq)
	}
	return r
}

func TestRegistryAddQueuesItem(t *testing.T) {
	storage := newMemStorage()
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r := newTestRegistry(storage, WithImageInspector(inspectorFake{width: 640, height: 480}), WithClock(func() time.Time { return fixed }))

	u := upload("my scan (1).jpg", "image/jpeg")
	u.DocumentType = ""
	item, err := r.Add(context.Background(), u)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if item.ID != "doc-1" || item.State != domain.StateQueued || item.DocumentType != domain.DocumentTypePassport {
		t.Fatalf("unexpected item %+v", item)
	}
	if item.Preview.Key != "doc-1_my_scan__1_.jpg" || item.Preview.Width != 640 || item.Preview.Height != 480 {
		t.Fatalf("unexpected preview %+v", item.Preview)
	}
	if item.File.Size != int64(len(u.Body)) || !item.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected file/time %+v %v", item.File, item.CreatedAt)
	}
	if storage.count() != 1 {
		t.Fatalf("expected preview blob to be saved")
	}
	if !item.Consistent() {
		t.Fatalf("queued item must be consistent")
	}
}

func TestRegistryAddKeepsItemWhenDimensionsUnavailable(t *testing.T) {
	r := newTestRegistry(newMemStorage(), WithImageInspector(inspectorFake{err: errors.New("unknown format")}))
	item, err := r.Add(context.Background(), upload("scan.tif", "image/tiff"))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if item.Preview.Width != 0 || item.Preview.Height != 0 {
		t.Fatalf("expected no dimensions, got %+v", item.Preview)
	}
}

func TestRegistryAddRejectsUnknownTypeAndStorageFailure(t *testing.T) {
	storage := newMemStorage()
	r := newTestRegistry(storage)

	u := upload("a.png", "image/png")
	u.DocumentType = "driving_licence"
	if _, err := r.Add(context.Background(), u); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	storage.saveErr = errors.New("disk full")
	if _, err := r.Add(context.Background(), upload("b.png", "image/png")); err == nil {
		t.Fatalf("expected storage error")
	}
	if len(r.List()) != 0 {
		t.Fatalf("failed adds must not create items")
	}
}

func TestRegistryListAndStats(t *testing.T) {
	r := newTestRegistry(newMemStorage())
	ctx := context.Background()
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"} {
		if _, err := r.Add(ctx, upload(name, "image/jpeg")); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	genuine, _ := r.claim(ctx, "doc-1")
	r.complete(genuine, &domain.AnalysisResult{Verdict: domain.VerdictGenuine})
	fraud, _ := r.claim(ctx, "doc-2")
	r.complete(fraud, &domain.AnalysisResult{Verdict: domain.VerdictFraudulent})
	failed, _ := r.claim(ctx, "doc-3")
	r.fail(failed, "server busy")
	_, _ = r.claim(ctx, "doc-4")

	items := r.List()
	if len(items) != 5 || items[0].ID != "doc-1" || items[4].ID != "doc-5" {
		t.Fatalf("expected intake order, got %+v", items)
	}
	for _, item := range items {
		if !item.Consistent() {
			t.Fatalf("inconsistent item %+v", item)
		}
	}

	want := domain.RegistryStats{
		Total: 5, Queued: 1, Analyzing: 1, Analyzed: 3,
		Genuine: 1, Fraudulent: 1, Failed: 1,
		AnyAnalyzing: true, HasFailures: true,
	}
	if got := r.Stats(); got != want {
		t.Fatalf("unexpected stats\n got %+v\nwant %+v", got, want)
	}
}

func TestRegistrySetDocumentTypeOnlyWhileQueued(t *testing.T) {
	r := newTestRegistry(newMemStorage())
	ctx := context.Background()
	_, _ = r.Add(ctx, upload("a.jpg", "image/jpeg"))

	item, err := r.SetDocumentType("doc-1", domain.DocumentTypeBankStatement)
	if err != nil || item.DocumentType != domain.DocumentTypeBankStatement {
		t.Fatalf("SetDocumentType() = %+v, %v", item, err)
	}
	if _, err := r.SetDocumentType("doc-1", "unknown"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := r.SetDocumentType("missing", domain.DocumentTypeVisa); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	c, err := r.claim(ctx, "doc-1")
	if err != nil {
		t.Fatalf("claim() error = %v", err)
	}
	if c.documentType != domain.DocumentTypeBankStatement {
		t.Fatalf("claim must carry the current type, got %s", c.documentType)
	}
	if _, err := r.SetDocumentType("doc-1", domain.DocumentTypeVisa); !domain.IsKind(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state while analyzing, got %v", err)
	}
}

func TestRegistryClaimRejectsAnalyzingItem(t *testing.T) {
	r := newTestRegistry(newMemStorage())
	ctx := context.Background()
	_, _ = r.Add(ctx, upload("a.jpg", "image/jpeg"))

	if _, err := r.claim(ctx, "doc-1"); err != nil {
		t.Fatalf("claim() error = %v", err)
	}
	if _, err := r.claim(ctx, "doc-1"); !domain.IsKind(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if _, err := r.claim(ctx, "nope"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRegistryReanalysisClearsPreviousOutcome(t *testing.T) {
	r := newTestRegistry(newMemStorage())
	ctx := context.Background()
	_, _ = r.Add(ctx, upload("a.jpg", "image/jpeg"))

	first, _ := r.claim(ctx, "doc-1")
	r.fail(first, "server busy")

	second, err := r.claim(ctx, "doc-1")
	if err != nil {
		t.Fatalf("re-claim of failed item: %v", err)
	}
	item, _ := r.Get("doc-1")
	if item.State != domain.StateAnalyzing || item.ErrorMessage != "" || item.Result != nil {
		t.Fatalf("expected cleared analyzing item, got %+v", item)
	}
	if second.attempt != first.attempt+1 {
		t.Fatalf("expected attempt to advance, got %d after %d", second.attempt, first.attempt)
	}

	if _, ok := r.complete(first, &domain.AnalysisResult{Verdict: domain.VerdictGenuine}); ok {
		t.Fatalf("stale claim must not apply")
	}
	item, ok := r.complete(second, &domain.AnalysisResult{Verdict: domain.VerdictFraudulent})
	if !ok || item.Result.Verdict != domain.VerdictFraudulent {
		t.Fatalf("current claim must apply, got %+v", item)
	}
}

func TestRegistryRemoveCancelsInFlightAndReleasesPreview(t *testing.T) {
	storage := newMemStorage()
	r := newTestRegistry(storage)
	ctx := context.Background()
	item, _ := r.Add(ctx, upload("a.jpg", "image/jpeg"))
	c, _ := r.claim(ctx, item.ID)

	if err := r.Remove(ctx, item.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	select {
	case <-c.ctx.Done():
	default:
		t.Fatalf("expected in-flight claim to be cancelled")
	}
	if _, ok := r.complete(c, &domain.AnalysisResult{Verdict: domain.VerdictGenuine}); ok {
		t.Fatalf("late result of a removed item must be discarded")
	}
	if len(storage.deleted) != 1 || storage.deleted[0] != item.Preview.Key {
		t.Fatalf("expected preview release, got %v", storage.deleted)
	}
	if _, err := r.Get(item.ID); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found after remove, got %v", err)
	}
	if err := r.Remove(ctx, item.ID); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}
}

func TestRegistryCloseReleasesEverything(t *testing.T) {
	storage := newMemStorage()
	r := newTestRegistry(storage)
	ctx := context.Background()
	_, _ = r.Add(ctx, upload("a.jpg", "image/jpeg"))
	_, _ = r.Add(ctx, upload("b.jpg", "image/jpeg"))
	c, _ := r.claim(ctx, "doc-2")

	r.Close(ctx)

	if storage.count() != 0 || len(r.List()) != 0 {
		t.Fatalf("expected empty registry and storage, got %d blobs %d items", storage.count(), len(r.List()))
	}
	if c.ctx.Err() == nil {
		t.Fatalf("expected close to cancel in-flight analysis")
	}
}

func TestRegistryOpenPreview(t *testing.T) {
	r := newTestRegistry(newMemStorage(), WithImageInspector(inspectorFake{width: 10, height: 20}))
	ctx := context.Background()
	item, _ := r.Add(ctx, upload("a.png", "image/png"))

	body, preview, err := r.OpenPreview(ctx, item.ID)
	if err != nil {
		t.Fatalf("OpenPreview() error = %v", err)
	}
	defer body.Close()
	raw, _ := io.ReadAll(body)
	if string(raw) != "image-bytes-a.png" || preview.MediaType != "image/png" || preview.Width != 10 {
		t.Fatalf("unexpected preview %q %+v", raw, preview)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"passport.jpg":     "passport.jpg",
		"../../etc/passwd": "passwd",
		"my file.png":      "my_file.png",
		"résumé.tif":       "r_sum_.tif",
		"":                 "document.bin",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
