package ports

import (
	"context"
	"io"

	"github.com/Shoaibzaak/visa-docverify/internal/core/domain"
)

// DocumentIntake is the inbound contract for accepting uploaded files.
type DocumentIntake interface {
	Intake(ctx context.Context, uploads []domain.Upload) (*domain.IntakeResult, error)
}

// DocumentRegistryReader exposes read-only views of the registry.
type DocumentRegistryReader interface {
	Get(id string) (domain.DocumentItem, error)
	List() []domain.DocumentItem
	Stats() domain.RegistryStats
}

// DocumentEditor mutates items outside of analysis.
type DocumentEditor interface {
	SetDocumentType(id string, docType domain.DocumentType) (domain.DocumentItem, error)
	Remove(ctx context.Context, id string) error
}

// AnalysisCoordinator drives analysis of registry items.
type AnalysisCoordinator interface {
	Analyze(ctx context.Context, id string) (domain.DocumentItem, error)
	AnalyzeAll(ctx context.Context) domain.BatchReport
	Submit(id string) error
	SubmitAll() int
}

// NoticeReader exposes the transient validation notice.
type NoticeReader interface {
	Current() (domain.ValidationNotice, bool)
	Dismiss()
}

// PreviewReader streams the stored binary behind an item preview.
type PreviewReader interface {
	OpenPreview(ctx context.Context, id string) (io.ReadCloser, domain.PreviewHandle, error)
}
