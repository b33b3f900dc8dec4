package ports

import (
	"context"
	"io"

	"github.com/Shoaibzaak/visa-docverify/internal/core/domain"
)

// FraudAnalyzer issues one remote analysis call per request.
type FraudAnalyzer interface {
	Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisEnvelope, error)
}

// BlobStorage keeps the uploaded binaries that back item previews.
type BlobStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// ImageInspector reads display dimensions from an image header.
type ImageInspector interface {
	Dimensions(r io.Reader) (width, height int, err error)
}

// AnalysisEventPublisher announces terminal analysis outcomes.
type AnalysisEventPublisher interface {
	PublishDocumentAnalyzed(ctx context.Context, event domain.AnalysisEvent) error
}

// AnalysisRecorder observes coordinator activity for metrics.
type AnalysisRecorder interface {
	StartAnalysis()
	FinishAnalysis(outcome string, verdict domain.Verdict, seconds float64)
	DiscardResult()
	RejectFiles(count int)
}
