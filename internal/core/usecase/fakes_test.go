package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/Shoaibzaak/visa-docverify/internal/core/domain"
)

type memStorageFake struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	deleted []string
	saveErr error
}

func newMemStorage() *memStorageFake {
	return &memStorageFake{blobs: map[string][]byte{}}
}

func (s *memStorageFake) Save(_ context.Context, key string, data io.Reader) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = raw
	return nil
}

func (s *memStorageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.blobs[key]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (s *memStorageFake) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *memStorageFake) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

type inspectorFake struct {
	width, height int
	err           error
}

func (f inspectorFake) Dimensions(io.Reader) (int, int, error) {
	return f.width, f.height, f.err
}

type analyzerFunc func(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisEnvelope, error)

func (f analyzerFunc) Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisEnvelope, error) {
	return f(ctx, req)
}

type busyError struct{}

func (busyError) Error() string       { return "status 500: server busy" }
func (busyError) UserMessage() string { return "server busy" }

type recorderFake struct {
	mu        sync.Mutex
	started   int
	outcomes  []string
	verdicts  []domain.Verdict
	discarded int
	rejected  int
}

func (r *recorderFake) StartAnalysis() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recorderFake) FinishAnalysis(outcome string, verdict domain.Verdict, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
	r.verdicts = append(r.verdicts, verdict)
}

func (r *recorderFake) DiscardResult() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discarded++
}

func (r *recorderFake) RejectFiles(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected += count
}

type publisherFake struct {
	mu     sync.Mutex
	events []domain.AnalysisEvent
}

func (p *publisherFake) PublishDocumentAnalyzed(_ context.Context, event domain.AnalysisEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func envelopeFor(level string, score float64) *domain.AnalysisEnvelope {
	return &domain.AnalysisEnvelope{Data: &domain.AnalysisData{
		OverallRiskScore: &score,
		RiskLevel:        level,
		DocumentType:     "passport",
	}}
}

func upload(name, mediaType string) domain.Upload {
	return domain.Upload{
		File:         domain.FileRef{Name: name, MediaType: mediaType},
		DocumentType: domain.DocumentTypePassport,
		Body:         []byte("image-bytes-" + name),
	}
}
