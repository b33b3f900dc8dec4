package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Shoaibzaak/visa-docverify/internal/core/domain"
	"github.com/Shoaibzaak/visa-docverify/internal/core/ports"
)

const DefaultNoticeTTL = 5 * time.Second

// FileValidator admits files by declared media type only. File content is
// never inspected here.
type FileValidator struct {
	accepted map[string]struct{}
}

func NewFileValidator() *FileValidator {
	accepted := make(map[string]struct{}, len(domain.AcceptedMediaTypes))
	for _, mt := range domain.AcceptedMediaTypes {
		accepted[mt] = struct{}{}
	}
	return &FileValidator{accepted: accepted}
}

func (v *FileValidator) Accepts(mediaType string) bool {
	_, ok := v.accepted[normalizeMediaType(mediaType)]
	return ok
}

// Partition splits uploads into accepted and rejected, preserving order.
func (v *FileValidator) Partition(uploads []domain.Upload) (accepted, rejected []domain.Upload) {
	for _, u := range uploads {
		if v.Accepts(u.File.MediaType) {
			accepted = append(accepted, u)
			continue
		}
		rejected = append(rejected, u)
	}
	return accepted, rejected
}

func normalizeMediaType(mediaType string) string {
	base, _, _ := strings.Cut(mediaType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// NoticeBoard holds at most one validation notice. A notice clears itself
// after ttl unless a newer one replaced it or it was dismissed first.
type NoticeBoard struct {
	ttl time.Duration
	now func() time.Time

	mu         sync.Mutex
	current    *domain.ValidationNotice
	generation uint64
	timer      *time.Timer
}

func NewNoticeBoard(ttl time.Duration) *NoticeBoard {
	if ttl <= 0 {
		ttl = DefaultNoticeTTL
	}
	return &NoticeBoard{
		ttl: ttl,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (b *NoticeBoard) Post(rejected []string) domain.ValidationNotice {
	notice := domain.NewValidationNotice(rejected, b.now(), b.ttl)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopTimerLocked()
	b.generation++
	gen := b.generation
	b.current = &notice
	b.timer = time.AfterFunc(b.ttl, func() { b.expire(gen) })
	return notice
}

func (b *NoticeBoard) Current() (domain.ValidationNotice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return domain.ValidationNotice{}, false
	}
	return *b.current, true
}

func (b *NoticeBoard) Dismiss() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopTimerLocked()
	b.generation++
	b.current = nil
}

func (b *NoticeBoard) expire(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.generation {
		return
	}
	b.current = nil
	b.timer = nil
}

func (b *NoticeBoard) stopTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

type IntakeUseCase struct {
	validator *FileValidator
	registry  *DocumentRegistry
	notices   *NoticeBoard
	recorder  ports.AnalysisRecorder
	logger    *slog.Logger
}

func NewIntakeUseCase(
	validator *FileValidator,
	registry *DocumentRegistry,
	notices *NoticeBoard,
	recorder ports.AnalysisRecorder,
	logger *slog.Logger,
) *IntakeUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntakeUseCase{
		validator: validator,
		registry:  registry,
		notices:   notices,
		recorder:  recorder,
		logger:    logger,
	}
}

// Intake validates a batch of uploads and registers the accepted ones as
// Queued items. Rejections never create items; they produce one aggregated
// notice for the whole batch.
func (uc *IntakeUseCase) Intake(ctx context.Context, uploads []domain.Upload) (*domain.IntakeResult, error) {
	accepted, rejected := uc.validator.Partition(uploads)
	result := &domain.IntakeResult{Accepted: []domain.DocumentItem{}}

	if len(rejected) > 0 {
		names := make([]string, 0, len(rejected))
		for _, u := range rejected {
			names = append(names, u.File.Name)
		}
		notice := uc.notices.Post(names)
		result.Notice = &notice
		if uc.recorder != nil {
			uc.recorder.RejectFiles(len(rejected))
		}
		uc.logger.Info("files_rejected", "count", len(rejected), "files", names)
	}

	for _, u := range accepted {
		item, err := uc.registry.Add(ctx, u)
		if err != nil {
			return result, fmt.Errorf("register %s: %w", u.File.Name, err)
		}
		result.Accepted = append(result.Accepted, item)
		uc.logger.Info("document_queued",
			"document_id", item.ID,
			"file_name", item.File.Name,
			"media_type", item.File.MediaType,
			"document_type", item.DocumentType,
		)
	}
	return result, nil
}
