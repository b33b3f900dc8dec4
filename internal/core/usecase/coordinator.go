package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Shoaibzaak/visa-docverify/internal/core/domain"
	"github.com/Shoaibzaak/visa-docverify/internal/core/ports"
)

const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeDiscarded = "discarded"

	publishTimeout = 5 * time.Second
)

type CoordinatorOptions struct {
	// MaxConcurrency bounds in-flight remote calls; zero means unbounded.
	MaxConcurrency int
	Publisher      ports.AnalysisEventPublisher
	Recorder       ports.AnalysisRecorder
	Logger         *slog.Logger
}

// AnalysisCoordinator drives the per-item analysis lifecycle. Distinct items
// never share state, so one failure cannot affect another item.
type AnalysisCoordinator struct {
	registry  *DocumentRegistry
	analyzer  ports.FraudAnalyzer
	limiter   *semaphore.Weighted
	publisher ports.AnalysisEventPublisher
	recorder  ports.AnalysisRecorder
	logger    *slog.Logger

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

func NewAnalysisCoordinator(registry *DocumentRegistry, analyzer ports.FraudAnalyzer, opts CoordinatorOptions) *AnalysisCoordinator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *semaphore.Weighted
	if opts.MaxConcurrency > 0 {
		limiter = semaphore.NewWeighted(int64(opts.MaxConcurrency))
	}
	baseCtx, stop := context.WithCancel(context.Background())

	return &AnalysisCoordinator{
		registry:  registry,
		analyzer:  analyzer,
		limiter:   limiter,
		publisher: opts.Publisher,
		recorder:  opts.Recorder,
		logger:    logger,
		baseCtx:   baseCtx,
		stop:      stop,
	}
}

// Analyze runs one analysis of the item and returns its terminal snapshot.
// Valid only when the item is Queued, Completed or Failed.
func (co *AnalysisCoordinator) Analyze(ctx context.Context, id string) (domain.DocumentItem, error) {
	c, err := co.registry.claim(ctx, id)
	if err != nil {
		return domain.DocumentItem{}, err
	}
	item, outcome := co.run(c)
	if outcome == outcomeDiscarded {
		return domain.DocumentItem{}, notFound("analyze document", id)
	}
	return item, nil
}

// AnalyzeAll analyzes every Queued item concurrently and waits for all of
// them. Items in any other state are skipped. The batch never fails as a
// whole; each outcome is listed in arrival order.
func (co *AnalysisCoordinator) AnalyzeAll(ctx context.Context) domain.BatchReport {
	claims := co.registry.claimQueued(ctx)
	report := domain.BatchReport{
		Submitted: len(claims),
		Completed: []string{},
		Failed:    []string{},
		Discarded: []string{},
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, c := range claims {
		g.Go(func() error {
			_, outcome := co.run(c)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeCompleted:
				report.Completed = append(report.Completed, c.id)
			case outcomeFailed:
				report.Failed = append(report.Failed, c.id)
			default:
				report.Discarded = append(report.Discarded, c.id)
			}
			return nil
		})
	}
	_ = g.Wait()
	return report
}

// Submit moves the item to Analyzing and runs the call in the background.
func (co *AnalysisCoordinator) Submit(id string) error {
	c, err := co.registry.claim(co.baseCtx, id)
	if err != nil {
		return err
	}
	co.spawn(c)
	return nil
}

// SubmitAll is the background variant of AnalyzeAll; it returns how many
// items were claimed.
func (co *AnalysisCoordinator) SubmitAll() int {
	claims := co.registry.claimQueued(co.baseCtx)
	for _, c := range claims {
		co.spawn(c)
	}
	return len(claims)
}

// Shutdown waits for background analyses; when ctx expires first the
// remaining calls are cancelled.
func (co *AnalysisCoordinator) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		co.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		co.stop()
		return nil
	case <-ctx.Done():
		co.stop()
		<-done
		return ctx.Err()
	}
}

func (co *AnalysisCoordinator) spawn(c analysisClaim) {
	co.wg.Add(1)
	go func() {
		defer co.wg.Done()
		co.run(c)
	}()
}

func (co *AnalysisCoordinator) run(c analysisClaim) (domain.DocumentItem, string) {
	start := time.Now()
	logger := co.logger.With("document_id", c.id, "attempt", c.attempt, "document_type", c.documentType)
	logger.Info("analysis_started", "file_name", c.file.Name)
	if co.recorder != nil {
		co.recorder.StartAnalysis()
	}

	result, err := co.execute(c)

	var (
		item domain.DocumentItem
		ok   bool
	)
	if err != nil {
		item, ok = co.registry.fail(c, domain.UserMessage(err))
	} else {
		item, ok = co.registry.complete(c, result)
	}

	outcome := outcomeCompleted
	switch {
	case !ok:
		outcome = outcomeDiscarded
		logger.Info("analysis_result_discarded", "error", err)
	case err != nil:
		outcome = outcomeFailed
		logger.Warn("analysis_failed", "error", err, "error_message", item.ErrorMessage)
	default:
		logger.Info("analysis_completed",
			"verdict", result.Verdict,
			"risk_level", result.RiskLevel,
			"confidence", result.Confidence,
			"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
		)
	}

	if co.recorder != nil {
		var verdict domain.Verdict
		if outcome == outcomeCompleted {
			verdict = result.Verdict
		}
		if outcome == outcomeDiscarded {
			co.recorder.DiscardResult()
		}
		co.recorder.FinishAnalysis(outcome, verdict, time.Since(start).Seconds())
	}
	if ok {
		co.publish(item)
	}
	return item, outcome
}

func (co *AnalysisCoordinator) execute(c analysisClaim) (*domain.AnalysisResult, error) {
	if co.limiter != nil {
		if err := co.limiter.Acquire(c.ctx, 1); err != nil {
			return nil, fmt.Errorf("wait for analysis slot: %w", err)
		}
		defer co.limiter.Release(1)
	}

	body, err := co.readBlob(c)
	if err != nil {
		return nil, err
	}

	envelope, err := co.analyzer.Analyze(c.ctx, domain.AnalysisRequest{
		DocumentID:   c.id,
		File:         c.file,
		DocumentType: c.documentType,
		Body:         body,
	})
	if err != nil {
		return nil, err
	}
	return NormalizeAnalysis(envelope)
}

func (co *AnalysisCoordinator) readBlob(c analysisClaim) ([]byte, error) {
	rc, err := co.registry.storage.Open(c.ctx, c.previewKey)
	if err != nil {
		return nil, fmt.Errorf("open document blob: %w", err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read document blob: %w", err)
	}
	return body, nil
}

func (co *AnalysisCoordinator) publish(item domain.DocumentItem) {
	if co.publisher == nil {
		return
	}
	event := domain.AnalysisEvent{
		DocumentID:   item.ID,
		FileName:     item.File.Name,
		DocumentType: item.DocumentType,
		State:        item.State,
		ErrorMessage: item.ErrorMessage,
		OccurredAt:   item.UpdatedAt,
	}
	if item.Result != nil {
		event.Verdict = item.Result.Verdict
		event.RiskLevel = item.Result.RiskLevel
		event.Confidence = item.Result.Confidence
	}

	ctx, cancel := context.WithTimeout(co.baseCtx, publishTimeout)
	defer cancel()
	if err := co.publisher.PublishDocumentAnalyzed(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		co.logger.Warn("analysis_event_publish_failed", "document_id", item.ID, "error", err)
	}
}
