package fraudapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Shoaibzaak/visa-docverify/internal/core/domain"
	"github.com/Shoaibzaak/visa-docverify/internal/infrastructure/resilience"
)

const (
	DefaultAnalyzePath = "/document-fraud/analyze"
	DefaultTimeout     = 120 * time.Second

	analyzeOperation = "fraudapi.analyze"
)

// Client calls the remote document fraud detection service.
type Client struct {
	baseURL     string
	analyzePath string
	httpClient  *http.Client
	executor    *resilience.Executor
}

type Options struct {
	AnalyzePath string
	Timeout     time.Duration
	HTTPClient  *http.Client
	Executor    *resilience.Executor
}

func New(baseURL string, opts Options) *Client {
	path := opts.AnalyzePath
	if path == "" {
		path = DefaultAnalyzePath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		analyzePath: path,
		httpClient:  httpClient,
		executor:    opts.Executor,
	}
}

// Analyze posts the document and its requested type. It never retries on
// its own; a retry is always an explicit new analysis of the item.
func (c *Client) Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisEnvelope, error) {
	var envelope *domain.AnalysisEnvelope
	call := func(callCtx context.Context) error {
		out, err := c.postDocument(callCtx, req)
		if err != nil {
			return err
		}
		envelope = out
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, analyzeOperation, call, classifyAnalysisError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTransportError(err)
	}
	return envelope, nil
}
