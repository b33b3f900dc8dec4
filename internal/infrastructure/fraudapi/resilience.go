package fraudapi

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/Shoaibzaak/visa-docverify/internal/core/domain"
	"github.com/Shoaibzaak/visa-docverify/internal/infrastructure/resilience"
)

const unavailableMessage = "analysis service temporarily unavailable"

// TransportError wraps a failure to get any usable answer from the service.
type TransportError struct {
	Err       error
	Temporary bool
}

func (e *TransportError) Error() string {
	return "fraud api analyze: " + e.Err.Error()
}

func (e *TransportError) Unwrap() []error {
	kinds := []error{domain.ErrTransport, e.Err}
	if e.Temporary {
		kinds = append(kinds, domain.ErrTemporary)
	}
	return kinds
}

func (e *TransportError) UserMessage() string {
	if resilience.IsCircuitOpen(e.Err) {
		return unavailableMessage
	}
	var um domain.UserMessager
	if errors.As(e.Err, &um) {
		return um.UserMessage()
	}
	return "analysis request failed: " + e.Err.Error()
}

func classifyAnalysisError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}
	if errors.Is(err, domain.ErrMalformedResponse) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: true,
		}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{
				Retryable:     true,
				RecordFailure: true,
			}
		}
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}

// wrapTransportError keeps malformed-response errors as they are and turns
// everything else into a TransportError.
func wrapTransportError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrMalformedResponse) {
		return err
	}
	class := classifyAnalysisError(err)
	return &TransportError{Err: err, Temporary: class.Retryable}
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
