package fraudapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"unicode/utf8"

	"github.com/Shoaibzaak/visa-docverify/internal/core/domain"
)

const (
	errorBodyLimit    = 200
	maxErrorBodyBytes = 64 << 10
)

func (c *Client) postDocument(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisEnvelope, error) {
	body, contentType, err := encodeMultipart(req)
	if err != nil {
		return nil, fmt.Errorf("encode analyze request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.analyzePath, body)
	if err != nil {
		return nil, fmt.Errorf("create analyze request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fraud api analyze request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newHTTPStatusError(resp)
	}

	var envelope domain.AnalysisEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &domain.MalformedResponseError{Reason: err.Error()}
	}
	return &envelope, nil
}

func encodeMultipart(req domain.AnalysisRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", multipart.FileContentDisposition("document", req.File.Name))
	mediaType := req.File.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	header.Set("Content-Type", mediaType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Body); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("documentType", string(req.DocumentType)); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

// HTTPStatusError is a non-2xx answer of the fraud service.
type HTTPStatusError struct {
	StatusCode    int
	Status        string
	ServerMessage string
	Body          string
}

func newHTTPStatusError(resp *http.Response) *HTTPStatusError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	statusErr := &HTTPStatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}

	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		statusErr.ServerMessage = firstString(payload.Message, payload.Error)
		return statusErr
	}
	statusErr.Body = truncate(strings.TrimSpace(string(raw)), errorBodyLimit)
	return statusErr
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "fraud api status error"
	}
	if msg := e.UserMessage(); msg != "" {
		return fmt.Sprintf("fraud api analyze status: %s: %s", e.Status, msg)
	}
	return fmt.Sprintf("fraud api analyze status: %s", e.Status)
}

// UserMessage prefers the server's message field, then the raw text body,
// then a generic line carrying the status.
func (e *HTTPStatusError) UserMessage() string {
	switch {
	case e.ServerMessage != "":
		return e.ServerMessage
	case e.Body != "":
		return e.Body
	default:
		return "analysis request failed: " + e.Status
	}
}

func (e *HTTPStatusError) Unwrap() error {
	return domain.ErrTransport
}

func firstString(candidates ...json.RawMessage) string {
	for _, raw := range candidates {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
