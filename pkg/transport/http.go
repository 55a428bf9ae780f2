package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-go-golems/invochat/pkg/session"
	"github.com/go-go-golems/invochat/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTurnPath    = "/chat"
	DefaultExtractPath = "/ocr"
	DefaultResetPath   = "/reset"

	// maxErrorBody caps how much of an error body is kept in *Error.
	maxErrorBody = 4096
)

// HTTPClient talks to the dialogue backend over HTTP+JSON.
type HTTPClient struct {
	httpClient  *http.Client
	baseURL     string
	turnPath    string
	extractPath string
	resetPath   string
	userAgent   string
	timeout     *time.Duration
}

type HTTPClientOption func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client. A nil client is ignored.
func WithHTTPClient(c *http.Client) HTTPClientOption {
	return func(h *HTTPClient) {
		if c != nil {
			h.httpClient = c
		}
	}
}

// WithTimeout sets the timeout of the underlying http.Client, whichever
// client ends up being used. Zero disables it.
func WithTimeout(d time.Duration) HTTPClientOption {
	return func(h *HTTPClient) {
		h.timeout = &d
	}
}

func WithPaths(turn, extract, reset string) HTTPClientOption {
	return func(h *HTTPClient) {
		if turn != "" {
			h.turnPath = turn
		}
		if extract != "" {
			h.extractPath = extract
		}
		if reset != "" {
			h.resetPath = reset
		}
	}
}

func WithUserAgent(ua string) HTTPClientOption {
	return func(h *HTTPClient) {
		h.userAgent = ua
	}
}

// NewHTTPClient creates a client for the backend at baseURL.
func NewHTTPClient(baseURL string, options ...HTTPClientOption) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid backend URL %q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("invalid backend URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, errors.Errorf("invalid backend URL %q: missing host", baseURL)
	}

	h := &HTTPClient{
		httpClient:  &http.Client{},
		baseURL:     strings.TrimRight(baseURL, "/"),
		turnPath:    DefaultTurnPath,
		extractPath: DefaultExtractPath,
		resetPath:   DefaultResetPath,
	}
	for _, o := range options {
		o(h)
	}
	if h.timeout != nil {
		c := *h.httpClient
		c.Timeout = *h.timeout
		h.httpClient = &c
	}
	return h, nil
}

// NewHTTPClientFromSettings applies BackendSettings on top of the given options.
func NewHTTPClientFromSettings(bs settings.BackendSettings, options ...HTTPClientOption) (*HTTPClient, error) {
	opts := []HTTPClientOption{
		WithPaths(bs.TurnPath, bs.ExtractPath, bs.ResetPath),
		WithUserAgent(bs.UserAgent),
	}
	if bs.Timeout != nil {
		opts = append(opts, WithTimeout(*bs.Timeout))
	}
	return NewHTTPClient(bs.BaseURL, append(opts, options...)...)
}

func (h *HTTPClient) endpoint(p string) string {
	return h.baseURL + path.Clean("/"+p)
}

func (h *HTTPClient) setHeaders(req *http.Request, contentType string) {
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
}

// do executes req and decodes a 2xx JSON body into out (if non-nil).
func (h *HTTPClient) do(req *http.Request, op string, out interface{}) error {
	start := time.Now()
	resp, err := h.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("op", op).Str("url", req.URL.String()).Msg("request failed")
		return &Error{Op: op, Err: err}
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: errors.Wrap(err, "could not read response body")}
	}

	log.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Int("bytes", len(body)).
		Msg("backend responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Op: op, StatusCode: resp.StatusCode, Body: truncate(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body)),
			Err:        errors.Wrap(err, "could not decode response"),
		}
	}
	return nil
}

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}

func (h *HTTPClient) postJSON(ctx context.Context, op string, p string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &Error{Op: op, Err: errors.Wrap(err, "could not encode request")}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint(p), bytes.NewReader(body))
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	h.setHeaders(req, "application/json")
	return h.do(req, op, out)
}

func (h *HTTPClient) SendTurn(ctx context.Context, tr TurnRequest) (*TurnResponse, error) {
	var resp TurnResponse
	if err := h.postJSON(ctx, "send turn", h.turnPath, tr, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (h *HTTPClient) UploadForExtraction(ctx context.Context, file File, sessionID string, c session.Context) (*ExtractionResult, error) {
	const op = "upload for extraction"
	if file.Content == nil {
		return nil, &Error{Op: op, Err: errors.New("file has no content")}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := writeMultipartFile(mw, file); err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	if err := mw.WriteField("session_id", sessionID); err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	ctxJSON, err := json.Marshal(c)
	if err != nil {
		return nil, &Error{Op: op, Err: errors.Wrap(err, "could not encode context")}
	}
	if err := mw.WriteField("context", string(ctxJSON)); err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	if err := mw.Close(); err != nil {
		return nil, &Error{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint(h.extractPath), &buf)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	h.setHeaders(req, mw.FormDataContentType())

	var ret ExtractionResult
	if err := h.do(req, op, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeMultipartFile(mw *multipart.Writer, file File) error {
	name := file.Name
	if name == "" {
		name = "upload"
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(name)))
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return errors.Wrapf(err, "could not read %s", name)
	}
	return nil
}

func (h *HTTPClient) ResetSession(ctx context.Context, sessionID string) error {
	return h.postJSON(ctx, "reset session", h.resetPath, map[string]string{"session_id": sessionID}, nil)
}

// Download fetches a document referenced by the backend, such as an invoice
// PDF. Relative URLs are resolved against the backend base URL. The caller
// closes the returned body.
func (h *HTTPClient) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	const op = "download"
	target, err := h.resolve(rawURL)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp.Body, nil
}

func (h *HTTPClient) resolve(rawURL string) (string, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid document URL %q", rawURL)
	}
	if ref.IsAbs() {
		if ref.Scheme != "http" && ref.Scheme != "https" {
			return "", errors.Errorf("invalid document URL %q: scheme must be http or https", rawURL)
		}
		return ref.String(), nil
	}
	base, err := url.Parse(h.baseURL + "/")
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

var _ Client = (*HTTPClient)(nil)
