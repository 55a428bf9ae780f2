package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/go-go-golems/invochat/pkg/session"
)

// Client exchanges turns and files with the remote dialogue backend.
//
// Every call is a single attempt. Failures are reported as *Error.
type Client interface {
	SendTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error)
	// UploadForExtraction returns an empty Text when nothing could be extracted.
	UploadForExtraction(ctx context.Context, file File, sessionID string, c session.Context) (*ExtractionResult, error)
	// ResetSession asks the backend to forget its state for the session.
	ResetSession(ctx context.Context, sessionID string) error
}

type TurnRequest struct {
	Text      string          `json:"text"`
	SessionID string          `json:"session_id"`
	Context   session.Context `json:"context"`
}

// TurnResponse is the decoded backend reply. Action is always set (possibly
// to the empty string); every other field is optional and action specific.
type TurnResponse struct {
	Action        string          `json:"action"`
	Message       *string         `json:"message,omitempty"`
	Context       session.Context `json:"context,omitempty"`
	ContactID     string          `json:"contact_id,omitempty"`
	InvoiceID     string          `json:"invoice_id,omitempty"`
	PDFURL        string          `json:"pdf_url,omitempty"`
	ExtractedData any             `json:"extracted_data,omitempty"`

	// Raw holds the whole decoded payload, including fields not modelled above.
	Raw map[string]any `json:"-"`
}

// UnmarshalJSON is lenient: a non-string action is kept as its JSON text, so
// it reads as an unknown action, and a context that is not an object is
// treated as absent.
func (r *TurnResponse) UnmarshalJSON(b []byte) error {
	type Alias TurnResponse
	aux := struct {
		Action    json.RawMessage `json:"action,omitempty"`
		Context   json.RawMessage `json:"context,omitempty"`
		ContactID json.RawMessage `json:"contact_id,omitempty"`
		InvoiceID json.RawMessage `json:"invoice_id,omitempty"`
		Message   json.RawMessage `json:"message,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	r.Action = idString(aux.Action)
	r.Context = contextObject(aux.Context)
	r.ContactID = idString(aux.ContactID)
	r.InvoiceID = idString(aux.InvoiceID)
	r.Message = messageString(aux.Message)

	raw := map[string]any{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.Raw = raw
	return nil
}

func contextObject(raw json.RawMessage) session.Context {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var c session.Context
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil
	}
	return c
}

// idString accepts values sent either as JSON strings or as numbers.
// Anything else is kept verbatim so large ids don't lose precision.
func idString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// messageString keeps non-string messages as their JSON text.
func messageString(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	return &s
}

// MessageText returns the message, or "" when absent.
func (r *TurnResponse) MessageText() string {
	if r == nil || r.Message == nil {
		return ""
	}
	return *r.Message
}

// HasContext reports whether the backend sent a context object.
func (r *TurnResponse) HasContext() bool {
	return r != nil && r.Context != nil
}

type ExtractionResult struct {
	Text string `json:"text"`
}

// File is an attachment handed to UploadForExtraction.
type File struct {
	Name        string
	ContentType string
	Content     io.Reader
}
