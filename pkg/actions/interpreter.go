package actions

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-go-golems/invochat/pkg/i18n"
	"github.com/go-go-golems/invochat/pkg/messages"
	"github.com/go-go-golems/invochat/pkg/notify"
	"github.com/go-go-golems/invochat/pkg/session"
	"github.com/go-go-golems/invochat/pkg/transport"
)

// Outcome is what a backend response means for the session.
type Outcome struct {
	Action Action
	// RawAction is the action code as sent by the backend.
	RawAction string
	Content   messages.Content
	Policy    ContextPolicy
	// Notification is nil when the action has no user-visible side effect.
	Notification *notify.Notification
}

// Reset reports whether the outcome requires the local reset protocol.
func (o Outcome) Reset() bool {
	return o.Policy == PolicyFullReset
}

// Interpreter maps backend responses to outcomes. It is a total function:
// unknown actions degrade to a diagnostic message.
type Interpreter struct {
	catalog *i18n.Catalog
}

func NewInterpreter(catalog *i18n.Catalog) *Interpreter {
	return &Interpreter{catalog: catalog}
}

func (i *Interpreter) render(lang session.Language, key i18n.Key, data map[string]any) string {
	return i.catalog.Render(lang, key, data)
}

// messageOr returns the backend message if set, else the rendered fallback.
func (i *Interpreter) messageOr(resp *transport.TurnResponse, lang session.Language, key i18n.Key, data map[string]any) string {
	if m := resp.MessageText(); m != "" {
		return m
	}
	return i.render(lang, key, data)
}

func (i *Interpreter) Interpret(lang session.Language, resp *transport.TurnResponse) Outcome {
	if resp == nil {
		resp = &transport.TurnResponse{}
	}
	a := Parse(resp.Action)
	o := Outcome{
		Action:    a,
		RawAction: resp.Action,
		Policy:    PolicyFor(a),
	}
	data := map[string]any{
		"action":     resp.Action,
		"message":    resp.MessageText(),
		"contact_id": resp.ContactID,
		"invoice_id": resp.InvoiceID,
		"pdf_url":    resp.PDFURL,
	}

	switch a {
	case ActionGeneralResponse, ActionListItems, ActionAskQuestion, ActionRequestInvoiceInfo:
		o.Content = messages.Text(resp.MessageText())

	case ActionCustomerCreated, ActionCustomerExists:
		key := i18n.KeyCustomerCreated
		if a == ActionCustomerExists {
			key = i18n.KeyCustomerExists
		}
		o.Content = messages.Text(i.messageOr(resp, lang, key, data))
		o.Notification = &notify.Notification{
			Kind:      notify.KindSuccess,
			Text:      i.render(lang, key, data),
			ContactID: resp.ContactID,
		}

	case ActionCustomerCreationFailed, ActionCustomerCreationError:
		o.Content = messages.Text(i.messageOr(resp, lang, i18n.KeyCustomerFailed, data))
		o.Notification = &notify.Notification{
			Kind: notify.KindFailure,
			Text: o.Content.Text,
		}

	case ActionInvoiceCreated:
		o.Content = messages.Text(i.messageOr(resp, lang, i18n.KeyInvoiceCreated, data))
		if resp.InvoiceID != "" && resp.PDFURL != "" {
			filename := InvoiceFilename(resp.InvoiceID)
			label := i.render(lang, i18n.KeyInvoiceDownload, map[string]any{
				"filename":   filename,
				"invoice_id": resp.InvoiceID,
			})
			o.Content = o.Content.WithDownload(label, resp.PDFURL, filename)
		}
		o.Notification = &notify.Notification{
			Kind:      notify.KindSuccess,
			Text:      i.render(lang, i18n.KeyInvoiceCreated, data),
			InvoiceID: resp.InvoiceID,
		}

	case ActionInvoiceCreationFailed, ActionInvoiceCreationError:
		o.Content = messages.Text(i.messageOr(resp, lang, i18n.KeyInvoiceFailed, data))
		o.Notification = &notify.Notification{
			Kind: notify.KindFailure,
			Text: o.Content.Text,
		}

	case ActionResetSuccess:
		o.Content = messages.Text(i.messageOr(resp, lang, i18n.KeyChatReset, data))

	case ActionFileUploaded:
		o.Content = messages.Text(i.messageOr(resp, lang, i18n.KeyFileUploaded, data))
		if resp.ExtractedData != nil {
			o.Content = o.Content.WithCode(formatExtractedData(resp.ExtractedData))
		}
		o.Notification = &notify.Notification{
			Kind: notify.KindInfo,
			Text: o.Content.Text,
		}

	case ActionError, ActionCustomerLookupError:
		o.Content = messages.Text(i.render(lang, i18n.KeyBackendError, data))
		o.Notification = &notify.Notification{
			Kind: notify.KindFailure,
			Text: o.Content.Text,
		}

	case ActionUnknown:
		data["detail"] = diagnosticDetail(resp)
		o.Content = messages.Text(i.render(lang, i18n.KeyUnknownAction, data))
	}

	if o.Notification != nil {
		o.Notification.Action = resp.Action
	}
	return o
}

// InvoiceFilename is the suggested local filename of an invoice PDF.
func InvoiceFilename(invoiceID string) string {
	return fmt.Sprintf("invoice_%s.pdf", invoiceID)
}

func formatExtractedData(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// diagnosticDetail echoes the raw message, or the payload minus the action
// when there is no message.
func diagnosticDetail(resp *transport.TurnResponse) string {
	if m := resp.MessageText(); m != "" {
		return m
	}
	if len(resp.Raw) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(resp.Raw))
	for k := range resp.Raw {
		if k == "action" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		b, err := json.Marshal(resp.Raw[k])
		if err != nil {
			b = []byte(fmt.Sprintf("%v", resp.Raw[k]))
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, b))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
