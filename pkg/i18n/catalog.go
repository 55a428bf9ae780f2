package i18n

import (
	"bytes"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/go-go-golems/invochat/pkg/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Key names a phrase in the catalog.
type Key string

const (
	KeyGreeting         Key = "greeting"
	KeyChatReset        Key = "chat_reset"
	KeyCustomerCreated  Key = "customer_created"
	KeyCustomerExists   Key = "customer_exists"
	KeyCustomerFailed   Key = "customer_failed"
	KeyInvoiceCreated   Key = "invoice_created"
	KeyInvoiceDownload  Key = "invoice_download"
	KeyInvoiceFailed    Key = "invoice_failed"
	KeyFileUploaded     Key = "file_uploaded"
	KeyBackendError     Key = "backend_error"
	KeyUnknownAction    Key = "unknown_action"
	KeyTurnFailed       Key = "turn_failed"
	KeyUploading        Key = "uploading"
	KeyExtracted        Key = "extracted"
	KeyNothingExtracted Key = "nothing_extracted"
	KeyExtractionFailed Key = "extraction_failed"
)

// Phrases maps phrase keys to text/template sources.
type Phrases map[Key]string

// Catalog renders localized phrases. Templates have the sprig function map
// available; a phrase missing in a language falls back to the fallback language.
type Catalog struct {
	fallback session.Language
	phrases  map[session.Language]Phrases

	mu        sync.Mutex
	templates map[string]*template.Template
}

func NewCatalog(fallback session.Language, phrases map[session.Language]Phrases) *Catalog {
	return &Catalog{
		fallback:  fallback,
		phrases:   phrases,
		templates: map[string]*template.Template{},
	}
}

// Source returns the raw template for key in lang, falling back as needed.
func (c *Catalog) Source(lang session.Language, key Key) (string, session.Language, bool) {
	if p, ok := c.phrases[lang][key]; ok && p != "" {
		return p, lang, true
	}
	if p, ok := c.phrases[c.fallback][key]; ok && p != "" {
		return p, c.fallback, true
	}
	return "", "", false
}

// Render executes the phrase template for key. Rendering never fails: a
// missing phrase renders as the key itself and a broken template as its source.
func (c *Catalog) Render(lang session.Language, key Key, data map[string]any) string {
	src, resolved, ok := c.Source(lang, key)
	if !ok {
		log.Warn().Str("language", lang.String()).Str("key", string(key)).Msg("missing phrase")
		return string(key)
	}

	tmpl, err := c.template(resolved, key, src)
	if err != nil {
		log.Warn().Err(err).Str("key", string(key)).Msg("could not parse phrase template")
		return src
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		log.Warn().Err(err).Str("key", string(key)).Msg("could not render phrase template")
		return src
	}
	return buf.String()
}

func (c *Catalog) template(lang session.Language, key Key, src string) (*template.Template, error) {
	name := lang.String() + "/" + string(key)

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.templates[name]; ok {
		return t, nil
	}
	t, err := template.New(name).Funcs(sprig.TxtFuncMap()).Parse(src)
	if err != nil {
		return nil, errors.Wrapf(err, "phrase %s", name)
	}
	c.templates[name] = t
	return t, nil
}

// Validate parses every template in the catalog.
func (c *Catalog) Validate() error {
	for lang, phrases := range c.phrases {
		for key, src := range phrases {
			if _, err := c.template(lang, key, src); err != nil {
				return err
			}
		}
	}
	return nil
}
