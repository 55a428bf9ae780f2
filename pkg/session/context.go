package session

import (
	"github.com/huandu/go-clone"
)

// KeyLanguage is the only context key owned by the client.
const KeyLanguage = "language"

// Context is the opaque multi-turn state bag the backend uses to track where
// the user is in a flow (status, next expected field, partially collected
// customer/invoice data, selected item, ...). Apart from KeyLanguage its
// contents are defined by the backend.
type Context map[string]any

// LanguageOnly returns the empty context for the given language.
func LanguageOnly(lang Language) Context {
	return Context{KeyLanguage: string(lang)}
}

// Clone deep-copies the context so nested maps returned by the backend
// can't be mutated through a snapshot.
func (c Context) Clone() Context {
	if c == nil {
		return nil
	}
	return clone.Clone(c).(Context)
}

// WithLanguage returns a copy of c whose language is forced to lang.
func (c Context) WithLanguage(lang Language) Context {
	ret := c.Clone()
	if ret == nil {
		ret = Context{}
	}
	ret[KeyLanguage] = string(lang)
	return ret
}

// Language returns the language stored in the context, if any.
func (c Context) Language() (Language, bool) {
	v, ok := c[KeyLanguage].(string)
	if !ok {
		return "", false
	}
	l := Language(v)
	return l, l.Valid()
}

// IsLanguageOnly reports whether the context carries nothing but the language.
func (c Context) IsLanguageOnly() bool {
	for k := range c {
		if k != KeyLanguage {
			return false
		}
	}
	return true
}

func (c Context) GetString(key string) (string, bool) {
	v, ok := c[key].(string)
	return v, ok
}
