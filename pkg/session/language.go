package session

import (
	"strings"

	"github.com/pkg/errors"
)

// Language is the client-owned conversation language. The backend echoes it
// back inside the context but is never authoritative for it.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageKannada Language = "kn"
)

const DefaultLanguage = LanguageEnglish

var ErrUnknownLanguage = errors.New("unknown language")

// Languages lists every supported language in display order.
func Languages() []Language {
	return []Language{LanguageEnglish, LanguageKannada}
}

// ParseLanguage accepts a language code in any casing, surrounded by optional whitespace.
func ParseLanguage(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", errors.Wrapf(ErrUnknownLanguage, "%q", s)
	}
	return l, nil
}

func (l Language) Valid() bool {
	switch l {
	case LanguageEnglish, LanguageKannada:
		return true
	default:
		return false
	}
}

func (l Language) String() string {
	return string(l)
}
