package actions

import (
	"github.com/go-go-golems/invochat/pkg/session"
)

type ContextPolicy int

const (
	// PolicyMergeIfPresent replaces the context when the response has one and
	// leaves it alone otherwise.
	PolicyMergeIfPresent ContextPolicy = iota
	// PolicyMergeOrClear replaces the context when the response has one and
	// clears it to language-only otherwise.
	PolicyMergeOrClear
	// PolicyFullReset runs the local reset protocol.
	PolicyFullReset
)

func (p ContextPolicy) String() string {
	switch p {
	case PolicyMergeIfPresent:
		return "merge-if-present"
	case PolicyMergeOrClear:
		return "merge-or-clear"
	case PolicyFullReset:
		return "full-reset"
	default:
		return "invalid"
	}
}

// PolicyFor returns the context policy of an action.
func PolicyFor(a Action) ContextPolicy {
	switch {
	case a == ActionResetSuccess:
		return PolicyFullReset
	case a.PreservesContext():
		return PolicyMergeIfPresent
	default:
		return PolicyMergeOrClear
	}
}

// NextContext computes the context after a successful turn:
//
//   - reset_success always yields {language};
//   - a response context replaces current wholesale, with the client's language;
//   - without one, clearing actions yield {language};
//   - otherwise current is kept as is.
//
// The result never aliases responseContext or current.
func NextContext(a Action, responseContext session.Context, current session.Context, lang session.Language) session.Context {
	if a == ActionResetSuccess {
		return session.LanguageOnly(lang)
	}
	if responseContext != nil {
		return responseContext.WithLanguage(lang)
	}
	if a.PreservesContext() {
		return current.WithLanguage(lang)
	}
	return session.LanguageOnly(lang)
}
