package orchestrator

import (
	"context"

	"github.com/rs/zerolog/log"
)

// RequestReset clears the conversation locally and asks the backend to forget
// the session. A backend failure is logged; the local reset stands.
func (o *Orchestrator) RequestReset(ctx context.Context) error {
	if err := o.acquire(); err != nil {
		return err
	}
	defer o.release()

	o.reset(ctx, true)
	return nil
}

// reset is idempotent: a single greeting, a language-only context and a hidden
// input, whatever the state before.
func (o *Orchestrator) reset(ctx context.Context, notifyRemote bool) {
	o.log.Reset(o.greeting())
	o.store.ClearToLanguage()
	o.setStage(StageHidden)
	o.changed()

	sessionID := o.SessionID()
	log.Info().Str("session_id", sessionID).Bool("remote", notifyRemote).Msg("session reset")
	if !notifyRemote {
		return
	}
	if err := o.client.ResetSession(ctx, sessionID); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("backend session reset failed")
	}
}
