package orchestrator

import (
	"context"
	"strings"

	"github.com/go-go-golems/invochat/pkg/actions"
	"github.com/go-go-golems/invochat/pkg/i18n"
	"github.com/go-go-golems/invochat/pkg/messages"
	"github.com/go-go-golems/invochat/pkg/transport"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SubmitText runs one turn for typed input. It returns ErrBusy while another
// turn is in flight and ErrEmptyText for blank input; in both cases nothing
// is appended. Backend and transport failures are reported in the log, not
// returned.
func (o *Orchestrator) SubmitText(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	if err := o.acquire(); err != nil {
		return err
	}
	defer o.release()

	o.turn(ctx, text)
	return nil
}

// QuickAction submits the text bound to a configured shortcut.
func (o *Orchestrator) QuickAction(ctx context.Context, name string) error {
	qa, ok := o.commands.QuickAction(name)
	if !ok {
		return errors.Wrapf(ErrUnknownQuickAction, "%q", name)
	}
	return o.SubmitText(ctx, qa.Text)
}

// turn executes one turn. The caller holds the busy flag.
func (o *Orchestrator) turn(ctx context.Context, text string) {
	if o.commands.IsBootstrap(text) {
		o.revealInput()
	}
	if o.commands.IsReset(text) {
		o.reset(ctx, true)
		return
	}

	o.appendUser(text)

	sessionID := o.SessionID()
	lang := o.store.Language()
	current := o.store.Snapshot()

	resp, err := o.client.SendTurn(ctx, transport.TurnRequest{
		Text:      text,
		SessionID: sessionID,
		Context:   current,
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("turn failed")
		o.store.ClearToLanguage()
		o.appendBot(messages.Text(o.render(i18n.KeyTurnFailed, map[string]any{
			"detail": transport.Detail(err),
		})))
		return
	}

	outcome := o.interpreter.Interpret(lang, resp)
	log.Debug().
		Str("session_id", sessionID).
		Str("action", outcome.RawAction).
		Stringer("policy", outcome.Policy).
		Bool("has_context", resp.HasContext()).
		Msg("turn completed")
	if outcome.Action == actions.ActionUnknown {
		log.Warn().Str("session_id", sessionID).Str("action", outcome.RawAction).Msg("unrecognized action")
	}

	if outcome.Reset() {
		// the backend already forgot the session
		o.reset(ctx, false)
	} else {
		o.store.Replace(actions.NextContext(outcome.Action, resp.Context, current, lang))
	}
	o.appendBot(outcome.Content)
	o.publish(ctx, outcome.Notification)
}
