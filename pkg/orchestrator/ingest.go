package orchestrator

import (
	"context"
	"strings"

	"github.com/go-go-golems/invochat/pkg/i18n"
	"github.com/go-go-golems/invochat/pkg/messages"
	"github.com/go-go-golems/invochat/pkg/transport"
	"github.com/rs/zerolog/log"
)

// SubmitFile uploads a document for text extraction. Extracted text is
// quoted back and then submitted as a turn of its own, with the busy flag
// held across both legs.
func (o *Orchestrator) SubmitFile(ctx context.Context, file transport.File) error {
	if err := o.acquire(); err != nil {
		return err
	}
	defer o.release()

	data := map[string]any{"filename": file.Name}
	o.appendUser(o.render(i18n.KeyUploading, data))

	sessionID := o.SessionID()
	res, err := o.client.UploadForExtraction(ctx, file, sessionID, o.store.Snapshot())
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Str("file", file.Name).Msg("extraction failed")
		data["detail"] = transport.Detail(err)
		o.appendBot(messages.Text(o.render(i18n.KeyExtractionFailed, data)))
		return nil
	}

	var text string
	if res != nil {
		text = strings.TrimSpace(res.Text)
	}
	if text == "" {
		log.Info().Str("session_id", sessionID).Str("file", file.Name).Msg("nothing extracted")
		o.appendBot(messages.Text(o.render(i18n.KeyNothingExtracted, data)))
		return nil
	}

	log.Info().Str("session_id", sessionID).Str("file", file.Name).Int("length", len(text)).Msg("text extracted")
	o.revealInput()
	data["text"] = text
	o.appendBot(messages.Text(o.render(i18n.KeyExtracted, data)))

	o.turn(ctx, text)
	return nil
}
