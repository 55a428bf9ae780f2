package notify

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"
)

const DefaultTopic = "notifications"

// WatermillNotifier publishes notifications as JSON to a watermill Publisher.
type WatermillNotifier struct {
	publisher message.Publisher
	topic     string
}

func NewWatermillNotifier(publisher message.Publisher, topic string) *WatermillNotifier {
	if topic == "" {
		topic = DefaultTopic
	}
	return &WatermillNotifier{
		publisher: publisher,
		topic:     topic,
	}
}

func (w *WatermillNotifier) Notify(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal notification to JSON")
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("kind", string(n.Kind))
	msg.Metadata.Set("action", n.Action)

	err = w.publisher.Publish(w.topic, msg)
	if err != nil {
		log.Error().Err(err).Str("topic", w.topic).Msg("Failed to publish notification")
		return err
	}

	log.Trace().Str("topic", w.topic).Str("kind", string(n.Kind)).Msg("Published notification")
	return nil
}

var _ Notifier = (*WatermillNotifier)(nil)
