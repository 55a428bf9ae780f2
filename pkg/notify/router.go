package notify

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog/log"
)

// Router is an in-process notification bus: a GoChannel pub/sub plus a
// watermill router dispatching to registered handlers.
type Router struct {
	logger     watermill.LoggerAdapter
	Publisher  message.Publisher
	Subscriber message.Subscriber
	router     *message.Router
	topic      string
}

type RouterOption func(*Router)

func WithLogger(logger watermill.LoggerAdapter) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

func WithTopic(topic string) RouterOption {
	return func(r *Router) {
		r.topic = topic
	}
}

func NewRouter(options ...RouterOption) (*Router, error) {
	ret := &Router{
		logger: watermill.NopLogger{},
		topic:  DefaultTopic,
	}
	for _, o := range options {
		o(ret)
	}

	goPubSub := gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: false,
	}, ret.logger)
	ret.Publisher = goPubSub
	ret.Subscriber = goPubSub

	router, err := message.NewRouter(message.RouterConfig{}, ret.logger)
	if err != nil {
		return nil, err
	}
	ret.router = router

	return ret, nil
}

// Notifier returns a Notifier publishing on the router's topic.
func (r *Router) Notifier() *WatermillNotifier {
	return NewWatermillNotifier(r.Publisher, r.topic)
}

// AddHandler registers f for every notification published on the router's topic.
// Messages that are not valid notifications are logged and dropped.
func (r *Router) AddHandler(name string, f func(ctx context.Context, n *Notification) error) {
	r.router.AddNoPublisherHandler(name, r.topic, r.Subscriber, func(msg *message.Message) error {
		n, err := NewNotificationFromJSON(msg.Payload)
		if err != nil {
			log.Error().Err(err).Str("message_id", msg.UUID).Msg("Failed to parse notification")
			return nil
		}
		return f(msg.Context(), n)
	})
}

func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

func (r *Router) Close() error {
	log.Debug().Msg("Closing notification publisher")
	if err := r.Publisher.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close pubsub")
	}
	if err := r.router.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close router")
	}
	return nil
}
