package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/go-go-golems/invochat/pkg/actions"
	"github.com/go-go-golems/invochat/pkg/i18n"
	"github.com/go-go-golems/invochat/pkg/messages"
	"github.com/go-go-golems/invochat/pkg/notify"
	"github.com/go-go-golems/invochat/pkg/session"
	"github.com/go-go-golems/invochat/pkg/settings"
	"github.com/go-go-golems/invochat/pkg/transport"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrBusy               = errors.New("a turn is already in flight")
	ErrEmptyText          = errors.New("text is empty")
	ErrUnknownQuickAction = errors.New("unknown quick action")
)

// InputStage models progressive disclosure of the free-text input.
type InputStage int

const (
	StageHidden InputStage = iota
	StageVisible
)

func (s InputStage) String() string {
	if s == StageVisible {
		return "visible"
	}
	return "hidden"
}

// ChangeFunc is called after every visible state change (log, busy flag,
// input stage, language). It must not call back into entry points.
type ChangeFunc func()

// Orchestrator owns the conversational state of one session and serializes
// all interactions with the backend.
//
// It owns:
// - the session context store and the message log
// - the busy flag, which guarantees at most one turn in flight
// - the input stage
//
// Rendering layers only read through the accessors and call the entry points.
type Orchestrator struct {
	client      transport.Client
	store       *session.Store
	log         *messages.Log
	catalog     *i18n.Catalog
	interpreter *actions.Interpreter
	notifier    notify.Notifier
	commands    settings.CommandSettings

	now          func() time.Time
	observers    []ChangeFunc
	storeOptions []session.StoreOption

	mu    sync.Mutex
	busy  bool
	stage InputStage
}

type Option func(*Orchestrator)

func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithOnChange registers an observer. Observers run synchronously, in
// registration order.
func WithOnChange(f ChangeFunc) Option {
	return func(o *Orchestrator) {
		if f != nil {
			o.observers = append(o.observers, f)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithStoreOptions configures the session store, e.g. with
// session.WithSessionID to pin the identifier.
func WithStoreOptions(options ...session.StoreOption) Option {
	return func(o *Orchestrator) {
		o.storeOptions = append(o.storeOptions, options...)
	}
}

// New creates an orchestrator in the idle state: greeting in the log,
// language-only context, input hidden.
func New(client transport.Client, s *settings.Settings, options ...Option) *Orchestrator {
	catalog := s.Catalog()
	o := &Orchestrator{
		client:      client,
		log:         messages.NewLog(),
		catalog:     catalog,
		interpreter: actions.NewInterpreter(catalog),
		notifier:    notify.NopNotifier{},
		commands:    s.Commands,
		now:         time.Now,
		stage:       StageHidden,
	}
	for _, opt := range options {
		opt(o)
	}
	o.store = session.NewStore(s.Language, o.storeOptions...)
	o.log.Reset(o.greeting())
	return o
}

func (o *Orchestrator) SessionID() string {
	return o.store.SessionID()
}

// Messages returns a copy of the message log, oldest first.
func (o *Orchestrator) Messages() []messages.Message {
	return o.log.Messages()
}

// LastDownload returns the newest invoice download offered in the log.
func (o *Orchestrator) LastDownload() (messages.Fragment, bool) {
	return o.log.LastDownload()
}

// Context returns a deep copy of the current conversation context.
func (o *Orchestrator) Context() session.Context {
	return o.store.Snapshot()
}

func (o *Orchestrator) Language() session.Language {
	return o.store.Language()
}

func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

func (o *Orchestrator) InputStage() InputStage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stage
}

func (o *Orchestrator) QuickActions() []settings.QuickAction {
	ret := make([]settings.QuickAction, len(o.commands.QuickActions))
	copy(ret, o.commands.QuickActions)
	return ret
}

// acquire takes the busy flag or fails with ErrBusy.
func (o *Orchestrator) acquire() error {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return ErrBusy
	}
	o.busy = true
	o.mu.Unlock()
	o.changed()
	return nil
}

func (o *Orchestrator) release() {
	o.mu.Lock()
	o.busy = false
	o.mu.Unlock()
	o.changed()
}

// setStage is the only input stage transition. Bootstrap commands and
// successful extractions reveal the input, resets hide it.
func (o *Orchestrator) setStage(stage InputStage) {
	o.mu.Lock()
	changed := o.stage != stage
	o.stage = stage
	o.mu.Unlock()
	if changed {
		log.Debug().Str("session_id", o.SessionID()).Stringer("stage", stage).Msg("input stage changed")
		o.changed()
	}
}

func (o *Orchestrator) revealInput() {
	o.setStage(StageVisible)
}

func (o *Orchestrator) changed() {
	for _, f := range o.observers {
		f()
	}
}

func (o *Orchestrator) render(key i18n.Key, data map[string]any) string {
	return o.catalog.Render(o.store.Language(), key, data)
}

func (o *Orchestrator) greeting() messages.Message {
	return messages.NewBotMessage(messages.Text(o.render(i18n.KeyGreeting, nil)), o.now())
}

func (o *Orchestrator) appendUser(text string) {
	o.log.Append(messages.NewUserMessage(text, o.now()))
	o.changed()
}

func (o *Orchestrator) appendBot(c messages.Content) {
	o.log.Append(messages.NewBotMessage(c, o.now()))
	o.changed()
}

func (o *Orchestrator) publish(ctx context.Context, n *notify.Notification) {
	if n == nil {
		return
	}
	ret := *n
	ret.SessionID = o.SessionID()
	ret.CreatedAt = o.now()
	if err := o.notifier.Notify(ctx, ret); err != nil {
		log.Warn().Err(err).
			Str("session_id", ret.SessionID).
			Str("action", ret.Action).
			Msg("could not publish notification")
	}
}

// SetLanguage switches the active language. The context's language follows
// immediately; an untouched conversation gets its greeting re-seeded.
func (o *Orchestrator) SetLanguage(ctx context.Context, lang session.Language) error {
	if !lang.Valid() {
		return errors.Wrapf(session.ErrUnknownLanguage, "%q", lang)
	}
	if err := o.acquire(); err != nil {
		return err
	}
	defer o.release()

	if err := o.store.SetLanguage(lang); err != nil {
		return err
	}
	if o.log.Len() == 1 {
		if m, ok := o.log.Last(); ok && m.IsBot {
			o.log.Reset(o.greeting())
		}
	}
	log.Info().Str("session_id", o.SessionID()).Str("language", lang.String()).Msg("language changed")
	o.changed()
	return nil
}
