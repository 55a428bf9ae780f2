package cmds

import (
	"context"
	"fmt"
	"io"

	"github.com/go-go-golems/invochat/pkg/notify"
	"github.com/go-go-golems/invochat/pkg/orchestrator"
	"github.com/go-go-golems/invochat/pkg/session"
	"github.com/go-go-golems/invochat/pkg/settings"
	"github.com/go-go-golems/invochat/pkg/transport"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// LoadSettings reads the config file found by viper on top of the embedded
// defaults, then applies the flag and environment overrides.
func LoadSettings() (*settings.Settings, error) {
	s, err := settings.LoadFromFile(viper.ConfigFileUsed())
	if err != nil {
		return nil, err
	}

	if u := viper.GetString("backend-url"); u != "" {
		s.Backend.BaseURL = u
	}
	if l := viper.GetString("language"); l != "" {
		lang, err := session.ParseLanguage(l)
		if err != nil {
			return nil, err
		}
		s.Language = lang
	}
	if d := viper.GetDuration("timeout"); d > 0 {
		s.Backend.Timeout = &d
	}

	if err := s.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid settings")
	}
	return s, nil
}

// newConversation builds the HTTP client and orchestrator for one-shot commands.
func newConversation(w io.Writer) (*orchestrator.Orchestrator, *transport.HTTPClient, error) {
	s, err := LoadSettings()
	if err != nil {
		return nil, nil, err
	}
	client, err := transport.NewHTTPClientFromSettings(s.Backend)
	if err != nil {
		return nil, nil, err
	}
	printNotification := notify.NotifierFunc(func(_ context.Context, n notify.Notification) error {
		_, err := fmt.Fprintf(w, "* [%s] %s\n", n.Kind, n.Text)
		return err
	})
	o := orchestrator.New(client, s, orchestrator.WithNotifier(printNotification))
	log.Debug().Str("session_id", o.SessionID()).Str("backend", s.Backend.BaseURL).Msg("conversation created")
	return o, client, nil
}
