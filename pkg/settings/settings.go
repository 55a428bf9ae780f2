package settings

import (
	"bytes"
	_ "embed"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-go-golems/invochat/pkg/i18n"
	"github.com/go-go-golems/invochat/pkg/session"
	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed default-settings.yaml
var defaultSettingsYAML []byte

// BackendSettings configures the transport to the remote dialogue backend.
type BackendSettings struct {
	BaseURL     string         `yaml:"base_url"`
	TurnPath    string         `yaml:"turn_path"`
	ExtractPath string         `yaml:"extract_path"`
	ResetPath   string         `yaml:"reset_path"`
	Timeout     *time.Duration `yaml:"timeout,omitempty"`
	UserAgent   string         `yaml:"user_agent,omitempty"`
}

// UnmarshalYAML accepts the timeout either as seconds or as a duration string.
func (bs *BackendSettings) UnmarshalYAML(value *yaml.Node) error {
	type Alias BackendSettings
	if value.Kind != yaml.MappingNode {
		return value.Decode((*Alias)(bs))
	}

	rest := *value
	rest.Content = nil
	var timeout *yaml.Node
	for i := 0; i+1 < len(value.Content); i += 2 {
		if value.Content[i].Value == "timeout" {
			timeout = value.Content[i+1]
			continue
		}
		rest.Content = append(rest.Content, value.Content[i], value.Content[i+1])
	}
	if err := rest.Decode((*Alias)(bs)); err != nil {
		return err
	}
	if timeout == nil {
		return nil
	}

	var seconds int
	if err := timeout.Decode(&seconds); err == nil {
		t := time.Duration(seconds) * time.Second
		bs.Timeout = &t
		return nil
	}
	var s string
	if err := timeout.Decode(&s); err != nil {
		return errors.Wrap(err, "timeout")
	}
	t, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "timeout %q", s)
	}
	bs.Timeout = &t
	return nil
}

// QuickAction is a shortcut that submits a fixed text, like a bootstrap button.
type QuickAction struct {
	Name  string `yaml:"name"`
	Label string `yaml:"label"`
	Text  string `yaml:"text"`
}

// CommandSettings configures locally interpreted inputs.
type CommandSettings struct {
	// Bootstrap commands reveal the free-text input.
	Bootstrap    []string      `yaml:"bootstrap"`
	Reset        string        `yaml:"reset"`
	QuickActions []QuickAction `yaml:"quick_actions"`
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsBootstrap matches text case-insensitively, trimmed, against the bootstrap set.
func (cs *CommandSettings) IsBootstrap(text string) bool {
	n := normalize(text)
	for _, c := range cs.Bootstrap {
		if normalize(c) == n {
			return true
		}
	}
	return false
}

func (cs *CommandSettings) IsReset(text string) bool {
	return cs.Reset != "" && normalize(text) == normalize(cs.Reset)
}

func (cs *CommandSettings) QuickAction(name string) (QuickAction, bool) {
	for _, qa := range cs.QuickActions {
		if qa.Name == name {
			return qa, true
		}
	}
	return QuickAction{}, false
}

type Settings struct {
	Language session.Language                      `yaml:"language"`
	Backend  BackendSettings                       `yaml:"backend"`
	Commands CommandSettings                       `yaml:"commands"`
	Phrases  map[session.Language]map[string]string `yaml:"phrases"`
}

// NewDefaultSettings returns the embedded defaults.
func NewDefaultSettings() (*Settings, error) {
	s := &Settings{}
	if err := yaml.Unmarshal(defaultSettingsYAML, s); err != nil {
		return nil, errors.Wrap(err, "could not parse default settings")
	}
	return s, nil
}

// LoadFromYAML overlays the YAML document in r on top of the defaults.
// Phrase maps are merged per language and key.
func LoadFromYAML(r io.Reader) (*Settings, error) {
	s, err := NewDefaultSettings()
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "could not read settings")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}

	if err := ValidateYAML(data); err != nil {
		return nil, err
	}

	defaultPhrases := s.Phrases
	s.Phrases = nil
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, errors.Wrap(err, "could not parse settings")
	}
	s.Phrases = mergePhrases(defaultPhrases, s.Phrases)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFromFile is LoadFromYAML for a path. An empty path yields the defaults.
func LoadFromFile(path string) (*Settings, error) {
	if path == "" {
		return NewDefaultSettings()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open settings %s", path)
	}
	defer func() {
		_ = f.Close()
	}()
	return LoadFromYAML(f)
}

func mergePhrases(base, overlay map[session.Language]map[string]string) map[session.Language]map[string]string {
	ret := map[session.Language]map[string]string{}
	for _, src := range []map[session.Language]map[string]string{base, overlay} {
		for lang, phrases := range src {
			if ret[lang] == nil {
				ret[lang] = map[string]string{}
			}
			for k, v := range phrases {
				ret[lang][k] = v
			}
		}
	}
	return ret
}

func (s *Settings) Validate() error {
	if !s.Language.Valid() {
		return errors.Wrapf(session.ErrUnknownLanguage, "settings language %q", s.Language)
	}
	for lang := range s.Phrases {
		if !lang.Valid() {
			return errors.Wrapf(session.ErrUnknownLanguage, "phrases for %q", lang)
		}
	}
	if s.Backend.BaseURL == "" {
		return errors.New("backend base_url is empty")
	}
	return s.Catalog().Validate()
}

// Catalog builds the phrase catalog, falling back to English.
func (s *Settings) Catalog() *i18n.Catalog {
	phrases := map[session.Language]i18n.Phrases{}
	for lang, p := range s.Phrases {
		ps := i18n.Phrases{}
		for k, v := range p {
			ps[i18n.Key(k)] = v
		}
		phrases[lang] = ps
	}
	return i18n.NewCatalog(session.LanguageEnglish, phrases)
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}

func (s *Settings) ToYAML() ([]byte, error) {
	return yaml.Marshal(s)
}
