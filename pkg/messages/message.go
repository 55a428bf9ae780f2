package messages

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type FragmentType string

const (
	FragmentTypeText     FragmentType = "text"
	FragmentTypeCode     FragmentType = "code"
	FragmentTypeDownload FragmentType = "download"
)

// Fragment is one rich part of a rendered message.
type Fragment struct {
	Type FragmentType `json:"type" yaml:"type"`
	Text string       `json:"text,omitempty" yaml:"text,omitempty"`
	// URL and Filename are only set for download fragments.
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`
}

func (f Fragment) String() string {
	switch f.Type {
	case FragmentTypeCode:
		return "```\n" + strings.TrimRight(f.Text, "\n") + "\n```"
	case FragmentTypeDownload:
		label := f.Text
		if label == "" {
			label = f.Filename
		}
		return fmt.Sprintf("[%s](%s)", label, f.URL)
	case FragmentTypeText:
		return f.Text
	default:
		return f.Text
	}
}

// Content is what a message displays: a plain text plus optional rich fragments.
type Content struct {
	Text      string
	Fragments []Fragment
}

func Text(s string) Content {
	return Content{Text: s}
}

func (c Content) WithCode(code string) Content {
	c.Fragments = append(c.Fragments, Fragment{Type: FragmentTypeCode, Text: code})
	return c
}

func (c Content) WithDownload(label, url, filename string) Content {
	c.Fragments = append(c.Fragments, Fragment{
		Type:     FragmentTypeDownload,
		Text:     label,
		URL:      url,
		Filename: filename,
	})
	return c
}

// Message is one chat entry. It is immutable once appended to a Log.
type Message struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	Fragments []Fragment `json:"fragments,omitempty"`
	IsBot     bool       `json:"isBot"`
	Timestamp string     `json:"timestamp"`
	CreatedAt time.Time  `json:"createdAt"`
}

const TimestampLayout = "15:04"

func newMessage(c Content, isBot bool, now time.Time) Message {
	var fragments []Fragment
	if len(c.Fragments) > 0 {
		fragments = make([]Fragment, len(c.Fragments))
		copy(fragments, c.Fragments)
	}
	return Message{
		ID:        uuid.NewString(),
		Text:      c.Text,
		Fragments: fragments,
		IsBot:     isBot,
		Timestamp: now.Format(TimestampLayout),
		CreatedAt: now,
	}
}

func NewUserMessage(text string, now time.Time) Message {
	return newMessage(Text(text), false, now)
}

func NewBotMessage(c Content, now time.Time) Message {
	return newMessage(c, true, now)
}

// Download returns the first download fragment of the message, if any.
func (m Message) Download() (Fragment, bool) {
	for _, f := range m.Fragments {
		if f.Type == FragmentTypeDownload {
			return f, true
		}
	}
	return Fragment{}, false
}

// String renders the message as markdown-ish plain text.
func (m Message) String() string {
	if len(m.Fragments) == 0 {
		return m.Text
	}
	parts := make([]string, 0, len(m.Fragments)+1)
	if m.Text != "" {
		parts = append(parts, m.Text)
	}
	for _, f := range m.Fragments {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, "\n\n")
}

func (m Message) Role() string {
	if m.IsBot {
		return "bot"
	}
	return "user"
}
