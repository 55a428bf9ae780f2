package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/go-go-golems/invochat/pkg/session"
	"github.com/go-go-golems/invochat/pkg/transport"
	"github.com/pkg/errors"
)

// Command is a slash command typed into the input.
type Command struct {
	Name string
	Args []string
}

const (
	CommandFile  = "file"
	CommandReset = "reset"
	CommandLang  = "lang"
	CommandSave  = "save"
	CommandQuit  = "quit"
)

var ErrUnknownCommand = errors.New("unknown command")

// ParseCommand recognizes "/name arg..." input. ok is false for anything
// that is not a slash command.
func ParseCommand(input string) (Command, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") || len(input) == 1 {
		return Command{}, false
	}
	fields := strings.Fields(input[1:])
	if len(fields) == 0 {
		return Command{}, false
	}
	return Command{
		Name: strings.ToLower(fields[0]),
		Args: fields[1:],
	}, true
}

// Downloader fetches a backend-provided resource such as an invoice PDF.
type Downloader interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// execute turns a command into a tea.Cmd. Entry points of the conversation
// are only ever called from within the returned commands.
func (m *Model) execute(c Command) tea.Cmd {
	switch c.Name {
	case CommandQuit:
		return tea.Quit

	case CommandReset:
		return m.run(func(ctx context.Context) error {
			return m.conv.RequestReset(ctx)
		})

	case CommandLang:
		if len(c.Args) != 1 {
			return m.fail(errors.New("usage: /lang en|kn"))
		}
		lang, err := session.ParseLanguage(c.Args[0])
		if err != nil {
			return m.fail(err)
		}
		return m.run(func(ctx context.Context) error {
			return m.conv.SetLanguage(ctx, lang)
		})

	case CommandFile:
		if len(c.Args) == 0 {
			return m.fail(errors.New("usage: /file PATH"))
		}
		path := strings.Join(c.Args, " ")
		return m.run(func(ctx context.Context) error {
			return submitFile(ctx, m.conv, path)
		})

	case CommandSave:
		dir := "."
		if len(c.Args) > 0 {
			dir = strings.Join(c.Args, " ")
		}
		return m.save(dir)

	default:
		return m.fail(errors.Wrapf(ErrUnknownCommand, "/%s", c.Name))
	}
}

func submitFile(ctx context.Context, conv Conversation, path string) error {
	file, closer, err := transport.OpenFile(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = closer.Close()
	}()
	return conv.SubmitFile(ctx, file)
}

func (m *Model) save(dir string) tea.Cmd {
	if m.downloader == nil {
		return m.fail(errors.New("downloads are not available"))
	}
	f, ok := m.conv.LastDownload()
	if !ok {
		return m.fail(errors.New("no invoice to save yet"))
	}
	d := m.downloader
	ctx := m.ctx
	return func() tea.Msg {
		target := filepath.Join(dir, filepath.Base(f.Filename))
		n, err := SaveDownload(ctx, d, f.URL, target)
		if err != nil {
			return errMsg(err)
		}
		return statusMsg(fmt.Sprintf("saved %s (%s)", target, humanize.Bytes(uint64(n))))
	}
}

// SaveDownload downloads url into the file at target and returns its size.
func SaveDownload(ctx context.Context, d Downloader, url string, target string) (int64, error) {
	rc, err := d.Download(ctx, url)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = rc.Close()
	}()

	out, err := os.Create(target)
	if err != nil {
		return 0, errors.Wrapf(err, "could not create %s", target)
	}
	n, err := io.Copy(out, rc)
	if err != nil {
		_ = out.Close()
		return n, errors.Wrapf(err, "could not write %s", target)
	}
	if err := out.Close(); err != nil {
		return n, errors.Wrapf(err, "could not close %s", target)
	}
	return n, nil
}
