package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/invochat/pkg/messages"
	"github.com/go-go-golems/invochat/pkg/notify"
	"github.com/go-go-golems/invochat/pkg/orchestrator"
	"github.com/go-go-golems/invochat/pkg/session"
	"github.com/go-go-golems/invochat/pkg/settings"
	"github.com/go-go-golems/invochat/pkg/transport"
	"github.com/muesli/reflow/wordwrap"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Conversation is the orchestrator as seen by the UI: read-only state plus
// entry points. Entry points block for the duration of a turn.
type Conversation interface {
	Messages() []messages.Message
	LastDownload() (messages.Fragment, bool)
	Busy() bool
	InputStage() orchestrator.InputStage
	Language() session.Language
	SessionID() string
	QuickActions() []settings.QuickAction

	SubmitText(ctx context.Context, text string) error
	SubmitFile(ctx context.Context, file transport.File) error
	RequestReset(ctx context.Context) error
	QuickAction(ctx context.Context, name string) error
	SetLanguage(ctx context.Context, lang session.Language) error
}

var _ Conversation = (*orchestrator.Orchestrator)(nil)

// RefreshMsg asks the model to re-render from the conversation. Send it
// from an orchestrator change observer.
type RefreshMsg struct{}

// NotificationMsg shows a notification in the status line.
type NotificationMsg struct {
	Notification notify.Notification
}

type doneMsg struct {
	err error
}

type statusMsg string

type errMsg error

type Model struct {
	conv       Conversation
	downloader Downloader
	ctx        context.Context

	keyMap KeyMap
	style  *Style

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model
	renderer *glamour.TermRenderer

	// pending is set from launching an entry point until its doneMsg arrives
	pending      bool
	status       string
	err          error
	notification *notify.Notification

	width  int
	height int
}

type ModelOption func(*Model)

func WithDownloader(d Downloader) ModelOption {
	return func(m *Model) {
		m.downloader = d
	}
}

func WithContext(ctx context.Context) ModelOption {
	return func(m *Model) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}

func WithStyle(s *Style) ModelOption {
	return func(m *Model) {
		if s != nil {
			m.style = s
		}
	}
}

func NewModel(conv Conversation, options ...ModelOption) Model {
	ret := Model{
		conv:     conv,
		ctx:      context.Background(),
		style:    DefaultStyles(),
		keyMap:   DefaultKeyMap.WithQuickActions(conv.QuickActions()),
		viewport: viewport.New(0, 0),
		help:     help.New(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	for _, o := range options {
		o(&ret)
	}

	ret.input = textinput.New()
	ret.input.Prompt = "> "
	ret.input.CharLimit = 2000
	ret.input.Focus()
	ret.updatePlaceholder()

	ret.viewport.SetContent(ret.messageView())
	ret.viewport.GotoBottom()

	return ret
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keyMap.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.recomputeSize()
			return m, nil

		case key.Matches(msg, m.keyMap.ScrollUp), key.Matches(msg, m.keyMap.ScrollDown):
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd

		case key.Matches(msg, m.keyMap.SubmitMessage):
			return m, m.submit()

		default:
			if idx, ok := m.matchQuickAction(msg); ok {
				return m, m.quickAction(idx)
			}
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateRenderer()
		m.recomputeSize()

	case RefreshMsg:
		m.updatePlaceholder()
		m.recomputeSize()

	case NotificationMsg:
		n := msg.Notification
		m.notification = &n
		m.recomputeSize()

	case doneMsg:
		m.pending = false
		m.setError(msg.err)
		m.updatePlaceholder()
		m.recomputeSize()

	case statusMsg:
		m.err = nil
		m.status = string(msg)
		m.recomputeSize()

	case errMsg:
		m.setError(msg)
		m.recomputeSize()

	case spinner.TickMsg:
		if m.isBusy() {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) setError(err error) {
	if err == nil {
		m.err = nil
		return
	}
	log.Debug().Err(err).Msg("ui command failed")
	m.status = ""
	m.err = err
}

func (m Model) isBusy() bool {
	return m.pending || m.conv.Busy()
}

func (m Model) matchQuickAction(msg tea.KeyMsg) (int, bool) {
	for i, b := range m.keyMap.QuickActions {
		if key.Matches(msg, b) {
			return i, true
		}
	}
	return 0, false
}

// run launches an entry point in a command. The orchestrator rejects
// overlapping turns itself; pending only avoids launching obvious duplicates.
func (m *Model) run(f func(ctx context.Context) error) tea.Cmd {
	if m.isBusy() {
		return m.fail(orchestrator.ErrBusy)
	}
	m.pending = true
	m.err = nil
	m.status = ""
	ctx := m.ctx
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			return doneMsg{err: f(ctx)}
		},
	)
}

func (m *Model) fail(err error) tea.Cmd {
	return func() tea.Msg {
		return errMsg(err)
	}
}

func (m *Model) quickAction(idx int) tea.Cmd {
	qas := m.conv.QuickActions()
	if idx >= len(qas) {
		return nil
	}
	name := qas[idx].Name
	return m.run(func(ctx context.Context) error {
		return m.conv.QuickAction(ctx, name)
	})
}

func (m *Model) submit() tea.Cmd {
	value := strings.TrimSpace(m.input.Value())
	if value == "" {
		return nil
	}
	if c, ok := ParseCommand(value); ok {
		m.input.SetValue("")
		return m.execute(c)
	}
	if m.conv.InputStage() == orchestrator.StageHidden {
		return m.fail(errors.New("pick an action first, or upload a document with /file PATH"))
	}
	m.input.SetValue("")
	return m.run(func(ctx context.Context) error {
		return m.conv.SubmitText(ctx, value)
	})
}

func (m *Model) updatePlaceholder() {
	if m.conv.InputStage() == orchestrator.StageHidden {
		m.input.Placeholder = "pick an action (F1-F3) or /file PATH"
	} else {
		m.input.Placeholder = "type your answer"
	}
}

func (m *Model) updateRenderer() {
	h, _ := m.style.BotMessage.GetFrameSize()
	width := m.width - h
	if width <= 0 {
		m.renderer = nil
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		log.Warn().Err(err).Msg("could not create markdown renderer")
		m.renderer = nil
		return
	}
	m.renderer = r
}

func (m *Model) recomputeSize() {
	headerHeight := lipgloss.Height(m.headerView())
	footerHeight := lipgloss.Height(m.footerView())

	newHeight := m.height - headerHeight - footerHeight
	if newHeight < 0 {
		newHeight = 0
	}
	m.viewport.Width = m.width
	m.viewport.Height = newHeight
	m.viewport.YPosition = headerHeight

	m.viewport.SetContent(m.messageView())
	m.viewport.GotoBottom()
}

func (m Model) headerView() string {
	id := m.conv.SessionID()
	if len(id) > 8 {
		id = id[:8]
	}
	return m.style.Header.Render(fmt.Sprintf("INVOCHAT  session %s  language %s", id, m.conv.Language()))
}

func (m Model) messageView() string {
	var sb strings.Builder
	for _, msg := range m.conv.Messages() {
		style := m.style.UserMessage
		if msg.IsBot {
			style = m.style.BotMessage
		}
		h, _ := style.GetFrameSize()
		width := m.width - h

		meta := m.style.Meta.Render(fmt.Sprintf("%s %s", msg.Role(), msg.Timestamp))
		body := m.renderBody(msg, width)
		if width > 0 {
			style = style.Width(width)
		}
		sb.WriteString(style.Render(meta + "\n" + body))
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderBody renders fragments as markdown; plain messages are only wrapped.
func (m Model) renderBody(msg messages.Message, width int) string {
	if len(msg.Fragments) == 0 || m.renderer == nil {
		if width <= 0 {
			return msg.String()
		}
		return wordwrap.String(msg.String(), width)
	}
	out, err := m.renderer.Render(msg.String())
	if err != nil {
		log.Warn().Err(err).Str("message", msg.ID).Msg("could not render message")
		return wordwrap.String(msg.String(), width)
	}
	if d, ok := msg.Download(); ok {
		out = strings.TrimRight(out, "\n") + "\n" + m.style.Hint.Render(fmt.Sprintf("/save to download %s", d.Filename))
	}
	return strings.Trim(out, "\n")
}

func (m Model) statusView() string {
	switch {
	case m.isBusy():
		return m.style.Status.Render(m.spinner.View() + " waiting for the server...")
	case m.err != nil:
		return m.style.Error.Render(m.err.Error())
	case m.status != "":
		return m.style.Status.Render(m.status)
	case m.notification != nil:
		return m.style.Notification(m.notification.Kind).Render(m.notification.Text)
	default:
		return ""
	}
}

func (m Model) footerView() string {
	parts := []string{}
	if s := m.statusView(); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, m.style.Input.Render(m.input.View()))
	parts = append(parts, m.help.View(m.keyMap))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) View() string {
	return m.headerView() + "\n" + m.viewport.View() + "\n" + m.footerView()
}
