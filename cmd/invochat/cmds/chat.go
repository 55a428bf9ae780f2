package cmds

import (
	"context"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/invochat/pkg/notify"
	"github.com/go-go-golems/invochat/pkg/orchestrator"
	"github.com/go-go-golems/invochat/pkg/transport"
	"github.com/go-go-golems/invochat/pkg/ui"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func NewChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			altScreen, _ := cmd.Flags().GetBool("alt-screen")
			return runChat(cmd.Context(), altScreen)
		},
	}
	cmd.Flags().Bool("alt-screen", true, "Use the terminal's alternate screen")
	return cmd
}

func runChat(ctx context.Context, altScreen bool) error {
	// the screen belongs to the UI, logs go to a file
	logFile := viper.GetString("log-file")
	if logFile == "" {
		logFile = filepath.Join(os.TempDir(), "invochat.log")
	}
	err := InitLogger(&LogConfig{
		Level:      viper.GetString("log-level"),
		LogFile:    logFile,
		LogFormat:  viper.GetString("log-format"),
		WithCaller: viper.GetBool("with-caller"),
		FileOnly:   true,
	})
	if err != nil {
		return err
	}

	s, err := LoadSettings()
	if err != nil {
		return err
	}
	client, err := transport.NewHTTPClientFromSettings(s.Backend)
	if err != nil {
		return err
	}

	router, err := notify.NewRouter(notify.WithLogger(notify.NewWatermillLogger(log.Logger)))
	if err != nil {
		return err
	}
	defer func() {
		_ = router.Close()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var p *tea.Program
	conv := orchestrator.New(client, s,
		orchestrator.WithNotifier(router.Notifier()),
		orchestrator.WithOnChange(func() {
			p.Send(ui.RefreshMsg{})
		}),
	)

	options := []tea.ProgramOption{
		tea.WithContext(ctx),
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		options = append(options, tea.WithOutput(os.Stderr))
	} else if altScreen {
		options = append(options, tea.WithAltScreen())
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		tty, err := ui.OpenTTY()
		if err != nil {
			return err
		}
		defer func() {
			_ = tty.Close()
		}()
		options = append(options, tea.WithInput(tty))
	}

	p = tea.NewProgram(
		ui.NewModel(conv, ui.WithDownloader(client), ui.WithContext(ctx)),
		options...,
	)

	router.AddHandler("ui", func(_ context.Context, n *notify.Notification) error {
		p.Send(ui.NotificationMsg{Notification: *n})
		return nil
	})

	log.Info().Str("session_id", conv.SessionID()).Str("backend", s.Backend.BaseURL).Msg("starting chat")

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return router.Run(ctx)
	})
	eg.Go(func() error {
		defer cancel()
		<-router.Running()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})

	return eg.Wait()
}
