package cmds

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	glazed_settings "github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/go-go-golems/invochat/pkg/messages"
	"github.com/go-go-golems/invochat/pkg/transport"
	"github.com/go-go-golems/invochat/pkg/ui"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type SendSettings struct {
	Texts       []string `glazed.parameter:"texts"`
	Quick       []string `glazed.parameter:"quick"`
	SaveInvoice string   `glazed.parameter:"save-invoice"`
}

type ExtractSettings struct {
	File        string   `glazed.parameter:"file"`
	Texts       []string `glazed.parameter:"texts"`
	SaveInvoice string   `glazed.parameter:"save-invoice"`
}

// SendCommand runs each text as one turn and emits the conversation as rows.
type SendCommand struct {
	*cmds.CommandDescription
	notifications io.Writer
}

// ExtractCommand runs the extraction pipeline for a file, then the given
// texts, and emits the conversation as rows.
type ExtractCommand struct {
	*cmds.CommandDescription
	notifications io.Writer
}

var _ cmds.GlazeCommand = (*SendCommand)(nil)
var _ cmds.GlazeCommand = (*ExtractCommand)(nil)

func saveInvoiceFlag() *parameters.ParameterDefinition {
	return parameters.NewParameterDefinition(
		"save-invoice",
		parameters.ParameterTypeString,
		parameters.WithHelp("Directory to download the last offered invoice PDF into"),
	)
}

func textsArgument() *parameters.ParameterDefinition {
	return parameters.NewParameterDefinition(
		"texts",
		parameters.ParameterTypeStringList,
		parameters.WithHelp("Texts to send, one turn each"),
	)
}

func NewSendCommand() (*SendCommand, error) {
	glazedLayer, err := glazed_settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create glazed parameter layer")
	}

	return &SendCommand{
		CommandDescription: cmds.NewCommandDescription(
			"send",
			cmds.WithShort("Send each argument as one chat turn and print the conversation"),
			cmds.WithLong(`Send each argument as one chat turn and print the conversation.

  invochat send "create customer" "Asha" "9876543210"
  invochat send --quick create-invoice "rice, 2kg" -o json`),
			cmds.WithFlags(
				parameters.NewParameterDefinition(
					"quick",
					parameters.ParameterTypeStringList,
					parameters.WithHelp("Quick actions to run before the texts (e.g. create-invoice)"),
				),
				saveInvoiceFlag(),
			),
			cmds.WithArguments(textsArgument()),
			cmds.WithLayersList(glazedLayer),
		),
		notifications: os.Stderr,
	}, nil
}

func (c *SendCommand) RunIntoGlazeProcessor(ctx context.Context, parsedLayers *layers.ParsedLayers, gp middlewares.Processor) error {
	s := &SendSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "could not initialize settings")
	}
	return runSend(ctx, s, c.notifications, gp)
}

func runSend(ctx context.Context, s *SendSettings, notifications io.Writer, gp middlewares.Processor) error {
	if len(s.Texts) == 0 && len(s.Quick) == 0 {
		return errors.New("nothing to send")
	}

	conv, client, err := newConversation(notifications)
	if err != nil {
		return err
	}

	for _, name := range s.Quick {
		if err := conv.QuickAction(ctx, name); err != nil {
			return err
		}
	}
	for _, text := range s.Texts {
		if err := conv.SubmitText(ctx, text); err != nil {
			return errors.Wrapf(err, "could not send %q", text)
		}
	}

	return finish(ctx, conv, client, s.SaveInvoice, gp)
}

func NewExtractCommand() (*ExtractCommand, error) {
	glazedLayer, err := glazed_settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create glazed parameter layer")
	}

	return &ExtractCommand{
		CommandDescription: cmds.NewCommandDescription(
			"extract",
			cmds.WithShort("Upload a document for text extraction, submit the text, and print the conversation"),
			cmds.WithFlags(saveInvoiceFlag()),
			cmds.WithArguments(
				parameters.NewParameterDefinition(
					"file",
					parameters.ParameterTypeString,
					parameters.WithHelp("Image or document to extract text from"),
					parameters.WithRequired(true),
				),
				textsArgument(),
			),
			cmds.WithLayersList(glazedLayer),
		),
		notifications: os.Stderr,
	}, nil
}

func (c *ExtractCommand) RunIntoGlazeProcessor(ctx context.Context, parsedLayers *layers.ParsedLayers, gp middlewares.Processor) error {
	s := &ExtractSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "could not initialize settings")
	}
	return runExtract(ctx, s, c.notifications, gp)
}

func runExtract(ctx context.Context, s *ExtractSettings, notifications io.Writer, gp middlewares.Processor) error {
	file, closer, err := transport.OpenFile(s.File)
	if err != nil {
		return err
	}
	defer func() {
		_ = closer.Close()
	}()

	conv, client, err := newConversation(notifications)
	if err != nil {
		return err
	}

	if err := conv.SubmitFile(ctx, file); err != nil {
		return err
	}
	for _, text := range s.Texts {
		if err := conv.SubmitText(ctx, text); err != nil {
			return errors.Wrapf(err, "could not send %q", text)
		}
	}

	return finish(ctx, conv, client, s.SaveInvoice, gp)
}

// finish emits the log and optionally downloads the last invoice.
func finish(ctx context.Context, conv ui.Conversation, client *transport.HTTPClient, dir string, gp middlewares.Processor) error {
	if err := addMessageRows(ctx, gp, conv.Messages()); err != nil {
		return err
	}
	if dir == "" {
		return nil
	}

	f, ok := conv.LastDownload()
	if !ok {
		return errors.New("no invoice was offered for download")
	}
	target := filepath.Join(dir, filepath.Base(f.Filename))
	n, err := ui.SaveDownload(ctx, client, f.URL, target)
	if err != nil {
		return err
	}
	log.Info().Str("file", target).Int64("bytes", n).Msg("invoice saved")
	return nil
}

// addMessageRows emits one row per message. Every row has the same columns.
func addMessageRows(ctx context.Context, gp middlewares.Processor, msgs []messages.Message) error {
	for _, m := range msgs {
		var code []string
		var filename, url string
		for _, f := range m.Fragments {
			switch f.Type {
			case messages.FragmentTypeCode:
				code = append(code, f.Text)
			case messages.FragmentTypeDownload:
				if filename == "" {
					filename, url = f.Filename, f.URL
				}
			}
		}

		row := types.NewRow(
			types.MRP("id", m.ID),
			types.MRP("role", m.Role()),
			types.MRP("timestamp", m.Timestamp),
			types.MRP("text", m.Text),
			types.MRP("code", strings.Join(code, "\n")),
			types.MRP("download_filename", filename),
			types.MRP("download_url", url),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// AddConversationCommands registers the one-shot glazed commands on root.
func AddConversationCommands(rootCmd *cobra.Command) error {
	sendCmd, err := NewSendCommand()
	if err != nil {
		return err
	}
	sendCobraCmd, err := cli.BuildCobraCommandFromGlazeCommand(sendCmd)
	if err != nil {
		return err
	}

	extractCmd, err := NewExtractCommand()
	if err != nil {
		return err
	}
	extractCobraCmd, err := cli.BuildCobraCommandFromGlazeCommand(extractCmd)
	if err != nil {
		return err
	}

	rootCmd.AddCommand(sendCobraCmd, extractCobraCmd)
	return nil
}
