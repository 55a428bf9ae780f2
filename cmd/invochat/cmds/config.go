package cmds

import (
	"encoding/json"
	"fmt"

	"github.com/go-go-golems/invochat/pkg/settings"
	"github.com/spf13/cobra"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(NewPrintConfigCommand())
	cmd.AddCommand(NewConfigSchemaCommand())
	return cmd
}

func NewPrintConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "print",
		Short: "Print the effective settings (defaults, config file, environment and flags)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := LoadSettings()
			if err != nil {
				return err
			}
			b, err := s.ToYAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}

func NewConfigSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := json.MarshalIndent(settings.Schema(), "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
}
