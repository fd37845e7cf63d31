package main

import (
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

const defaultServer = "http://127.0.0.1:8000"

type commandContext struct {
	server  string
	timeout time.Duration
	json    bool
}

func (c *commandContext) client() *apiClient {
	return newAPIClient(c.server, c.timeout)
}

// output prints v as indented JSON with --json, otherwise calls render
func (c *commandContext) output(cmd *cobra.Command, v any, render func() error) error {
	if !c.json {
		return render()
	}
	data, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "focusctl",
		Short:         "Inspect and drive the car audio focus broker",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	server := os.Getenv("FOCUSCTL_SERVER")
	if server == "" {
		server = defaultServer
	}
	rootCmd.PersistentFlags().StringVarP(&ctx.server, "server", "s", server, "Broker base URL")
	rootCmd.PersistentFlags().DurationVar(&ctx.timeout, "timeout", 5*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&ctx.json, "json", false, "Print raw JSON responses")

	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newRequestCommand(ctx))
	rootCmd.AddCommand(newAbandonCommand(ctx))
	rootCmd.AddCommand(newZonesCommand(ctx))
	rootCmd.AddCommand(newUIDCommand(ctx))
	rootCmd.AddCommand(newVolumeCommand(ctx))
	rootCmd.AddCommand(newMuteCommand(ctx))
	rootCmd.AddCommand(newPermissionsCommand(ctx))
	rootCmd.AddCommand(newDumpCommand(ctx))

	return rootCmd
}
