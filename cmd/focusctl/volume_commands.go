package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func groupPath(zone, group string) string {
	return "/zones/" + zone + "/groups/" + group + "/volume"
}

func newVolumeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "volume",
		Short: "Read and change volume group gain",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <zone> <group>",
		Short: "Show a volume group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				ZoneID int       `json:"zone_id"`
				Group  groupView `json:"group"`
			}
			if err := ctx.client().do(cmd.Context(), "GET", groupPath(args[0], args[1]), nil, &resp); err != nil {
				return err
			}
			return ctx.output(cmd, resp, func() error {
				g := resp.Group
				fmt.Fprintf(cmd.OutOrStdout(), "zone %d group %d: %d [%d-%d]\n", resp.ZoneID, g.ID, g.Current, g.Min, g.Max)
				return nil
			})
		},
	})

	var showUI bool
	set := &cobra.Command{
		Use:   "set <zone> <group> <index>",
		Short: "Set a volume group's gain index",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[2])
			}
			body := map[string]any{"index": index, "show_ui": showUI}
			if err := ctx.client().do(cmd.Context(), "PUT", groupPath(args[0], args[1]), body, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "zone %s group %s: %d\n", args[0], args[1], index)
			return nil
		},
	}
	set.Flags().BoolVar(&showUI, "show-ui", false, "Ask the volume UI to appear")
	cmd.AddCommand(set)

	cmd.AddCommand(&cobra.Command{
		Use:       "adjust <raise|lower|same|mute|unmute|toggle_mute>",
		Short:     "Apply a volume key action",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"raise", "lower", "same", "mute", "unmute", "toggle_mute"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Adjustment  string `json:"adjustment"`
				MasterMuted bool   `json:"master_muted"`
			}
			body := map[string]string{"adjustment": args[0]}
			if err := ctx.client().do(cmd.Context(), "POST", "/volume/adjust", body, &resp); err != nil {
				return err
			}
			return ctx.output(cmd, resp, func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (master muted: %t)\n", resp.Adjustment, resp.MasterMuted)
				return nil
			})
		},
	})

	return cmd
}

func newMuteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "mute [on|off]",
		Short:     "Show or set the master mute",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Muted bool `json:"muted"`
			}
			client := ctx.client()
			if len(args) == 0 {
				if err := client.do(cmd.Context(), "GET", "/volume/mute", nil, &resp); err != nil {
					return err
				}
			} else {
				var muted bool
				switch args[0] {
				case "on":
					muted = true
				case "off":
				default:
					return fmt.Errorf("expected on or off, got %q", args[0])
				}
				if err := client.do(cmd.Context(), "PUT", "/volume/mute", map[string]bool{"muted": muted}, &resp); err != nil {
					return err
				}
			}
			return ctx.output(cmd, resp, func() error {
				state := "off"
				if resp.Muted {
					state = "on"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "master mute: %s\n", state)
				return nil
			})
		},
	}
}
