package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

type entrySnapshot struct {
	ClientID    string   `json:"client_id"`
	UID         int      `json:"uid"`
	PackageName string   `json:"package_name,omitempty"`
	Usage       string   `json:"usage"`
	Context     string   `json:"context"`
	GainRequest string   `json:"gain_request"`
	Blockers    []string `json:"blockers,omitempty"`
	DuckedLoss  bool     `json:"ducked_loss,omitempty"`
}

type zoneSnapshot struct {
	ZoneID  int             `json:"zone_id"`
	Holders []entrySnapshot `json:"holders"`
	Losers  []entrySnapshot `json:"losers"`
}

type focusResponse struct {
	Zones []zoneSnapshot `json:"zones"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show focus holders and losers per zone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp focusResponse
			if err := ctx.client().do(cmd.Context(), "GET", "/focus", nil, &resp); err != nil {
				return err
			}
			return ctx.output(cmd, resp, func() error {
				fmt.Fprintln(cmd.OutOrStdout(), renderFocus(resp.Zones))
				return nil
			})
		},
	}
}

func renderFocus(zones []zoneSnapshot) string {
	var rows [][]string
	add := func(zoneID int, state string, e entrySnapshot) {
		if e.DuckedLoss {
			state += " (ducked)"
		}
		rows = append(rows, []string{
			strconv.Itoa(zoneID),
			state,
			e.ClientID,
			strconv.Itoa(e.UID),
			e.Context,
			e.GainRequest,
			strings.Join(e.Blockers, ","),
		})
	}
	for _, z := range zones {
		for _, e := range z.Holders {
			add(z.ZoneID, "holder", e)
		}
		for _, e := range z.Losers {
			add(z.ZoneID, "loser", e)
		}
	}
	if len(rows) == 0 {
		return "No focus requests"
	}
	return renderTable(
		[]string{"Zone", "State", "Client", "UID", "Context", "Gain", "Blocked By"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
	)
}

type focusRequest struct {
	ClientID             string `json:"client_id,omitempty"`
	UID                  int    `json:"uid"`
	PackageName          string `json:"package_name,omitempty"`
	Usage                string `json:"usage,omitempty"`
	Gain                 string `json:"gain,omitempty"`
	ZoneID               *int   `json:"zone_id,omitempty"`
	PausesOnDuckableLoss bool   `json:"pauses_on_duckable_loss,omitempty"`
	ReceiveDuckingEvents bool   `json:"receive_ducking_events,omitempty"`
}

func newRequestCommand(ctx *commandContext) *cobra.Command {
	var req focusRequest
	var zoneID int

	cmd := &cobra.Command{
		Use:   "request",
		Short: "Request audio focus for a client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("zone") {
				req.ZoneID = &zoneID
			}
			var resp struct {
				ClientID string `json:"client_id"`
				Result   string `json:"result"`
			}
			if err := ctx.client().do(cmd.Context(), "POST", "/focus/request", req, &resp); err != nil {
				return err
			}
			return ctx.output(cmd, resp, func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", resp.ClientID, resp.Result)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.ClientID, "client", "", "Client id (generated when empty)")
	cmd.Flags().IntVar(&req.UID, "uid", 0, "Client uid")
	cmd.Flags().StringVar(&req.PackageName, "package", "", "Client package name")
	cmd.Flags().StringVar(&req.Usage, "usage", "media", "Audio usage")
	cmd.Flags().StringVar(&req.Gain, "gain", "GAIN", "GAIN, GAIN_TRANSIENT, GAIN_TRANSIENT_MAY_DUCK or GAIN_TRANSIENT_EXCLUSIVE")
	cmd.Flags().IntVar(&zoneID, "zone", 0, "Explicit zone id")
	cmd.Flags().BoolVar(&req.PausesOnDuckableLoss, "pause-on-duck", false, "Receive a loss instead of being ducked")
	cmd.Flags().BoolVar(&req.ReceiveDuckingEvents, "ducking-events", false, "Ask for ducking events")
	return cmd
}

func newAbandonCommand(ctx *commandContext) *cobra.Command {
	var req focusRequest
	var zoneID int

	cmd := &cobra.Command{
		Use:   "abandon",
		Short: "Abandon a client's focus request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.ClientID == "" {
				return fmt.Errorf("--client is required")
			}
			// Abandon resolves its zone like request does, so a request made
			// with --zone must be abandoned with the same zone
			if cmd.Flags().Changed("zone") {
				req.ZoneID = &zoneID
			}
			if err := ctx.client().do(cmd.Context(), "POST", "/focus/abandon", req, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: abandoned\n", req.ClientID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.ClientID, "client", "", "Client id")
	cmd.Flags().IntVar(&req.UID, "uid", 0, "Client uid")
	cmd.Flags().IntVar(&zoneID, "zone", 0, "Explicit zone id used when the request was made")
	return cmd
}

func newDumpCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the broker's state dump",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := ctx.client().text(cmd.Context(), "/dump")
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
