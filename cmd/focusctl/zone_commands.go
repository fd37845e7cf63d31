package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

type groupView struct {
	ID       int      `json:"id"`
	Contexts []string `json:"contexts,omitempty"`
	Usages   []string `json:"usages"`
	Current  int      `json:"current"`
	Min      int      `json:"min"`
	Max      int      `json:"max"`
}

type zoneView struct {
	ID           int         `json:"id"`
	Name         string      `json:"name,omitempty"`
	Primary      bool        `json:"primary"`
	DisplayPorts []int       `json:"display_ports,omitempty"`
	Devices      []string    `json:"devices,omitempty"`
	Groups       []groupView `json:"groups"`
}

type zonesResponse struct {
	DynamicRouting bool       `json:"dynamic_routing"`
	Zones          []zoneView `json:"zones"`
}

func newZonesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "zones",
		Short: "List audio zones and their volume groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp zonesResponse
			if err := ctx.client().do(cmd.Context(), "GET", "/zones", nil, &resp); err != nil {
				return err
			}
			return ctx.output(cmd, resp, func() error {
				if !resp.DynamicRouting {
					fmt.Fprintln(cmd.OutOrStdout(), "Dynamic routing disabled (legacy stream volumes)")
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderZones(resp.Zones))
				return nil
			})
		},
	}
}

func renderZones(zones []zoneView) string {
	var rows [][]string
	for _, z := range zones {
		name := z.Name
		if z.Primary {
			name += " *"
		}
		for _, g := range z.Groups {
			rows = append(rows, []string{
				strconv.Itoa(z.ID),
				name,
				strconv.Itoa(g.ID),
				fmt.Sprintf("%d [%d-%d]", g.Current, g.Min, g.Max),
				strings.Join(g.Usages, ","),
			})
		}
	}
	return renderTable(
		[]string{"Zone", "Name", "Group", "Volume", "Usages"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight},
	)
}

type uidZone struct {
	UID    int `json:"uid"`
	ZoneID int `json:"zone_id"`
}

func newUIDCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uid",
		Short: "Inspect or change uid to zone routing",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List mapped uids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				UIDs []uidZone `json:"uids"`
			}
			if err := ctx.client().do(cmd.Context(), "GET", "/uids", nil, &resp); err != nil {
				return err
			}
			return ctx.output(cmd, resp, func() error {
				if len(resp.UIDs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No uid mappings")
					return nil
				}
				rows := make([][]string, 0, len(resp.UIDs))
				for _, m := range resp.UIDs {
					rows = append(rows, []string{strconv.Itoa(m.UID), strconv.Itoa(m.ZoneID)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"UID", "Zone"}, rows, []columnAlignment{alignRight, alignRight}))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <uid>",
		Short: "Show the zone a uid plays in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp uidZone
			if err := ctx.client().do(cmd.Context(), "GET", "/uids/"+args[0]+"/zone", nil, &resp); err != nil {
				return err
			}
			return ctx.output(cmd, resp, func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "uid %d -> zone %d\n", resp.UID, resp.ZoneID)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <uid> <zone>",
		Short: "Route a uid to a zone",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			zoneID, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid zone %q", args[1])
			}
			var resp uidZone
			body := map[string]int{"zone_id": zoneID}
			if err := ctx.client().do(cmd.Context(), "PUT", "/uids/"+args[0]+"/zone", body, &resp); err != nil {
				return err
			}
			return ctx.output(cmd, resp, func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "uid %d -> zone %d\n", resp.UID, resp.ZoneID)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear <uid>",
		Short: "Remove a uid's zone mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.client().do(cmd.Context(), "DELETE", "/uids/"+args[0]+"/zone", nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uid %s cleared\n", args[0])
			return nil
		},
	})

	return cmd
}
