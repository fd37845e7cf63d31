package main

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

type auditEntry struct {
	Timestamp   int64  `json:"timestamp"`
	PackageName string `json:"package_name"`
	Permission  string `json:"permission"`
	Allowed     bool   `json:"allowed"`
}

func newPermissionsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "permissions",
		Aliases: []string{"perms"},
		Short:   "Manage the ducking events allowlist",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List packages allowed to receive ducking events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Packages []string `json:"packages"`
			}
			if err := ctx.client().do(cmd.Context(), "GET", "/permissions/ducking", nil, &resp); err != nil {
				return err
			}
			return ctx.output(cmd, resp, func() error {
				for _, pkg := range resp.Packages {
					fmt.Fprintln(cmd.OutOrStdout(), pkg)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "grant <package>",
		Short: "Allow a package to receive ducking events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.client().do(cmd.Context(), "PUT", "/permissions/ducking/"+url.PathEscape(args[0]), nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s granted\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "revoke <package>",
		Short: "Withdraw a package's ducking events entitlement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.client().do(cmd.Context(), "DELETE", "/permissions/ducking/"+url.PathEscape(args[0]), nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s revoked\n", args[0])
			return nil
		},
	})

	var pkg string
	var limit int
	audit := &cobra.Command{
		Use:   "audit",
		Short: "Show recent entitlement checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			query.Set("limit", strconv.Itoa(limit))
			if pkg != "" {
				query.Set("package", pkg)
			}
			var resp struct {
				Entries []auditEntry `json:"entries"`
			}
			if err := ctx.client().do(cmd.Context(), "GET", "/permissions/ducking/audit?"+query.Encode(), nil, &resp); err != nil {
				return err
			}
			return ctx.output(cmd, resp, func() error {
				if len(resp.Entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No entitlement checks recorded")
					return nil
				}
				rows := make([][]string, 0, len(resp.Entries))
				for _, e := range resp.Entries {
					rows = append(rows, []string{
						time.Unix(e.Timestamp, 0).Format(time.RFC3339),
						e.PackageName,
						e.Permission,
						strconv.FormatBool(e.Allowed),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Time", "Package", "Permission", "Allowed"}, rows, nil))
				return nil
			})
		},
	}
	audit.Flags().StringVar(&pkg, "package", "", "Only show checks for this package")
	audit.Flags().IntVar(&limit, "limit", 20, "Maximum entries")
	cmd.AddCommand(audit)

	return cmd
}
