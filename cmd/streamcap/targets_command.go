package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"streamcap/internal/config"
	"streamcap/internal/store"
)

func newTargetsCommand(ctx *commandContext) *cobra.Command {
	targetsCmd := &cobra.Command{
		Use:   "targets",
		Short: "Inspect watched targets",
	}
	targetsCmd.AddCommand(newTargetsListCommand(ctx))
	return targetsCmd
}

func newTargetsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List persisted targets and their recording state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				targets, err := st.ListTargets(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(targets) == 0 {
					fmt.Fprintln(out, "No targets persisted; add entries to the watchlist file")
					return nil
				}

				rows := make([][]string, 0, len(targets))
				for _, target := range targets {
					parts, err := st.CountSegments(cmd.Context(), target.ID)
					if err != nil {
						return err
					}
					rows = append(rows, []string{
						target.Name,
						target.URL,
						target.Platform,
						yesNo(target.Activated),
						yesNo(target.IsLive),
						target.Title,
						strconv.Itoa(parts),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]column{
						leftCol("NAME"), leftCol("URL"), leftCol("PLATFORM"),
						leftCol("ACTIVE"), leftCol("LIVE"), leftCol("TITLE"),
						rightCol("PARTS"),
					},
					rows,
				))
				return nil
			})
		},
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
