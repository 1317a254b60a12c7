package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"streamcap/internal/config"
	"streamcap/internal/deps"
	"streamcap/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and target status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				out := cmd.OutOrStdout()

				pid, running := daemonPID(cfg)
				if running {
					fmt.Fprintf(out, "Daemon: running (pid %d)\n", pid)
				} else {
					fmt.Fprintln(out, "Daemon: not running")
				}
				fmt.Fprintf(out, "Database: %s\n", st.Path())
				fmt.Fprintf(out, "Watchlist: %s\n", cfg.Watchlist.Path)

				targets, err := st.ListTargets(cmd.Context())
				if err != nil {
					return err
				}
				activated, live := 0, 0
				for _, target := range targets {
					if target.Activated {
						activated++
					}
					if target.IsLive {
						live++
					}
				}
				fmt.Fprintf(out, "Targets: %d total, %d activated, %d live\n", len(targets), activated, live)

				fmt.Fprintln(out, "\nExternal tools:")
				for _, status := range deps.CheckBinaries(deps.Required(cfg)) {
					state := "ok"
					if !status.Available {
						state = status.Detail
						if status.Optional {
							state += " (optional)"
						}
					}
					fmt.Fprintf(out, "  %-8s %s\n", status.Name, state)
				}
				return nil
			})
		},
	}
}

// daemonPID reads the pid file the daemon maintains and checks the process
// is still alive.
func daemonPID(cfg *config.Config) (int, bool) {
	raw, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "streamcap.pid"))
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return pid, false
	}
	return pid, true
}
