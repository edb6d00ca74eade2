package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"workq/internal/ipc"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Control the workqd background process",
	}

	daemonCmd.AddCommand(newDaemonStartCommand(ctx))
	daemonCmd.AddCommand(newDaemonStopCommand(ctx))
	daemonCmd.AddCommand(newDaemonStatusCommand(ctx))
	daemonCmd.AddCommand(newDaemonSweepCommand(ctx))

	return daemonCmd
}

func newDaemonStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Launch workqd if it is not already running",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			socket := ctx.socketPath()

			if client, err := ipc.Dial(socket); err == nil {
				client.Close()
				fmt.Fprintln(stdout, "Daemon already running")
				return nil
			}

			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			launch := exec.Command(exe)
			if ctx.configFlag != nil && strings.TrimSpace(*ctx.configFlag) != "" {
				launch.Env = append(os.Environ(), "WORKQ_CONFIG="+strings.TrimSpace(*ctx.configFlag))
			}
			launch.Stdout = nil
			launch.Stderr = nil
			if err := launch.Start(); err != nil {
				return fmt.Errorf("launch %s: %w", exe, err)
			}
			if err := launch.Process.Release(); err != nil {
				return fmt.Errorf("detach daemon process: %w", err)
			}
			fmt.Fprintln(stdout, "Daemon not running, launching...")

			if err := waitForSocket(socket, 10*time.Second); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Daemon started")
			return nil
		},
	}
}

func newDaemonStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the workqd process",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			err := ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				if resp.Stopped {
					fmt.Fprintln(stdout, "Daemon stopped")
				} else {
					fmt.Fprintln(stdout, "Stop request sent")
				}
				return nil
			})
			if err != nil && strings.Contains(err.Error(), "not found") {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			return err
		},
	}
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and queue counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp)
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Running:  %s\n", yesNo(resp.Running))
				fmt.Fprintf(stdout, "PID:      %d\n", resp.PID)
				fmt.Fprintf(stdout, "Backend:  %s\n", resp.Backend)
				if resp.DBPath != "" {
					fmt.Fprintf(stdout, "Database: %s\n", resp.DBPath)
				}
				fmt.Fprintf(stdout, "Lock:     %s\n", resp.LockPath)
				if len(resp.Queues) == 0 {
					fmt.Fprintln(stdout, "No queues")
					return nil
				}
				rows := make([][]string, 0, len(resp.Queues))
				for _, qs := range resp.Queues {
					rows = append(rows, []string{
						qs.Name,
						fmt.Sprintf("%d", qs.Unclaimed),
						fmt.Sprintf("%d", qs.Leased),
						fmt.Sprintf("%d", qs.Acknowledged),
						fmt.Sprintf("%d", qs.PendingLeases),
					})
				}
				table := renderTable(
					[]string{"Queue", "Unclaimed", "Leased", "Acked", "Pending Leases"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit status as JSON")
	return cmd
}

func newDaemonSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Trigger an immediate sweep pass in the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SweepNow()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reclaimed %d lease(s), collected %d item(s)\n",
					resp.Reclaimed, resp.Collected)
				return nil
			})
		},
	}
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), "workqd"), nil
}

func waitForSocket(socket string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		client, err := ipc.Dial(socket)
		if err == nil {
			client.Close()
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("daemon did not come up within %s", timeout)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
