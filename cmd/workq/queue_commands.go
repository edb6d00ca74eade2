package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"workq/internal/api"
)

func newPutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "put <queue> [payload...]",
		Short: "Append payloads to a queue",
		Long: "Append payloads to a queue, creating it on first use.\n" +
			"With no payload arguments, one payload per line is read from stdin.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payloads := args[1:]
			if len(payloads) == 0 {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
				for scanner.Scan() {
					payloads = append(payloads, scanner.Text())
				}
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			}
			return ctx.withService(func(svc *api.QueueService) error {
				resp, err := svc.Put(cmd.Context(), args[0], api.PutRequest{Payloads: payloads})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Appended %d item(s) to %s\n", resp.Count, args[0])
				return nil
			})
		},
	}
}

func newClaimCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var noAck bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "claim <queue>",
		Short: "Claim up to N items under a new lease",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.QueueService) error {
				resp, err := svc.Claim(cmd.Context(), args[0], api.ClaimRequest{
					Limit:   limit,
					WithAck: !noAck,
				})
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Payloads) == 0 {
					fmt.Fprintf(stdout, "Queue %s is empty (lease %d auto-acknowledged)\n", args[0], resp.LeaseID)
					return nil
				}
				fmt.Fprintf(stdout, "Lease %d\n", resp.LeaseID)
				for _, payload := range resp.Payloads {
					fmt.Fprintln(stdout, payload)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 1, "Maximum number of items to claim")
	cmd.Flags().BoolVar(&noAck, "no-ack", false, "Auto-acknowledge the lease immediately (fire and forget)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the claim as JSON")
	return cmd
}

func newAckCommand(ctx *commandContext) *cobra.Command {
	var deleteItems bool

	cmd := &cobra.Command{
		Use:   "ack <queue> <lease-id>",
		Short: "Acknowledge a lease",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			leaseID, err := parseLeaseID(args[1])
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.QueueService) error {
				resp, err := svc.Acknowledge(cmd.Context(), args[0], api.AckRequest{
					LeaseID:     leaseID,
					DeleteItems: deleteItems,
				})
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Acknowledged {
					fmt.Fprintf(stdout, "Lease %d acknowledged\n", leaseID)
				} else {
					fmt.Fprintf(stdout, "Lease %d was not pending (already acknowledged, abandoned, or reclaimed)\n", leaseID)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&deleteItems, "delete-items", false, "Delete the lease and its items instead of keeping a completion record")
	return cmd
}

func newAbandonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "abandon <queue> <lease-id>",
		Short: "Release a pending lease and return its items to the pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			leaseID, err := parseLeaseID(args[1])
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.QueueService) error {
				resp, err := svc.Abandon(cmd.Context(), args[0], api.AbandonRequest{LeaseID: leaseID})
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Abandoned {
					fmt.Fprintf(stdout, "Lease %d abandoned; items returned to the pool\n", leaseID)
				} else {
					fmt.Fprintf(stdout, "Lease %d was not pending; nothing to abandon\n", leaseID)
				}
				return nil
			})
		},
	}
}

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration
	var limit int

	cmd := &cobra.Command{
		Use:   "sweep <queue>",
		Short: "Reclaim leases older than the age threshold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.QueueService) error {
				reclaimed, err := svc.Reclaim(cmd.Context(), args[0], maxAge, limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reclaimed %d lease(s) on %s\n", reclaimed, args[0])
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 5*time.Minute, "Treat pending leases at least this old as expired")
	cmd.Flags().IntVar(&limit, "limit", 1000, "Maximum number of leases to reclaim")
	return cmd
}

func newGCCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "gc <queue>",
		Short: "Delete acknowledged items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.QueueService) error {
				collected, err := svc.Collect(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Collected %d item(s) on %s\n", collected, args[0])
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 1000, "Maximum number of items to delete")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show per-queue depth counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.QueueService) error {
				stats, err := svc.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, stats)
				}
				stdout := cmd.OutOrStdout()
				if len(stats) == 0 {
					fmt.Fprintln(stdout, "No queues")
					return nil
				}
				printStatsTable(cmd, stats)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit stats as JSON")
	return cmd
}

func newQueuesCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "queues",
		Short: "List provisioned queues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.QueueService) error {
				names, err := svc.Queues(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, names)
				}
				stdout := cmd.OutOrStdout()
				if len(names) == 0 {
					fmt.Fprintln(stdout, "No queues")
					return nil
				}
				for _, name := range names {
					fmt.Fprintln(stdout, name)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit queue names as JSON")
	return cmd
}

func printStatsTable(cmd *cobra.Command, stats []api.QueueStats) {
	stdout := cmd.OutOrStdout()
	if !stdoutIsTerminal() {
		for _, qs := range stats {
			fmt.Fprintf(stdout, "%s\t%d\t%d\t%d\t%d\t%d\n",
				qs.Name, qs.Unclaimed, qs.Leased, qs.Acknowledged, qs.PendingLeases, qs.DoneLeases)
		}
		return
	}
	rows := make([][]string, 0, len(stats))
	for _, qs := range stats {
		rows = append(rows, []string{
			qs.Name,
			strconv.FormatInt(qs.Unclaimed, 10),
			strconv.FormatInt(qs.Leased, 10),
			strconv.FormatInt(qs.Acknowledged, 10),
			strconv.FormatInt(qs.PendingLeases, 10),
			strconv.FormatInt(qs.DoneLeases, 10),
		})
	}
	table := renderTable(
		[]string{"Queue", "Unclaimed", "Leased", "Acked", "Pending Leases", "Done Leases"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
	fmt.Fprintln(stdout, table)
}

func parseLeaseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid lease id %q", raw)
	}
	return id, nil
}
