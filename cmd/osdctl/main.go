// Package main implements osdctl, an operator tool for the OSD scheduler.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	cobra "github.com/spf13/cobra"

	"osdsched/pkg/client"
	"osdsched/pkg/models"
	"osdsched/pkg/registry"
)

const (
	defaultScheduler = "http://localhost:8080"
	defaultTimeout   = 10 * time.Second
	defaultRetryMax  = 3
)

var version = "v0.0.0"

func main() {
	if exitCode := run(); exitCode != 0 {
		os.Exit(exitCode)
	}
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		errorString := err.Error()
		if strings.Contains(errorString, "arg(s)") || strings.Contains(errorString, "flag") || strings.Contains(errorString, "command") {
			fmt.Fprintf(os.Stderr, "Error: %s\n\n", errorString)
			fmt.Fprintln(os.Stderr, cmd.UsageString())
		} else {
			fmt.Fprintln(os.Stderr, "Execute error:", err)
		}
		return 1
	}
	return 0
}

// rootOptions are the connection settings shared by all subcommands.
type rootOptions struct {
	scheduler string
	timeout   time.Duration
	retryMax  int
}

func (o *rootOptions) client() *client.Client {
	return client.New(o.scheduler, o.retryMax, 100*time.Millisecond, time.Second, o.timeout)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "osdctl",
		Version:       version,
		Short:         "Inspect OSDs and manage reservations on the OSD scheduler",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.scheduler, "scheduler", "s", defaultScheduler, "scheduler URL")
	flags.DurationVar(&opts.timeout, "timeout", defaultTimeout, "request timeout")
	flags.IntVar(&opts.retryMax, "retry-max", defaultRetryMax, "maximum number of retries on connection errors")

	cmd.AddCommand(
		buildListCmd(opts),
		buildFreeCmd(opts),
		buildReserveCmd(opts),
		buildReleaseCmd(opts),
		buildDescriptorCmd(opts),
	)
	return cmd
}

func buildListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all OSDs with their free resources",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			nodes, err := opts.client().Nodes(cmd.Context())
			if err != nil {
				return err
			}
			return printNodes(cmd.OutOrStdout(), nodes)
		},
	}
}

func buildFreeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "free OSD",
		Short: "Show the free resources of one OSD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			free, err := opts.client().FreeResources(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), free)
		},
	}
}

type reserveCmd struct {
	opts     *rootOptions
	request  models.ReservationRequest
	capacity string
}

func buildReserveCmd(opts *rootOptions) *cobra.Command {
	c := &reserveCmd{opts: opts}

	cmd := &cobra.Command{
		Use:     "reserve OSD",
		Short:   "Admit and allocate a reservation on one OSD",
		Args:    cobra.ExactArgs(1),
		PreRunE: c.parseArgs,
		RunE:    c.runReserve,
	}

	flags := cmd.Flags()
	flags.StringVar(&c.request.ID, "id", "", "reservation ID, generated by the scheduler when empty")
	flags.StringVarP(&c.capacity, "capacity", "c", "0", "capacity to reserve, e.g. 10GB")
	flags.Float64VarP(&c.request.RandomThroughput, "random", "r", 0, "random I/O throughput to reserve")
	flags.Float64VarP(&c.request.StreamingThroughput, "streaming", "t", 0, "streaming throughput to reserve")
	return cmd
}

func (c *reserveCmd) parseArgs(_ *cobra.Command, _ []string) error {
	bytes, err := humanize.ParseBytes(c.capacity)
	if err != nil {
		return fmt.Errorf("invalid capacity %q: %w", c.capacity, err)
	}
	c.request.Capacity = float64(bytes)

	if !c.request.Valid() {
		return fmt.Errorf("claims must not be negative")
	}
	return nil
}

func (c *reserveCmd) runReserve(cmd *cobra.Command, args []string) error {
	stored, err := c.opts.client().Reserve(cmd.Context(), args[0], c.request)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), stored)
}

func buildReleaseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "release OSD RESERVATION",
		Short: "Release a reservation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().Release(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "released %s on %s\n", args[1], args[0])
			return nil
		},
	}
}

func buildDescriptorCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "descriptor OSD",
		Short: "Fetch and decode the scheduler's descriptor of one OSD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := opts.client().FetchDescriptor(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"identifier":   desc.Identifier(),
				"type":         desc.Type().String(),
				"usage":        desc.Usage().String(),
				"capabilities": desc.Capabilities(),
			})
		},
	}
}

func printJSON(out io.Writer, value interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func printNodes(out io.Writer, nodes []models.NodeStatus) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OSD\tTYPE\tUSAGE\tRESERVATIONS\tFREE CAPACITY\tFREE IOPS\tFREE SEQ TP\tSTATE")
	for _, node := range nodes {
		state := "ok"
		if node.Degraded {
			state = "degraded"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%g\t%g\t%s\n",
			node.Identifier,
			node.Type,
			node.Usage,
			len(node.Reservations),
			registry.FormatBytes(node.Free.Capacity),
			node.Free.IOPS,
			node.Free.SeqTP,
			state,
		)
	}
	return w.Flush()
}
