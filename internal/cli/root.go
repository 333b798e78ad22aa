// Package cli implements cargoctl, the command-line client of the cargo API.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/stowage/internal/api"
)

// DefaultAddr is used when neither --addr nor CARGO_ADDR is set.
const DefaultAddr = "localhost:50051"

// Dialer opens a client to addr. The returned func releases the connection.
type Dialer func(addr string) (*api.Client, func() error, error)

// DialGRPC is the production Dialer.
func DialGRPC(addr string) (*api.Client, func() error, error) {
	client, conn, err := api.Dial(addr)
	if err != nil {
		return nil, nil, err
	}
	return client, conn.Close, nil
}

type app struct {
	dial    Dialer
	addr    string
	user    string
	timeout time.Duration
	asJSON  bool
	noColor bool
}

func okMark() string   { return color.New(color.FgGreen).Sprint("✓") }
func warnMark() string { return color.New(color.FgYellow).Sprint("!") }
func failMark() string { return color.New(color.FgRed).Sprint("✗") }

// RootCmd builds the cargoctl command tree. A nil dial uses DialGRPC.
func RootCmd(dial Dialer) *cobra.Command {
	if dial == nil {
		dial = DialGRPC
	}
	a := &app{dial: dial}

	root := &cobra.Command{
		Use:   "cargoctl",
		Short: "cargoctl - client for the cargo stowage service",
		Long: `cargoctl talks to a running cargo-server over gRPC. It imports manifests,
places and retrieves items, plans waste returns and advances the mission clock.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.noColor {
				color.NoColor = true
			}
		},
	}

	addr := os.Getenv("CARGO_ADDR")
	if addr == "" {
		addr = DefaultAddr
	}
	root.PersistentFlags().StringVar(&a.addr, "addr", addr, "cargo-server address (env CARGO_ADDR)")
	root.PersistentFlags().StringVar(&a.user, "user", os.Getenv("USER"), "user id recorded in the activity log")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 10*time.Second, "per-call deadline")
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "print raw JSON responses")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(a.containerCmd())
	root.AddCommand(a.cargoCmd())
	root.AddCommand(a.importCmd())
	root.AddCommand(a.searchCmd())
	root.AddCommand(a.placeCmd())
	root.AddCommand(a.retrieveCmd())
	root.AddCommand(a.placementCmd())
	root.AddCommand(a.useCmd())
	root.AddCommand(a.wasteCmd())
	root.AddCommand(a.simulateCmd())
	root.AddCommand(a.logsCmd())
	root.AddCommand(a.arrangementCmd())
	root.AddCommand(a.summaryCmd())
	return root
}

// call dials, runs fn under the call deadline and prints the response either
// as JSON or through render.
func call[Resp any](a *app, cmd *cobra.Command, fn func(context.Context, *api.Client) (*Resp, error), render func(io.Writer, *Resp)) error {
	client, closeConn, err := a.dial(a.addr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", a.addr, err)
	}
	defer closeConn()

	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
	defer cancel()

	resp, err := fn(ctx, client)
	if err != nil {
		st := status.Convert(err)
		return fmt.Errorf("%s: %s", st.Code(), st.Message())
	}

	out := cmd.OutOrStdout()
	if a.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	render(out, resp)
	return nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
