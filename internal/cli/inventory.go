package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/stowage/internal/api"
	"github.com/signalsfoundry/stowage/internal/api/types"
)

func (a *app) containerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "container",
		Short: "Manage storage containers",
	}

	var c types.Container
	add := &cobra.Command{
		Use:   "add [container-id]",
		Short: "Register a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.ContainerID = args[0]
			return call(a, cmd, func(ctx context.Context, cl *api.Client) (*types.AddContainerResponse, error) {
				return cl.AddContainer(ctx, &types.AddContainerRequest{Container: c})
			}, func(w io.Writer, r *types.AddContainerResponse) {
				fmt.Fprintf(w, "%s Added container %s\n", okMark(), r.ContainerID)
			})
		},
	}
	add.Flags().StringVar(&c.Zone, "zone", "", "zone the container belongs to")
	add.Flags().Float64Var(&c.Width, "width", 0, "interior width (cm)")
	add.Flags().Float64Var(&c.Depth, "depth", 0, "interior depth (cm)")
	add.Flags().Float64Var(&c.Height, "height", 0, "interior height (cm)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(a, cmd, func(ctx context.Context, cl *api.Client) (*types.ListContainersResponse, error) {
				return cl.ListContainers(ctx, &types.ListContainersRequest{})
			}, func(w io.Writer, r *types.ListContainersResponse) {
				if len(r.Containers) == 0 {
					fmt.Fprintln(w, "No containers.")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tZONE\tW x D x H")
				for _, c := range r.Containers {
					fmt.Fprintf(tw, "%s\t%s\t%g x %g x %g\n", c.ContainerID, c.Zone, c.Width, c.Depth, c.Height)
				}
				tw.Flush()
			})
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func (a *app) cargoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cargo",
		Short: "Manage cargo items",
	}

	var (
		it         types.Item
		usageLimit int
	)
	add := &cobra.Command{
		Use:   "add [item-id]",
		Short: "Register a new item (unplaced)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it.ItemID = args[0]
			if cmd.Flags().Changed("usage-limit") {
				limit := usageLimit
				it.UsageLimit = &limit
			}
			return call(a, cmd, func(ctx context.Context, cl *api.Client) (*types.AddCargoResponse, error) {
				return cl.AddCargo(ctx, &types.AddCargoRequest{Item: it, UserID: a.user})
			}, func(w io.Writer, r *types.AddCargoResponse) {
				fmt.Fprintf(w, "%s Added item %s\n", okMark(), r.ItemID)
			})
		},
	}
	add.Flags().StringVar(&it.Name, "name", "", "item name")
	add.Flags().Float64Var(&it.Width, "width", 0, "width (cm)")
	add.Flags().Float64Var(&it.Depth, "depth", 0, "depth (cm)")
	add.Flags().Float64Var(&it.Height, "height", 0, "height (cm)")
	add.Flags().Float64Var(&it.Mass, "mass", 0, "mass (kg)")
	add.Flags().IntVar(&it.Priority, "priority", 50, "priority 1-100")
	add.Flags().StringVar(&it.PreferredZone, "zone", "", "preferred zone")
	add.Flags().StringVar(&it.ExpiryDate, "expiry", "", "expiry date (YYYY-MM-DD)")
	add.Flags().IntVar(&usageLimit, "usage-limit", 0, "number of uses before depletion")

	cmd.AddCommand(add)
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [manifest.json]",
		Short: "Import containers and items from a JSON manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req types.ImportRequest
			if err := readJSONFile(args[0], &req); err != nil {
				return err
			}
			req.UserID = a.user
			return call(a, cmd, func(ctx context.Context, cl *api.Client) (*types.ImportResponse, error) {
				return cl.Import(ctx, &req)
			}, func(w io.Writer, r *types.ImportResponse) {
				mark := okMark()
				if !r.Success {
					mark = warnMark()
				}
				fmt.Fprintf(w, "%s Imported %d containers, %d items\n", mark, r.ContainersImported, r.ItemsImported)
				for _, e := range r.Errors {
					fmt.Fprintf(w, "  %s %s: %s\n", failMark(), e.Record, e.Error)
				}
			})
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	var byName bool
	cmd := &cobra.Command{
		Use:   "search [item-id | name]",
		Short: "Locate an item and list the retrieval steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &types.SearchRequest{UserID: a.user}
			if byName {
				req.ItemName = args[0]
			} else {
				req.ItemID = args[0]
			}
			return call(a, cmd, func(ctx context.Context, cl *api.Client) (*types.SearchResponse, error) {
				return cl.Search(ctx, req)
			}, renderSearch)
		},
	}
	cmd.Flags().BoolVar(&byName, "name", false, "treat the argument as an item name")
	return cmd
}

func renderSearch(w io.Writer, r *types.SearchResponse) {
	if !r.Found || r.Item == nil {
		fmt.Fprintf(w, "%s Not found\n", warnMark())
		return
	}
	where := color.New(color.FgCyan).Sprintf("%s/%s", r.Zone, r.Item.ContainerID)
	if r.Item.ContainerID == "" {
		where = color.New(color.FgYellow).Sprint("unplaced")
	}
	fmt.Fprintf(w, "%s %s (%s) in %s\n", okMark(), r.Item.ItemID, r.Item.Name, where)
	renderSteps(w, r.RetrievalSteps)
}

func renderSteps(w io.Writer, steps []types.Step) {
	for _, st := range steps {
		fmt.Fprintf(w, "  %d. %-10s %s", st.Step, st.Action, st.ItemID)
		if st.ItemName != "" {
			fmt.Fprintf(w, " (%s)", st.ItemName)
		}
		if st.ContainerID != "" {
			fmt.Fprintf(w, " @ %s", st.ContainerID)
		}
		fmt.Fprintln(w)
	}
}

func (a *app) placeCmd() *cobra.Command {
	var (
		containerID string
		start, end  string
		timestamp   string
	)
	cmd := &cobra.Command{
		Use:   "place [item-id]",
		Short: "Put an item at an explicit position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseCoordinates(start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			to, err := parseCoordinates(end)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			req := &types.PlaceRequest{
				ItemID:      args[0],
				UserID:      a.user,
				Timestamp:   timestamp,
				ContainerID: containerID,
				Position:    types.Position{StartCoordinates: from, EndCoordinates: to},
			}
			return call(a, cmd, func(ctx context.Context, cl *api.Client) (*types.PlaceResponse, error) {
				return cl.Place(ctx, req)
			}, func(w io.Writer, r *types.PlaceResponse) {
				fmt.Fprintf(w, "%s Placed %s in %s\n", okMark(), req.ItemID, req.ContainerID)
			})
		},
	}
	cmd.Flags().StringVar(&containerID, "container", "", "target container id")
	cmd.Flags().StringVar(&start, "start", "", "start corner as width,depth,height")
	cmd.Flags().StringVar(&end, "end", "", "end corner as width,depth,height")
	cmd.Flags().StringVar(&timestamp, "at", "", "timestamp (RFC 3339 or YYYY-MM-DD), defaults to mission now")
	_ = cmd.MarkFlagRequired("container")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func parseCoordinates(s string) (types.Coordinates, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return types.Coordinates{}, fmt.Errorf("want width,depth,height, got %q", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return types.Coordinates{}, fmt.Errorf("bad coordinate %q: %w", p, err)
		}
		v[i] = f
	}
	return types.Coordinates{Width: v[0], Depth: v[1], Height: v[2]}, nil
}

func (a *app) retrieveCmd() *cobra.Command {
	var timestamp string
	cmd := &cobra.Command{
		Use:   "retrieve [item-id]",
		Short: "Take an item out of its container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(a, cmd, func(ctx context.Context, cl *api.Client) (*types.RetrieveResponse, error) {
				return cl.Retrieve(ctx, &types.RetrieveRequest{ItemID: args[0], UserID: a.user, Timestamp: timestamp})
			}, func(w io.Writer, r *types.RetrieveResponse) {
				fmt.Fprintf(w, "%s Retrieved %s\n", okMark(), args[0])
			})
		},
	}
	cmd.Flags().StringVar(&timestamp, "at", "", "timestamp (RFC 3339 or YYYY-MM-DD), defaults to mission now")
	return cmd
}

func (a *app) placementCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "placement [request.json]",
		Short: "Ask the optimizer to place a batch of items",
		Long: `Reads a JSON document with "items" and optional "containers" arrays and
lets the optimizer choose positions, rearranging lower-priority cargo if needed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req types.PlacementRequest
			if err := readJSONFile(args[0], &req); err != nil {
				return err
			}
			req.UserID = a.user
			return call(a, cmd, func(ctx context.Context, cl *api.Client) (*types.PlacementResponse, error) {
				return cl.Placement(ctx, &req)
			}, renderPlacement)
		},
	}
}

func renderPlacement(w io.Writer, r *types.PlacementResponse) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, p := range r.Placements {
		s, e := p.Position.StartCoordinates, p.Position.EndCoordinates
		fmt.Fprintf(tw, "%s\t%s\t%s\t(%g,%g,%g)-(%g,%g,%g)\n", okMark(), p.ItemID, p.ContainerID,
			s.Width, s.Depth, s.Height, e.Width, e.Depth, e.Height)
	}
	tw.Flush()
	for _, re := range r.Rearrangements {
		fmt.Fprintf(w, "  %d. %s %s %s -> %s\n", re.Step, re.Action, re.ItemID, re.FromContainer, re.ToContainer)
	}
	for _, f := range r.Failures {
		fmt.Fprintf(w, "%s %s: %s\n", failMark(), f.ItemID, f.Error)
	}
}

func (a *app) useCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "use [item-id]",
		Short: "Record uses of a limited-use item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(a, cmd, func(ctx context.Context, cl *api.Client) (*types.UseItemResponse, error) {
				return cl.UseItem(ctx, &types.UseItemRequest{ItemID: args[0], UsageCount: count, UserID: a.user})
			}, func(w io.Writer, r *types.UseItemResponse) {
				fmt.Fprintf(w, "%s %s: %d uses left\n", okMark(), args[0], r.RemainingUses)
				if r.BecameWaste {
					fmt.Fprintf(w, "%s %s is now waste\n", warnMark(), args[0])
				}
			})
		},
	}
	cmd.Flags().IntVar(&count, "count", 1, "number of uses to record")
	return cmd
}
