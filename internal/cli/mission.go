package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/stowage/internal/api"
	"github.com/signalsfoundry/stowage/internal/api/types"
)

func (a *app) wasteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "waste",
		Short: "Identify waste and plan its return",
	}

	identify := &cobra.Command{
		Use:   "identify",
		Short: "Flag expired and depleted items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(a, cmd, func(ctx context.Context, cl *api.Client) (*types.IdentifyWasteResponse, error) {
				return cl.IdentifyWaste(ctx, &types.IdentifyWasteRequest{})
			}, func(w io.Writer, r *types.IdentifyWasteResponse) {
				if len(r.WasteItems) == 0 {
					fmt.Fprintf(w, "%s No waste\n", okMark())
					return
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tREASON\tCONTAINER")
				for _, it := range r.WasteItems {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ItemID, it.Name, color.New(color.FgRed).Sprint(it.Reason), it.ContainerID)
				}
				tw.Flush()
			})
		},
	}

	var plan types.ReturnPlanRequest
	returnPlan := &cobra.Command{
		Use:   "return-plan",
		Short: "Select waste for return under a mass budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan.UserID = a.user
			return call(a, cmd, func(ctx context.Context, cl *api.Client) (*types.ReturnPlanResponse, error) {
				return cl.ReturnPlan(ctx, &plan)
			}, renderReturnPlan)
		},
	}
	returnPlan.Flags().StringVar(&plan.UndockingContainerID, "undock", "", "container that carries the waste away")
	returnPlan.Flags().StringVar(&plan.UndockingDate, "date", "", "undocking date (YYYY-MM-DD)")
	returnPlan.Flags().Float64Var(&plan.MaxWeight, "max-weight", 0, "mass budget (kg)")
	returnPlan.Flags().Float64Var(&plan.MaxVolume, "max-volume", 0, "volume budget (cm3), 0 for none")
	_ = returnPlan.MarkFlagRequired("max-weight")

	undock := &cobra.Command{
		Use:   "undock [container-id]",
		Short: "Dispose of the waste staged in an undocking container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(a, cmd, func(ctx context.Context, cl *api.Client) (*types.CompleteUndockingResponse, error) {
				return cl.CompleteUndocking(ctx, &types.CompleteUndockingRequest{UndockingContainerID: args[0], UserID: a.user})
			}, func(w io.Writer, r *types.CompleteUndockingResponse) {
				fmt.Fprintf(w, "%s Removed %d items with %s\n", okMark(), r.ItemsRemoved, args[0])
			})
		},
	}

	cmd.AddCommand(identify, returnPlan, undock)
	return cmd
}

func renderReturnPlan(w io.Writer, r *types.ReturnPlanResponse) {
	m := r.ReturnManifest
	fmt.Fprintf(w, "%s %d items, %.1f kg, %.0f cm3", okMark(), len(m.ReturnItems), m.TotalWeight, m.TotalVolume)
	if m.UndockingContainerID != "" {
		fmt.Fprintf(w, " -> %s", m.UndockingContainerID)
	}
	fmt.Fprintln(w)
	if len(r.RetrievalSteps) > 0 {
		fmt.Fprintln(w, "Retrieval:")
		renderSteps(w, r.RetrievalSteps)
	}
	if len(r.ReturnPlan) > 0 {
		fmt.Fprintln(w, "Return:")
		renderSteps(w, r.ReturnPlan)
	}
}

func (a *app) simulateCmd() *cobra.Command {
	var (
		days  int
		daily []string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Advance the mission clock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &types.SimulateDayRequest{NumOfDays: days, UserID: a.user}
			if len(daily) > 0 {
				req.ItemsToBeUsedPerDay = []types.UsageDay{{Day: 0, ItemIDs: daily}}
			}
			return call(a, cmd, func(ctx context.Context, cl *api.Client) (*types.SimulateDayResponse, error) {
				return cl.SimulateDay(ctx, req)
			}, func(w io.Writer, r *types.SimulateDayResponse) {
				fmt.Fprintf(w, "%s Mission date is now %s\n", okMark(), r.NewDate)
				renderChanges(w, "used", r.Changes.ItemsUsed)
				renderChanges(w, "expired", r.Changes.ItemsExpired)
				renderChanges(w, "depleted", r.Changes.ItemsDepletedToday)
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 1, "number of days to advance")
	cmd.Flags().StringSliceVar(&daily, "use", nil, "item ids used once every simulated day")
	return cmd
}

func renderChanges(w io.Writer, label string, changes []types.ItemChange) {
	for _, c := range changes {
		fmt.Fprintf(w, "  %s %-8s %s (%s)\n", c.Date, label, c.ItemID, c.Name)
	}
}

func (a *app) logsCmd() *cobra.Command {
	var req types.LogsRequest
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Query the activity log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(a, cmd, func(ctx context.Context, cl *api.Client) (*types.LogsResponse, error) {
				return cl.Logs(ctx, &req)
			}, func(w io.Writer, r *types.LogsResponse) {
				if len(r.Logs) == 0 {
					fmt.Fprintln(w, "No entries.")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "TIME\tUSER\tACTION\tITEM")
				for _, e := range r.Logs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), e.UserID, e.ActionType, e.ItemID)
				}
				tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&req.StartDate, "start", "", "window start (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.EndDate, "end", "", "window end (a bare date covers the whole day)")
	cmd.Flags().StringVar(&req.ItemID, "item", "", "filter by item id")
	cmd.Flags().StringVar(&req.UserID, "by", "", "filter by user id")
	cmd.Flags().StringVar(&req.ActionType, "action", "", "filter by action type")
	return cmd
}

func (a *app) arrangementCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "arrangement",
		Short: "List every placed item by container",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(a, cmd, func(ctx context.Context, cl *api.Client) (*types.ArrangementResponse, error) {
				return cl.Arrangement(ctx, &types.ArrangementRequest{})
			}, func(w io.Writer, r *types.ArrangementResponse) {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "CONTAINER\tZONE\tITEM\tNAME\tSTART\tEND")
				for _, row := range r.Rows {
					s, e := row.Position.StartCoordinates, row.Position.EndCoordinates
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t(%g,%g,%g)\t(%g,%g,%g)\n",
						row.ContainerID, row.Zone, row.ItemID, row.Name,
						s.Width, s.Depth, s.Height, e.Width, e.Depth, e.Height)
				}
				tw.Flush()
			})
		},
	}
}

func (a *app) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show inventory counts, utilisation and expiring items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(a, cmd, func(ctx context.Context, cl *api.Client) (*types.SummaryResponse, error) {
				return cl.Summary(ctx, &types.SummaryRequest{})
			}, renderSummary)
		},
	}
}

func renderSummary(w io.Writer, r *types.SummaryResponse) {
	header := color.New(color.Bold)
	fmt.Fprintf(w, "%s %s (day %d)\n", header.Sprint("Mission date"), r.Date, r.MissionDay)
	fmt.Fprintf(w, "Items: %d (placed %d, waste %d), containers: %d\n",
		r.Counts.Items, r.Counts.Placed, r.Counts.Waste, r.Counts.Containers)

	if len(r.Utilization) > 0 {
		fmt.Fprintln(w, header.Sprint("Utilisation"))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, u := range r.Utilization {
			pct := color.New(color.FgGreen).Sprintf("%5.1f%%", u.Ratio*100)
			if u.Ratio >= 0.9 {
				pct = color.New(color.FgRed).Sprintf("%5.1f%%", u.Ratio*100)
			}
			fmt.Fprintf(tw, "  %s\t%s\t%d items\t%s\n", u.ContainerID, u.Zone, u.ItemCount, pct)
		}
		tw.Flush()
	}

	if len(r.NearExpiry) > 0 {
		fmt.Fprintf(w, "%s (next %d days)\n", header.Sprint("Expiring"), r.NearExpiryDays)
		for _, it := range r.NearExpiry {
			fmt.Fprintf(w, "  %s %s %s (%s)\n", warnMark(), it.ExpiryDate, it.ItemID, it.Name)
		}
	}

	if len(r.MostRetrieved) > 0 {
		fmt.Fprintln(w, header.Sprint("Most retrieved"))
		for _, it := range r.MostRetrieved {
			fmt.Fprintf(w, "  %3d  %s (%s)\n", it.RetrievalCount, it.ItemID, it.Name)
		}
	}

	if len(r.ItemsByZone) > 0 {
		zones := make([]string, 0, len(r.ItemsByZone))
		for z := range r.ItemsByZone {
			zones = append(zones, z)
		}
		sort.Strings(zones)
		parts := make([]string, 0, len(zones))
		for _, z := range zones {
			parts = append(parts, fmt.Sprintf("%s=%d", z, r.ItemsByZone[z]))
		}
		fmt.Fprintf(w, "%s %s\n", header.Sprint("By zone"), strings.Join(parts, " "))
	}
}
