package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/signalsfoundry/stowage/core"
	"github.com/signalsfoundry/stowage/internal/config"
	"github.com/signalsfoundry/stowage/internal/logging"
	"github.com/signalsfoundry/stowage/internal/sim/state"
	"github.com/signalsfoundry/stowage/kb"
	"github.com/signalsfoundry/stowage/timectrl"
)

const simUser = "cargo-sim"

// options drive one offline run.
type options struct {
	ManifestPath string
	Start        time.Time
	Days         int
	Daily        []string // item ids used every simulated day
	Undock       string   // container receiving returned waste, empty skips the return plan
	MaxWeight    float64
}

func main() {
	manifestPath := flag.String("manifest", "configs/manifest.json", "JSON manifest of containers and items")
	startDate := flag.String("start", "", "mission start date (YYYY-MM-DD), defaults to today")
	days := flag.Int("days", 7, "number of mission days to simulate")
	daily := flag.String("use", "", "comma-separated item ids used once per day")
	undock := flag.String("undock", "", "container id that receives returned waste")
	maxWeight := flag.Float64("max-weight", 100, "mass budget for the return plan")
	flag.Parse()

	start := timectrl.TruncateDay(time.Now().UTC())
	if *startDate != "" {
		parsed, err := time.Parse(config.DateLayout, *startDate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cargo-sim: bad -start: %v\n", err)
			os.Exit(2)
		}
		start = parsed
	}

	opts := options{
		ManifestPath: *manifestPath,
		Start:        start,
		Days:         *days,
		Daily:        splitIDs(*daily),
		Undock:       *undock,
		MaxWeight:    *maxWeight,
	}
	if err := run(context.Background(), os.Stdout, logging.NewFromEnv(), opts); err != nil {
		fmt.Fprintf(os.Stderr, "cargo-sim: %v\n", err)
		os.Exit(1)
	}
}

func splitIDs(raw string) []string {
	var out []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// run imports the manifest, places every item, then steps the mission one
// day at a time and prints what happened.
func run(ctx context.Context, w io.Writer, log logging.Logger, opts options) error {
	f, err := os.Open(opts.ManifestPath)
	if err != nil {
		return fmt.Errorf("open manifest %q: %w", opts.ManifestPath, err)
	}
	defer f.Close()

	m, err := core.LoadManifest(f)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	clock := timectrl.NewMissionClock(opts.Start)
	clock.AddListener(func(now time.Time) {
		log.Debug(ctx, "mission day advanced", logging.Time("date", now))
	})
	st := state.NewCargoState(kb.NewKnowledgeBase(), clock, log)

	batch, err := st.Placement(ctx, state.PlacementRequest{
		Items:      m.Items,
		Containers: m.Containers,
		UserID:     simUser,
		Timestamp:  opts.Start,
	})
	if err != nil {
		return fmt.Errorf("initial placement: %w", err)
	}
	fmt.Fprintf(w, "Loaded %d containers, %d items: placed=%d rearranged=%d failed=%d\n",
		len(m.Containers), len(m.Items), len(batch.Placements), len(batch.Rearrangements), len(batch.Failures))
	for _, fail := range batch.Failures {
		fmt.Fprintf(w, "  ! %s: %v\n", fail.ItemID, fail.Err)
	}

	var schedule []state.UsageDay
	if len(opts.Daily) > 0 {
		schedule = []state.UsageDay{{Day: 0, ItemIDs: opts.Daily}}
	}
	for day := 1; day <= opts.Days; day++ {
		res, err := st.SimulateDays(ctx, state.SimulateRequest{Days: 1, Schedule: schedule, UserID: simUser})
		if err != nil {
			return fmt.Errorf("simulate day %d: %w", day, err)
		}
		fmt.Fprintf(w, "[%s] used=%d expired=%d depleted=%d\n",
			res.NewDate.Format(config.DateLayout), len(res.Used), len(res.Expired), len(res.Depleted))
		for _, c := range res.Expired {
			fmt.Fprintf(w, "  ↳ expired %s (%s)\n", c.ItemID, c.Name)
		}
		for _, c := range res.Depleted {
			fmt.Fprintf(w, "  ↳ depleted %s (%s)\n", c.ItemID, c.Name)
		}
	}

	waste, err := st.IdentifyWaste(ctx)
	if err != nil {
		return fmt.Errorf("identify waste: %w", err)
	}
	fmt.Fprintf(w, "Waste items: %d\n", len(waste))

	if opts.Undock != "" && len(waste) > 0 {
		plan, err := st.ReturnPlan(ctx, state.ReturnPlanRequest{
			UndockingContainerID: opts.Undock,
			MaxWeight:            opts.MaxWeight,
			UserID:               simUser,
		})
		if err != nil {
			return fmt.Errorf("return plan: %w", err)
		}
		fmt.Fprintf(w, "Return plan to %s: %d items, %.1f kg, %d retrieval steps\n",
			opts.Undock, len(plan.Plan.Selected), plan.Plan.TotalMass, len(plan.RetrievalSteps))
	}

	sum := st.Summary()
	fmt.Fprintf(w, "Mission day %d: items=%d placed=%d waste=%d\n",
		sum.MissionDay, sum.Counts.Items, sum.Counts.Placed, sum.Counts.Waste)
	return nil
}
