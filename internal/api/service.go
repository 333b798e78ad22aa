// internal/api/service.go
package api

import (
	"context"
	"errors"
	"strings"

	"github.com/signalsfoundry/stowage/core"
	"github.com/signalsfoundry/stowage/internal/api/types"
	"github.com/signalsfoundry/stowage/internal/logging"
	"github.com/signalsfoundry/stowage/internal/sim/state"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// CargoService implements the CargoService gRPC server backed by a CargoState.
// Each RPC maps one request record onto one inventory operation.
type CargoService struct {
	state *state.CargoState
	log   logging.Logger
}

var _ CargoServiceServer = (*CargoService)(nil)

// NewCargoService wires a CargoService to the shared CargoState and optional
// logger.
func NewCargoService(st *state.CargoState, log logging.Logger) *CargoService {
	if log == nil {
		log = logging.Noop()
	}
	return &CargoService{state: st, log: log}
}

func (s *CargoService) ensureReady() error {
	if s == nil || s.state == nil {
		return status.Error(codes.FailedPrecondition, "cargo service is not initialised")
	}
	return nil
}

func (s *CargoService) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}

func requestRequired() error {
	return status.Error(codes.InvalidArgument, "request is required")
}

func (s *CargoService) AddCargo(ctx context.Context, req *types.AddCargoRequest) (*types.AddCargoResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, requestRequired()
	}
	it, err := types.ItemFromWire(req.Item)
	if err != nil {
		return nil, ToStatusError(err)
	}

	ctx, span := StartChildSpan(ctx, "CargoState.AddCargo", "item", it.ID)
	err = s.state.AddCargo(ctx, it, req.UserID)
	endSpan(span, err)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return &types.AddCargoResponse{Success: true, ItemID: it.ID}, nil
}

func (s *CargoService) AddContainer(ctx context.Context, req *types.AddContainerRequest) (*types.AddContainerResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, requestRequired()
	}
	c := types.ContainerFromWire(req.Container)

	ctx, span := StartChildSpan(ctx, "CargoState.AddContainer", "container", c.ID)
	err := s.state.AddContainer(ctx, c)
	endSpan(span, err)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return &types.AddContainerResponse{Success: true, ContainerID: c.ID}, nil
}

func (s *CargoService) ListContainers(ctx context.Context, _ *types.ListContainersRequest) (*types.ListContainersResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	containers := s.state.ListContainers()
	resp := &types.ListContainersResponse{Containers: make([]types.Container, 0, len(containers))}
	for _, c := range containers {
		resp.Containers = append(resp.Containers, types.ContainerToWire(c))
	}
	return resp, nil
}

// Import registers a batch of containers and items. Rejected records are
// reported in the response; the rest are still imported.
func (s *CargoService) Import(ctx context.Context, req *types.ImportRequest) (*types.ImportResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, requestRequired()
	}

	resp := &types.ImportResponse{}
	m := &core.Manifest{}
	for _, c := range req.Containers {
		m.Containers = append(m.Containers, types.ContainerFromWire(c))
	}
	for _, in := range req.Items {
		it, err := types.ItemFromWire(in)
		if err != nil {
			resp.Errors = append(resp.Errors, types.ImportError{Record: "item " + in.ItemID, Error: err.Error()})
			continue
		}
		m.Items = append(m.Items, it)
	}

	ctx, span := StartChildSpan(ctx, "CargoState.ImportManifest", "", "",
		attribute.Int("containers", len(m.Containers)),
		attribute.Int("items", len(m.Items)),
	)
	res := s.state.ImportManifest(ctx, m, req.UserID)
	span.End()

	resp.ContainersImported = res.ContainersImported
	resp.ItemsImported = res.ItemsImported
	for _, e := range res.Errors {
		resp.Errors = append(resp.Errors, types.ImportError{Record: e.Record, Error: e.Err.Error()})
	}
	resp.Success = len(resp.Errors) == 0
	return resp, nil
}

func (s *CargoService) Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := ValidateSearchRequest(req); err != nil {
		return nil, ToStatusError(err)
	}

	var (
		res *state.SearchResult
		err error
	)
	if id := strings.TrimSpace(req.ItemID); id != "" {
		ctx, span := StartChildSpan(ctx, "CargoState.Search", "item", id)
		res, err = s.state.Search(ctx, id)
		endSpan(span, err)
	} else {
		ctx, span := StartChildSpan(ctx, "CargoState.SearchByName", "item_name", req.ItemName)
		res, err = s.state.SearchByName(ctx, req.ItemName)
		endSpan(span, err)
	}
	if err != nil {
		return nil, ToStatusError(err)
	}

	resp := &types.SearchResponse{Success: true, Found: res.Found, RetrievalSteps: types.StepsToWire(res.Steps)}
	if res.Found {
		it := types.ItemToWire(res.Item)
		resp.Item = &it
	}
	if res.Container != nil {
		resp.Zone = string(res.Container.Zone)
	}
	return resp, nil
}

func (s *CargoService) Place(ctx context.Context, req *types.PlaceRequest) (*types.PlaceResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := ValidatePlaceRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	ts, err := types.ParseTimestamp(req.Timestamp)
	if err != nil {
		return nil, ToStatusError(err)
	}

	ctx, span := StartChildSpan(ctx, "CargoState.Place", "item", req.ItemID,
		attribute.String("container_id", req.ContainerID),
	)
	err = s.state.Place(ctx, state.PlaceRequest{
		ItemID:      strings.TrimSpace(req.ItemID),
		UserID:      req.UserID,
		Timestamp:   ts,
		ContainerID: strings.TrimSpace(req.ContainerID),
		Position:    types.PositionFromWire(req.Position),
	})
	endSpan(span, err)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return &types.PlaceResponse{Success: true}, nil
}

func (s *CargoService) Retrieve(ctx context.Context, req *types.RetrieveRequest) (*types.RetrieveResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, requestRequired()
	}
	if err := requireID("itemId", req.ItemID); err != nil {
		return nil, ToStatusError(err)
	}
	ts, err := types.ParseTimestamp(req.Timestamp)
	if err != nil {
		return nil, ToStatusError(err)
	}

	ctx, span := StartChildSpan(ctx, "CargoState.Retrieve", "item", req.ItemID)
	err = s.state.Retrieve(ctx, strings.TrimSpace(req.ItemID), req.UserID, ts)
	endSpan(span, err)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return &types.RetrieveResponse{Success: true}, nil
}

func (s *CargoService) Placement(ctx context.Context, req *types.PlacementRequest) (*types.PlacementResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := ValidatePlacementRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	ts, err := types.ParseTimestamp(req.Timestamp)
	if err != nil {
		return nil, ToStatusError(err)
	}

	in := state.PlacementRequest{UserID: req.UserID, Timestamp: ts}
	for _, c := range req.Containers {
		in.Containers = append(in.Containers, types.ContainerFromWire(c))
	}
	for _, w := range req.Items {
		it, err := types.ItemFromWire(w)
		if err != nil {
			return nil, ToStatusError(err)
		}
		in.Items = append(in.Items, it)
	}

	ctx, span := StartChildSpan(ctx, "CargoState.Placement", "", "",
		attribute.Int("items", len(in.Items)),
		attribute.Int("containers", len(in.Containers)),
	)
	res, err := s.state.Placement(ctx, in)
	if err == nil {
		span.SetAttributes(
			attribute.Int("rearrangements", len(res.Rearrangements)),
			attribute.Int("failures", len(res.Failures)),
		)
	}
	endSpan(span, err)
	if err != nil {
		return nil, ToStatusError(err)
	}
	resp := types.BatchToWire(res)
	resp.Success = len(res.Failures) == 0
	return resp, nil
}

func (s *CargoService) IdentifyWaste(ctx context.Context, _ *types.IdentifyWasteRequest) (*types.IdentifyWasteResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	ctx, span := StartChildSpan(ctx, "CargoState.IdentifyWaste", "", "")
	records, err := s.state.IdentifyWaste(ctx)
	endSpan(span, err)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return &types.IdentifyWasteResponse{Success: true, WasteItems: types.WasteToWire(records)}, nil
}

func (s *CargoService) ReturnPlan(ctx context.Context, req *types.ReturnPlanRequest) (*types.ReturnPlanResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, requestRequired()
	}
	ts, err := types.ParseTimestamp(req.UndockingDate)
	if err != nil {
		return nil, ToStatusError(err)
	}

	ctx, span := StartChildSpan(ctx, "CargoState.ReturnPlan", "container", req.UndockingContainerID,
		attribute.Float64("max_weight", req.MaxWeight),
	)
	res, err := s.state.ReturnPlan(ctx, state.ReturnPlanRequest{
		UndockingContainerID: req.UndockingContainerID,
		MaxWeight:            req.MaxWeight,
		MaxVolume:            req.MaxVolume,
		UserID:               req.UserID,
		Timestamp:            ts,
	})
	endSpan(span, err)
	if err != nil {
		return nil, ToStatusError(err)
	}

	manifest := types.ReturnManifest{
		UndockingContainerID: res.Manifest.UndockingContainerID,
		UndockingDate:        types.FormatDate(res.Manifest.UndockingDate),
		ReturnItems:          make([]types.ReturnItem, 0, len(res.Manifest.Items)),
		TotalVolume:          res.Manifest.TotalVolume,
		TotalWeight:          res.Manifest.TotalWeight,
	}
	for _, rec := range res.Manifest.Items {
		manifest.ReturnItems = append(manifest.ReturnItems, types.ReturnItem{
			ItemID: rec.Item.ID,
			Name:   rec.Item.Name,
			Reason: rec.Reason.String(),
		})
	}
	return &types.ReturnPlanResponse{
		Success:        true,
		ReturnPlan:     types.StepsToWire(res.Plan.Steps),
		RetrievalSteps: types.StepsToWire(res.RetrievalSteps),
		ReturnManifest: manifest,
	}, nil
}

func (s *CargoService) CompleteUndocking(ctx context.Context, req *types.CompleteUndockingRequest) (*types.CompleteUndockingResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, requestRequired()
	}
	if err := requireID("undockingContainerId", req.UndockingContainerID); err != nil {
		return nil, ToStatusError(err)
	}
	ts, err := types.ParseTimestamp(req.Timestamp)
	if err != nil {
		return nil, ToStatusError(err)
	}

	ctx, span := StartChildSpan(ctx, "CargoState.CompleteUndocking", "container", req.UndockingContainerID)
	removed, err := s.state.CompleteUndocking(ctx, strings.TrimSpace(req.UndockingContainerID), req.UserID, ts)
	endSpan(span, err)
	if err != nil {
		return nil, ToStatusError(err)
	}
	s.logger(ctx).Info(ctx, "undocking completed",
		logging.ContainerID(req.UndockingContainerID),
		logging.Int("removed", removed),
	)
	return &types.CompleteUndockingResponse{Success: true, ItemsRemoved: removed}, nil
}

func (s *CargoService) SimulateDay(ctx context.Context, req *types.SimulateDayRequest) (*types.SimulateDayResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := ValidateSimulateRequest(req); err != nil {
		return nil, ToStatusError(err)
	}

	in := state.SimulateRequest{Days: req.NumOfDays, UserID: req.UserID}
	for _, d := range req.ItemsToBeUsedPerDay {
		in.Schedule = append(in.Schedule, state.UsageDay{Day: d.Day, ItemIDs: append([]string(nil), d.ItemIDs...)})
	}

	ctx, span := StartChildSpan(ctx, "CargoState.SimulateDays", "", "",
		attribute.Int("days", req.NumOfDays),
	)
	res, err := s.state.SimulateDays(ctx, in)
	endSpan(span, err)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return &types.SimulateDayResponse{
		Success: true,
		NewDate: types.FormatDate(res.NewDate),
		Changes: types.SimulateChanges{
			ItemsUsed:          changesToWire(res.Used),
			ItemsExpired:       changesToWire(res.Expired),
			ItemsDepletedToday: changesToWire(res.Depleted),
		},
	}, nil
}

func changesToWire(changes []state.ItemChange) []types.ItemChange {
	out := make([]types.ItemChange, 0, len(changes))
	for _, c := range changes {
		var remaining *int
		if c.RemainingUses != nil {
			v := *c.RemainingUses
			remaining = &v
		}
		out = append(out, types.ItemChange{
			ItemID:        c.ItemID,
			Name:          c.Name,
			Date:          types.FormatDate(c.Date),
			RemainingUses: remaining,
		})
	}
	return out
}

func (s *CargoService) UseItem(ctx context.Context, req *types.UseItemRequest) (*types.UseItemResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, requestRequired()
	}
	ts, err := types.ParseTimestamp(req.Timestamp)
	if err != nil {
		return nil, ToStatusError(err)
	}

	ctx, span := StartChildSpan(ctx, "CargoState.UseItem", "item", req.ItemID,
		attribute.Int("count", req.UsageCount),
	)
	res, err := s.state.UseItem(ctx, strings.TrimSpace(req.ItemID), req.UsageCount, req.UserID, ts)
	endSpan(span, err)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return &types.UseItemResponse{Success: true, RemainingUses: res.RemainingUses, BecameWaste: res.BecameWaste}, nil
}

func (s *CargoService) Logs(ctx context.Context, req *types.LogsRequest) (*types.LogsResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	filter, err := types.FilterFromWire(req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	entries, err := s.state.Logs(ctx, filter)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, status.FromContextError(err).Err()
		}
		return nil, ToStatusError(err)
	}
	return &types.LogsResponse{Logs: types.LogEntriesToWire(entries)}, nil
}

func (s *CargoService) Arrangement(ctx context.Context, _ *types.ArrangementRequest) (*types.ArrangementResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	rows := s.state.Arrangement()
	resp := &types.ArrangementResponse{Rows: make([]types.ArrangementRow, 0, len(rows))}
	for _, r := range rows {
		resp.Rows = append(resp.Rows, types.ArrangementRow{
			ItemID:      r.ItemID,
			Name:        r.Name,
			ContainerID: r.ContainerID,
			Zone:        string(r.Zone),
			Position:    types.PositionToWire(r.Position),
		})
	}
	return resp, nil
}

func (s *CargoService) Summary(ctx context.Context, _ *types.SummaryRequest) (*types.SummaryResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	sum := s.state.Summary()
	resp := &types.SummaryResponse{
		Date:       types.FormatDate(sum.Date),
		MissionDay: sum.MissionDay,
		Counts: types.Counts{
			Items:      sum.Counts.Items,
			Placed:     sum.Counts.Placed,
			Waste:      sum.Counts.Waste,
			Containers: sum.Counts.Containers,
		},
		NearExpiryDays: sum.NearExpiryDays,
		NearExpiry:     types.ItemsToWire(sum.NearExpiry),
		MostRetrieved:  types.ItemsToWire(sum.MostRetrieved),
		Utilization:    make([]types.Utilization, 0, len(sum.Utilization)),
		ItemsByZone:    make(map[string]int, len(sum.ItemsByZone)),
	}
	for _, u := range sum.Utilization {
		resp.Utilization = append(resp.Utilization, types.Utilization{
			ContainerID: u.ContainerID,
			Zone:        string(u.Zone),
			ItemCount:   u.ItemCount,
			UsedVolume:  u.UsedVolume,
			TotalVolume: u.TotalVolume,
			Ratio:       u.Ratio,
		})
	}
	for zone, n := range sum.ItemsByZone {
		resp.ItemsByZone[string(zone)] = n
	}
	return resp, nil
}
