// Package types holds the JSON wire records of the cargo API and the mappings
// between them and the domain model.
package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/signalsfoundry/stowage/core"
	"github.com/signalsfoundry/stowage/internal/activity"
	"github.com/signalsfoundry/stowage/model"
)

// DateLayout is the calendar-date rendering used for expiry and mission dates.
const DateLayout = "2006-01-02"

//
// Shared records.
//

// Coordinates is a point inside a container, in centimetres.
type Coordinates struct {
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
	Height float64 `json:"height"`
}

// Position is the axis-aligned box an item occupies.
type Position struct {
	StartCoordinates Coordinates `json:"startCoordinates"`
	EndCoordinates   Coordinates `json:"endCoordinates"`
}

// Container mirrors the container import columns.
type Container struct {
	ContainerID string  `json:"containerId"`
	Zone        string  `json:"zone"`
	Width       float64 `json:"width"`
	Depth       float64 `json:"depth"`
	Height      float64 `json:"height"`
}

// Item mirrors the item import columns plus the lifecycle fields the engine
// maintains.
type Item struct {
	ItemID        string  `json:"itemId"`
	Name          string  `json:"name"`
	Width         float64 `json:"width"`
	Depth         float64 `json:"depth"`
	Height        float64 `json:"height"`
	Mass          float64 `json:"mass"`
	Priority      int     `json:"priority"`
	PreferredZone string  `json:"preferredZone"`
	UsageLimit    *int    `json:"usageLimit,omitempty"`
	ExpiryDate    string  `json:"expiryDate,omitempty"`

	RemainingUses     *int      `json:"remainingUses,omitempty"`
	ContainerID       string    `json:"containerId,omitempty"`
	Position          *Position `json:"position,omitempty"`
	IsWaste           bool      `json:"isWaste,omitempty"`
	WasteReason       string    `json:"wasteReason,omitempty"`
	ReturnContainerID string    `json:"returnContainerId,omitempty"`
	RetrievalCount    int       `json:"retrievalCount,omitempty"`
	LastRetrievedBy   string    `json:"lastRetrievedBy,omitempty"`
	LastRetrievedAt   string    `json:"lastRetrievedAt,omitempty"`
}

// Step is one retrieval or return instruction.
type Step struct {
	Step        int    `json:"step"`
	Action      string `json:"action"`
	ItemID      string `json:"itemId"`
	ItemName    string `json:"itemName,omitempty"`
	ContainerID string `json:"containerId,omitempty"`
}

// Placement is an optimizer assignment.
type Placement struct {
	ItemID      string   `json:"itemId"`
	ContainerID string   `json:"containerId"`
	Position    Position `json:"position"`
}

// Rearrangement is one relocation the optimizer performed.
type Rearrangement struct {
	Step          int      `json:"step"`
	Action        string   `json:"action"`
	ItemID        string   `json:"itemId"`
	FromContainer string   `json:"fromContainer"`
	FromPosition  Position `json:"fromPosition"`
	ToContainer   string   `json:"toContainer"`
	ToPosition    Position `json:"toPosition"`
	Reason        string   `json:"reason,omitempty"`
}

// Failure names an item the optimizer could not place.
type Failure struct {
	ItemID string `json:"itemId"`
	Error  string `json:"error"`
}

// WasteItem is an identified waste record.
type WasteItem struct {
	ItemID      string    `json:"itemId"`
	Name        string    `json:"name"`
	Reason      string    `json:"reason"`
	ContainerID string    `json:"containerId,omitempty"`
	Position    *Position `json:"position,omitempty"`
}

// ItemChange reports one item affected by a simulation.
type ItemChange struct {
	ItemID        string `json:"itemId"`
	Name          string `json:"name"`
	Date          string `json:"date"`
	RemainingUses *int   `json:"remainingUses,omitempty"`
}

// LogEntry is one activity log record.
type LogEntry struct {
	ID         string           `json:"id"`
	Timestamp  time.Time        `json:"timestamp"`
	UserID     string           `json:"userId,omitempty"`
	ActionType string           `json:"actionType"`
	ItemID     string           `json:"itemId,omitempty"`
	Details    activity.Details `json:"details"`
}

//
// Requests and responses, one pair per RPC.
//

type AddCargoRequest struct {
	Item   Item   `json:"item"`
	UserID string `json:"userId,omitempty"`
}

type AddCargoResponse struct {
	Success bool   `json:"success"`
	ItemID  string `json:"itemId"`
}

type AddContainerRequest struct {
	Container Container `json:"container"`
}

type AddContainerResponse struct {
	Success     bool   `json:"success"`
	ContainerID string `json:"containerId"`
}

type ListContainersRequest struct{}

type ListContainersResponse struct {
	Containers []Container `json:"containers"`
}

type ImportRequest struct {
	Containers []Container `json:"containers"`
	Items      []Item      `json:"items"`
	UserID     string      `json:"userId,omitempty"`
}

type ImportError struct {
	Record string `json:"record"`
	Error  string `json:"error"`
}

type ImportResponse struct {
	Success            bool          `json:"success"`
	ContainersImported int           `json:"containersImported"`
	ItemsImported      int           `json:"itemsImported"`
	Errors             []ImportError `json:"errors,omitempty"`
}

// SearchRequest looks an item up by ItemID, or by ItemName when ItemID is empty.
type SearchRequest struct {
	ItemID   string `json:"itemId,omitempty"`
	ItemName string `json:"itemName,omitempty"`
	UserID   string `json:"userId,omitempty"`
}

type SearchResponse struct {
	Success        bool   `json:"success"`
	Found          bool   `json:"found"`
	Item           *Item  `json:"item,omitempty"`
	Zone           string `json:"zone,omitempty"`
	RetrievalSteps []Step `json:"retrievalSteps"`
}

type PlaceRequest struct {
	ItemID      string   `json:"itemId"`
	UserID      string   `json:"userId,omitempty"`
	Timestamp   string   `json:"timestamp,omitempty"`
	ContainerID string   `json:"containerId"`
	Position    Position `json:"position"`
}

type PlaceResponse struct {
	Success bool `json:"success"`
}

type RetrieveRequest struct {
	ItemID    string `json:"itemId"`
	UserID    string `json:"userId,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

type RetrieveResponse struct {
	Success bool `json:"success"`
}

type PlacementRequest struct {
	Items      []Item      `json:"items"`
	Containers []Container `json:"containers"`
	UserID     string      `json:"userId,omitempty"`
	Timestamp  string      `json:"timestamp,omitempty"`
}

type PlacementResponse struct {
	Success        bool            `json:"success"`
	Placements     []Placement     `json:"placements"`
	Rearrangements []Rearrangement `json:"rearrangements"`
	Failures       []Failure       `json:"failures,omitempty"`
}

type IdentifyWasteRequest struct{}

type IdentifyWasteResponse struct {
	Success    bool        `json:"success"`
	WasteItems []WasteItem `json:"wasteItems"`
}

type ReturnPlanRequest struct {
	UndockingContainerID string  `json:"undockingContainerId,omitempty"`
	UndockingDate        string  `json:"undockingDate,omitempty"`
	MaxWeight            float64 `json:"maxWeight"`
	MaxVolume            float64 `json:"maxVolume,omitempty"`
	UserID               string  `json:"userId,omitempty"`
}

type ReturnItem struct {
	ItemID string `json:"itemId"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type ReturnManifest struct {
	UndockingContainerID string       `json:"undockingContainerId,omitempty"`
	UndockingDate        string       `json:"undockingDate"`
	ReturnItems          []ReturnItem `json:"returnItems"`
	TotalVolume          float64      `json:"totalVolume"`
	TotalWeight          float64      `json:"totalWeight"`
}

type ReturnPlanResponse struct {
	Success        bool           `json:"success"`
	ReturnPlan     []Step         `json:"returnPlan"`
	RetrievalSteps []Step         `json:"retrievalSteps"`
	ReturnManifest ReturnManifest `json:"returnManifest"`
}

type CompleteUndockingRequest struct {
	UndockingContainerID string `json:"undockingContainerId"`
	UserID               string `json:"userId,omitempty"`
	Timestamp            string `json:"timestamp,omitempty"`
}

type CompleteUndockingResponse struct {
	Success      bool `json:"success"`
	ItemsRemoved int  `json:"itemsRemoved"`
}

// UsageDay lists items used on a 1-based day of the batch; day 0 means every day.
type UsageDay struct {
	Day     int      `json:"day"`
	ItemIDs []string `json:"itemIds"`
}

type SimulateDayRequest struct {
	NumOfDays           int        `json:"numOfDays"`
	ItemsToBeUsedPerDay []UsageDay `json:"itemsToBeUsedPerDay,omitempty"`
	UserID              string     `json:"userId,omitempty"`
}

type SimulateChanges struct {
	ItemsUsed          []ItemChange `json:"itemsUsed"`
	ItemsExpired       []ItemChange `json:"itemsExpired"`
	ItemsDepletedToday []ItemChange `json:"itemsDepletedToday"`
}

type SimulateDayResponse struct {
	Success bool            `json:"success"`
	NewDate string          `json:"newDate"`
	Changes SimulateChanges `json:"changes"`
}

type UseItemRequest struct {
	ItemID     string `json:"itemId"`
	UsageCount int    `json:"usageCount"`
	UserID     string `json:"userId,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
}

type UseItemResponse struct {
	Success       bool `json:"success"`
	RemainingUses int  `json:"remainingUses"`
	BecameWaste   bool `json:"becameWaste"`
}

type LogsRequest struct {
	StartDate  string `json:"startDate,omitempty"`
	EndDate    string `json:"endDate,omitempty"`
	ItemID     string `json:"itemId,omitempty"`
	UserID     string `json:"userId,omitempty"`
	ActionType string `json:"actionType,omitempty"`
}

type LogsResponse struct {
	Logs []LogEntry `json:"logs"`
}

type ArrangementRequest struct{}

type ArrangementRow struct {
	ItemID      string   `json:"itemId"`
	Name        string   `json:"name"`
	ContainerID string   `json:"containerId"`
	Zone        string   `json:"zone"`
	Position    Position `json:"position"`
}

type ArrangementResponse struct {
	Rows []ArrangementRow `json:"rows"`
}

type SummaryRequest struct{}

type Counts struct {
	Items      int `json:"items"`
	Placed     int `json:"placed"`
	Waste      int `json:"waste"`
	Containers int `json:"containers"`
}

type Utilization struct {
	ContainerID string  `json:"containerId"`
	Zone        string  `json:"zone"`
	ItemCount   int     `json:"itemCount"`
	UsedVolume  float64 `json:"usedVolume"`
	TotalVolume float64 `json:"totalVolume"`
	Ratio       float64 `json:"ratio"`
}

type SummaryResponse struct {
	Date           string         `json:"date"`
	MissionDay     int            `json:"missionDay"`
	Counts         Counts         `json:"counts"`
	NearExpiryDays int            `json:"nearExpiryDays"`
	NearExpiry     []Item         `json:"nearExpiry"`
	Utilization    []Utilization  `json:"utilization"`
	MostRetrieved  []Item         `json:"mostRetrieved"`
	ItemsByZone    map[string]int `json:"itemsByZone"`
}

//
// Mapping functions.
//

// ErrInvalidTimestamp wraps unparseable request timestamps.
var ErrInvalidTimestamp = fmt.Errorf("%w: invalid timestamp", model.ErrValidation)

// ParseTimestamp accepts RFC 3339 or a calendar date. An empty string yields
// the zero time, which the inventory replaces with mission now.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w %q", ErrInvalidTimestamp, s)
}

// FormatDate renders a mission date.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

func CoordinatesToWire(c model.Coordinates) Coordinates {
	return Coordinates{Width: c.Width, Depth: c.Depth, Height: c.Height}
}

func CoordinatesFromWire(c Coordinates) model.Coordinates {
	return model.Coordinates{Width: c.Width, Depth: c.Depth, Height: c.Height}
}

func PositionToWire(p model.Position) Position {
	return Position{StartCoordinates: CoordinatesToWire(p.Start), EndCoordinates: CoordinatesToWire(p.End)}
}

func PositionFromWire(p Position) model.Position {
	return model.Position{Start: CoordinatesFromWire(p.StartCoordinates), End: CoordinatesFromWire(p.EndCoordinates)}
}

func ContainerToWire(c model.Container) Container {
	return Container{
		ContainerID: c.ID,
		Zone:        string(c.Zone),
		Width:       c.Dimensions.Width,
		Depth:       c.Dimensions.Depth,
		Height:      c.Dimensions.Height,
	}
}

func ContainerFromWire(c Container) model.Container {
	return model.Container{
		ID:         strings.TrimSpace(c.ContainerID),
		Zone:       model.Zone(strings.TrimSpace(c.Zone)),
		Dimensions: model.Dimensions{Width: c.Width, Depth: c.Depth, Height: c.Height},
	}
}

// ItemFromWire converts the creation fields of an item. Lifecycle fields set by
// the engine are ignored.
func ItemFromWire(in Item) (*model.Item, error) {
	it := &model.Item{
		ID:            strings.TrimSpace(in.ItemID),
		Name:          in.Name,
		Dimensions:    model.Dimensions{Width: in.Width, Depth: in.Depth, Height: in.Height},
		Mass:          in.Mass,
		Priority:      in.Priority,
		PreferredZone: model.Zone(strings.TrimSpace(in.PreferredZone)),
	}
	if in.UsageLimit != nil {
		v := *in.UsageLimit
		it.UsageLimit = &v
	}
	if in.ExpiryDate != "" {
		exp, err := core.ParseDate(in.ExpiryDate)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", in.ItemID, err)
		}
		it.ExpiryDate = &exp
	}
	return it, nil
}

// ItemToWire renders a full item record.
func ItemToWire(it *model.Item) Item {
	if it == nil {
		return Item{}
	}
	out := Item{
		ItemID:            it.ID,
		Name:              it.Name,
		Width:             it.Dimensions.Width,
		Depth:             it.Dimensions.Depth,
		Height:            it.Dimensions.Height,
		Mass:              it.Mass,
		Priority:          it.Priority,
		PreferredZone:     string(it.PreferredZone),
		UsageLimit:        copyInt(it.UsageLimit),
		RemainingUses:     copyInt(it.RemainingUses),
		ContainerID:       it.ContainerID,
		IsWaste:           it.Waste,
		WasteReason:       it.WasteReason.String(),
		ReturnContainerID: it.ReturnContainerID,
		RetrievalCount:    it.RetrievalCount,
	}
	if it.ExpiryDate != nil {
		out.ExpiryDate = FormatDate(*it.ExpiryDate)
	}
	if it.Position != nil {
		p := PositionToWire(*it.Position)
		out.Position = &p
	}
	if it.LastRetrieved != nil {
		out.LastRetrievedBy = it.LastRetrieved.UserID
		out.LastRetrievedAt = it.LastRetrieved.Timestamp.UTC().Format(time.RFC3339)
	}
	return out
}

func ItemsToWire(items []*model.Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		out = append(out, ItemToWire(it))
	}
	return out
}

func StepsToWire(steps []model.Step) []Step {
	out := make([]Step, 0, len(steps))
	for _, st := range steps {
		out = append(out, Step{
			Step:        st.Number,
			Action:      st.Action.String(),
			ItemID:      st.ItemID,
			ItemName:    st.ItemName,
			ContainerID: st.ContainerID,
		})
	}
	return out
}

// StepsFromWire parses steps received by a client.
func StepsFromWire(steps []Step) ([]model.Step, error) {
	out := make([]model.Step, 0, len(steps))
	for _, st := range steps {
		var action model.StepAction
		if err := action.UnmarshalText([]byte(st.Action)); err != nil {
			return nil, err
		}
		out = append(out, model.Step{
			Number:      st.Step,
			Action:      action,
			ItemID:      st.ItemID,
			ItemName:    st.ItemName,
			ContainerID: st.ContainerID,
		})
	}
	return out, nil
}

func BatchToWire(res *core.BatchResult) *PlacementResponse {
	out := &PlacementResponse{
		Success:        true,
		Placements:     make([]Placement, 0, len(res.Placements)),
		Rearrangements: make([]Rearrangement, 0, len(res.Rearrangements)),
	}
	for _, p := range res.Placements {
		out.Placements = append(out.Placements, Placement{
			ItemID:      p.ItemID,
			ContainerID: p.ContainerID,
			Position:    PositionToWire(p.Position),
		})
	}
	for _, r := range res.Rearrangements {
		out.Rearrangements = append(out.Rearrangements, Rearrangement{
			Step:          r.Step,
			Action:        "move",
			ItemID:        r.ItemID,
			FromContainer: r.FromContainer,
			FromPosition:  PositionToWire(r.FromPosition),
			ToContainer:   r.ToContainer,
			ToPosition:    PositionToWire(r.ToPosition),
			Reason:        r.Reason,
		})
	}
	for _, f := range res.Failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		out.Failures = append(out.Failures, Failure{ItemID: f.ItemID, Error: msg})
	}
	return out
}

func WasteToWire(records []core.WasteRecord) []WasteItem {
	out := make([]WasteItem, 0, len(records))
	for _, rec := range records {
		w := WasteItem{
			ItemID:      rec.Item.ID,
			Name:        rec.Item.Name,
			Reason:      rec.Reason.String(),
			ContainerID: rec.Item.ContainerID,
		}
		if rec.Item.Position != nil {
			p := PositionToWire(*rec.Item.Position)
			w.Position = &p
		}
		out = append(out, w)
	}
	return out
}

func LogEntriesToWire(entries []activity.Entry) []LogEntry {
	out := make([]LogEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, LogEntry{
			ID:         e.ID,
			Timestamp:  e.Timestamp,
			UserID:     e.UserID,
			ActionType: string(e.Action),
			ItemID:     e.ItemID,
			Details:    e.Details,
		})
	}
	return out
}

// FilterFromWire parses a logs request into an activity filter. An end given
// as a bare date covers that whole day.
func FilterFromWire(req *LogsRequest) (activity.Filter, error) {
	var f activity.Filter
	if req == nil {
		return f, nil
	}
	var err error
	if f.Start, err = ParseTimestamp(req.StartDate); err != nil {
		return f, err
	}
	if f.End, err = ParseTimestamp(req.EndDate); err != nil {
		return f, err
	}
	if end := strings.TrimSpace(req.EndDate); end != "" && len(end) == len(DateLayout) {
		f.End = f.End.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start) {
		return f, fmt.Errorf("%w: endDate before startDate", model.ErrValidation)
	}
	f.ItemID = strings.TrimSpace(req.ItemID)
	f.UserID = strings.TrimSpace(req.UserID)
	if raw := strings.TrimSpace(req.ActionType); raw != "" {
		a, err := activity.ParseAction(raw)
		if err != nil {
			return f, err
		}
		f.Action = a
	}
	return f, nil
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
