package api

import (
	"context"

	"github.com/signalsfoundry/stowage/internal/api/types"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is a typed cargo API client over a gRPC connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an existing connection. Calls are sent with the JSON codec.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// DialOptions returns the options a cargo API connection needs: plaintext
// transport, the JSON content-subtype and client-side trace propagation.
func DialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
}

// Dial opens a connection to addr with DialOptions plus extra.
func Dial(addr string, extra ...grpc.DialOption) (*Client, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, append(DialOptions(), extra...)...)
	if err != nil {
		return nil, nil, err
	}
	return NewClient(conn), conn, nil
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddCargo(ctx context.Context, req *types.AddCargoRequest, opts ...grpc.CallOption) (*types.AddCargoResponse, error) {
	return invoke[types.AddCargoResponse](ctx, c, MethodAddCargo, req, opts...)
}

func (c *Client) AddContainer(ctx context.Context, req *types.AddContainerRequest, opts ...grpc.CallOption) (*types.AddContainerResponse, error) {
	return invoke[types.AddContainerResponse](ctx, c, MethodAddContainer, req, opts...)
}

func (c *Client) ListContainers(ctx context.Context, req *types.ListContainersRequest, opts ...grpc.CallOption) (*types.ListContainersResponse, error) {
	return invoke[types.ListContainersResponse](ctx, c, MethodListContainers, req, opts...)
}

func (c *Client) Import(ctx context.Context, req *types.ImportRequest, opts ...grpc.CallOption) (*types.ImportResponse, error) {
	return invoke[types.ImportResponse](ctx, c, MethodImport, req, opts...)
}

func (c *Client) Search(ctx context.Context, req *types.SearchRequest, opts ...grpc.CallOption) (*types.SearchResponse, error) {
	return invoke[types.SearchResponse](ctx, c, MethodSearch, req, opts...)
}

func (c *Client) Place(ctx context.Context, req *types.PlaceRequest, opts ...grpc.CallOption) (*types.PlaceResponse, error) {
	return invoke[types.PlaceResponse](ctx, c, MethodPlace, req, opts...)
}

func (c *Client) Retrieve(ctx context.Context, req *types.RetrieveRequest, opts ...grpc.CallOption) (*types.RetrieveResponse, error) {
	return invoke[types.RetrieveResponse](ctx, c, MethodRetrieve, req, opts...)
}

func (c *Client) Placement(ctx context.Context, req *types.PlacementRequest, opts ...grpc.CallOption) (*types.PlacementResponse, error) {
	return invoke[types.PlacementResponse](ctx, c, MethodPlacement, req, opts...)
}

func (c *Client) IdentifyWaste(ctx context.Context, req *types.IdentifyWasteRequest, opts ...grpc.CallOption) (*types.IdentifyWasteResponse, error) {
	return invoke[types.IdentifyWasteResponse](ctx, c, MethodIdentifyWaste, req, opts...)
}

func (c *Client) ReturnPlan(ctx context.Context, req *types.ReturnPlanRequest, opts ...grpc.CallOption) (*types.ReturnPlanResponse, error) {
	return invoke[types.ReturnPlanResponse](ctx, c, MethodReturnPlan, req, opts...)
}

func (c *Client) CompleteUndocking(ctx context.Context, req *types.CompleteUndockingRequest, opts ...grpc.CallOption) (*types.CompleteUndockingResponse, error) {
	return invoke[types.CompleteUndockingResponse](ctx, c, MethodCompleteUndocking, req, opts...)
}

func (c *Client) SimulateDay(ctx context.Context, req *types.SimulateDayRequest, opts ...grpc.CallOption) (*types.SimulateDayResponse, error) {
	return invoke[types.SimulateDayResponse](ctx, c, MethodSimulateDay, req, opts...)
}

func (c *Client) UseItem(ctx context.Context, req *types.UseItemRequest, opts ...grpc.CallOption) (*types.UseItemResponse, error) {
	return invoke[types.UseItemResponse](ctx, c, MethodUseItem, req, opts...)
}

func (c *Client) Logs(ctx context.Context, req *types.LogsRequest, opts ...grpc.CallOption) (*types.LogsResponse, error) {
	return invoke[types.LogsResponse](ctx, c, MethodLogs, req, opts...)
}

func (c *Client) Arrangement(ctx context.Context, req *types.ArrangementRequest, opts ...grpc.CallOption) (*types.ArrangementResponse, error) {
	return invoke[types.ArrangementResponse](ctx, c, MethodArrangement, req, opts...)
}

func (c *Client) Summary(ctx context.Context, req *types.SummaryRequest, opts ...grpc.CallOption) (*types.SummaryResponse, error) {
	return invoke[types.SummaryResponse](ctx, c, MethodSummary, req, opts...)
}
