package api

import (
	"context"

	"github.com/signalsfoundry/stowage/internal/api/types"
	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "stowage.v1.CargoService"

// Full method names, as seen by interceptors.
const (
	MethodAddCargo          = "/" + ServiceName + "/AddCargo"
	MethodAddContainer      = "/" + ServiceName + "/AddContainer"
	MethodListContainers    = "/" + ServiceName + "/ListContainers"
	MethodImport            = "/" + ServiceName + "/Import"
	MethodSearch            = "/" + ServiceName + "/Search"
	MethodPlace             = "/" + ServiceName + "/Place"
	MethodRetrieve          = "/" + ServiceName + "/Retrieve"
	MethodPlacement         = "/" + ServiceName + "/Placement"
	MethodIdentifyWaste     = "/" + ServiceName + "/IdentifyWaste"
	MethodReturnPlan        = "/" + ServiceName + "/ReturnPlan"
	MethodCompleteUndocking = "/" + ServiceName + "/CompleteUndocking"
	MethodSimulateDay       = "/" + ServiceName + "/SimulateDay"
	MethodUseItem           = "/" + ServiceName + "/UseItem"
	MethodLogs              = "/" + ServiceName + "/Logs"
	MethodArrangement       = "/" + ServiceName + "/Arrangement"
	MethodSummary           = "/" + ServiceName + "/Summary"
)

// CargoServiceServer is the server API of the cargo service.
type CargoServiceServer interface {
	AddCargo(context.Context, *types.AddCargoRequest) (*types.AddCargoResponse, error)
	AddContainer(context.Context, *types.AddContainerRequest) (*types.AddContainerResponse, error)
	ListContainers(context.Context, *types.ListContainersRequest) (*types.ListContainersResponse, error)
	Import(context.Context, *types.ImportRequest) (*types.ImportResponse, error)
	Search(context.Context, *types.SearchRequest) (*types.SearchResponse, error)
	Place(context.Context, *types.PlaceRequest) (*types.PlaceResponse, error)
	Retrieve(context.Context, *types.RetrieveRequest) (*types.RetrieveResponse, error)
	Placement(context.Context, *types.PlacementRequest) (*types.PlacementResponse, error)
	IdentifyWaste(context.Context, *types.IdentifyWasteRequest) (*types.IdentifyWasteResponse, error)
	ReturnPlan(context.Context, *types.ReturnPlanRequest) (*types.ReturnPlanResponse, error)
	CompleteUndocking(context.Context, *types.CompleteUndockingRequest) (*types.CompleteUndockingResponse, error)
	SimulateDay(context.Context, *types.SimulateDayRequest) (*types.SimulateDayResponse, error)
	UseItem(context.Context, *types.UseItemRequest) (*types.UseItemResponse, error)
	Logs(context.Context, *types.LogsRequest) (*types.LogsResponse, error)
	Arrangement(context.Context, *types.ArrangementRequest) (*types.ArrangementResponse, error)
	Summary(context.Context, *types.SummaryRequest) (*types.SummaryResponse, error)
}

// RegisterCargoServiceServer registers srv on s.
func RegisterCargoServiceServer(s grpc.ServiceRegistrar, srv CargoServiceServer) {
	s.RegisterService(&CargoServiceDesc, srv)
}

// unary adapts a typed server method to a grpc.MethodHandler.
func unary[Req, Resp any](fullMethod string, call func(CargoServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CargoServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CargoServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// CargoServiceDesc describes the cargo service for grpc.Server registration.
var CargoServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CargoServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddCargo", Handler: unary(MethodAddCargo, CargoServiceServer.AddCargo)},
		{MethodName: "AddContainer", Handler: unary(MethodAddContainer, CargoServiceServer.AddContainer)},
		{MethodName: "ListContainers", Handler: unary(MethodListContainers, CargoServiceServer.ListContainers)},
		{MethodName: "Import", Handler: unary(MethodImport, CargoServiceServer.Import)},
		{MethodName: "Search", Handler: unary(MethodSearch, CargoServiceServer.Search)},
		{MethodName: "Place", Handler: unary(MethodPlace, CargoServiceServer.Place)},
		{MethodName: "Retrieve", Handler: unary(MethodRetrieve, CargoServiceServer.Retrieve)},
		{MethodName: "Placement", Handler: unary(MethodPlacement, CargoServiceServer.Placement)},
		{MethodName: "IdentifyWaste", Handler: unary(MethodIdentifyWaste, CargoServiceServer.IdentifyWaste)},
		{MethodName: "ReturnPlan", Handler: unary(MethodReturnPlan, CargoServiceServer.ReturnPlan)},
		{MethodName: "CompleteUndocking", Handler: unary(MethodCompleteUndocking, CargoServiceServer.CompleteUndocking)},
		{MethodName: "SimulateDay", Handler: unary(MethodSimulateDay, CargoServiceServer.SimulateDay)},
		{MethodName: "UseItem", Handler: unary(MethodUseItem, CargoServiceServer.UseItem)},
		{MethodName: "Logs", Handler: unary(MethodLogs, CargoServiceServer.Logs)},
		{MethodName: "Arrangement", Handler: unary(MethodArrangement, CargoServiceServer.Arrangement)},
		{MethodName: "Summary", Handler: unary(MethodSummary, CargoServiceServer.Summary)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stowage/v1/cargo.proto",
}
