package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"olivetrace/app"
	"olivetrace/pkg/httperror"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const DashboardServiceName = "olivetrace.v1.DashboardService"

// DashboardServer is the server API of olivetrace.v1.DashboardService. Both
// methods take and return google.protobuf.Struct messages whose fields
// mirror the HTTP API.
type DashboardServer interface {
	GetDashboard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetTransfers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func RegisterDashboardServer(s grpc.ServiceRegistrar, srv DashboardServer) {
	s.RegisterService(&dashboardServiceDesc, srv)
}

var dashboardServiceDesc = grpc.ServiceDesc{
	ServiceName: DashboardServiceName,
	HandlerType: (*DashboardServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetDashboard", Handler: unaryHandler(DashboardServer.GetDashboard, "GetDashboard")},
		{MethodName: "GetTransfers", Handler: unaryHandler(DashboardServer.GetTransfers, "GetTransfers")},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "olivetrace/v1/dashboard.proto",
}

func unaryHandler(
	method func(DashboardServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
	name string,
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return method(srv.(DashboardServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + DashboardServiceName + "/" + name,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return method(srv.(DashboardServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// DashboardService serves dashboards to internal callers through the same
// handlers as the HTTP API.
type DashboardService struct {
	dashboards *app.GetDashboardHandler
	transfers  *app.GetTransfersHandler
}

func NewDashboardService(dashboards *app.GetDashboardHandler, transfers *app.GetTransfersHandler) *DashboardService {
	return &DashboardService{
		dashboards: dashboards,
		transfers:  transfers,
	}
}

func (s *DashboardService) GetDashboard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := decodeStruct(req)
	if err != nil {
		return nil, err
	}

	res, err := s.dashboards.Handle(ctx, &app.GetDashboardRequest{
		Address:      in.Address,
		Role:         in.Role,
		IncludeEmpty: in.IncludeEmpty,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeStruct(res)
}

func (s *DashboardService) GetTransfers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := decodeStruct(req)
	if err != nil {
		return nil, err
	}

	res, err := s.transfers.Handle(ctx, &app.GetTransfersRequest{
		Address: in.Address,
		Role:    in.Role,
		Status:  in.Status,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeStruct(res)
}

// dashboardQuery holds the request fields, named as in the HTTP API.
type dashboardQuery struct {
	Address      string `json:"address"`
	Role         string `json:"role"`
	IncludeEmpty *bool  `json:"includeEmpty"`
	Status       string `json:"status"`
}

func decodeStruct(req *structpb.Struct) (dashboardQuery, error) {
	var in dashboardQuery
	data, err := protojson.Marshal(req)
	if err != nil {
		return in, status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return in, status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return in, nil
}

func encodeStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return out, nil
}

func toStatus(err error) error {
	var httpErr *httperror.Error
	if !errors.As(err, &httpErr) {
		return status.Error(codes.Internal, "internal error")
	}

	code := codes.Internal
	switch httpErr.Status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		code = codes.InvalidArgument
	case http.StatusUnauthorized:
		code = codes.Unauthenticated
	case http.StatusForbidden:
		code = codes.PermissionDenied
	case http.StatusNotFound:
		code = codes.NotFound
	case http.StatusServiceUnavailable:
		code = codes.Unavailable
	case http.StatusBadGateway:
		code = codes.Aborted
	}
	return status.Error(code, httpErr.Code+": "+httpErr.Message)
}
