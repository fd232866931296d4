package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"sunolegal/internal/domain"
	"sunolegal/internal/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const catalogServiceName = "sunolegal.catalog.v1.CatalogService"

// CatalogServer is the gRPC surface of the catalog. Messages are google.protobuf.Struct.
type CatalogServer interface {
	ListLawSchemes(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetLawScheme(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListLawyers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetLawyer(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type catalogMethod func(CatalogServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func catalogHandler(name string, call catalogMethod) grpc.MethodDesc {
	fullMethod := "/" + catalogServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CatalogServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CatalogServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var catalogServiceDesc = grpc.ServiceDesc{
	ServiceName: catalogServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		catalogHandler("ListLawSchemes", CatalogServer.ListLawSchemes),
		catalogHandler("GetLawScheme", CatalogServer.GetLawScheme),
		catalogHandler("ListLawyers", CatalogServer.ListLawyers),
		catalogHandler("GetLawyer", CatalogServer.GetLawyer),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sunolegal/catalog/v1/catalog.proto",
}

func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&catalogServiceDesc, srv)
}

// CatalogService serves the read-only catalog over gRPC.
type CatalogService struct {
	catalog domain.CatalogService
}

func NewCatalogService(catalog domain.CatalogService) *CatalogService {
	return &CatalogService{catalog: catalog}
}

func (s *CatalogService) ListLawSchemes(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	items := s.catalog.ListLawSchemes(stringField(req, "category"), stringField(req, "q"))
	return toStruct(map[string]any{"items": items})
}

func (s *CatalogService) GetLawScheme(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	item, ok := s.catalog.GetLawSchemeByID(id)
	if !ok {
		return nil, status.Error(codes.NotFound, "law not found")
	}
	return toStruct(item)
}

func (s *CatalogService) ListLawyers(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	opts := make(map[string]string)
	for key, v := range req.GetFields() {
		opts[key] = scalarString(v)
	}
	lawyers := s.catalog.ListLawyers(models.ParseLawyerFilter(opts))
	return toStruct(map[string]any{"lawyers": lawyers})
}

func (s *CatalogService) GetLawyer(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	lawyer, ok := s.catalog.GetLawyerByID(id)
	if !ok {
		return nil, status.Error(codes.NotFound, "lawyer not found")
	}
	return toStruct(lawyer)
}

// toStruct converts v through its JSON form so field names match the HTTP API.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func stringField(req *structpb.Struct, key string) string {
	v, ok := req.GetFields()[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(scalarString(v))
}

// scalarString renders a scalar value the way it would appear in a query string.
func scalarString(v *structpb.Value) string {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(k.BoolValue)
	case *structpb.Value_NullValue, nil:
		return ""
	default:
		return fmt.Sprint(v.AsInterface())
	}
}
