package handler

import (
	"context"
	"math"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rl1809/sales-inventory/internal/core/domain"
	"github.com/rl1809/sales-inventory/internal/core/service"
)

const SaleServiceName = "sales.v1.SaleService"

// largest integer a protobuf number value holds exactly
const maxExactInt = 1 << 53

// SaleServiceServer is the server API of sales.v1.SaleService. Requests and
// responses travel as google.protobuf.Struct.
type SaleServiceServer interface {
	CreateSale(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSale(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSales(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteSale(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var SaleServiceDesc = grpc.ServiceDesc{
	ServiceName: SaleServiceName,
	HandlerType: (*SaleServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateSale", Handler: unaryHandler("CreateSale", SaleServiceServer.CreateSale)},
		{MethodName: "GetSale", Handler: unaryHandler("GetSale", SaleServiceServer.GetSale)},
		{MethodName: "ListSales", Handler: unaryHandler("ListSales", SaleServiceServer.ListSales)},
		{MethodName: "DeleteSale", Handler: unaryHandler("DeleteSale", SaleServiceServer.DeleteSale)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sales/v1/sale.proto",
}

func RegisterSaleServiceServer(s grpc.ServiceRegistrar, srv SaleServiceServer) {
	s.RegisterService(&SaleServiceDesc, srv)
}

func unaryHandler(method string, call func(SaleServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + SaleServiceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SaleServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(SaleServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// SaleServiceClient calls sales.v1.SaleService over a client connection.
type SaleServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSaleServiceClient(cc grpc.ClientConnInterface) *SaleServiceClient {
	return &SaleServiceClient{cc: cc}
}

func (c *SaleServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+SaleServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SaleServiceClient) CreateSale(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CreateSale", in, opts...)
}

func (c *SaleServiceClient) GetSale(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetSale", in, opts...)
}

func (c *SaleServiceClient) ListSales(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListSales", in, opts...)
}

func (c *SaleServiceClient) DeleteSale(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "DeleteSale", in, opts...)
}

// GRPCHandler implements SaleServiceServer on top of the sale service.
type GRPCHandler struct {
	saleService *service.SaleService
}

func NewGRPCHandler(saleService *service.SaleService) *GRPCHandler {
	return &GRPCHandler{saleService: saleService}
}

var _ SaleServiceServer = (*GRPCHandler)(nil)

func (h *GRPCHandler) CreateSale(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sellerID, err := requiredID(req, "seller_id")
	if err != nil {
		return nil, err
	}
	productID, err := requiredID(req, "product_id")
	if err != nil {
		return nil, err
	}
	quantity, _, err := intField(req, "quantity")
	if err != nil {
		return nil, err
	}

	sale, err := h.saleService.CreateSale(ctx, domain.CreateSaleRequest{
		RequestID: req.GetFields()["request_id"].GetStringValue(),
		SellerID:  sellerID,
		ProductID: productID,
		Quantity:  int(quantity),
	})
	if err != nil {
		return nil, mapDomainErrorToGRPC(err)
	}
	return saleToStruct(sale)
}

func (h *GRPCHandler) GetSale(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredID(req, "id")
	if err != nil {
		return nil, err
	}

	sale, err := h.saleService.GetSale(ctx, id)
	if err != nil {
		return nil, mapDomainErrorToGRPC(err)
	}
	return saleToStruct(sale)
}

func (h *GRPCHandler) ListSales(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sellerID, _, err := intField(req, "seller_id")
	if err != nil {
		return nil, err
	}
	productID, _, err := intField(req, "product_id")
	if err != nil {
		return nil, err
	}

	sales, err := h.saleService.ListSales(ctx, domain.SaleFilter{SellerID: sellerID, ProductID: productID})
	if err != nil {
		return nil, mapDomainErrorToGRPC(err)
	}

	items := make([]interface{}, 0, len(sales))
	for i := range sales {
		items = append(items, saleToMap(&sales[i]))
	}
	resp, err := structpb.NewStruct(map[string]interface{}{
		"sales": items,
		"count": len(sales),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return resp, nil
}

func (h *GRPCHandler) DeleteSale(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredID(req, "id")
	if err != nil {
		return nil, err
	}

	sale, err := h.saleService.DeleteSale(ctx, id)
	if err != nil {
		return nil, mapDomainErrorToGRPC(err)
	}
	return saleToStruct(sale)
}

// intField reads an integral number field. Absent or null fields report
// ok=false with no error.
func intField(req *structpb.Struct, name string) (v int64, ok bool, err error) {
	field, present := req.GetFields()[name]
	if !present {
		return 0, false, nil
	}
	switch kind := field.GetKind().(type) {
	case *structpb.Value_NullValue:
		return 0, false, nil
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != math.Trunc(n) || math.Abs(n) > maxExactInt {
			return 0, false, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
		}
		return int64(n), true, nil
	default:
		return 0, false, status.Errorf(codes.InvalidArgument, "%s must be a number", name)
	}
}

func requiredID(req *structpb.Struct, name string) (int64, error) {
	id, ok, err := intField(req, name)
	if err != nil {
		return 0, err
	}
	if !ok || id <= 0 {
		return 0, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	return id, nil
}

func saleToStruct(sale *domain.Sale) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(saleToMap(sale))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode sale: %v", err)
	}
	return s, nil
}

func saleToMap(sale *domain.Sale) map[string]interface{} {
	m := map[string]interface{}{
		"id":          sale.ID,
		"seller_id":   sale.SellerID,
		"product_id":  sale.ProductID,
		"quantity":    sale.Quantity,
		"total_price": sale.TotalPrice.StringFixed(2),
		"sale_date":   sale.SaleDate.UTC().Format(time.RFC3339),
	}
	if sale.SellerName != "" {
		m["seller_name"] = sale.SellerName
	}
	if sale.ProductName != "" {
		m["product_name"] = sale.ProductName
	}
	if sale.ProductPrice != nil {
		m["product_price"] = sale.ProductPrice.StringFixed(2)
	}
	return m
}
