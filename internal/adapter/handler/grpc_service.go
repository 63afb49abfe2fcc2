package handler

import (
	"context"

	"google.golang.org/grpc"

	"github.com/rl1809/minicart/internal/core/domain"
)

const cartServiceName = "minicart.v1.CartService"

type OpenSessionRequest struct{}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type ItemRequest struct {
	SessionID string `json:"session_id"`
	ProductID int64  `json:"product_id"`
}

type UpdateQuantityRequest struct {
	SessionID string `json:"session_id"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CartResponse struct {
	SessionID string          `json:"session_id"`
	Cart      domain.Snapshot `json:"cart"`
}

type CartServiceServer interface {
	OpenSession(ctx context.Context, req *OpenSessionRequest) (*CartResponse, error)
	GetCart(ctx context.Context, req *SessionRequest) (*CartResponse, error)
	AddItem(ctx context.Context, req *ItemRequest) (*CartResponse, error)
	RemoveItem(ctx context.Context, req *ItemRequest) (*CartResponse, error)
	UpdateQuantity(ctx context.Context, req *UpdateQuantityRequest) (*CartResponse, error)
	ClearCart(ctx context.Context, req *SessionRequest) (*CartResponse, error)
	// Watch sends the current cart, then every later snapshot.
	Watch(req *SessionRequest, stream grpc.ServerStream) error
}

var CartServiceDesc = grpc.ServiceDesc{
	ServiceName: cartServiceName,
	HandlerType: (*CartServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("OpenSession", CartServiceServer.OpenSession),
		unaryMethod("GetCart", CartServiceServer.GetCart),
		unaryMethod("AddItem", CartServiceServer.AddItem),
		unaryMethod("RemoveItem", CartServiceServer.RemoveItem),
		unaryMethod("UpdateQuantity", CartServiceServer.UpdateQuantity),
		unaryMethod("ClearCart", CartServiceServer.ClearCart),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "minicart/v1/cart",
}

func RegisterCartServiceServer(s grpc.ServiceRegistrar, srv CartServiceServer) {
	s.RegisterService(&CartServiceDesc, srv)
}

func unaryMethod[Req any](name string, call func(CartServiceServer, context.Context, *Req) (*CartResponse, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CartServiceServer), ctx, req)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(name),
			}
			return interceptor(ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(CartServiceServer), ctx, req.(*Req))
			})
		},
	}
}

func watchHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(SessionRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(CartServiceServer).Watch(req, stream)
}

func fullMethod(name string) string {
	return "/" + cartServiceName + "/" + name
}

// CartClient calls CartService over a JSON-coded gRPC connection.
type CartClient struct {
	cc grpc.ClientConnInterface
}

func NewCartClient(cc grpc.ClientConnInterface) *CartClient {
	return &CartClient{cc: cc}
}

func (c *CartClient) OpenSession(ctx context.Context) (*CartResponse, error) {
	return c.invoke(ctx, "OpenSession", &OpenSessionRequest{})
}

func (c *CartClient) GetCart(ctx context.Context, sessionID string) (*CartResponse, error) {
	return c.invoke(ctx, "GetCart", &SessionRequest{SessionID: sessionID})
}

func (c *CartClient) AddItem(ctx context.Context, sessionID string, productID int64) (*CartResponse, error) {
	return c.invoke(ctx, "AddItem", &ItemRequest{SessionID: sessionID, ProductID: productID})
}

func (c *CartClient) RemoveItem(ctx context.Context, sessionID string, productID int64) (*CartResponse, error) {
	return c.invoke(ctx, "RemoveItem", &ItemRequest{SessionID: sessionID, ProductID: productID})
}

func (c *CartClient) UpdateQuantity(ctx context.Context, sessionID string, productID int64, quantity int) (*CartResponse, error) {
	return c.invoke(ctx, "UpdateQuantity", &UpdateQuantityRequest{SessionID: sessionID, ProductID: productID, Quantity: quantity})
}

func (c *CartClient) ClearCart(ctx context.Context, sessionID string) (*CartResponse, error) {
	return c.invoke(ctx, "ClearCart", &SessionRequest{SessionID: sessionID})
}

// Watch streams snapshots of a session until ctx is cancelled. recv is
// called for every snapshot; a non-nil error from recv ends the watch.
func (c *CartClient) Watch(ctx context.Context, sessionID string, recv func(domain.Snapshot) error) error {
	stream, err := c.cc.NewStream(ctx, &CartServiceDesc.Streams[0], fullMethod("Watch"), grpc.CallContentSubtype(JSONCodecName))
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&SessionRequest{SessionID: sessionID}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}

	for {
		var resp CartResponse
		if err := stream.RecvMsg(&resp); err != nil {
			return err
		}
		if err := recv(resp.Cart); err != nil {
			return err
		}
	}
}

func (c *CartClient) invoke(ctx context.Context, method string, req interface{}) (*CartResponse, error) {
	resp := new(CartResponse)
	if err := c.cc.Invoke(ctx, fullMethod(method), req, resp, grpc.CallContentSubtype(JSONCodecName)); err != nil {
		return nil, err
	}
	return resp, nil
}
