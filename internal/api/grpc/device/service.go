package device

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "alarmclock.v1.DeviceService"

	// GetConfigurationMethod returns the configuration of a device.
	GetConfigurationMethod = "/" + ServiceName + "/GetConfiguration"
	// RegisterDeviceMethod announces a device.
	RegisterDeviceMethod = "/" + ServiceName + "/RegisterDevice"
	// SendLivenessMethod records a liveness ping.
	SendLivenessMethod = "/" + ServiceName + "/SendLiveness"
)

// DeviceServiceServer is the server side of the device service.
type DeviceServiceServer interface {
	GetConfiguration(ctx context.Context, deviceID *wrapperspb.StringValue) (*structpb.Struct, error)
	RegisterDevice(ctx context.Context, registration *structpb.Struct) (*emptypb.Empty, error)
	SendLiveness(ctx context.Context, deviceID *wrapperspb.StringValue) (*emptypb.Empty, error)
}

// RegisterDeviceServiceServer registers srv on s.
func RegisterDeviceServiceServer(s grpc.ServiceRegistrar, srv DeviceServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

//nolint:gochecknoglobals // grpc keeps a pointer to the descriptor.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DeviceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetConfiguration",
			Handler:    getConfigurationHandler,
		},
		{
			MethodName: "RegisterDevice",
			Handler:    registerDeviceHandler,
		},
		{
			MethodName: "SendLiveness",
			Handler:    sendLivenessHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "alarmclock/v1/device.proto",
}

func getConfigurationHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature is dictated by grpc.MethodDesc.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	server, _ := srv.(DeviceServiceServer)
	if interceptor == nil {
		return server.GetConfiguration(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetConfigurationMethod,
	}

	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		request, _ := req.(*wrapperspb.StringValue)

		return server.GetConfiguration(ctx, request)
	})
}

func registerDeviceHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature is dictated by grpc.MethodDesc.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	server, _ := srv.(DeviceServiceServer)
	if interceptor == nil {
		return server.RegisterDevice(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: RegisterDeviceMethod,
	}

	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		request, _ := req.(*structpb.Struct)

		return server.RegisterDevice(ctx, request)
	})
}

func sendLivenessHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature is dictated by grpc.MethodDesc.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	server, _ := srv.(DeviceServiceServer)
	if interceptor == nil {
		return server.SendLiveness(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: SendLivenessMethod,
	}

	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		request, _ := req.(*wrapperspb.StringValue)

		return server.SendLiveness(ctx, request)
	})
}

// DeviceServiceClient is the client side of the device service.
type DeviceServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewDeviceServiceClient creates a client over cc.
func NewDeviceServiceClient(cc grpc.ClientConnInterface) *DeviceServiceClient {
	return &DeviceServiceClient{cc: cc}
}

// GetConfiguration fetches the configuration of a device.
func (c *DeviceServiceClient) GetConfiguration(
	ctx context.Context,
	in *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetConfigurationMethod, in, out, opts...); err != nil {
		return nil, fmt.Errorf("invoke GetConfiguration: %w", err)
	}

	return out, nil
}

// RegisterDevice announces a device.
func (c *DeviceServiceClient) RegisterDevice(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, RegisterDeviceMethod, in, out, opts...); err != nil {
		return nil, fmt.Errorf("invoke RegisterDevice: %w", err)
	}

	return out, nil
}

// SendLiveness records a liveness ping.
func (c *DeviceServiceClient) SendLiveness(
	ctx context.Context,
	in *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, SendLivenessMethod, in, out, opts...); err != nil {
		return nil, fmt.Errorf("invoke SendLiveness: %w", err)
	}

	return out, nil
}
