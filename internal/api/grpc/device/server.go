package device

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/alarm-clock/internal/domain/clock"
)

// ErrUnknownDevice is returned by a Service for a device that never registered.
var ErrUnknownDevice = errors.New("unknown device")

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Configuration(ctx context.Context, deviceID string) (*clock.Configuration, error)
	Register(ctx context.Context, registration *clock.Registration) error
	Liveness(ctx context.Context, deviceID string) error
}

// Server implements DeviceServiceServer on top of a Service.
type Server struct {
	// service provides the business logic for device operations.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// GetConfiguration returns the configuration of the requesting device.
func (s *Server) GetConfiguration(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "device id is required")
	}

	configuration, err := s.service.Configuration(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err, "unable to load configuration")
	}

	return EncodeConfiguration(configuration), nil
}

// RegisterDevice records a device registration.
func (s *Server) RegisterDevice(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	registration, err := DecodeRegistration(req)
	if err != nil || registration.DeviceID == "" {
		return nil, status.Error(codes.InvalidArgument, "device id is required")
	}

	if err = s.service.Register(ctx, registration); err != nil {
		return nil, toStatus(err, "unable to register device")
	}

	return new(emptypb.Empty), nil
}

// SendLiveness records a liveness ping.
func (s *Server) SendLiveness(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "device id is required")
	}

	if err := s.service.Liveness(ctx, req.GetValue()); err != nil {
		return nil, toStatus(err, "unable to record liveness")
	}

	return new(emptypb.Empty), nil
}

// toStatus maps a service error to a gRPC status without leaking internals.
func toStatus(err error, message string) error {
	if errors.Is(err, ErrUnknownDevice) {
		return status.Error(codes.NotFound, ErrUnknownDevice.Error())
	}

	return status.Error(codes.Internal, message)
}
