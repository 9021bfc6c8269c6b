// Package device implements the gRPC contract between the alarm clock and
// its configuration server.
//
// The service is described by hand with grpc.ServiceDesc and uses protobuf
// well-known types only: a device identifier travels as a StringValue and
// records travel as Struct, a self-describing message with named fields.
// EncodeConfiguration and DecodeConfiguration map the domain configuration
// to and from that shape.
package device
