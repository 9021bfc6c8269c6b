// Package devices persists the device registry of the configuration server.
//
// The FileRepository keeps every known device in one JSON document on disk.
// The document is a protobuf Struct written with protojson, the same
// encoding the device API uses on the wire.
package devices
