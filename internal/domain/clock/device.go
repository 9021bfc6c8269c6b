package clock

import "time"

// Registration describes a device announcing itself to the server.
type Registration struct {
	// DeviceID is the stable hardware address of the device.
	DeviceID string
	// Type is the kind of device.
	Type string
	// Name is a human-readable device name.
	Name string
	// Description is free-form text.
	Description string
}

// DeviceRecord is what the server knows about a device.
type DeviceRecord struct {
	Registration

	// RegisteredAt is when the device last registered.
	RegisteredAt time.Time
	// LastSeen is when the last liveness ping arrived.
	LastSeen time.Time
}

// Clone returns a copy of the record.
func (r *DeviceRecord) Clone() *DeviceRecord {
	if r == nil {
		return nil
	}

	cloned := *r

	return &cloned
}
