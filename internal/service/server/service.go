package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/alarm-clock/internal/domain/clock"
	"github.com/oshokin/alarm-clock/internal/logger"
	repo "github.com/oshokin/alarm-clock/internal/repository/devices"
)

// service hands out the configuration and keeps the device registry.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	// repo handles persistent storage of the registry.
	repo repo.Repository
	// configuration is served to every device.
	configuration *clock.Configuration
	// devices is the in-memory registry keyed by device id.
	devices map[string]*clock.DeviceRecord
	// now reads the wall clock.
	now func() time.Time
	// mu protects concurrent access to the registry.
	mu sync.RWMutex
}

// newService creates a service serving configuration, backed by the provided repository.
func newService(ctx context.Context, repository repo.Repository, configuration *clock.Configuration) (*service, error) {
	s := &service{
		repo:          repository,
		configuration: configuration.Clone(),
		devices:       make(map[string]*clock.DeviceRecord),
		now:           time.Now,
	}

	if repository == nil {
		return s, nil
	}

	records, err := repository.Load(ctx)
	switch {
	case err == nil:
		for _, record := range records {
			s.devices[record.DeviceID] = record
		}
	case errors.Is(err, repo.ErrNotFound):
		// Start with an empty registry.
	default:
		return nil, fmt.Errorf("load registry: %w", err)
	}

	logger.InfoKV(ctx, "Device registry loaded", "devices", len(s.devices))

	return s, nil
}

// Configuration returns the configuration served to deviceID.
func (s *service) Configuration(ctx context.Context, deviceID string) (*clock.Configuration, error) {
	logger.DebugKV(ctx, "Configuration requested", "device_id", deviceID)

	return s.configuration.Clone(), nil
}

// Register records a device, keeping the time it was last seen.
func (s *service) Register(ctx context.Context, registration *clock.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := &clock.DeviceRecord{
		Registration: *registration,
		RegisteredAt: s.now(),
	}

	if known, ok := s.devices[registration.DeviceID]; ok {
		record.LastSeen = known.LastSeen
	}

	if err := s.store(ctx, record); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Device registered",
		"device_id", record.DeviceID,
		"type", record.Type,
		"name", record.Name,
	)

	return nil
}

// Liveness records a ping. A device the registry does not know yet is
// added with its id only; its registration fills in the rest later.
func (s *service) Liveness(ctx context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := &clock.DeviceRecord{Registration: clock.Registration{DeviceID: deviceID}}

	if known, ok := s.devices[deviceID]; ok {
		record = known.Clone()
	} else {
		logger.WarnKV(ctx, "Liveness from an unregistered device", "device_id", deviceID)
	}

	record.LastSeen = s.now()

	if err := s.store(ctx, record); err != nil {
		return err
	}

	logger.DebugKV(ctx, "Liveness recorded", "device_id", deviceID)

	return nil
}

// Devices returns a snapshot of the registry.
func (s *service) Devices() []*clock.DeviceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot()
}

// store puts record into the registry and persists it; the registry is
// left untouched when persisting fails. Callers hold mu.
func (s *service) store(ctx context.Context, record *clock.DeviceRecord) error {
	previous, existed := s.devices[record.DeviceID]
	s.devices[record.DeviceID] = record

	if s.repo == nil {
		return nil
	}

	if err := s.repo.Save(ctx, s.snapshot()); err != nil {
		if existed {
			s.devices[record.DeviceID] = previous
		} else {
			delete(s.devices, record.DeviceID)
		}

		logger.Errorf(ctx, "Failed to persist device registry: %v", err)

		return fmt.Errorf("persist registry: %w", err)
	}

	return nil
}

func (s *service) snapshot() []*clock.DeviceRecord {
	records := make([]*clock.DeviceRecord, 0, len(s.devices))
	for _, record := range s.devices {
		records = append(records, record.Clone())
	}

	return records
}
