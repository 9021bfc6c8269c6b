package orchestrator

import (
	"context"
	"errors"

	"github.com/oshokin/alarm-clock/internal/device/link"
	"github.com/oshokin/alarm-clock/internal/domain/clock"
)

var errTestNetwork = errors.New("test network error")

type fakeConnector struct {
	err   error
	calls map[link.Mode]int
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{calls: make(map[link.Mode]int)}
}

func (f *fakeConnector) EnsureConnected(_ context.Context, mode link.Mode) error {
	f.calls[mode]++

	return f.err
}

type fakeSynchronizer struct {
	err   error
	calls map[link.Mode]int
}

func newFakeSynchronizer() *fakeSynchronizer {
	return &fakeSynchronizer{calls: make(map[link.Mode]int)}
}

func (f *fakeSynchronizer) Sync(_ context.Context, mode link.Mode) error {
	f.calls[mode]++

	return f.err
}

// fakeNetwork answers fetches from configurations in order, then with fetchErr.
type fakeNetwork struct {
	configurations []*clock.Configuration
	fetchErr       error
	registerErr    error
	livenessErr    error

	fetches        int
	registrations  []clock.Registration
	pings          int
	pingEndpoints  []string
	pingedDeviceID string
}

func (f *fakeNetwork) FetchConfiguration(_ context.Context, _, _ string) (*clock.Configuration, error) {
	f.fetches++

	if len(f.configurations) == 0 {
		return nil, f.fetchErr
	}

	configuration := f.configurations[0]
	f.configurations = f.configurations[1:]

	return configuration, nil
}

func (f *fakeNetwork) RegisterDevice(_ context.Context, _ string, registration *clock.Registration) error {
	f.registrations = append(f.registrations, *registration)

	return f.registerErr
}

func (f *fakeNetwork) SendLiveness(_ context.Context, deviceID, endpoint string) error {
	f.pings++
	f.pingedDeviceID = deviceID
	f.pingEndpoints = append(f.pingEndpoints, endpoint)

	return f.livenessErr
}

type fakeActuator struct {
	pulses int
}

func (f *fakeActuator) Pulse(context.Context) {
	f.pulses++
}

type fakeAddresser struct {
	address string
	err     error
}

func (f *fakeAddresser) DeviceAddress() (string, error) {
	return f.address, f.err
}

// testDefaults is a configuration with one weekday alarm at 08:45 in UTC+01:00.
func testDefaults() *clock.Configuration {
	return &clock.Configuration{
		LivenessEndpoint:        "127.0.0.1:50051",
		LivenessIntervalSeconds: 30,
		Schedules: []clock.Schedule{
			{Expression: "0 45 8 * * Mon-Fri 2023-2100", Description: "alarm"},
		},
		TimeZoneOffsetSeconds: 3600,
		AlarmWindowMinutes:    1,
	}
}
