package device

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/alarm-clock/internal/domain/clock"
)

// Field names of the configuration record.
const (
	FieldLivenessEndpoint        = "livenessEndpoint"
	FieldLivenessIntervalSeconds = "livenessIntervalSeconds"
	FieldSchedules               = "schedules"
	FieldTimeZoneOffsetSeconds   = "timeZoneOffsetSeconds"
	FieldAlarmWindowMinutes      = "alarmWindowMinutes"
	FieldExpression              = "expression"
	FieldDescription             = "description"
)

// Field names of the registration record; it shares FieldDescription.
const (
	FieldDeviceID = "deviceId"
	FieldType     = "type"
	FieldName     = "name"
)

var (
	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("missing required field")
	// ErrFieldType is returned when a field holds a value of the wrong kind or range.
	ErrFieldType = errors.New("unexpected field value")
)

// EncodeConfiguration converts a configuration into its wire record.
func EncodeConfiguration(c *clock.Configuration) *structpb.Struct {
	schedules := make([]*structpb.Value, 0, len(c.Schedules))
	for _, s := range c.Schedules {
		schedules = append(schedules, structpb.NewStructValue(&structpb.Struct{
			Fields: map[string]*structpb.Value{
				FieldExpression:  structpb.NewStringValue(s.Expression),
				FieldDescription: structpb.NewStringValue(s.Description),
			},
		}))
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldLivenessEndpoint:        structpb.NewStringValue(c.LivenessEndpoint),
			FieldLivenessIntervalSeconds: structpb.NewNumberValue(float64(c.LivenessIntervalSeconds)),
			FieldSchedules:               structpb.NewListValue(&structpb.ListValue{Values: schedules}),
			FieldTimeZoneOffsetSeconds:   structpb.NewNumberValue(float64(c.TimeZoneOffsetSeconds)),
			FieldAlarmWindowMinutes:      structpb.NewNumberValue(float64(c.AlarmWindowMinutes)),
		},
	}
}

// DecodeConfiguration converts a wire record into a configuration.
// Unknown fields are ignored; every configuration field is required.
func DecodeConfiguration(record *structpb.Struct) (*clock.Configuration, error) {
	fields := record.GetFields()

	endpoint, err := stringField(fields, FieldLivenessEndpoint)
	if err != nil {
		return nil, err
	}

	interval, err := numberField(fields, FieldLivenessIntervalSeconds, 0, math.MaxUint32)
	if err != nil {
		return nil, err
	}

	offset, err := numberField(fields, FieldTimeZoneOffsetSeconds, math.MinInt32, math.MaxInt32)
	if err != nil {
		return nil, err
	}

	window, err := numberField(fields, FieldAlarmWindowMinutes, 0, math.MaxUint32)
	if err != nil {
		return nil, err
	}

	schedules, err := schedulesField(fields)
	if err != nil {
		return nil, err
	}

	return &clock.Configuration{
		LivenessEndpoint:        endpoint,
		LivenessIntervalSeconds: uint32(interval),
		Schedules:               schedules,
		TimeZoneOffsetSeconds:   int32(offset),
		AlarmWindowMinutes:      uint32(window),
	}, nil
}

// EncodeRegistration converts a registration into its wire record.
func EncodeRegistration(r *clock.Registration) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldDeviceID:    structpb.NewStringValue(r.DeviceID),
			FieldType:        structpb.NewStringValue(r.Type),
			FieldName:        structpb.NewStringValue(r.Name),
			FieldDescription: structpb.NewStringValue(r.Description),
		},
	}
}

// DecodeRegistration converts a wire record into a registration.
// Only the device identifier is required.
func DecodeRegistration(record *structpb.Struct) (*clock.Registration, error) {
	fields := record.GetFields()

	deviceID, err := stringField(fields, FieldDeviceID)
	if err != nil {
		return nil, err
	}

	return &clock.Registration{
		DeviceID:    deviceID,
		Type:        fields[FieldType].GetStringValue(),
		Name:        fields[FieldName].GetStringValue(),
		Description: fields[FieldDescription].GetStringValue(),
	}, nil
}

func stringField(fields map[string]*structpb.Value, name string) (string, error) {
	value, ok := fields[name]
	if !ok {
		return "", fmt.Errorf("%s: %w", name, ErrMissingField)
	}

	s, ok := value.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%s is not a string: %w", name, ErrFieldType)
	}

	return s.StringValue, nil
}

func numberField(fields map[string]*structpb.Value, name string, low, high float64) (int64, error) {
	value, ok := fields[name]
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, ErrMissingField)
	}

	n, ok := value.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%s is not a number: %w", name, ErrFieldType)
	}

	if n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue < low || n.NumberValue > high {
		return 0, fmt.Errorf("%s = %v out of range: %w", name, n.NumberValue, ErrFieldType)
	}

	return int64(n.NumberValue), nil
}

func schedulesField(fields map[string]*structpb.Value) ([]clock.Schedule, error) {
	value, ok := fields[FieldSchedules]
	if !ok {
		return nil, fmt.Errorf("%s: %w", FieldSchedules, ErrMissingField)
	}

	list, ok := value.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%s is not a list: %w", FieldSchedules, ErrFieldType)
	}

	schedules := make([]clock.Schedule, 0, len(list.ListValue.GetValues()))

	for i, item := range list.ListValue.GetValues() {
		entry := item.GetStructValue()
		if entry == nil {
			return nil, fmt.Errorf("%s[%d] is not a record: %w", FieldSchedules, i, ErrFieldType)
		}

		expression, err := stringField(entry.GetFields(), FieldExpression)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", FieldSchedules, i, err)
		}

		description, err := stringField(entry.GetFields(), FieldDescription)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", FieldSchedules, i, err)
		}

		schedules = append(schedules, clock.Schedule{
			Expression:  expression,
			Description: description,
		})
	}

	return schedules, nil
}
