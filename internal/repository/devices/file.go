package devices

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/domain/clock"
)

// Repository defines persistence operations for the device registry.
type Repository interface {
	Load(ctx context.Context) ([]*clock.DeviceRecord, error)
	Save(ctx context.Context, records []*clock.DeviceRecord) error
}

// FileRepository persists the device registry to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the registry file.
	path string
	// mu protects concurrent access to the registry file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when the registry file does not exist yet.
	ErrNotFound = errors.New("device registry not found")
	// ErrMalformed is returned when the registry file holds an unexpected document.
	ErrMalformed = errors.New("malformed device registry")
)

const (
	fieldDevices      = "devices"
	fieldDeviceID     = "deviceId"
	fieldType         = "type"
	fieldName         = "name"
	fieldDescription  = "description"
	fieldRegisteredAt = "registeredAt"
	fieldLastSeen     = "lastSeen"
)

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the registry from disk.
func (r *FileRepository) Load(_ context.Context) ([]*clock.DeviceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read registry file: %w", err)
	}

	var document structpb.Struct
	if err = protojson.Unmarshal(contents, &document); err != nil {
		return nil, fmt.Errorf("decode registry file: %w", err)
	}

	return fromDocument(&document)
}

// Save writes the registry to disk, ordered by device id.
func (r *FileRepository) Save(_ context.Context, records []*clock.DeviceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	marshalOptions := protojson.MarshalOptions{
		Multiline: true,
	}

	data, err := marshalOptions.Marshal(toDocument(records))
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write registry file: %w", err)
	}

	return nil
}

// toDocument converts records into the registry document.
func toDocument(records []*clock.DeviceRecord) *structpb.Struct {
	sorted := make([]*clock.DeviceRecord, len(records))
	copy(sorted, records)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].DeviceID < sorted[j].DeviceID
	})

	values := make([]*structpb.Value, 0, len(sorted))
	for _, record := range sorted {
		values = append(values, structpb.NewStructValue(&structpb.Struct{
			Fields: map[string]*structpb.Value{
				fieldDeviceID:     structpb.NewStringValue(record.DeviceID),
				fieldType:         structpb.NewStringValue(record.Type),
				fieldName:         structpb.NewStringValue(record.Name),
				fieldDescription:  structpb.NewStringValue(record.Description),
				fieldRegisteredAt: structpb.NewStringValue(formatTime(record.RegisteredAt)),
				fieldLastSeen:     structpb.NewStringValue(formatTime(record.LastSeen)),
			},
		}))
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			fieldDevices: structpb.NewListValue(&structpb.ListValue{Values: values}),
		},
	}
}

// fromDocument converts the registry document into records.
func fromDocument(document *structpb.Struct) ([]*clock.DeviceRecord, error) {
	list := document.GetFields()[fieldDevices].GetListValue()
	if list == nil {
		return nil, fmt.Errorf("%w: no %q list", ErrMalformed, fieldDevices)
	}

	records := make([]*clock.DeviceRecord, 0, len(list.GetValues()))

	for i, value := range list.GetValues() {
		fields := value.GetStructValue().GetFields()

		deviceID := fields[fieldDeviceID].GetStringValue()
		if deviceID == "" {
			return nil, fmt.Errorf("%w: device %d has no id", ErrMalformed, i)
		}

		registeredAt, err := parseTime(fields[fieldRegisteredAt].GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("%w: device %s: %w", ErrMalformed, deviceID, err)
		}

		lastSeen, err := parseTime(fields[fieldLastSeen].GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("%w: device %s: %w", ErrMalformed, deviceID, err)
		}

		records = append(records, &clock.DeviceRecord{
			Registration: clock.Registration{
				DeviceID:    deviceID,
				Type:        fields[fieldType].GetStringValue(),
				Name:        fields[fieldName].GetStringValue(),
				Description: fields[fieldDescription].GetStringValue(),
			},
			RegisteredAt: registeredAt,
			LastSeen:     lastSeen,
		})
	}

	return records, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	return time.Parse(time.RFC3339Nano, s)
}
