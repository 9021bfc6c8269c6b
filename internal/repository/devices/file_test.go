package devices

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-clock/internal/domain/clock"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.json"))

	records, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, records)
}

// TestFileRepository_SaveLoad_Roundtrip ensures Save followed by Load returns the same records sorted by id.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "devices.json")
	repo := NewFileRepository(file)

	registered := time.Date(2023, time.October, 16, 7, 0, 0, 123, time.UTC)
	records := []*clock.DeviceRecord{
		{
			Registration: clock.Registration{DeviceID: "bb:bb", Type: "alarm-clock", Name: "kitchen"},
			RegisteredAt: registered,
		},
		{
			Registration: clock.Registration{
				DeviceID:    "aa:aa",
				Type:        "alarm-clock",
				Name:        "bedroom",
				Description: "Bedside unit",
			},
			RegisteredAt: registered,
			LastSeen:     registered.Add(time.Minute),
		},
	}

	require.NoError(t, repo.Save(context.Background(), records))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, []*clock.DeviceRecord{records[1], records[0]}, got)

	_, err = os.Stat(file)
	require.NoError(t, err)
}

// TestFileRepository_Malformed checks that foreign documents are rejected.
func TestFileRepository_Malformed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cases := map[string]string{
		"not json":     "devices",
		"no list":      `{"devices": "none"}`,
		"no device id": `{"devices": [{"name": "bedroom"}]}`,
		"bad time":     `{"devices": [{"deviceId": "aa", "lastSeen": "yesterday"}]}`,
	}

	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			file := filepath.Join(dir, name+".json")
			require.NoError(t, os.WriteFile(file, []byte(contents), 0o600))

			_, err := NewFileRepository(file).Load(context.Background())
			require.Error(t, err)
		})
	}
}
