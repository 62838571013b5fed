package device

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/database/dbtest"
)

func newTelemetryFixture(t *testing.T) (*SQLRepository, *SQLTelemetryRepository) {
	t.Helper()
	db := dbtest.New(t)
	repo := NewSQLRepository(db)
	for _, d := range []*Device{
		{Kind: KindTemperature, ID: "1"},
		{Kind: KindFan, ID: "1"},
		{Kind: KindCamera, ID: "1"},
	} {
		if err := repo.Create(context.Background(), d); err != nil {
			t.Fatalf("Create(%s) error = %v", d.Kind, err)
		}
	}
	return repo, NewSQLTelemetryRepository(db)
}

func TestTelemetry_AppendNeverDeduplicates(t *testing.T) {
	ctx := context.Background()
	_, tele := newTelemetryFixture(t)

	first, err := tele.AppendTemperature(ctx, TemperatureReading{DeviceID: "1", Celsius: 0})
	if err != nil {
		t.Fatalf("AppendTemperature() error = %v", err)
	}
	second, err := tele.AppendTemperature(ctx, TemperatureReading{DeviceID: "1", Celsius: 0})
	if err != nil {
		t.Fatalf("AppendTemperature() error = %v", err)
	}
	if first == second {
		t.Errorf("identical readings share row id %d", first)
	}

	readings, err := tele.ListTemperatureReadings(ctx, "1", 10)
	if err != nil {
		t.Fatalf("ListTemperatureReadings() error = %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("got %d readings, want 2", len(readings))
	}
	if readings[0].ID != second {
		t.Errorf("newest first: got id %d, want %d", readings[0].ID, second)
	}
}

func TestTelemetry_UnknownDeviceRejected(t *testing.T) {
	_, tele := newTelemetryFixture(t)
	if _, err := tele.AppendTemperature(context.Background(), TemperatureReading{DeviceID: "ghost", Celsius: 20}); err == nil {
		t.Error("AppendTemperature() for an unprovisioned device succeeded")
	}
}

func TestTelemetry_FanReadings(t *testing.T) {
	ctx := context.Background()
	_, tele := newTelemetryFixture(t)

	for _, tc := range []struct {
		mode  string
		speed *int
	}{
		{"OFF", intPtr(80)},
		{"on", intPtr(55)},
		{"auto", nil},
	} {
		state, err := NormalizeFanState(tc.mode, tc.speed)
		if err != nil {
			t.Fatalf("NormalizeFanState(%s) error = %v", tc.mode, err)
		}
		if _, err := tele.AppendFanReading(ctx, FanReading{DeviceID: "1", State: state}); err != nil {
			t.Fatalf("AppendFanReading() error = %v", err)
		}
	}

	got, err := tele.ListFanReadings(ctx, "1", 0)
	if err != nil {
		t.Fatalf("ListFanReadings() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d fan readings, want 3", len(got))
	}

	// Newest first: auto, on, off.
	if got[0].State.Mode != FanModeAuto || got[0].State.On != nil || got[0].State.Speed != 0 {
		t.Errorf("auto reading = %+v", got[0].State)
	}
	if got[1].State.On == nil || !*got[1].State.On || got[1].State.Speed != 55 {
		t.Errorf("on reading = %+v", got[1].State)
	}
	if got[2].State.On == nil || *got[2].State.On || got[2].State.Speed != 0 {
		t.Errorf("off reading = %+v", got[2].State)
	}
}

func TestTelemetry_CameraCaptures(t *testing.T) {
	ctx := context.Background()
	_, tele := newTelemetryFixture(t)

	img := []byte{0xff, 0xd8, 0xff, 0x00, 0x01}
	if _, err := tele.AppendCameraCapture(ctx, CameraCapture{DeviceID: "1", Image: img}); err != nil {
		t.Fatalf("AppendCameraCapture() error = %v", err)
	}
	got, err := tele.ListCameraCaptures(ctx, "1", 5)
	if err != nil {
		t.Fatalf("ListCameraCaptures() error = %v", err)
	}
	if len(got) != 1 || !bytes.Equal(got[0].Image, img) {
		t.Errorf("captures = %+v", got)
	}
}

func TestTelemetry_TemperatureSettings(t *testing.T) {
	ctx := context.Background()
	_, tele := newTelemetryFixture(t)

	if _, err := tele.LatestTemperatureSettings(ctx, "1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("LatestTemperatureSettings() before any write error = %v", err)
	}

	for _, s := range []TemperatureSettings{
		{DeviceID: "1", Max: 25, Normal: 21, Min: 18},
		{DeviceID: "1", Max: 27, Normal: 22, Min: 19},
	} {
		if err := tele.AddTemperatureSettings(ctx, s); err != nil {
			t.Fatalf("AddTemperatureSettings() error = %v", err)
		}
	}

	got, err := tele.LatestTemperatureSettings(ctx, "1")
	if err != nil {
		t.Fatalf("LatestTemperatureSettings() error = %v", err)
	}
	if got.Max != 27 || got.Normal != 22 || got.Min != 19 {
		t.Errorf("latest settings = %+v, want 27/22/19", got)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, defaultHistoryLimit},
		{-5, defaultHistoryLimit},
		{10, 10},
		{maxHistoryLimit + 1, maxHistoryLimit},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
