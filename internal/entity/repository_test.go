package entity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/fimp2ha/internal/homeassistant"
	"github.com/nerrad567/fimp2ha/internal/infrastructure/database"
	_ "github.com/nerrad567/fimp2ha/migrations"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{Path: database.MemoryPath, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func record(topic, device, cycle string) Record {
	return Record{
		ConfigTopic: topic,
		UniqueID:    topic,
		Component:   homeassistant.KindSensor,
		DeviceKey:   device,
		Service:     "sensor_temp",
		Name:        "Temperature",
		LastCycle:   cycle,
	}
}

func TestUpsertKeepsFirstPublished(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return t0 }
	if err := repo.Upsert(ctx, record("homeassistant/sensor/zw_12_temp/config", "zw_12", "cycle-1")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	t1 := t0.Add(time.Hour)
	repo.now = func() time.Time { return t1 }
	updated := record("homeassistant/sensor/zw_12_temp/config", "zw_12", "cycle-2")
	updated.Name = "Hallway temperature"
	if err := repo.Upsert(ctx, updated); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	got, err := repo.Get(ctx, "homeassistant/sensor/zw_12_temp/config")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.FirstPublishedAt.Equal(t0) {
		t.Errorf("FirstPublishedAt = %v, want %v", got.FirstPublishedAt, t0)
	}
	if !got.LastPublishedAt.Equal(t1) {
		t.Errorf("LastPublishedAt = %v, want %v", got.LastPublishedAt, t1)
	}
	if got.LastCycle != "cycle-2" || got.Name != "Hallway temperature" {
		t.Errorf("record not refreshed: %+v", got)
	}

	n, err := repo.Count(ctx)
	if err != nil || n != 1 {
		t.Errorf("Count() = %d, %v, want 1", n, err)
	}
}

func TestUpsertValidation(t *testing.T) {
	repo := setupRepo(t)

	tests := []struct {
		name string
		rec  Record
	}{
		{name: "missing topic", rec: Record{LastCycle: "c"}},
		{name: "missing cycle", rec: Record{ConfigTopic: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Upsert(context.Background(), tt.rec)
			if !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("Upsert() error = %v, want ErrInvalidRecord", err)
			}
		})
	}
}

func TestListStaleAndDelete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for _, rec := range []Record{
		record("homeassistant/sensor/zw_12_temp/config", "zw_12", "old"),
		record("homeassistant/sensor/zw_12_bat/config", "zw_12", "new"),
		record("homeassistant/switch/zw_3_charge/config", "zw_3", "old"),
	} {
		if err := repo.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	stale, err := repo.ListStale(ctx, "new")
	if err != nil {
		t.Fatalf("ListStale() error = %v", err)
	}
	if len(stale) != 2 {
		t.Fatalf("ListStale() returned %d records, want 2", len(stale))
	}
	if stale[0].ConfigTopic != "homeassistant/sensor/zw_12_temp/config" {
		t.Errorf("stale not ordered by topic: %+v", stale)
	}

	for _, rec := range stale {
		if err := repo.Delete(ctx, rec.ConfigTopic); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
	}
	// Deleting again is harmless.
	if err := repo.Delete(ctx, stale[0].ConfigTopic); err != nil {
		t.Errorf("Delete() of missing record error = %v", err)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 || all[0].LastCycle != "new" {
		t.Errorf("List() = %+v, want only the current record", all)
	}

	if _, err := repo.Get(ctx, stale[0].ConfigTopic); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() deleted record error = %v, want ErrNotFound", err)
	}
}

func TestListByDevice(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_ = repo.Upsert(ctx, record("homeassistant/sensor/zw_12_temp/config", "zw_12", "c")) //nolint:errcheck // asserted below
	_ = repo.Upsert(ctx, record("homeassistant/switch/zw_3_charge/config", "zw_3", "c"))  //nolint:errcheck // asserted below

	got, err := repo.ListByDevice(ctx, "zw_3")
	if err != nil {
		t.Fatalf("ListByDevice() error = %v", err)
	}
	if len(got) != 1 || got[0].DeviceKey != "zw_3" {
		t.Errorf("ListByDevice() = %+v", got)
	}
}

func TestRecordFor(t *testing.T) {
	e := homeassistant.NewEntity(homeassistant.KindLock, "zw_5_lock", homeassistant.Config{}, homeassistant.Config{"name": "Front door"})
	e.DeviceKey = "zw_5"
	e.Service = "door_lock"

	got := RecordFor(e, "homeassistant", "cycle-9")
	if got.ConfigTopic != "homeassistant/lock/zw_5_lock/config" {
		t.Errorf("ConfigTopic = %q", got.ConfigTopic)
	}
	if got.UniqueID != "zw_5_lock" || got.Component != "lock" || got.Name != "Front door" {
		t.Errorf("RecordFor() = %+v", got)
	}
	if got.DeviceKey != "zw_5" || got.Service != "door_lock" || got.LastCycle != "cycle-9" {
		t.Errorf("RecordFor() = %+v", got)
	}
}
