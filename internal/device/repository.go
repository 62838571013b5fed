package device

import (
	"context"
	"fmt"
	"time"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/database"
)

// Repository persists devices.
type Repository interface {
	// Get returns ErrDeviceNotFound if (kind, id) is unknown.
	Get(ctx context.Context, kind Kind, id string) (*Device, error)
	List(ctx context.Context) ([]Device, error)
	ListByKind(ctx context.Context, kind Kind) ([]Device, error)
	Exists(ctx context.Context, kind Kind, id string) (bool, error)

	// Create returns ErrDeviceExists if (kind, id) is taken.
	Create(ctx context.Context, d *Device) error

	// CreateIfAbsent inserts d unless a device with the same (kind, id)
	// already exists, and reports whether it inserted.
	CreateIfAbsent(ctx context.Context, d *Device) (bool, error)

	// Delete removes the device and, by cascade, its telemetry.
	Delete(ctx context.Context, kind Kind, id string) error

	Assign(ctx context.Context, kind Kind, id, userID, location string) error
	SetLocked(ctx context.Context, id string, locked bool) error
	SetFanState(ctx context.Context, id string, state FanState) error
}

// SQLRepository implements Repository over the persistence gateway.
type SQLRepository struct {
	db  database.Executor
	now func() time.Time
}

// NewSQLRepository creates a repository that runs its queries through db.
func NewSQLRepository(db database.Executor) *SQLRepository {
	return &SQLRepository{db: db, now: time.Now}
}

const deviceColumns = `kind, id, active, user_id, location, created_at, fan_on, fan_speed, fan_mode, is_locked`

// Get retrieves one device.
func (r *SQLRepository) Get(ctx context.Context, kind Kind, id string) (*Device, error) {
	res, err := r.db.Execute(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE kind = @kind AND id = @id`,
		database.Params{"kind": string(kind), "id": id})
	if err != nil {
		return nil, fmt.Errorf("querying device %s/%s: %w", kind, id, err)
	}
	if len(res.Rows) == 0 {
		return nil, ErrDeviceNotFound
	}
	return deviceFromRow(res.Rows[0])
}

// List returns every device ordered by kind then id.
func (r *SQLRepository) List(ctx context.Context) ([]Device, error) {
	res, err := r.db.Execute(ctx,
		`SELECT `+deviceColumns+` FROM devices ORDER BY kind, id`, nil)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	return devicesFromRows(res.Rows)
}

// ListByKind returns every device of one kind.
func (r *SQLRepository) ListByKind(ctx context.Context, kind Kind) ([]Device, error) {
	res, err := r.db.Execute(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE kind = @kind ORDER BY id`,
		database.Params{"kind": string(kind)})
	if err != nil {
		return nil, fmt.Errorf("listing %s devices: %w", kind, err)
	}
	return devicesFromRows(res.Rows)
}

// Exists reports whether (kind, id) is provisioned.
func (r *SQLRepository) Exists(ctx context.Context, kind Kind, id string) (bool, error) {
	res, err := r.db.Execute(ctx,
		`SELECT 1 AS found FROM devices WHERE kind = @kind AND id = @id`,
		database.Params{"kind": string(kind), "id": id})
	if err != nil {
		return false, fmt.Errorf("checking device %s/%s: %w", kind, id, err)
	}
	return len(res.Rows) > 0, nil
}

// Create inserts a new device.
func (r *SQLRepository) Create(ctx context.Context, d *Device) error {
	created, err := r.CreateIfAbsent(ctx, d)
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("%w: %s/%s", ErrDeviceExists, d.Kind, d.ID)
	}
	return nil
}

// CreateIfAbsent inserts d when (kind, id) is free. Concurrent callers
// racing on the same id produce one row; the loser sees false.
func (r *SQLRepository) CreateIfAbsent(ctx context.Context, d *Device) (bool, error) {
	if _, err := ParseKind(string(d.Kind)); err != nil {
		return false, err
	}
	if err := ValidateID(d.ID); err != nil {
		return false, err
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = r.now().UTC()
	}

	res, err := r.db.Execute(ctx, `
		INSERT INTO devices (kind, id, active, user_id, location, created_at, is_locked)
		VALUES (@kind, @id, @active, @user_id, @location, @created_at, @is_locked)
		ON CONFLICT (kind, id) DO NOTHING`,
		database.Params{
			"kind":       string(d.Kind),
			"id":         d.ID,
			"active":     d.Active,
			"user_id":    nullString(d.UserID),
			"location":   nullString(d.Location),
			"created_at": database.FormatTime(d.CreatedAt),
			"is_locked":  nullBool(d.IsLocked),
		})
	if err != nil {
		return false, fmt.Errorf("inserting device %s/%s: %w", d.Kind, d.ID, err)
	}
	return res.RowsAffected == 1, nil
}

// Delete removes a device; telemetry rows go with it.
func (r *SQLRepository) Delete(ctx context.Context, kind Kind, id string) error {
	res, err := r.db.Execute(ctx,
		`DELETE FROM devices WHERE kind = @kind AND id = @id`,
		database.Params{"kind": string(kind), "id": id})
	if err != nil {
		return fmt.Errorf("deleting device %s/%s: %w", kind, id, err)
	}
	if res.RowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// Assign records the owner and location of a device.
func (r *SQLRepository) Assign(ctx context.Context, kind Kind, id, userID, location string) error {
	return r.update(ctx, kind, id,
		`UPDATE devices SET user_id = @user_id, location = @location WHERE kind = @kind AND id = @id`,
		database.Params{"user_id": userID, "location": location})
}

// SetLocked stores the lock flag of an RFID scanner.
func (r *SQLRepository) SetLocked(ctx context.Context, id string, locked bool) error {
	return r.update(ctx, KindRFID, id,
		`UPDATE devices SET is_locked = @locked WHERE kind = @kind AND id = @id`,
		database.Params{"locked": locked})
}

// SetFanState stores the latest fan state on the device row.
func (r *SQLRepository) SetFanState(ctx context.Context, id string, state FanState) error {
	return r.update(ctx, KindFan, id,
		`UPDATE devices SET fan_on = @fan_on, fan_speed = @fan_speed, fan_mode = @fan_mode WHERE kind = @kind AND id = @id`,
		database.Params{
			"fan_on":    nullBool(state.On),
			"fan_speed": state.Speed,
			"fan_mode":  string(state.Mode),
		})
}

func (r *SQLRepository) update(ctx context.Context, kind Kind, id, query string, params database.Params) error {
	params["kind"] = string(kind)
	params["id"] = id

	res, err := r.db.Execute(ctx, query, params)
	if err != nil {
		return fmt.Errorf("updating device %s/%s: %w", kind, id, err)
	}
	if res.RowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func devicesFromRows(rows []database.Row) ([]Device, error) {
	devices := make([]Device, 0, len(rows))
	for _, row := range rows {
		d, err := deviceFromRow(row)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}
	return devices, nil
}

func deviceFromRow(row database.Row) (*Device, error) {
	createdAt, err := row.Time("created_at")
	if err != nil {
		return nil, err
	}

	d := &Device{
		Kind:      Kind(row.String("kind")),
		ID:        row.String("id"),
		Active:    row.Bool("active"),
		UserID:    optionalString(row, "user_id"),
		Location:  optionalString(row, "location"),
		CreatedAt: createdAt,
	}

	switch d.Kind {
	case KindFan:
		if mode := row.String("fan_mode"); mode != "" {
			speed, err := row.Int64("fan_speed")
			if err != nil {
				return nil, err
			}
			d.Fan = &FanState{On: row.NullBool("fan_on"), Speed: int(speed), Mode: FanMode(mode)}
		}
	case KindRFID:
		d.IsLocked = row.NullBool("is_locked")
	}

	return d, nil
}

func optionalString(row database.Row, col string) *string {
	if row[col] == nil {
		return nil
	}
	s := row.String(col)
	return &s
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullBool(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}
