package keycard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/database"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

// Repository persists keycards, statuses and the access log.
type Repository interface {
	Get(ctx context.Context, id int64) (*Keycard, error)
	// LookupByTag returns ErrKeycardNotFound for an unknown tag.
	LookupByTag(ctx context.Context, tag string) (*Keycard, error)
	List(ctx context.Context) ([]Keycard, error)
	Create(ctx context.Context, k *Keycard) error
	Update(ctx context.Context, k *Keycard) error
	Delete(ctx context.Context, id int64) error

	ListStatuses(ctx context.Context) ([]Status, error)

	AppendAccessLog(ctx context.Context, e AccessLogEntry) (int64, error)
	ListAccessLog(ctx context.Context, limit int) ([]AccessLogEntry, error)
}

// SQLRepository implements Repository over the persistence gateway.
type SQLRepository struct {
	db  database.Executor
	now func() time.Time
}

// NewSQLRepository creates a keycard repository.
func NewSQLRepository(db database.Executor) *SQLRepository {
	return &SQLRepository{db: db, now: time.Now}
}

const selectKeycard = `
	SELECT k.id, k.rfid_tag, k.user_id, k.status_id, s.name AS status, k.issued_at, k.expires_at
	FROM keycards k LEFT JOIN keycard_statuses s ON s.id = k.status_id`

// Get retrieves a keycard by id.
func (r *SQLRepository) Get(ctx context.Context, id int64) (*Keycard, error) {
	res, err := r.db.Execute(ctx, selectKeycard+` WHERE k.id = @id`, database.Params{"id": id})
	if err != nil {
		return nil, fmt.Errorf("querying keycard %d: %w", id, err)
	}
	if len(res.Rows) == 0 {
		return nil, ErrKeycardNotFound
	}
	return keycardFromRow(res.Rows[0])
}

// LookupByTag retrieves the keycard carrying tag. Surrounding whitespace
// is ignored, as it is when cards are stored.
func (r *SQLRepository) LookupByTag(ctx context.Context, tag string) (*Keycard, error) {
	tag = strings.TrimSpace(tag)
	res, err := r.db.Execute(ctx, selectKeycard+` WHERE k.rfid_tag = @tag`, database.Params{"tag": tag})
	if err != nil {
		return nil, fmt.Errorf("looking up tag %q: %w", tag, err)
	}
	if len(res.Rows) == 0 {
		return nil, ErrKeycardNotFound
	}
	return keycardFromRow(res.Rows[0])
}

// List returns all keycards ordered by id.
func (r *SQLRepository) List(ctx context.Context) ([]Keycard, error) {
	res, err := r.db.Execute(ctx, selectKeycard+` ORDER BY k.id`, nil)
	if err != nil {
		return nil, fmt.Errorf("listing keycards: %w", err)
	}
	cards := make([]Keycard, 0, len(res.Rows))
	for _, row := range res.Rows {
		k, err := keycardFromRow(row)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *k)
	}
	return cards, nil
}

// Create inserts k after checking that its tag is free. The tag and user
// are trimmed first; k.ID, k.StatusID and k.IssuedAt are filled in. A tag
// taken by a concurrent writer still reports ErrTagExists.
func (r *SQLRepository) Create(ctx context.Context, k *Keycard) error {
	k.normalize()
	if k.IssuedAt.IsZero() {
		k.IssuedAt = r.now().UTC()
	}
	if err := k.Validate(); err != nil {
		return err
	}
	if err := r.checkTagFree(ctx, k.RFIDTag, 0); err != nil {
		return err
	}
	statusID, err := r.resolveStatus(ctx, k.Status)
	if err != nil {
		return err
	}

	res, err := r.db.Execute(ctx, `
		INSERT INTO keycards (rfid_tag, user_id, status_id, issued_at, expires_at)
		VALUES (@tag, @user_id, @status_id, @issued_at, @expires_at)`,
		database.Params{
			"tag":        k.RFIDTag,
			"user_id":    k.UserID,
			"status_id":  nullInt(statusID),
			"issued_at":  database.FormatTime(k.IssuedAt),
			"expires_at": nullTime(k.ExpiresAt),
		})
	if err != nil {
		if errors.Is(err, database.ErrUniqueViolation) {
			return fmt.Errorf("%w: %q", ErrTagExists, k.RFIDTag)
		}
		return fmt.Errorf("inserting keycard %q: %w", k.RFIDTag, err)
	}
	k.ID = res.LastInsertID
	k.StatusID = statusID
	return nil
}

// Update replaces every field of an existing keycard.
func (r *SQLRepository) Update(ctx context.Context, k *Keycard) error {
	k.normalize()
	if k.IssuedAt.IsZero() {
		k.IssuedAt = r.now().UTC()
	}
	if err := k.Validate(); err != nil {
		return err
	}
	if err := r.checkTagFree(ctx, k.RFIDTag, k.ID); err != nil {
		return err
	}
	statusID, err := r.resolveStatus(ctx, k.Status)
	if err != nil {
		return err
	}

	res, err := r.db.Execute(ctx, `
		UPDATE keycards SET rfid_tag = @tag, user_id = @user_id, status_id = @status_id,
			issued_at = @issued_at, expires_at = @expires_at
		WHERE id = @id`,
		database.Params{
			"id":         k.ID,
			"tag":        k.RFIDTag,
			"user_id":    k.UserID,
			"status_id":  nullInt(statusID),
			"issued_at":  database.FormatTime(k.IssuedAt),
			"expires_at": nullTime(k.ExpiresAt),
		})
	if err != nil {
		if errors.Is(err, database.ErrUniqueViolation) {
			return fmt.Errorf("%w: %q", ErrTagExists, k.RFIDTag)
		}
		return fmt.Errorf("updating keycard %d: %w", k.ID, err)
	}
	if res.RowsAffected == 0 {
		return ErrKeycardNotFound
	}
	k.StatusID = statusID
	return nil
}

// Delete removes a keycard. Access log entries keep the tag but lose the
// card reference.
func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.Execute(ctx, `DELETE FROM keycards WHERE id = @id`, database.Params{"id": id})
	if err != nil {
		return fmt.Errorf("deleting keycard %d: %w", id, err)
	}
	if res.RowsAffected == 0 {
		return ErrKeycardNotFound
	}
	return nil
}

// ListStatuses returns the status enumeration.
func (r *SQLRepository) ListStatuses(ctx context.Context) ([]Status, error) {
	res, err := r.db.Execute(ctx, `SELECT id, name, description FROM keycard_statuses ORDER BY id`, nil)
	if err != nil {
		return nil, fmt.Errorf("listing keycard statuses: %w", err)
	}
	out := make([]Status, 0, len(res.Rows))
	for _, row := range res.Rows {
		id, err := row.Int64("id")
		if err != nil {
			return nil, err
		}
		out = append(out, Status{ID: id, Name: row.String("name"), Description: row.String("description")})
	}
	return out, nil
}

// AppendAccessLog records a decision. Identical entries are kept.
func (r *SQLRepository) AppendAccessLog(ctx context.Context, e AccessLogEntry) (int64, error) {
	if e.AccessedAt.IsZero() {
		e.AccessedAt = r.now()
	}
	res, err := r.db.Execute(ctx, `
		INSERT INTO access_log (accessed_at, rfid_tag, keycard_id, user_id, location, device_id, granted)
		VALUES (@accessed_at, @tag, @keycard_id, @user_id, @location, @device_id, @granted)`,
		database.Params{
			"accessed_at": database.FormatTime(e.AccessedAt),
			"tag":         e.RFIDTag,
			"keycard_id":  nullInt(e.KeycardID),
			"user_id":     e.UserID,
			"location":    e.Location,
			"device_id":   e.DeviceID,
			"granted":     e.Granted,
		})
	if err != nil {
		return 0, fmt.Errorf("appending access log for tag %q: %w", e.RFIDTag, err)
	}
	return res.LastInsertID, nil
}

// ListAccessLog returns the newest entries first.
func (r *SQLRepository) ListAccessLog(ctx context.Context, limit int) ([]AccessLogEntry, error) {
	switch {
	case limit <= 0:
		limit = defaultLogLimit
	case limit > maxLogLimit:
		limit = maxLogLimit
	}

	res, err := r.db.Execute(ctx, `
		SELECT id, accessed_at, rfid_tag, keycard_id, user_id, location, device_id, granted
		FROM access_log ORDER BY id DESC LIMIT @limit`,
		database.Params{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("listing access log: %w", err)
	}

	out := make([]AccessLogEntry, 0, len(res.Rows))
	for _, row := range res.Rows {
		id, err := row.Int64("id")
		if err != nil {
			return nil, err
		}
		at, err := row.Time("accessed_at")
		if err != nil {
			return nil, err
		}
		keycardID, err := optionalInt(row, "keycard_id")
		if err != nil {
			return nil, err
		}
		out = append(out, AccessLogEntry{
			ID:         id,
			AccessedAt: at,
			RFIDTag:    row.String("rfid_tag"),
			KeycardID:  keycardID,
			UserID:     row.String("user_id"),
			Location:   row.String("location"),
			DeviceID:   row.String("device_id"),
			Granted:    row.Bool("granted"),
		})
	}
	return out, nil
}

// checkTagFree fails with ErrTagExists when another card (not selfID)
// already carries tag.
func (r *SQLRepository) checkTagFree(ctx context.Context, tag string, selfID int64) error {
	res, err := r.db.Execute(ctx,
		`SELECT id FROM keycards WHERE rfid_tag = @tag AND id != @self`,
		database.Params{"tag": tag, "self": selfID})
	if err != nil {
		return fmt.Errorf("checking tag %q: %w", tag, err)
	}
	if len(res.Rows) > 0 {
		return fmt.Errorf("%w: %q", ErrTagExists, tag)
	}
	return nil
}

func (r *SQLRepository) resolveStatus(ctx context.Context, name string) (*int64, error) {
	if name == "" {
		return nil, nil
	}
	res, err := r.db.Execute(ctx,
		`SELECT id FROM keycard_statuses WHERE name = @name`, database.Params{"name": name})
	if err != nil {
		return nil, fmt.Errorf("resolving status %q: %w", name, err)
	}
	if len(res.Rows) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrStatusNotFound, name)
	}
	id, err := res.Rows[0].Int64("id")
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func keycardFromRow(row database.Row) (*Keycard, error) {
	id, err := row.Int64("id")
	if err != nil {
		return nil, err
	}
	issued, err := row.Time("issued_at")
	if err != nil {
		return nil, err
	}
	statusID, err := optionalInt(row, "status_id")
	if err != nil {
		return nil, err
	}

	k := &Keycard{
		ID:       id,
		RFIDTag:  row.String("rfid_tag"),
		UserID:   row.String("user_id"),
		StatusID: statusID,
		Status:   row.String("status"),
		IssuedAt: issued,
	}
	if row["expires_at"] != nil {
		exp, err := row.Time("expires_at")
		if err != nil {
			return nil, err
		}
		k.ExpiresAt = &exp
	}
	return k, nil
}

func optionalInt(row database.Row, col string) (*int64, error) {
	if row[col] == nil {
		return nil, nil
	}
	v, err := row.Int64(col)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return database.FormatTime(*t)
}
