package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotengine/libs/db"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/tzconv"
)

//go:embed schema.sql
var schemaSQL string

const codeForeignKeyViolation = "23503"

type Postgres struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewPostgres(pool *db.Pool, outboxRepo *outbox.Repository) *Postgres {
	if outboxRepo == nil {
		outboxRepo = outbox.NewRepository()
	}
	return &Postgres{pool: pool, outbox: outboxRepo}
}

// Migrate applies the idempotent schema.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, schemaSQL)
	return err
}

func (p *Postgres) GetHost(ctx context.Context, hostID string) (model.Host, error) {
	var h model.Host
	err := p.pool.QueryRow(ctx, `
		SELECT id::text, name, timezone
		FROM hosts
		WHERE id = $1
	`, hostID).Scan(&h.ID, &h.Name, &h.Timezone)
	if err != nil {
		return model.Host{}, translate(err)
	}
	return h, nil
}

func (p *Postgres) UpsertHost(ctx context.Context, h model.Host) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO hosts (id, name, timezone)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			timezone = EXCLUDED.timezone,
			updated_at = now()
	`, h.ID, h.Name, h.Timezone)
	return translate(err)
}

const eventTypeColumns = `id::text, host_id::text, title, description, duration_minutes,
	buffer_before_minutes, buffer_after_minutes, min_notice_minutes, is_active, created_at`

func scanEventType(row pgx.Row) (model.EventType, error) {
	var et model.EventType
	err := row.Scan(&et.ID, &et.HostID, &et.Title, &et.Description, &et.DurationMinutes,
		&et.BufferBeforeMinutes, &et.BufferAfterMinutes, &et.MinNoticeMinutes, &et.IsActive, &et.CreatedAt)
	return et, err
}

func (p *Postgres) GetEventType(ctx context.Context, hostID, eventTypeID string) (model.EventType, error) {
	et, err := scanEventType(p.pool.QueryRow(ctx, `
		SELECT `+eventTypeColumns+`
		FROM event_types
		WHERE id = $1 AND host_id = $2
	`, eventTypeID, hostID))
	if err != nil {
		return model.EventType{}, translate(err)
	}
	return et, nil
}

func (p *Postgres) CreateEventType(ctx context.Context, et *model.EventType) error {
	if et.ID == "" {
		et.ID = uuid.NewString()
	}
	err := p.pool.QueryRow(ctx, `
		INSERT INTO event_types
			(id, host_id, title, description, duration_minutes, buffer_before_minutes,
			 buffer_after_minutes, min_notice_minutes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, et.ID, et.HostID, et.Title, et.Description, et.DurationMinutes, et.BufferBeforeMinutes,
		et.BufferAfterMinutes, et.MinNoticeMinutes, et.IsActive).Scan(&et.CreatedAt)
	return translate(err)
}

func (p *Postgres) ListEventTypes(ctx context.Context, hostID string, activeOnly bool) ([]model.EventType, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+eventTypeColumns+`
		FROM event_types
		WHERE host_id = $1 AND (is_active OR NOT $2)
		ORDER BY created_at ASC
	`, hostID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EventType
	for rows.Next() {
		et, err := scanEventType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, et)
	}
	return out, rows.Err()
}

func (p *Postgres) WeeklyRules(ctx context.Context, hostID string, weekday time.Weekday) ([]model.WeeklyRule, error) {
	return p.queryRules(ctx, `
		SELECT id::text, host_id::text, day_of_week, start_time, end_time
		FROM weekly_rules
		WHERE host_id = $1 AND day_of_week = $2
		ORDER BY start_time ASC
	`, hostID, int(weekday))
}

func (p *Postgres) ListWeeklyRules(ctx context.Context, hostID string) ([]model.WeeklyRule, error) {
	return p.queryRules(ctx, `
		SELECT id::text, host_id::text, day_of_week, start_time, end_time
		FROM weekly_rules
		WHERE host_id = $1
		ORDER BY day_of_week ASC, start_time ASC
	`, hostID)
}

func (p *Postgres) queryRules(ctx context.Context, sql string, args ...any) ([]model.WeeklyRule, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []model.WeeklyRule
	for rows.Next() {
		var r model.WeeklyRule
		var day int16
		if err := rows.Scan(&r.ID, &r.HostID, &day, &r.StartTime, &r.EndTime); err != nil {
			return nil, err
		}
		r.Weekday = time.Weekday(day)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (p *Postgres) ReplaceWeeklyRules(ctx context.Context, hostID string, rules []model.WeeklyRule) error {
	return translate(p.pool.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM weekly_rules WHERE host_id = $1`, hostID); err != nil {
			return err
		}
		for i := range rules {
			if rules[i].ID == "" {
				rules[i].ID = uuid.NewString()
			}
			rules[i].HostID = hostID
			if _, err := tx.Exec(ctx, `
				INSERT INTO weekly_rules (id, host_id, day_of_week, start_time, end_time)
				VALUES ($1, $2, $3, $4, $5)
			`, rules[i].ID, hostID, int(rules[i].Weekday), rules[i].StartTime, rules[i].EndTime); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (p *Postgres) DateOverrides(ctx context.Context, hostID string, date tzconv.Date) ([]model.DateOverride, error) {
	return p.queryOverrides(ctx, `
		SELECT id::text, host_id::text, to_char(date, 'YYYY-MM-DD'), start_time, end_time, is_available
		FROM date_overrides
		WHERE host_id = $1 AND date = $2::date
		ORDER BY start_time ASC
	`, hostID, date.String())
}

func (p *Postgres) ListDateOverrides(ctx context.Context, hostID string, from tzconv.Date) ([]model.DateOverride, error) {
	return p.queryOverrides(ctx, `
		SELECT id::text, host_id::text, to_char(date, 'YYYY-MM-DD'), start_time, end_time, is_available
		FROM date_overrides
		WHERE host_id = $1 AND date >= $2::date
		ORDER BY date ASC, start_time ASC
	`, hostID, from.String())
}

func (p *Postgres) queryOverrides(ctx context.Context, sql string, args ...any) ([]model.DateOverride, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DateOverride
	for rows.Next() {
		var o model.DateOverride
		var date string
		if err := rows.Scan(&o.ID, &o.HostID, &date, &o.StartTime, &o.EndTime, &o.IsAvailable); err != nil {
			return nil, err
		}
		if o.Date, err = tzconv.ParseDate(date); err != nil {
			return nil, fmt.Errorf("override %s: %w", o.ID, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (p *Postgres) AddDateOverride(ctx context.Context, o *model.DateOverride) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO date_overrides (id, host_id, date, start_time, end_time, is_available)
		VALUES ($1, $2, $3::date, $4, $5, $6)
	`, o.ID, o.HostID, o.Date.String(), o.StartTime, o.EndTime, o.IsAvailable)
	return translate(err)
}

const bookingColumns = `id::text, host_id::text, event_type_id::text, guest_name, guest_email,
	to_char(date, 'YYYY-MM-DD'), start_at, end_at, status, booker_timezone,
	buffer_before_minutes, buffer_after_minutes, created_at`

func (p *Postgres) ConfirmedBookings(ctx context.Context, hostID string, from, to time.Time) ([]model.Booking, error) {
	return confirmedBookings(ctx, p.pool, hostID, from, to)
}

func (p *Postgres) ListBookings(ctx context.Context, hostID string, date *tzconv.Date) ([]model.Booking, error) {
	var dateArg any
	if date != nil {
		dateArg = date.String()
	}
	rows, err := p.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE host_id = $1 AND ($2::date IS NULL OR date = $2::date)
		ORDER BY start_at ASC
	`, hostID, dateArg)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func confirmedBookings(ctx context.Context, q querier, hostID string, from, to time.Time) ([]model.Booking, error) {
	rows, err := q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE host_id = $1
			AND status = 'confirmed'
			AND blocked_start < $3
			AND blocked_end > $2
		ORDER BY start_at ASC
	`, hostID, from, to)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func collectBookings(rows pgx.Rows) ([]model.Booking, error) {
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		var date string
		if err := rows.Scan(&b.ID, &b.HostID, &b.EventTypeID, &b.GuestName, &b.GuestEmail,
			&date, &b.StartAt, &b.EndAt, &b.Status, &b.BookerTimezone,
			&b.BufferBeforeMinutes, &b.BufferAfterMinutes, &b.CreatedAt); err != nil {
			return nil, err
		}
		d, err := tzconv.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("booking %s: %w", b.ID, err)
		}
		b.Date = d
		b.StartAt, b.EndAt, b.CreatedAt = b.StartAt.UTC(), b.EndAt.UTC(), b.CreatedAt.UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

// WithAdmissionLock runs fn in a transaction holding a transaction-scoped
// advisory lock for (host, date). The exclusion constraint on bookings
// rejects overlaps that span two locked dates.
func (p *Postgres) WithAdmissionLock(ctx context.Context, hostID string, date tzconv.Date, fn func(ctx context.Context, tx Tx) error) error {
	err := p.pool.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
			"admission:"+hostID+":"+date.String()); err != nil {
			return fmt.Errorf("advisory lock: %w", err)
		}
		return fn(ctx, &pgTx{tx: tx, outbox: p.outbox})
	})
	return translate(err)
}

type pgTx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

func (t *pgTx) ConfirmedBookings(ctx context.Context, hostID string, from, to time.Time) ([]model.Booking, error) {
	return confirmedBookings(ctx, t.tx, hostID, from, to)
}

func (t *pgTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = model.BookingConfirmed
	}
	blockedStart, blockedEnd := b.Blocked()
	err := t.tx.QueryRow(ctx, `
		INSERT INTO bookings
			(id, host_id, event_type_id, guest_name, guest_email, date, start_at, end_at, status,
			 booker_timezone, buffer_before_minutes, buffer_after_minutes, blocked_start, blocked_end)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at
	`, b.ID, b.HostID, b.EventTypeID, b.GuestName, b.GuestEmail, b.Date.String(), b.StartAt, b.EndAt, b.Status,
		b.BookerTimezone, b.BufferBeforeMinutes, b.BufferAfterMinutes, blockedStart, blockedEnd).Scan(&b.CreatedAt)
	if err != nil {
		return translate(err)
	}
	b.CreatedAt = b.CreatedAt.UTC()
	return nil
}

func (t *pgTx) AppendEvent(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict):
		return err
	case db.IsNoRows(err):
		return ErrNotFound
	case db.HasCode(err, db.CodeExclusionViolation, db.CodeUniqueViolation):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case db.HasCode(err, codeForeignKeyViolation):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case db.HasCode(err, db.CodeInvalidTextRepresentation):
		// a malformed uuid names no row
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
