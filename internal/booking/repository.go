package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSlotTaken is returned by Create when the partial unique index on
// (provider_id, service_id, booking_date, preferred_time) rejects the insert.
// The index, not the application-level pre-check, is the source of truth for
// the one-active-booking-per-tuple invariant.
var ErrSlotTaken = errors.New("slot already has an active booking")

type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)

	// UpdateStatus persists the new status and returns the row's updated_at,
	// which the database stamps.
	UpdateStatus(ctx context.Context, id string, status Status) (time.Time, error)

	// BookedSlots returns the distinct preferred_time values of non-cancelled
	// bookings for the tuple (provider, service, date).
	BookedSlots(ctx context.Context, providerID, serviceID string, date time.Time) ([]TimeSlot, error)

	// FindActiveSlot returns the non-cancelled booking occupying the tuple,
	// or ErrNotFound when the slot is free.
	FindActiveSlot(ctx context.Context, providerID, serviceID string, date time.Time, slot TimeSlot) (*Booking, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Create(ctx context.Context, b *Booking) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.bookings").
		Columns("user_id", "provider_id", "service_id", "booking_date", "preferred_time", "status", "total_amount").
		Values(b.UserID, b.ProviderID, b.ServiceID, b.BookingDate, b.PreferredTime, b.Status, b.TotalAmount).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		var e *pgconn.PgError
		if errors.As(err, &e) && e.Code == pgerrcode.UniqueViolation {
			return ErrSlotTaken
		}
		return fmt.Errorf("create booking failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"b.id", "b.user_id", "b.provider_id", "b.service_id",
		"b.booking_date", "b.preferred_time", "b.status", "b.total_amount",
		"s.name", "p.business_name", "b.created_at", "b.updated_at",
	).
		From("public.bookings b").
		Join("public.provider_services s ON b.service_id = s.id").
		Join("public.providers p ON b.provider_id = p.id").
		Where(squirrel.Eq{"b.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	var b Booking
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&b.ID, &b.UserID, &b.ProviderID, &b.ServiceID,
		&b.BookingDate, &b.PreferredTime, &b.Status, &b.TotalAmount,
		&b.ServiceName, &b.ProviderName, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return &b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(
		"b.id", "b.user_id", "b.provider_id", "b.service_id",
		"b.booking_date", "b.preferred_time", "b.status", "b.total_amount",
		"s.name", "p.business_name", "b.created_at", "b.updated_at",
		"count(*) OVER() AS total_count",
	).
		From("public.bookings b").
		Join("public.provider_services s ON b.service_id = s.id").
		Join("public.providers p ON b.provider_id = p.id")

	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"b.user_id": filter.UserID})
	}
	if filter.ProviderID != "" {
		query = query.Where(squirrel.Eq{"b.provider_id": filter.ProviderID})
	}
	if filter.ServiceID != "" {
		query = query.Where(squirrel.Eq{"b.service_id": filter.ServiceID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"b.status": filter.Status})
	}
	if filter.DateFrom != nil {
		query = query.Where(squirrel.GtOrEq{"b.booking_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		query = query.Where(squirrel.LtOrEq{"b.booking_date": *filter.DateTo})
	}

	query = query.OrderBy("b.booking_date DESC", "b.created_at DESC")

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	var total int

	for rows.Next() {
		var b Booking
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.ProviderID, &b.ServiceID,
			&b.BookingDate, &b.PreferredTime, &b.Status, &b.TotalAmount,
			&b.ServiceName, &b.ProviderName, &b.CreatedAt, &b.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list bookings rows failed: %w", err)
	}

	return bookings, total, nil
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, status Status) (time.Time, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("status", status).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return time.Time{}, fmt.Errorf("build update booking status query failed: %w", err)
	}

	var updatedAt time.Time
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, fmt.Errorf("update booking status failed: %w", err)
	}
	return updatedAt, nil
}

func (r *pgxRepository) BookedSlots(ctx context.Context, providerID, serviceID string, date time.Time) ([]TimeSlot, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("DISTINCT preferred_time").
		From("public.bookings").
		Where(squirrel.Eq{"provider_id": providerID}).
		Where(squirrel.Eq{"service_id": serviceID}).
		Where(squirrel.Eq{"booking_date": date}).
		Where(squirrel.NotEq{"status": StatusCancelled}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build booked slots query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("booked slots query failed: %w", err)
	}
	defer rows.Close()

	var slots []TimeSlot
	for rows.Next() {
		var s TimeSlot
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan booked slot failed: %w", err)
		}
		slots = append(slots, s)
	}
	// A connection failure mid-stream ends Next() without an error return;
	// surfacing it here keeps a truncated list from passing as a full one.
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booked slots rows failed: %w", err)
	}

	return slots, nil
}

func (r *pgxRepository) FindActiveSlot(ctx context.Context, providerID, serviceID string, date time.Time, slot TimeSlot) (*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"id", "user_id", "provider_id", "service_id",
		"booking_date", "preferred_time", "status", "total_amount",
		"created_at", "updated_at",
	).
		From("public.bookings").
		Where(squirrel.Eq{"provider_id": providerID}).
		Where(squirrel.Eq{"service_id": serviceID}).
		Where(squirrel.Eq{"booking_date": date}).
		Where(squirrel.Eq{"preferred_time": slot}).
		Where(squirrel.NotEq{"status": StatusCancelled}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find active slot query failed: %w", err)
	}

	var b Booking
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&b.ID, &b.UserID, &b.ProviderID, &b.ServiceID,
		&b.BookingDate, &b.PreferredTime, &b.Status, &b.TotalAmount,
		&b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find active slot failed: %w", err)
	}
	return &b, nil
}
