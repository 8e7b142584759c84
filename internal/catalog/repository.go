package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	ListCategories(ctx context.Context) ([]*Category, error)
	GetProvider(ctx context.Context, id string) (*Provider, error)
	GetService(ctx context.Context, id string) (*Service, error)
	ListServices(ctx context.Context, filter ServiceFilter) ([]*Service, int, error)
	UpdateProviderImage(ctx context.Context, providerID, path string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) ListCategories(ctx context.Context) ([]*Category, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id", "name", "icon", "color", "description").
		From("public.categories").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list categories query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories failed: %w", err)
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		var cat Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Icon, &cat.Color, &cat.Description); err != nil {
			return nil, fmt.Errorf("scan category failed: %w", err)
		}
		categories = append(categories, &cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories rows failed: %w", err)
	}

	return categories, nil
}

func (r *pgxRepository) GetProvider(ctx context.Context, id string) (*Provider, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"id", "user_id", "business_name", "location",
		"rating", "total_bookings", "profile_picture", "created_at",
	).
		From("public.providers").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get provider query failed: %w", err)
	}

	var p Provider
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.UserID, &p.BusinessName, &p.Location,
		&p.Rating, &p.TotalBookings, &p.ProfilePicture, &p.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("get provider failed: %w", err)
	}
	return &p, nil
}

func (r *pgxRepository) GetService(ctx context.Context, id string) (*Service, error) {
	// Service detail is always served joined with its provider; the booking
	// flow never fetches them separately.
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"s.id", "s.provider_id", "s.category_id", "s.name", "s.price",
		"s.description", "s.duration", "s.is_active", "s.created_at",
		"p.id", "p.user_id", "p.business_name", "p.location",
		"p.rating", "p.total_bookings", "p.profile_picture", "p.created_at",
	).
		From("public.provider_services s").
		Join("public.providers p ON s.provider_id = p.id").
		Where(squirrel.Eq{"s.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get service query failed: %w", err)
	}

	var s Service
	var p Provider
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&s.ID, &s.ProviderID, &s.CategoryID, &s.Name, &s.Price,
		&s.Description, &s.Duration, &s.IsActive, &s.CreatedAt,
		&p.ID, &p.UserID, &p.BusinessName, &p.Location,
		&p.Rating, &p.TotalBookings, &p.ProfilePicture, &p.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("get service failed: %w", err)
	}

	s.Provider = &p
	return &s, nil
}

func (r *pgxRepository) ListServices(ctx context.Context, filter ServiceFilter) ([]*Service, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(
		"s.id", "s.provider_id", "s.category_id", "s.name", "s.price",
		"s.description", "s.duration", "s.is_active", "s.created_at",
		"p.id", "p.user_id", "p.business_name", "p.location",
		"p.rating", "p.total_bookings", "p.profile_picture", "p.created_at",
		"count(*) OVER() AS total_count",
	).
		From("public.provider_services s").
		Join("public.providers p ON s.provider_id = p.id").
		Where(squirrel.Eq{"s.is_active": true})

	if filter.CategoryID != nil {
		query = query.Where(squirrel.Eq{"s.category_id": *filter.CategoryID})
	}
	if filter.ProviderID != "" {
		query = query.Where(squirrel.Eq{"s.provider_id": filter.ProviderID})
	}

	query = query.OrderBy("s.created_at DESC")

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
		return nil, 0, fmt.Errorf("build list services query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list services failed: %w", err)
	}
	defer rows.Close()

	var services []*Service
	var total int

	for rows.Next() {
		var s Service
		var p Provider
		if err := rows.Scan(
			&s.ID, &s.ProviderID, &s.CategoryID, &s.Name, &s.Price,
			&s.Description, &s.Duration, &s.IsActive, &s.CreatedAt,
			&p.ID, &p.UserID, &p.BusinessName, &p.Location,
			&p.Rating, &p.TotalBookings, &p.ProfilePicture, &p.CreatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan service failed: %w", err)
		}
		s.Provider = &p
		services = append(services, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list services rows failed: %w", err)
	}

	return services, total, nil
}

func (r *pgxRepository) UpdateProviderImage(ctx context.Context, providerID, path string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.providers").
		Set("profile_picture", path).
		Where(squirrel.Eq{"id": providerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update provider image query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update provider image failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrProviderNotFound
	}
	return nil
}
