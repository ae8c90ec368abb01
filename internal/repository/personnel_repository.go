package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/maintops/internal/db"
	"github.com/rpattn/maintops/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const personnelSelect = `SELECT p.id, p.nombre, p.email, p.cargo, p.telefono, p.activo, ur.rol, p.created_at, p.updated_at
	FROM personal p
	LEFT JOIN user_roles ur ON ur.user_id = p.id`

type personnelRepository struct {
	conn db.DBTX
}

func (r *personnelRepository) Create(ctx context.Context, person domain.Person) (domain.Person, error) {
	if person.ID == uuid.Nil {
		person.ID = uuid.New()
	}
	_, err := r.conn.Exec(ctx,
		`INSERT INTO personal (id, nombre, email, cargo, telefono, activo) VALUES ($1, $2, $3, $4, $5, $6)`,
		person.ID, person.Name, person.Email, person.Position, person.Phone, person.Active,
	)
	if err != nil {
		return domain.Person{}, fmt.Errorf("failed to create person: %w", err)
	}
	return r.GetByID(ctx, person.ID)
}

func (r *personnelRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Person, error) {
	person, err := scanPerson(r.conn.QueryRow(ctx, personnelSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return domain.Person{}, fmt.Errorf("failed to get person %s: %w", id, notFound(err))
	}
	return person, nil
}

func (r *personnelRepository) List(ctx context.Context, activeOnly bool) ([]domain.Person, error) {
	query := personnelSelect
	if activeOnly {
		query += ` WHERE p.activo`
	}
	rows, err := r.conn.Query(ctx, query+` ORDER BY p.nombre ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list personnel: %w", err)
	}
	defer rows.Close()

	people := []domain.Person{}
	for rows.Next() {
		person, scanErr := scanPerson(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan person: %w", scanErr)
		}
		people = append(people, person)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate personnel: %w", rowsErr)
	}
	return people, nil
}

func (r *personnelRepository) Update(ctx context.Context, person domain.Person) (domain.Person, error) {
	tag, err := r.conn.Exec(ctx,
		`UPDATE personal SET nombre = $2, email = $3, cargo = $4, telefono = $5, activo = $6, updated_at = NOW()
		 WHERE id = $1`,
		person.ID, person.Name, person.Email, person.Position, person.Phone, person.Active,
	)
	if err != nil {
		return domain.Person{}, fmt.Errorf("failed to update person %s: %w", person.ID, err)
	}
	if err := requireAffected(tag.RowsAffected()); err != nil {
		return domain.Person{}, fmt.Errorf("failed to update person %s: %w", person.ID, err)
	}
	return r.GetByID(ctx, person.ID)
}

func (r *personnelRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.conn.Exec(ctx, `UPDATE personal SET activo = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to set person %s active=%t: %w", id, active, err)
	}
	return requireAffected(tag.RowsAffected())
}

func (r *personnelRepository) SetRole(ctx context.Context, id uuid.UUID, role domain.Role) error {
	_, err := r.conn.Exec(ctx,
		`INSERT INTO user_roles (user_id, rol) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET rol = EXCLUDED.rol, updated_at = NOW()`,
		id, string(role),
	)
	if err != nil {
		return fmt.Errorf("failed to assign role to %s: %w", id, err)
	}
	return nil
}

func (r *personnelRepository) GetRole(ctx context.Context, id uuid.UUID) (domain.Role, error) {
	var role string
	if err := r.conn.QueryRow(ctx, `SELECT rol FROM user_roles WHERE user_id = $1`, id).Scan(&role); err != nil {
		return "", fmt.Errorf("failed to get role for %s: %w", id, notFound(err))
	}
	return domain.Role(role), nil
}

func scanPerson(row pgx.Row) (domain.Person, error) {
	var (
		person domain.Person
		role   pgtype.Text
	)
	if err := row.Scan(
		&person.ID,
		&person.Name,
		&person.Email,
		&person.Position,
		&person.Phone,
		&person.Active,
		&role,
		&person.CreatedAt,
		&person.UpdatedAt,
	); err != nil {
		return domain.Person{}, err
	}
	if role.Valid {
		person.Role = domain.Role(role.String)
	}
	return person, nil
}
