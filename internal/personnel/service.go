// Package personnel manages maintenance staff records and their application
// roles.
package personnel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/rpattn/maintops/internal/auth"
	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/repository"
)

type Service struct {
	store repository.Store
}

func NewService(store repository.Store) *Service {
	return &Service{store: store}
}

// Create stores a new person. New records start active.
func (s *Service) Create(ctx context.Context, person domain.Person) (domain.Person, error) {
	if err := auth.RequireRole(ctx, domain.RoleAdmin, domain.RoleSupervisor); err != nil {
		return domain.Person{}, err
	}
	person.ID = uuid.Nil
	person.Active = true
	person.Role = ""
	normalize(&person)
	if err := person.Validate(); err != nil {
		return domain.Person{}, err
	}
	created, err := s.store.Personnel().Create(ctx, person)
	if err != nil {
		return domain.Person{}, fmt.Errorf("failed to create person: %w", err)
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Person, error) {
	return s.store.Personnel().GetByID(ctx, id)
}

// List returns staff ordered by name, optionally only active members.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]domain.Person, error) {
	return s.store.Personnel().List(ctx, activeOnly)
}

// Update replaces the contact fields of a person. Active flag and role are
// left as stored.
func (s *Service) Update(ctx context.Context, person domain.Person) (domain.Person, error) {
	if err := auth.RequireRole(ctx, domain.RoleAdmin, domain.RoleSupervisor); err != nil {
		return domain.Person{}, err
	}
	normalize(&person)
	if err := person.Validate(); err != nil {
		return domain.Person{}, err
	}
	existing, err := s.store.Personnel().GetByID(ctx, person.ID)
	if err != nil {
		return domain.Person{}, err
	}
	person.Active = existing.Active
	updated, err := s.store.Personnel().Update(ctx, person)
	if err != nil {
		return domain.Person{}, fmt.Errorf("failed to update person: %w", err)
	}
	return updated, nil
}

func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (domain.Person, error) {
	if err := auth.RequireRole(ctx, domain.RoleAdmin, domain.RoleSupervisor); err != nil {
		return domain.Person{}, err
	}
	if err := s.store.Personnel().SetActive(ctx, id, active); err != nil {
		return domain.Person{}, err
	}
	return s.store.Personnel().GetByID(ctx, id)
}

// AssignRole sets the application role of a person. Only admins may do this.
func (s *Service) AssignRole(ctx context.Context, id uuid.UUID, rawRole string) (domain.Person, error) {
	if err := auth.RequireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Person{}, err
	}
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return domain.Person{}, err
	}
	if _, err := s.store.Personnel().GetByID(ctx, id); err != nil {
		return domain.Person{}, err
	}
	if err := s.store.Personnel().SetRole(ctx, id, role); err != nil {
		return domain.Person{}, fmt.Errorf("failed to assign role: %w", err)
	}
	log.Printf("[PERSONNEL] %s assigned role %s to %s", auth.Actor(ctx), role, id)
	return s.store.Personnel().GetByID(ctx, id)
}

// Role returns the stored role. Users without a user_roles row are readers.
func (s *Service) Role(ctx context.Context, id uuid.UUID) (domain.Role, error) {
	role, err := s.store.Personnel().GetRole(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.RoleReader, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load role: %w", err)
	}
	return role, nil
}

func normalize(person *domain.Person) {
	person.Name = strings.TrimSpace(person.Name)
	person.Email = strings.ToLower(strings.TrimSpace(person.Email))
	person.Position = strings.TrimSpace(person.Position)
	person.Phone = strings.TrimSpace(person.Phone)
}
