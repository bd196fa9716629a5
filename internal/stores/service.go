package stores

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storeorders/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storeorders/pkg/errors"
)

type storeRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	FindByName(ctx context.Context, name string) (*models.Store, error)
	ListActive(ctx context.Context) ([]models.Store, error)
}

// Service is the read side of stores used by order division and the API.
type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*StoreDTO, error)
	List(ctx context.Context) ([]StoreDTO, error)
	// ResolveByName returns nil without error when no store carries the name.
	ResolveByName(ctx context.Context, name string) (*models.Store, error)
}

type service struct {
	repo storeRepository
}

func NewService(repo storeRepository) (Service, error) {
	if repo == nil {
		return nil, errors.New("store repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*StoreDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	store, err := s.repo.FindByID(ctx, id)
	switch {
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	case store == nil:
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	return FromModel(store), nil
}

func (s *service) List(ctx context.Context) ([]StoreDTO, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stores")
	}
	out := make([]StoreDTO, len(rows))
	for i := range rows {
		out[i] = *FromModel(&rows[i])
	}
	return out, nil
}

func (s *service) ResolveByName(ctx context.Context, name string) (*models.Store, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	store, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve store by name")
	}
	return store, nil
}
