package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storeorders/pkg/db/models"
	"github.com/angelmondragon/storeorders/pkg/enums"
	pkgerrors "github.com/angelmondragon/storeorders/pkg/errors"
	"github.com/angelmondragon/storeorders/pkg/pagination"
)

// Service is the read side of the notification bell.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, recipient Recipient, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, recipient Recipient) (int64, error)
}

// Recipient identifies whose bell is being read. Stores are scoped by
// StoreID, customers by CustomerPhone; admins share one feed.
type Recipient struct {
	Role          enums.ActorRole
	StoreID       *uuid.UUID
	CustomerPhone string
}

// Validate checks that the recipient carries the identity its role needs.
func (r Recipient) Validate() error {
	switch r.Role {
	case enums.ActorRoleAdmin:
	case enums.ActorRoleStore:
		if r.StoreID == nil || *r.StoreID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "active store id required")
		}
	case enums.ActorRoleCustomer:
		if strings.TrimSpace(r.CustomerPhone) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "customer phone required")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "role cannot read notifications")
	}
	return nil
}

type ListParams struct {
	Recipient  Recipient
	Limit      int
	Cursor     string
	UnreadOnly bool
}

type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if err := params.Recipient.Validate(); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	rows, next, err := s.repo.List(ctx, listQuery{
		Recipient:  params.Recipient,
		Limit:      params.Limit,
		Cursor:     cursor,
		UnreadOnly: params.UnreadOnly,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	result := &ListResult{Items: rows}
	if result.Items == nil {
		result.Items = []models.Notification{}
	}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) MarkRead(ctx context.Context, recipient Recipient, notificationID uuid.UUID) error {
	if err := recipient.Validate(); err != nil {
		return err
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	found, err := s.repo.MarkRead(ctx, recipient, notificationID, s.now().UTC())
	switch {
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	case !found:
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, recipient Recipient) (int64, error) {
	if err := recipient.Validate(); err != nil {
		return 0, err
	}
	n, err := s.repo.MarkAllRead(ctx, recipient, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return n, nil
}
