// Package splitter divides a multi-store order into one division order per
// store. Each store bucket is written in its own transaction; the original is
// deleted only after every bucket succeeded so a failed split can be retried.
package splitter

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storeorders/internal/divisions"
	"github.com/angelmondragon/storeorders/internal/orders"
	"github.com/angelmondragon/storeorders/pkg/db/models"
	"github.com/angelmondragon/storeorders/pkg/enums"
	pkgerrors "github.com/angelmondragon/storeorders/pkg/errors"
	"github.com/angelmondragon/storeorders/pkg/logger"
	"github.com/angelmondragon/storeorders/pkg/metrics"
	"github.com/angelmondragon/storeorders/pkg/outbox"
	"github.com/angelmondragon/storeorders/pkg/outbox/payloads"
	"github.com/angelmondragon/storeorders/pkg/types"
)

const (
	warnStoreNotFound  = "store not found; division left unassigned"
	warnAlreadyCreated = "division already exists"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type storeResolver interface {
	ResolveByName(ctx context.Context, name string) (*models.Store, error)
}

// Params wires a Splitter. Metrics may be nil.
type Params struct {
	Repository orders.Repository
	Tx         txRunner
	Outbox     outboxPublisher
	Stores     storeResolver
	Logger     *logger.Logger
	Metrics    *metrics.OrderMetrics
}

type Splitter struct {
	repo    orders.Repository
	tx      txRunner
	outbox  outboxPublisher
	stores  storeResolver
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
}

// New validates params and returns a Splitter.
func New(params Params) (*Splitter, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("store resolver required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Splitter{
		repo:    params.Repository,
		tx:      params.Tx,
		outbox:  params.Outbox,
		stores:  params.Stores,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// Bucket is the share of an order that goes to one store.
type Bucket struct {
	StoreName string
	Items     types.OrderItems
	Subtotal  decimal.Decimal
}

// ShouldSplit reports whether items span more than one store.
func ShouldSplit(items types.OrderItems) bool {
	return len(items.StoreNames()) > 1
}

// GroupByStore buckets items by store in first-seen order. Items without a
// store name share the unknown-store bucket. Subtotals use the discounted
// price when present.
func GroupByStore(items types.OrderItems) []Bucket {
	index := make(map[string]int)
	buckets := make([]Bucket, 0)
	for _, item := range items {
		key := item.StoreKey()
		pos, ok := index[key]
		if !ok {
			pos = len(buckets)
			index[key] = pos
			buckets = append(buckets, Bucket{StoreName: key, Subtotal: decimal.Zero})
		}
		buckets[pos].Items = append(buckets[pos].Items, item)
		buckets[pos].Subtotal = buckets[pos].Subtotal.Add(item.LineTotal())
	}
	return buckets
}

// SplitOrder divides the original order into per-store divisions. Buckets that
// already have a division for this original are reported as successful and
// left untouched. When any bucket fails the original is kept and the result is
// returned together with a PartialFailure error.
func (s *Splitter) SplitOrder(ctx context.Context, originalOrderID uuid.UUID) (*orders.SplitResult, error) {
	original, err := s.repo.FindByID(ctx, originalOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if len(original.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items to split")
	}
	if divisions.IsDivisionOrder(original) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is already a division")
	}

	ref := original.Reference()
	logCtx := s.logg.WithOriginalRef(s.logg.WithOrderID(ctx, original.ID.String()), ref)

	buckets := GroupByStore(original.Items)
	result := &orders.SplitResult{
		OriginalOrderID: original.ID,
		TotalStores:     len(buckets),
		PerStore:        make([]orders.StoreSplitResult, 0, len(buckets)),
	}

	var failures error
	for _, bucket := range buckets {
		entry, err := s.splitBucket(ctx, original, ref, bucket)
		s.metrics.IncSplit(err == nil)
		if err != nil {
			entry.Error = err.Error()
			failures = multierr.Append(failures, fmt.Errorf("store %q: %w", bucket.StoreName, err))
			s.logg.Error(s.logg.WithField(logCtx, "store_name", bucket.StoreName), "division split failed", err)
		} else {
			entry.Success = true
			result.SuccessfulSplits++
			if entry.Warning == warnStoreNotFound {
				s.logg.Warn(s.logg.WithField(logCtx, "store_name", bucket.StoreName), warnStoreNotFound)
			}
		}
		result.PerStore = append(result.PerStore, entry)
	}

	if failures != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodePartialFailure, failures, "order split partially failed").WithDetails(result)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, original.ID)
	})
	if err != nil {
		s.logg.Error(logCtx, "failed to delete original after split", err)
		return result, pkgerrors.Wrap(pkgerrors.CodePartialFailure, err, "divisions created but original order was kept").WithDetails(result)
	}

	result.Success = true
	s.logg.Info(s.logg.WithField(logCtx, "divisions", result.SuccessfulSplits), "order split into divisions")
	return result, nil
}

func (s *Splitter) splitBucket(ctx context.Context, original *models.Order, ref string, bucket Bucket) (orders.StoreSplitResult, error) {
	entry := orders.StoreSplitResult{StoreName: bucket.StoreName}

	existing, err := s.repo.FindDivisionByStore(ctx, original.ID, bucket.StoreName)
	switch {
	case err == nil:
		entry.DivisionID = &existing.ID
		entry.Warning = warnAlreadyCreated
		return entry, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return entry, fmt.Errorf("check existing division: %w", err)
	}

	store, err := s.stores.ResolveByName(ctx, bucket.StoreName)
	if err != nil {
		return entry, fmt.Errorf("resolve store: %w", err)
	}

	division := buildDivision(original, ref, bucket, store)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, division); err != nil {
			return fmt.Errorf("create division: %w", err)
		}
		if err := repo.CreateLineItems(ctx, orders.BuildLineItems(division.ID, bucket.Items)); err != nil {
			return fmt.Errorf("create division line items: %w", err)
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDivisionAssigned,
			AggregateType: enums.AggregateDivision,
			AggregateID:   division.ID,
			Data: payloads.DivisionEvent{
				Kind:            enums.EventDivisionAssigned,
				OriginalOrderID: ref,
				DivisionID:      division.ID,
				StoreName:       division.StoreName(),
				StoreID:         division.AssignedStoreID,
				CustomerPhone:   division.CustomerPhone,
			},
		})
	})
	if err != nil {
		return entry, err
	}

	entry.DivisionID = &division.ID
	if store == nil {
		entry.Warning = warnStoreNotFound
	}
	return entry, nil
}

func buildDivision(original *models.Order, ref string, bucket Bucket, store *models.Store) *models.Order {
	details := divisions.Marker(ref)
	storeName := bucket.StoreName
	pending := enums.StoreResponsePending
	originalID := original.ID

	division := &models.Order{
		ID:                  uuid.New(),
		OrderCode:           original.OrderCode,
		CustomerName:        original.CustomerName,
		CustomerPhone:       original.CustomerPhone,
		CustomerAddress:     original.CustomerAddress,
		CustomerNotes:       original.CustomerNotes,
		Items:               bucket.Items,
		TotalAmount:         bucket.Subtotal,
		Subtotal:            bucket.Subtotal,
		OrderStatus:         enums.OrderStatusPending,
		MainStoreName:       &storeName,
		StoreResponseStatus: &pending,
		Details:             &details,
		OriginalOrderID:     &originalID,
	}
	if store != nil {
		storeID := store.ID
		division.AssignedStoreID = &storeID
		division.OrderStatus = enums.OrderStatusAssigned
	}
	return division
}
