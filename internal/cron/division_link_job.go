package cron

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storeorders/internal/divisions"
	"github.com/angelmondragon/storeorders/pkg/db/models"
	"github.com/angelmondragon/storeorders/pkg/logger"
)

const defaultDivisionLinkBatch = 500

// DivisionLinkJobParams configure the original_order_id backfill.
type DivisionLinkJobParams struct {
	Logger     *logger.Logger
	Repository divisionLinkRepo
	BatchSize  int
}

type divisionLinkRepo interface {
	FindUnlinkedDivisions(ctx context.Context, limit int) ([]models.Order, error)
	FindOriginalByCode(ctx context.Context, code string) (*models.Order, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

// NewDivisionLinkJob fills original_order_id on divisions that only carry the
// details marker. A marker token that parses as a uuid is taken as the parent
// id; otherwise it is looked up as the order code of a surviving original.
// Divisions whose original is gone and was referenced by code stay unlinked
// and keep resolving through the marker.
func NewDivisionLinkJob(params DivisionLinkJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultDivisionLinkBatch
	}
	return &divisionLinkJob{logg: params.Logger, repo: params.Repository, batch: batch}, nil
}

type divisionLinkJob struct {
	logg  *logger.Logger
	repo  divisionLinkRepo
	batch int
}

func (j *divisionLinkJob) Name() string { return "division-link-backfill" }

func (j *divisionLinkJob) Run(ctx context.Context) error {
	rows, err := j.repo.FindUnlinkedDivisions(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("query unlinked divisions: %w", err)
	}

	var (
		errs    error
		linked  int
		skipped int
	)
	for i := range rows {
		parentID, ok, err := j.resolveParent(ctx, &rows[i])
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("division %s: %w", rows[i].ID, err))
			continue
		}
		if !ok {
			skipped++
			continue
		}
		if err := j.repo.Update(ctx, rows[i].ID, map[string]any{"original_order_id": parentID}); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("link division %s: %w", rows[i].ID, err))
			continue
		}
		linked++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned": len(rows),
		"linked":  linked,
		"skipped": skipped,
	})
	j.logg.Info(logCtx, "division link backfill complete")
	return errs
}

func (j *divisionLinkJob) resolveParent(ctx context.Context, division *models.Order) (uuid.UUID, bool, error) {
	ref, ok := divisions.ExtractOriginalOrderID(division.DetailsText())
	if !ok {
		return uuid.Nil, false, nil
	}
	if parentID, err := uuid.Parse(ref); err == nil {
		return parentID, true, nil
	}
	original, err := j.repo.FindOriginalByCode(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	return original.ID, true, nil
}
