package completion

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/angelmondragon/storeorders/pkg/db/models"
	"github.com/angelmondragon/storeorders/pkg/enums"
	"github.com/angelmondragon/storeorders/pkg/i18n"
)

// Verdict is the aggregate completion state of one original order, derived
// from its divisions at read time.
type Verdict struct {
	IsComplete           bool                   `json:"isComplete"`
	TotalDivisions       int                    `json:"totalDivisions"`
	AcceptedDivisions    int                    `json:"acceptedDivisions"`
	RejectedDivisions    int                    `json:"rejectedDivisions"`
	PendingDivisions     int                    `json:"pendingDivisions"`
	CompletionPercentage int                    `json:"completionPercentage"`
	Status               enums.CompletionStatus `json:"status"`
	StatusLabel          string                 `json:"statusLabel"`
}

// DivisionInfo summarises one division for display next to its verdict.
type DivisionInfo struct {
	ID                  uuid.UUID                  `json:"id"`
	StoreName           string                     `json:"store_name"`
	AssignedStoreID     *uuid.UUID                 `json:"assigned_store_id,omitempty"`
	StoreResponseStatus *enums.StoreResponseStatus `json:"store_response_status"`
	OrderStatus         enums.OrderStatus          `json:"order_status"`
	RejectionReason     *string                    `json:"rejection_reason"`
}

// DivisionsWithCompletion pairs the division summaries with the verdict
// computed over the same rows.
type DivisionsWithCompletion struct {
	Divisions  []DivisionInfo `json:"divisions"`
	Completion Verdict        `json:"completion"`
}

type classification int

const (
	classPending classification = iota
	classAccepted
	classRejected
)

func classify(status *enums.StoreResponseStatus) classification {
	if status == nil {
		return classPending
	}
	switch {
	case status.IsConfirmed():
		return classAccepted
	case status.IsDeclined():
		return classRejected
	default:
		return classPending
	}
}

// Evaluate computes the verdict over an already fetched division set. Labels
// are rendered in the language carried by ctx.
func Evaluate(ctx context.Context, divisions []models.Order) Verdict {
	total := len(divisions)
	if total == 0 {
		return zeroVerdict(ctx, i18n.KeyNoDivisions)
	}

	var accepted, rejected, pending int
	for i := range divisions {
		switch classify(divisions[i].StoreResponseStatus) {
		case classAccepted:
			accepted++
		case classRejected:
			rejected++
		default:
			pending++
		}
	}

	verdict := Verdict{
		TotalDivisions:       total,
		AcceptedDivisions:    accepted,
		RejectedDivisions:    rejected,
		PendingDivisions:     pending,
		CompletionPercentage: percentage(accepted, total),
	}

	switch {
	case accepted == total:
		verdict.Status = enums.CompletionCompleted
		verdict.IsComplete = true
		verdict.StatusLabel = i18n.Sprintf(ctx, i18n.KeyAllAccepted)
	case rejected == total:
		verdict.Status = enums.CompletionIncomplete
		verdict.StatusLabel = i18n.Sprintf(ctx, i18n.KeyAllRejected)
	case pending == 0:
		verdict.Status = enums.CompletionPartiallyCompleted
		verdict.StatusLabel = i18n.Sprintf(ctx, i18n.KeyPartiallyCompleted, accepted, total)
	default:
		verdict.Status = enums.CompletionIncomplete
		verdict.StatusLabel = i18n.Sprintf(ctx, i18n.KeyPending, pending)
	}
	return verdict
}

func zeroVerdict(ctx context.Context, labelKey string) Verdict {
	return Verdict{
		Status:      enums.CompletionIncomplete,
		StatusLabel: i18n.Sprintf(ctx, labelKey),
	}
}

func percentage(accepted, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(accepted) / float64(total)))
}

func summarise(divisions []models.Order) []DivisionInfo {
	out := make([]DivisionInfo, 0, len(divisions))
	for i := range divisions {
		d := divisions[i]
		out = append(out, DivisionInfo{
			ID:                  d.ID,
			StoreName:           d.StoreName(),
			AssignedStoreID:     d.AssignedStoreID,
			StoreResponseStatus: d.StoreResponseStatus,
			OrderStatus:         d.OrderStatus,
			RejectionReason:     d.RejectionReason,
		})
	}
	return out
}
