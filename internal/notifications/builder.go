package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storeorders/pkg/db/models"
	"github.com/angelmondragon/storeorders/pkg/enums"
	"github.com/angelmondragon/storeorders/pkg/i18n"
	"github.com/angelmondragon/storeorders/pkg/outbox/payloads"
)

// Build maps a decoded order or division event to the notifications it
// produces, rendered in the language carried by ctx. Unknown combinations
// produce none.
func Build(ctx context.Context, eventType enums.OutboxEventType, payload interface{}) []models.Notification {
	printer := i18n.Printer(ctx)
	p := func(key string, args ...any) string { return printer.Sprintf(key, args...) }
	switch ev := payload.(type) {
	case payloads.DivisionEvent:
		return buildDivision(p, eventType, ev)
	case *payloads.DivisionEvent:
		if ev == nil {
			return nil
		}
		return buildDivision(p, eventType, *ev)
	case payloads.OrderEvent:
		return buildOrder(p, eventType, ev)
	case *payloads.OrderEvent:
		if ev == nil {
			return nil
		}
		return buildOrder(p, eventType, *ev)
	default:
		return nil
	}
}

type sprintf func(key string, args ...any) string

func buildDivision(pr sprintf, eventType enums.OutboxEventType, p payloads.DivisionEvent) []models.Notification {
	divisionID := optionalID(p.DivisionID)
	link := orderLink(p.DivisionID)
	ref := p.OriginalOrderID
	store := p.StoreName

	switch eventType {
	case enums.EventDivisionAssigned:
		if p.StoreID == nil {
			return []models.Notification{
				adminNote(enums.NotificationTypeDivisionAssigned, divisionID, link,
					pr(i18n.NoteTitleUnassigned),
					pr(i18n.NoteUnassigned, ref, store)),
			}
		}
		return []models.Notification{
			storeNote(p.StoreID, enums.NotificationTypeDivisionAssigned, divisionID, link,
				pr(i18n.NoteTitleNewOrder),
				pr(i18n.NoteDivisionAssigned, ref)),
		}
	case enums.EventDivisionConfirmed:
		notes := []models.Notification{
			adminNote(enums.NotificationTypeDivisionConfirmed, divisionID, link,
				pr(i18n.NoteTitleConfirmed),
				pr(i18n.NoteConfirmed, store, ref)),
		}
		return appendCustomer(notes, p.CustomerPhone, enums.NotificationTypeDivisionConfirmed, divisionID, link,
			pr(i18n.NoteTitleItemsOK),
			pr(i18n.NoteItemsConfirmed, store, ref))
	case enums.EventDivisionDeclined:
		msg := pr(i18n.NoteDeclined, store, ref)
		if reason := strings.TrimSpace(p.Reason); reason != "" {
			msg = pr(i18n.NoteDeclinedReason, store, ref, reason)
		}
		notes := []models.Notification{
			adminNote(enums.NotificationTypeDivisionDeclined, divisionID, link, pr(i18n.NoteTitleDeclined), msg),
		}
		return appendCustomer(notes, p.CustomerPhone, enums.NotificationTypeDivisionDeclined, divisionID, link,
			pr(i18n.NoteTitleUnavailable),
			pr(i18n.NoteItemsUnavailable, store, ref))
	case enums.EventAllDivisionsCompleted:
		notes := []models.Notification{
			adminNote(enums.NotificationTypeOrderCompleted, nil, nil,
				pr(i18n.NoteTitleAllConfirmed),
				pr(i18n.NoteAllConfirmed, ref)),
		}
		return appendCustomer(notes, p.CustomerPhone, enums.NotificationTypeOrderCompleted, nil, nil,
			pr(i18n.NoteTitleYourOrderOK),
			pr(i18n.NoteYourOrderOK, ref))
	default:
		return nil
	}
}

func buildOrder(pr sprintf, eventType enums.OutboxEventType, p payloads.OrderEvent) []models.Notification {
	orderID := optionalID(p.OrderID)
	link := orderLink(p.OrderID)
	ref := orderRef(p)

	switch eventType {
	case enums.EventOrderCreated:
		msg := pr(i18n.NotePlaced, ref)
		if len(p.StoreNames) > 1 {
			msg = pr(i18n.NotePlacedMulti, ref, len(p.StoreNames), strings.Join(p.StoreNames, ", "))
		}
		return []models.Notification{
			adminNote(enums.NotificationTypeNewOrder, orderID, link, pr(i18n.NoteTitleNewOrder), msg),
		}
	case enums.EventOrderAssigned:
		if p.StoreID == nil {
			return nil
		}
		return []models.Notification{
			storeNote(p.StoreID, enums.NotificationTypeNewOrder, orderID, link,
				pr(i18n.NoteTitleNewOrder),
				pr(i18n.NoteAssigned, ref)),
		}
	case enums.EventOrderDelivered:
		title := pr(i18n.NoteTitleDelivered)
		notes := []models.Notification{
			adminNote(enums.NotificationTypeOrderDelivered, orderID, link, title,
				pr(i18n.NoteDelivered, p.StoreName, ref)),
		}
		return appendCustomer(notes, p.CustomerPhone, enums.NotificationTypeOrderDelivered, orderID, link, title,
			pr(i18n.NoteYourDelivery, ref, p.StoreName))
	case enums.EventOrderReturned:
		msg := pr(i18n.NoteReturned, p.StoreName, ref)
		if reason := strings.TrimSpace(p.Reason); reason != "" {
			msg = pr(i18n.NoteReturnedReason, p.StoreName, ref, reason)
		}
		return []models.Notification{
			adminNote(enums.NotificationTypeOrderReturned, orderID, link, pr(i18n.NoteTitleReturned), msg),
		}
	case enums.EventOrderCustomerRejected:
		title := pr(i18n.NoteTitleCustRejected)
		msg := pr(i18n.NoteCustRejected, ref)
		notes := []models.Notification{
			adminNote(enums.NotificationTypeCustomerRejected, orderID, link, title, msg),
		}
		if p.StoreID != nil {
			notes = append(notes, storeNote(p.StoreID, enums.NotificationTypeCustomerRejected, orderID, link, title, msg))
		}
		return notes
	default:
		return nil
	}
}

func adminNote(kind enums.NotificationType, orderID *uuid.UUID, link *string, title, message string) models.Notification {
	return models.Notification{
		RecipientRole: enums.ActorRoleAdmin,
		OrderID:       orderID,
		Type:          kind,
		Title:         title,
		Message:       message,
		Link:          adminLink(link),
	}
}

func storeNote(storeID *uuid.UUID, kind enums.NotificationType, orderID *uuid.UUID, link *string, title, message string) models.Notification {
	return models.Notification{
		RecipientRole: enums.ActorRoleStore,
		StoreID:       storeID,
		OrderID:       orderID,
		Type:          kind,
		Title:         title,
		Message:       message,
		Link:          link,
	}
}

func appendCustomer(notes []models.Notification, phone *string, kind enums.NotificationType, orderID *uuid.UUID, link *string, title, message string) []models.Notification {
	if phone == nil || strings.TrimSpace(*phone) == "" {
		return notes
	}
	trimmed := strings.TrimSpace(*phone)
	return append(notes, models.Notification{
		RecipientRole: enums.ActorRoleCustomer,
		CustomerPhone: &trimmed,
		OrderID:       orderID,
		Type:          kind,
		Title:         title,
		Message:       message,
		Link:          link,
	})
}

func orderRef(p payloads.OrderEvent) string {
	if p.OrderCode != nil && *p.OrderCode != "" {
		return *p.OrderCode
	}
	return p.OrderID.String()
}

func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func orderLink(id uuid.UUID) *string {
	if id == uuid.Nil {
		return nil
	}
	link := fmt.Sprintf("/orders/%s", id)
	return &link
}

func adminLink(link *string) *string {
	if link == nil {
		return nil
	}
	admin := "/admin" + *link
	return &admin
}
