package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storeorders/api/middleware"
	"github.com/angelmondragon/storeorders/api/responses"
	"github.com/angelmondragon/storeorders/api/validators"
	"github.com/angelmondragon/storeorders/internal/notifications"
	pkgerrors "github.com/angelmondragon/storeorders/pkg/errors"
	"github.com/angelmondragon/storeorders/pkg/logger"
)

// ListNotifications returns paginated notifications addressed to the caller.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		recipient, err := recipientFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.PageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unreadOnly, err := validators.QueryFlag(r, "unreadOnly")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := notifications.ListParams{
			Recipient:  recipient,
			Limit:      page.Limit,
			Cursor:     page.Cursor,
			UnreadOnly: unreadOnly,
		}

		resp, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// MarkNotificationRead marks one of the caller's notifications as read.
func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		recipient, err := recipientFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		notificationID, err := validators.ParseUUIDParam(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRead(r.Context(), recipient, notificationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": notificationID, "read": true})
	}
}

// MarkAllNotificationsRead marks every unread notification of the caller as read.
func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		recipient, err := recipientFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.MarkAllRead(r.Context(), recipient)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}

func recipientFromRequest(r *http.Request) (notifications.Recipient, error) {
	ctx := r.Context()
	recipient := notifications.Recipient{
		Role:          middleware.RoleFromContext(ctx),
		CustomerPhone: middleware.CustomerPhoneFromContext(ctx),
	}
	if raw := middleware.StoreIDFromContext(ctx); raw != "" {
		storeID, err := uuid.Parse(raw)
		if err != nil {
			return recipient, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store id")
		}
		recipient.StoreID = &storeID
	}
	if !recipient.Role.IsValid() {
		return recipient, pkgerrors.New(pkgerrors.CodeForbidden, "role missing")
	}
	return recipient, nil
}
