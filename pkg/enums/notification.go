package enums

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeNewOrder          NotificationType = "new_order"
	NotificationTypeDivisionAssigned  NotificationType = "division_assigned"
	NotificationTypeDivisionConfirmed NotificationType = "division_confirmed"
	NotificationTypeDivisionDeclined  NotificationType = "division_declined"
	NotificationTypeOrderCompleted    NotificationType = "order_completed"
	NotificationTypeOrderDelivered    NotificationType = "order_delivered"
	NotificationTypeOrderReturned     NotificationType = "order_returned"
	NotificationTypeCustomerRejected  NotificationType = "customer_rejected"
)

var notificationTypes = closedSet[NotificationType]{
	NotificationTypeNewOrder,
	NotificationTypeDivisionAssigned,
	NotificationTypeDivisionConfirmed,
	NotificationTypeDivisionDeclined,
	NotificationTypeOrderCompleted,
	NotificationTypeOrderDelivered,
	NotificationTypeOrderReturned,
	NotificationTypeCustomerRejected,
}

func (n NotificationType) IsValid() bool { return notificationTypes.has(n) }
