// Package i18n renders the human-readable status labels and notification
// texts shown to admins, stores and customers in the supported languages.
package i18n

import (
	"context"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys double as the English text.
const (
	KeyNoDivisions        = "no divisions found"
	KeyAllAccepted        = "completed — all stores accepted"
	KeyAllRejected        = "incomplete — all stores rejected"
	KeyPartiallyCompleted = "partially completed — %d/%d stores accepted"
	KeyPending            = "incomplete — %d store(s) still pending"
	KeyStatusError        = "error determining status"

	KeyReadyForDelivery     = "ready for delivery"
	KeyAwaitingConfirmation = "waiting for store confirmation"
	KeyStoreDeclined        = "store declined this order"
	KeyCustomerRejected     = "order rejected by customer"
	KeyAlreadyClosed        = "order already closed"
)

// Notification titles and bodies.
const (
	NoteTitleUnassigned   = "Division needs a store"
	NoteTitleNewOrder     = "New order"
	NoteTitleConfirmed    = "Store confirmed"
	NoteTitleItemsOK      = "Store confirmed your items"
	NoteTitleDeclined     = "Store declined"
	NoteTitleUnavailable  = "Some items are unavailable"
	NoteTitleAllConfirmed = "All stores confirmed"
	NoteTitleYourOrderOK  = "Your order is confirmed"
	NoteTitleDelivered    = "Order delivered"
	NoteTitleReturned     = "Order returned"
	NoteTitleCustRejected = "Customer rejected order"

	NoteUnassigned       = "Order %s has items for %q, which matches no store. Assign it manually."
	NoteDivisionAssigned = "You have a new order from original order %s. Please confirm or decline it."
	NoteConfirmed        = "%s confirmed its part of order %s."
	NoteItemsConfirmed   = "%s confirmed its items of your order %s."
	NoteDeclined         = "%s declined its part of order %s."
	NoteDeclinedReason   = "%s declined its part of order %s. Reason: %s"
	NoteItemsUnavailable = "%s cannot provide its items of your order %s."
	NoteAllConfirmed     = "Every store confirmed order %s. It is ready for delivery."
	NoteYourOrderOK      = "All stores confirmed your order %s."
	NotePlaced           = "Order %s was placed."
	NotePlacedMulti      = "Order %s was placed across %d stores: %s."
	NoteAssigned         = "Order %s was assigned to you. Please confirm or decline it."
	NoteDelivered        = "%s delivered order %s."
	NoteYourDelivery     = "Your order %s from %s was delivered."
	NoteReturned         = "%s returned order %s."
	NoteReturnedReason   = "%s returned order %s. Reason: %s"
	NoteCustRejected     = "The customer rejected order %s."
)

var supported = []language.Tag{language.English, language.Arabic}

var matcher = language.NewMatcher(supported)

var labels = buildCatalog()

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	english := []string{
		KeyNoDivisions, KeyAllAccepted, KeyAllRejected, KeyPartiallyCompleted,
		KeyPending, KeyStatusError, KeyReadyForDelivery, KeyAwaitingConfirmation,
		KeyStoreDeclined, KeyCustomerRejected, KeyAlreadyClosed,

		NoteTitleUnassigned, NoteTitleNewOrder, NoteTitleConfirmed, NoteTitleItemsOK,
		NoteTitleDeclined, NoteTitleUnavailable, NoteTitleAllConfirmed, NoteTitleYourOrderOK,
		NoteTitleDelivered, NoteTitleReturned, NoteTitleCustRejected,
		NoteUnassigned, NoteDivisionAssigned, NoteConfirmed, NoteItemsConfirmed,
		NoteDeclined, NoteDeclinedReason, NoteItemsUnavailable, NoteAllConfirmed,
		NoteYourOrderOK, NotePlaced, NotePlacedMulti, NoteAssigned, NoteDelivered,
		NoteYourDelivery, NoteReturned, NoteReturnedReason, NoteCustRejected,
	}
	for _, key := range english {
		_ = b.SetString(language.English, key, key)
	}

	arabic := map[string]string{
		KeyNoDivisions:          "لا توجد طلبات فرعية",
		KeyAllAccepted:          "مكتمل — وافقت جميع المتاجر",
		KeyAllRejected:          "غير مكتمل — رفضت جميع المتاجر",
		KeyPartiallyCompleted:   "مكتمل جزئيًا — وافق %d من %d متاجر",
		KeyPending:              "غير مكتمل — %d متجر بانتظار الرد",
		KeyStatusError:          "تعذر تحديد الحالة",
		KeyReadyForDelivery:     "جاهز للتوصيل",
		KeyAwaitingConfirmation: "بانتظار تأكيد المتجر",
		KeyStoreDeclined:        "رفض المتجر هذا الطلب",
		KeyCustomerRejected:     "رفض العميل الطلب",
		KeyAlreadyClosed:        "الطلب مغلق",

		NoteTitleUnassigned:   "طلب فرعي بحاجة إلى متجر",
		NoteTitleNewOrder:     "طلب جديد",
		NoteTitleConfirmed:    "أكد المتجر",
		NoteTitleItemsOK:      "أكد المتجر منتجاتك",
		NoteTitleDeclined:     "رفض المتجر",
		NoteTitleUnavailable:  "بعض المنتجات غير متوفرة",
		NoteTitleAllConfirmed: "أكدت جميع المتاجر",
		NoteTitleYourOrderOK:  "تم تأكيد طلبك",
		NoteTitleDelivered:    "تم توصيل الطلب",
		NoteTitleReturned:     "تم إرجاع الطلب",
		NoteTitleCustRejected: "رفض العميل الطلب",

		NoteUnassigned:       "الطلب %[1]s يحتوي على منتجات للمتجر %[2]q الذي لا يطابق أي متجر. يرجى تعيينه يدويًا.",
		NoteDivisionAssigned: "لديك طلب جديد من الطلب الأصلي %s. يرجى تأكيده أو رفضه.",
		NoteConfirmed:        "أكد المتجر %[1]s الجزء الخاص به من الطلب %[2]s.",
		NoteItemsConfirmed:   "أكد المتجر %[1]s منتجاته من طلبك %[2]s.",
		NoteDeclined:         "رفض المتجر %[1]s الجزء الخاص به من الطلب %[2]s.",
		NoteDeclinedReason:   "رفض المتجر %[1]s الجزء الخاص به من الطلب %[2]s. السبب: %[3]s",
		NoteItemsUnavailable: "لا يستطيع المتجر %[1]s توفير منتجاته من طلبك %[2]s.",
		NoteAllConfirmed:     "أكدت جميع المتاجر الطلب %s. الطلب جاهز للتوصيل.",
		NoteYourOrderOK:      "أكدت جميع المتاجر طلبك %s.",
		NotePlaced:           "تم إنشاء الطلب %s.",
		NotePlacedMulti:      "تم إنشاء الطلب %[1]s عبر %[2]d متاجر: %[3]s.",
		NoteAssigned:         "تم تعيين الطلب %s لك. يرجى تأكيده أو رفضه.",
		NoteDelivered:        "قام المتجر %[1]s بتوصيل الطلب %[2]s.",
		NoteYourDelivery:     "تم توصيل طلبك %[1]s من %[2]s.",
		NoteReturned:         "أرجع المتجر %[1]s الطلب %[2]s.",
		NoteReturnedReason:   "أرجع المتجر %[1]s الطلب %[2]s. السبب: %[3]s",
		NoteCustRejected:     "رفض العميل الطلب %s.",
	}
	for key, msg := range arabic {
		_ = b.SetString(language.Arabic, key, msg)
	}
	return b
}

type ctxKey struct{}

// Match picks the best supported language for an Accept-Language header.
func Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, _ := matcher.Match(tags...)
	return supported[idx]
}

// WithLanguage stores the caller's language on the context.
func WithLanguage(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, ctxKey{}, tag)
}

// LanguageFrom returns the language stored on ctx, English when none is set.
func LanguageFrom(ctx context.Context) language.Tag {
	if ctx != nil {
		if tag, ok := ctx.Value(ctxKey{}).(language.Tag); ok {
			return tag
		}
	}
	return language.English
}

// Printer returns a printer for the language stored on ctx.
func Printer(ctx context.Context) *message.Printer {
	return message.NewPrinter(LanguageFrom(ctx), message.Catalog(labels))
}

// Sprintf renders key in the language stored on ctx.
func Sprintf(ctx context.Context, key string, args ...any) string {
	return Printer(ctx).Sprintf(key, args...)
}
