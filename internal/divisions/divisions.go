// Package divisions recognises division orders from the split marker written
// into their details text and recovers the reference of the original order.
//
// The explicit original_order_id column is the primary parent link; the marker
// helpers remain for rows written before that column existed.
package divisions

import (
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/angelmondragon/storeorders/pkg/db/models"
)

// MarkerPrefix is the literal phrase preceding the original order reference.
const MarkerPrefix = "split from original order "

// Marker builds the details text stamped on a division of ref.
func Marker(ref string) string {
	return MarkerPrefix + ref
}

// IsDivision reports whether details carries the split marker.
func IsDivision(details string) bool {
	return strings.Contains(details, MarkerPrefix)
}

// ExtractOriginalOrderID returns the non-whitespace token that follows the
// marker. It returns false when the marker is absent or is followed only by
// whitespace or the end of the text.
func ExtractOriginalOrderID(details string) (string, bool) {
	idx := strings.Index(details, MarkerPrefix)
	if idx < 0 {
		return "", false
	}
	rest := details[idx+len(MarkerPrefix):]
	end := strings.IndexFunc(rest, unicode.IsSpace)
	if end < 0 {
		end = len(rest)
	}
	token := rest[:end]
	if token == "" {
		return "", false
	}
	return token, true
}

// IsDivisionOrder reports whether the order is a division, using the explicit
// parent column first and the details marker second.
func IsDivisionOrder(order *models.Order) bool {
	if order == nil {
		return false
	}
	if order.OriginalOrderID != nil && *order.OriginalOrderID != uuid.Nil {
		return true
	}
	_, ok := ExtractOriginalOrderID(order.DetailsText())
	return ok
}

// OriginalRef resolves the reference a division points at. The parent id wins
// whenever it is set since order codes may repeat across originals; the marker
// token is only consulted for legacy rows without the column.
func OriginalRef(order *models.Order) (string, bool) {
	if order == nil {
		return "", false
	}
	if order.OriginalOrderID != nil && *order.OriginalOrderID != uuid.Nil {
		return order.OriginalOrderID.String(), true
	}
	if ref, ok := ExtractOriginalOrderID(order.DetailsText()); ok {
		return ref, true
	}
	return "", false
}

// Matches reports whether order is a division of ref using anchored matching.
// When the row has a parent id and ref is a uuid, only the ids are compared;
// otherwise the marker token must equal ref exactly.
func Matches(order *models.Order, ref string) bool {
	if order == nil || ref == "" {
		return false
	}
	hasParent := order.OriginalOrderID != nil && *order.OriginalOrderID != uuid.Nil
	if hasParent {
		if id, err := uuid.Parse(ref); err == nil {
			return *order.OriginalOrderID == id
		}
	}
	token, ok := ExtractOriginalOrderID(order.DetailsText())
	return ok && token == ref
}
