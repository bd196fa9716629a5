package middleware

import (
	"net/http"

	"github.com/angelmondragon/storeorders/pkg/i18n"
)

// Language resolves Accept-Language once so handlers render labels in the
// caller's language.
func Language() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := i18n.Match(r.Header.Get("Accept-Language"))
			w.Header().Set("Content-Language", tag.String())
			next.ServeHTTP(w, r.WithContext(i18n.WithLanguage(r.Context(), tag)))
		})
	}
}
