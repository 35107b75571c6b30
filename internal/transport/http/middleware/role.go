package middleware

import (
	"net/http"
)

// RequireUserType returns middleware that allows access only to users whose
// JWT user type matches one of the provided types (e.g. domain.UserTypeAdmin).
func RequireUserType(allowedTypes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			for _, ut := range allowedTypes {
				if claims.UserType == ut {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeJSONError(w, http.StatusForbidden, "forbidden")
		})
	}
}
