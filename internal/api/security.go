package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/tably/promo-engine/internal/domain/auth"
)

// tenantKey is the context key for the authenticated tenant ID.
type tenantKey struct{}

// TenantFromContext extracts the authenticated tenant ID from the context.
// It returns an empty string when the request was not authenticated.
func TenantFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(tenantKey{}).(string); ok {
		return id
	}
	return ""
}

// HashAPIKey computes the hex-encoded HMAC-SHA256 of a raw API key under the
// given pepper. The same derivation is used when keys are provisioned.
func HashAPIKey(key string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// APIKeyAuth returns a middleware that authenticates requests via the api_key
// header. The key is HMAC-SHA256 hashed with the pepper, looked up in the
// repository, and compared in constant time. The matched key's tenant ID is
// stored in the request context; handlers scope every catalog and order
// operation to it.
func APIKeyAuth(apikeys auth.Repository, pepper []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("api_key")
			if key == "" {
				respondErrorMessage(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			mac := hmac.New(sha256.New, pepper)
			mac.Write([]byte(key))
			hash := mac.Sum(nil)

			info, err := apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
			if err != nil {
				respondErrorMessage(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			// Constant-time comparison guards against timing side-channels even
			// though the lookup already succeeded; the stored hash could differ
			// from what we computed if the repository returns a stale row.
			stored, err := hex.DecodeString(info.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
				respondErrorMessage(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), tenantKey{}, info.TenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
