package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tably/promo-engine/internal/domain/auth"
)

type mockAPIKeyRepo struct {
	byHash map[string]*auth.APIKeyInfo
}

func (m *mockAPIKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	if info, ok := m.byHash[hash]; ok {
		return info, nil
	}
	return nil, errors.New("api key not found")
}

func TestAPIKeyAuth(t *testing.T) {
	pepper := []byte("test-pepper")
	hash := HashAPIKey("valid-key", pepper)
	repo := &mockAPIKeyRepo{byHash: map[string]*auth.APIKeyInfo{
		hash: {ID: "key-1", TenantID: "tenant-1", KeyHash: hash, Name: "pos"},
	}}

	var gotTenant string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant = TenantFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := APIKeyAuth(repo, pepper)(next)

	t.Run("valid key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/evaluate", nil)
		req.Header.Set("api_key", "valid-key")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "tenant-1", gotTenant)
	})

	t.Run("missing key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/evaluate", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/evaluate", nil)
		req.Header.Set("api_key", "wrong-key")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("stale stored hash", func(t *testing.T) {
		// Repository returns a row whose hash does not match the computed one.
		staleHash := HashAPIKey("other-key", pepper)
		staleRepo := &mockAPIKeyRepo{byHash: map[string]*auth.APIKeyInfo{
			HashAPIKey("valid-key", pepper): {ID: "key-2", TenantID: "tenant-1", KeyHash: staleHash},
		}}
		staleHandler := APIKeyAuth(staleRepo, pepper)(next)

		req := httptest.NewRequest(http.MethodPost, "/evaluate", nil)
		req.Header.Set("api_key", "valid-key")
		rec := httptest.NewRecorder()
		staleHandler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestTenantFromContext_Unauthenticated(t *testing.T) {
	assert.Empty(t, TenantFromContext(context.Background()))
}
