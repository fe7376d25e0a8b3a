package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zimid/booking-server-go/internal/model"
)

type stubCatalog struct {
	offices  []model.Province
	services []model.ServiceType
	err      error
}

func (s *stubCatalog) ListActiveOffices(ctx context.Context) ([]model.Province, error) {
	return s.offices, s.err
}

func (s *stubCatalog) ListActiveServices(ctx context.Context) ([]model.ServiceType, error) {
	return s.services, s.err
}

func newCatalogRouter(c CatalogReader) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", NewCatalogHandler(c).Register)
	return r
}

func TestCatalogHandler(t *testing.T) {
	t.Run("lists provinces in store order", func(t *testing.T) {
		c := &stubCatalog{offices: []model.Province{
			{ID: 2, Name: "Harare", Active: true},
			{ID: 1, Name: "Bulawayo", Active: true},
		}}

		rec := serve(newCatalogRouter(c), http.MethodGet, "/api/v1/provinces", "")
		assert.Equal(t, http.StatusOK, rec.Code)

		var got []model.Province
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "Harare", got[0].Name)
		assert.Equal(t, "Bulawayo", got[1].Name)
	})

	t.Run("empty services list", func(t *testing.T) {
		rec := serve(newCatalogRouter(&stubCatalog{}), http.MethodGet, "/api/v1/services", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("store failure", func(t *testing.T) {
		rec := serve(newCatalogRouter(&stubCatalog{err: errors.New("db down")}), http.MethodGet, "/api/v1/provinces", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
