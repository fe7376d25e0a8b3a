package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/zimid/booking-server-go/internal/httputil"
	"github.com/zimid/booking-server-go/internal/model"
)

type CatalogReader interface {
	ListActiveOffices(ctx context.Context) ([]model.Province, error)
	ListActiveServices(ctx context.Context) ([]model.ServiceType, error)
}

type CatalogHandler struct {
	catalog CatalogReader
}

func NewCatalogHandler(catalog CatalogReader) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/provinces", h.ListProvinces)
	r.Get("/services", h.ListServices)
}

func (h *CatalogHandler) ListProvinces(w http.ResponseWriter, r *http.Request) {
	offices, err := h.catalog.ListActiveOffices(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list provinces")
		httputil.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(offices))
}

func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.catalog.ListActiveServices(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list services")
		httputil.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(services))
}
