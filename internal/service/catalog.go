package service

import (
	"context"
	"fmt"

	apperrors "github.com/zimid/booking-server-go/internal/errors"
	"github.com/zimid/booking-server-go/internal/model"
	"github.com/zimid/booking-server-go/internal/repository"
)

// CatalogService serves the active offices and service types in store order.
type CatalogService struct {
	provinces repository.ProvinceRepository
	services  repository.ServiceTypeRepository
}

func NewCatalogService(provinces repository.ProvinceRepository, services repository.ServiceTypeRepository) *CatalogService {
	return &CatalogService{provinces: provinces, services: services}
}

func (s *CatalogService) ListActiveOffices(ctx context.Context) ([]model.Province, error) {
	provinces, err := s.provinces.ListActive(ctx)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list active offices: %w", err))
	}
	return provinces, nil
}

func (s *CatalogService) ListActiveServices(ctx context.Context) ([]model.ServiceType, error) {
	services, err := s.services.ListActive(ctx)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list active services: %w", err))
	}
	return services, nil
}
