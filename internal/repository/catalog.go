package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/zimid/booking-server-go/internal/model"
)

type ProvinceRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Province, error)
	// ListActive returns active provinces in id order; menu numbering depends on it.
	ListActive(ctx context.Context) ([]model.Province, error)
}

type provinceRepo struct {
	db *sqlx.DB
}

func NewProvinceRepository(db *sqlx.DB) ProvinceRepository {
	return &provinceRepo{db: db}
}

func (r *provinceRepo) FindByID(ctx context.Context, id int64) (*model.Province, error) {
	var p model.Province
	err := r.db.GetContext(ctx, &p, `SELECT * FROM provinces WHERE id = $1`, id)
	return HandleNotFound(&p, err)
}

func (r *provinceRepo) ListActive(ctx context.Context) ([]model.Province, error) {
	provinces := []model.Province{}
	err := r.db.SelectContext(ctx, &provinces, `
		SELECT * FROM provinces WHERE active = TRUE ORDER BY id ASC
	`)
	return provinces, err
}

type ServiceTypeRepository interface {
	FindByID(ctx context.Context, id int64) (*model.ServiceType, error)
	ListActive(ctx context.Context) ([]model.ServiceType, error)
}

type serviceTypeRepo struct {
	db *sqlx.DB
}

func NewServiceTypeRepository(db *sqlx.DB) ServiceTypeRepository {
	return &serviceTypeRepo{db: db}
}

func (r *serviceTypeRepo) FindByID(ctx context.Context, id int64) (*model.ServiceType, error) {
	var s model.ServiceType
	err := r.db.GetContext(ctx, &s, `SELECT * FROM services WHERE id = $1`, id)
	return HandleNotFound(&s, err)
}

func (r *serviceTypeRepo) ListActive(ctx context.Context) ([]model.ServiceType, error) {
	services := []model.ServiceType{}
	err := r.db.SelectContext(ctx, &services, `
		SELECT * FROM services WHERE active = TRUE ORDER BY id ASC
	`)
	return services, err
}
