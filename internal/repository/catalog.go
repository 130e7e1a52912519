package repository

import (
	"context"

	"github.com/talkincode/ocss/internal/domain"
	"github.com/talkincode/ocss/internal/store"
)

// StoreProductRepository is the record store implementation of ProductRepository
type StoreProductRepository struct {
	c collection[domain.Product]
}

var _ ProductRepository = (*StoreProductRepository)(nil)

func NewStoreProductRepository(s store.RecordStore) *StoreProductRepository {
	return &StoreProductRepository{c: collection[domain.Product]{store: s, entity: domain.EntityProducts}}
}

func (r *StoreProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	return r.c.get(ctx, id)
}

func (r *StoreProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	return r.c.all(ctx)
}

func (r *StoreProductRepository) Create(ctx context.Context, p *domain.Product) error {
	if p.Description == "" {
		p.Description = domain.DefaultProductDescription
	}
	if p.Category == "" {
		p.Category = domain.DefaultProductCategory
	}
	id, err := r.c.add(ctx, p)
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

// StoreStockRepository keeps one inventory row per product
type StoreStockRepository struct {
	store store.RecordStore
}

var _ StockRepository = (*StoreStockRepository)(nil)

func NewStoreStockRepository(s store.RecordStore) *StoreStockRepository {
	return &StoreStockRepository{store: s}
}

func (r *StoreStockRepository) Load(ctx context.Context) ([]domain.StockLevel, error) {
	records, err := r.store.Load(ctx, domain.EntityInventory)
	if err != nil {
		return nil, err
	}
	levels := make([]domain.StockLevel, 0, len(records))
	for _, rec := range records {
		var lvl domain.StockLevel
		if err := domain.FromRecord(rec, &lvl); err != nil {
			return nil, err
		}
		levels = append(levels, lvl)
	}
	return levels, nil
}

func (r *StoreStockRepository) Save(ctx context.Context, levels []domain.StockLevel) error {
	records := make([]domain.Record, 0, len(levels))
	for _, lvl := range levels {
		rec, err := domain.ToRecord(lvl)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	return r.store.Save(ctx, domain.EntityInventory, records)
}
