package repository

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/talkincode/ocss/internal/domain"
	"github.com/talkincode/ocss/internal/store"
)

// StoreAccountRepository is the record store implementation of AccountRepository
type StoreAccountRepository struct {
	c collection[domain.Account]
}

var _ AccountRepository = (*StoreAccountRepository)(nil)

func NewStoreAccountRepository(s store.RecordStore) *StoreAccountRepository {
	return &StoreAccountRepository{c: collection[domain.Account]{store: s, entity: domain.EntityAccounts}}
}

func (r *StoreAccountRepository) Create(ctx context.Context, a *domain.Account) error {
	id, err := r.c.add(ctx, a)
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

func (r *StoreAccountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	return r.c.get(ctx, id)
}

// GetByUsername matches usernames case-insensitively
func (r *StoreAccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	a, err := r.c.first(ctx, func(a *domain.Account) bool { return strings.EqualFold(a.Username, username) })
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, errors.Wrapf(domain.ErrNotFound, "account %q", username)
	}
	return a, nil
}

// StoreCustomerRepository is the record store implementation of CustomerRepository
type StoreCustomerRepository struct {
	c collection[domain.Customer]
}

var _ CustomerRepository = (*StoreCustomerRepository)(nil)

func NewStoreCustomerRepository(s store.RecordStore) *StoreCustomerRepository {
	return &StoreCustomerRepository{c: collection[domain.Customer]{store: s, entity: domain.EntityCustomers}}
}

func (r *StoreCustomerRepository) Create(ctx context.Context, c *domain.Customer) error {
	id, err := r.c.add(ctx, c)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (r *StoreCustomerRepository) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	return r.c.get(ctx, id)
}

func (r *StoreCustomerRepository) List(ctx context.Context) ([]*domain.Customer, error) {
	return r.c.all(ctx)
}

// StoreStaffRepository is the record store implementation of StaffRepository
type StoreStaffRepository struct {
	c collection[domain.Staff]
}

var _ StaffRepository = (*StoreStaffRepository)(nil)

func NewStoreStaffRepository(s store.RecordStore) *StoreStaffRepository {
	return &StoreStaffRepository{c: collection[domain.Staff]{store: s, entity: domain.EntityStaff}}
}

func (r *StoreStaffRepository) Create(ctx context.Context, s *domain.Staff) error {
	id, err := r.c.add(ctx, s)
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

func (r *StoreStaffRepository) GetByID(ctx context.Context, id int64) (*domain.Staff, error) {
	return r.c.get(ctx, id)
}

func (r *StoreStaffRepository) GetByUsername(ctx context.Context, username string) (*domain.Staff, error) {
	s, err := r.c.first(ctx, func(s *domain.Staff) bool { return strings.EqualFold(s.Username, username) })
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.Wrapf(domain.ErrNotFound, "staff %q", username)
	}
	return s, nil
}
