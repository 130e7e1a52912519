package account

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/ocss/internal/domain"
	"github.com/talkincode/ocss/internal/repository"
	"go.uber.org/zap"
)

// DefaultMinPasswordLength applies when the service is built with a length below 1
const DefaultMinPasswordLength = 8

// Registration is the input of RegisterCustomer
type Registration struct {
	Name     string
	Email    string
	Address  string
	Username string
	Password string
}

// Service handles registration, login and the current session
type Service struct {
	accounts  repository.AccountRepository
	customers repository.CustomerRepository
	staff     repository.StaffRepository
	session   *SessionFile
	minPwLen  int
	now       func() time.Time
}

func NewService(repos *repository.Repositories, session *SessionFile, minPasswordLength int) *Service {
	if minPasswordLength < 1 {
		minPasswordLength = DefaultMinPasswordLength
	}
	return &Service{
		accounts:  repos.Accounts,
		customers: repos.Customers,
		staff:     repos.Staff,
		session:   session,
		minPwLen:  minPasswordLength,
		now:       time.Now,
	}
}

// RegisterCustomer creates a customer profile and its login account
func (s *Service) RegisterCustomer(ctx context.Context, r Registration) (*domain.Customer, *domain.Account, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	switch {
	case r.Name == "":
		return nil, nil, errors.Wrap(domain.ErrInvalidArgument, "name is required")
	case r.Username == "":
		return nil, nil, errors.Wrap(domain.ErrInvalidArgument, "username is required")
	case !strings.Contains(r.Email, "@"):
		return nil, nil, errors.Wrapf(domain.ErrInvalidArgument, "email %q", r.Email)
	case len(r.Password) < s.minPwLen:
		return nil, nil, errors.Wrapf(domain.ErrInvalidArgument, "password shorter than %d characters", s.minPwLen)
	}
	if _, err := s.accounts.GetByUsername(ctx, r.Username); err == nil {
		return nil, nil, errors.Wrapf(domain.ErrInvalidArgument, "username %q is taken", r.Username)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}

	c := &domain.Customer{Name: r.Name, Email: r.Email, Address: strings.TrimSpace(r.Address)}
	if err := s.customers.Create(ctx, c); err != nil {
		return nil, nil, err
	}
	a := &domain.Account{Username: r.Username, Password: r.Password, UserType: domain.UserTypeCustomer, CustomerID: &c.ID}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, nil, err
	}
	zap.L().Info("customer registered", zap.Int64("customer_id", c.ID), zap.String("username", a.Username))
	return c, a, nil
}

// Login checks the credentials and stores the session
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	a, err := s.accounts.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !a.Verify(password) {
		zap.L().Warn("login rejected", zap.String("username", username))
		return nil, domain.ErrInvalidCredentials
	}
	sess := &Session{AccountID: a.ID, Username: a.Username, UserType: a.UserType, LoginAt: s.now()}
	if a.CustomerID != nil {
		sess.CustomerID = *a.CustomerID
	}
	if a.StaffID != nil {
		sess.StaffID = *a.StaffID
	}
	if err := s.session.Save(sess); err != nil {
		return nil, err
	}
	zap.L().Info("login", zap.String("username", a.Username), zap.String("user_type", a.UserType))
	return sess, nil
}

func (s *Service) Logout() error {
	return s.session.Clear()
}

// Current returns the logged in session or nil
func (s *Service) Current() *Session {
	return s.session.Load()
}

// CreateStaff creates a staff member and its login account
func (s *Service) CreateStaff(ctx context.Context, username, name, password string) (*domain.Staff, *domain.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil, errors.Wrap(domain.ErrInvalidArgument, "username is required")
	}
	st := &domain.Staff{Username: username, Name: strings.TrimSpace(name)}
	if err := s.staff.Create(ctx, st); err != nil {
		return nil, nil, err
	}
	a := &domain.Account{Username: username, Password: password, UserType: domain.UserTypeStaff, StaffID: &st.ID}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, nil, err
	}
	return st, a, nil
}
