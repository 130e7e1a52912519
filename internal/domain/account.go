package domain

// User types of an account
const (
	UserTypeCustomer = "customer"
	UserTypeStaff    = "staff"
)

// Account holds login credentials linked to a customer or a staff member.
// Passwords are stored and compared as plain values.
type Account struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	UserType   string `json:"user_type"`
	CustomerID *int64 `json:"customer_id,omitempty"`
	StaffID    *int64 `json:"staff_id,omitempty"`
}

// Verify compares password with the stored one
func (a *Account) Verify(password string) bool {
	return a.Password == password
}

// LinkedID returns the customer or staff id the account belongs to
func (a *Account) LinkedID() int64 {
	switch {
	case a.CustomerID != nil:
		return *a.CustomerID
	case a.StaffID != nil:
		return *a.StaffID
	}
	return 0
}

type Customer struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

type Staff struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}
