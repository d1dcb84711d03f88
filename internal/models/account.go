package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Authority names granted to accounts
const (
	AuthorityBasicUser = "BASIC_ECOSYSTEM_USER"
	AuthorityAdminUser = "ADMIN_ECOSYSTEM_USER"
)

// AllowedAuthorities are the authorities that may hold a session
var AllowedAuthorities = []string{AuthorityBasicUser, AuthorityAdminUser}

// Account is a registered user
type Account struct {
	ID                  string
	Username            string
	Email               string
	PasswordHash        string
	FirstName           string
	LastName            string
	PhoneNumber         string
	Street1             string
	Street2             string
	City                string
	State               string
	Zip                 string
	Country             string
	Timezone            string
	Authorities         []string
	FailedLoginAttempts *int       // nil means no current failure streak
	LastFailedLoginTime *time.Time // set whenever FailedLoginAttempts is incremented
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Capabilities is the explicit account state consulted at login
type Capabilities struct {
	Enabled               bool
	AccountNonLocked      bool
	AccountNonExpired     bool
	CredentialsNonExpired bool
}

// LockoutPolicy decides when a failure streak locks an account
type LockoutPolicy struct {
	MaxFailedLogins int
	LockoutDuration time.Duration
}

// HasAuthority reports whether the account holds the authority
func (a *Account) HasAuthority(authority string) bool {
	return slices.Contains(a.Authorities, authority)
}

// AddAuthority inserts authority if absent. Returns false when already present.
func (a *Account) AddAuthority(authority string) bool {
	if a.HasAuthority(authority) {
		return false
	}
	a.Authorities = append(a.Authorities, authority)
	return true
}

// Capabilities evaluates the account against the lockout policy at now
func (a *Account) Capabilities(policy LockoutPolicy, now time.Time) Capabilities {
	enabled := false
	for _, allowed := range AllowedAuthorities {
		if a.HasAuthority(allowed) {
			enabled = true
			break
		}
	}

	nonLocked := true
	if policy.MaxFailedLogins > 0 && a.FailedLoginAttempts != nil && *a.FailedLoginAttempts >= policy.MaxFailedLogins {
		if a.LastFailedLoginTime != nil && now.Sub(*a.LastFailedLoginTime) < policy.LockoutDuration {
			nonLocked = false
		}
	}

	return Capabilities{
		Enabled:               enabled,
		AccountNonLocked:      nonLocked,
		AccountNonExpired:     true,
		CredentialsNonExpired: true,
	}
}

// Principal returns the session identity of the account
func (a *Account) Principal() *Principal {
	authorities := make([]string, len(a.Authorities))
	copy(authorities, a.Authorities)
	return &Principal{
		AccountID:   a.ID,
		Username:    a.Username,
		Authorities: authorities,
	}
}

// String never includes the password hash
func (a *Account) String() string {
	failed := "nil"
	if a.FailedLoginAttempts != nil {
		failed = fmt.Sprintf("%d", *a.FailedLoginAttempts)
	}
	return fmt.Sprintf("Account{id=%s, username=%s, email=%s, firstName=%s, lastName=%s, authorities=[%s], failedLoginAttempts=%s}",
		a.ID, a.Username, a.Email, a.FirstName, a.LastName, strings.Join(a.Authorities, ","), failed)
}

// SearchCriteria filters accounts by exact username and/or email
type SearchCriteria struct {
	Username     string
	EmailAddress string
}

// IsEmpty reports whether no filter is set
func (c SearchCriteria) IsEmpty() bool {
	return strings.TrimSpace(c.Username) == "" && strings.TrimSpace(c.EmailAddress) == ""
}

// Registrant is the payload submitted to create an account
type Registrant struct {
	FirstName         string `json:"firstName" validate:"required,min=1,max=32"`
	LastName          string `json:"lastName" validate:"required,min=1,max=32"`
	Username          string `json:"username" validate:"required,min=5,max=12"`
	Password          string `json:"password" validate:"required,min=8,max=20"`
	EmailAddress      string `json:"emailAddress" validate:"required,email"`
	Phone             string `json:"phone" validate:"required"`
	RecaptchaResponse string `json:"g-recaptcha-response"`
}

// String never includes the password
func (r *Registrant) String() string {
	return fmt.Sprintf("Registrant{username=%s, emailAddress=%s, firstName=%s, lastName=%s, phone=%s}",
		r.Username, r.EmailAddress, r.FirstName, r.LastName, r.Phone)
}

// AccountUpdate is the editable part of a profile. Username, email, password and
// authorities are not changeable through it.
type AccountUpdate struct {
	FirstName   string `json:"firstName" validate:"required,min=1,max=32"`
	LastName    string `json:"lastName" validate:"required,min=1,max=32"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=20"`
	Street1     string `json:"street1" validate:"max=64"`
	Street2     string `json:"street2" validate:"max=64"`
	City        string `json:"city" validate:"max=64"`
	State       string `json:"state" validate:"max=32"`
	Zip         string `json:"zip" validate:"max=16"`
	Country     string `json:"country" validate:"max=64"`
	Timezone    string `json:"timezone" validate:"omitempty,timezone"`
}

// Apply copies the editable fields onto the account
func (u *AccountUpdate) Apply(a *Account) {
	a.FirstName = u.FirstName
	a.LastName = u.LastName
	a.PhoneNumber = u.PhoneNumber
	a.Street1 = u.Street1
	a.Street2 = u.Street2
	a.City = u.City
	a.State = u.State
	a.Zip = u.Zip
	a.Country = u.Country
	a.Timezone = u.Timezone
}
