package handlers

import (
	"github.com/BradenHooton/ecosystem-user/internal/models"
)

// AccountResponse is an account as returned to clients
type AccountResponse struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	EmailAddress string   `json:"emailAddress"`
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
	PhoneNumber  string   `json:"phoneNumber,omitempty"`
	Street1      string   `json:"street1,omitempty"`
	Street2      string   `json:"street2,omitempty"`
	City         string   `json:"city,omitempty"`
	State        string   `json:"state,omitempty"`
	Zip          string   `json:"zip,omitempty"`
	Country      string   `json:"country,omitempty"`
	Timezone     string   `json:"timezone,omitempty"`
	Authorities  []string `json:"authorities"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

// LoginResponse is the body of a successful POST /authenticate
type LoginResponse struct {
	Token                 string           `json:"token"`
	Account               *AccountResponse `json:"account"`
	ExpirationEpochMillis int64            `json:"expirationEpochMillis"`
}

func accountModelToResponse(a *models.Account) *AccountResponse {
	authorities := a.Authorities
	if authorities == nil {
		authorities = []string{}
	}
	return &AccountResponse{
		ID:           a.ID,
		Username:     a.Username,
		EmailAddress: a.Email,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		PhoneNumber:  a.PhoneNumber,
		Street1:      a.Street1,
		Street2:      a.Street2,
		City:         a.City,
		State:        a.State,
		Zip:          a.Zip,
		Country:      a.Country,
		Timezone:     a.Timezone,
		Authorities:  authorities,
		CreatedAt:    a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:    a.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func accountModelsToResponse(accounts []*models.Account) []*AccountResponse {
	out := make([]*AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountModelToResponse(a))
	}
	return out
}
