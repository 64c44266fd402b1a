package domain

// Account represents a tenant account as exposed by the /me endpoint.
type Account struct {
	Email       string `json:"email"`
	CompanyName string `json:"company_name"`
}