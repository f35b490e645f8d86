package domain

import "time"

// User is a saved payee template used to pre-fill payment rows. It is not
// itself part of batch execution.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Wallet        string    `json:"wallet"`
	DefaultAmount string    `json:"defaultAmount,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
