package domain

import "time"

type ID string

// User is a registered entry. ID and CreatedAt are assigned by the store and
// never change afterwards.
type User struct {
	ID        ID
	Name      string
	Email     string
	CreatedAt time.Time
}

type NewUser struct {
	Name  string
	Email string
}
