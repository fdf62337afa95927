package registration

import (
	"time"

	"github.com/AlibekovAA/registration-board/internal/user/domain"
)

type ListStatus string

const (
	StatusIdle    ListStatus = "idle"
	StatusLoading ListStatus = "loading"
	StatusLoaded  ListStatus = "loaded"
	StatusFailed  ListStatus = "failed"
)

type FormState struct {
	Name     string
	Email    string
	InFlight bool
	Error    string
}

type ListState struct {
	Users       []domain.User
	Loading     bool
	Status      ListStatus
	Error       string
	RefreshedAt time.Time
}

// State is a point-in-time copy; callers may keep and modify it freely.
type State struct {
	Form FormState
	List ListState
}

func (s State) clone() State {
	out := s
	if s.List.Users != nil {
		out.List.Users = make([]domain.User, len(s.List.Users))
		copy(out.List.Users, s.List.Users)
	}
	return out
}

func removeUser(users []domain.User, id domain.ID) []domain.User {
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		if u.ID != id {
			out = append(out, u)
		}
	}
	return out
}
