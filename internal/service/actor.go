package service

import (
	"baburchi-admin/internal/event"
	"baburchi-admin/internal/model"
)

// Actor is the authenticated user on whose behalf a service call runs
type Actor struct {
	ID    string
	Name  string
	Email string
	Role  model.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

func (a Actor) eventActor() *event.Actor {
	return &event.Actor{ID: a.ID, Name: a.Name, Email: a.Email}
}

// ActorFromUser builds an actor from a loaded account
func ActorFromUser(u *model.User) Actor {
	return Actor{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

var (
	// SystemActor performs seeding, imports and CLI maintenance
	SystemActor = Actor{ID: "system", Name: "System", Role: model.RoleAdmin}

	courierActor = Actor{ID: "courier", Name: "Steadfast Courier", Role: model.RoleAdmin}
)
