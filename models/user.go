package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleWaiter  = "afitsant"
	RoleCashier = "kassir"
	RoleAdmin   = "admin"
	RoleManager = "manager"
)

type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	FirstName   string             `bson:"first_name" json:"first_name" binding:"required"`
	LastName    string             `bson:"last_name" json:"last_name"`
	Role        string             `bson:"role" json:"role"`
	Password    string             `bson:"password" json:"-"`
	IsActive    bool               `bson:"is_active" json:"is_active"`
	UserCode    string             `bson:"user_code,omitempty" json:"user_code,omitempty"`
	CardCode    string             `bson:"card_code,omitempty" json:"card_code,omitempty"`
	Permissions []string           `bson:"permissions,omitempty" json:"permissions,omitempty"`
	Percent     float64            `bson:"percent" json:"percent"` // waiter service percentage 0..100
	CreatedAt   time.Time          `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt   time.Time          `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
