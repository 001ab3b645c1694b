package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Food is a catalog item with a live stock counter. Stock (`soni`) is only
// ever mutated through the order transaction ($inc with a quantity guard),
// never set directly by UI-facing handlers.
type Food struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name         string             `bson:"name" json:"name" binding:"required"`
	Price        float64            `bson:"price" json:"price" binding:"required"`
	Category     primitive.ObjectID `bson:"category" json:"category" binding:"required"`
	Subcategory  string             `bson:"subcategory,omitempty" json:"subcategory,omitempty"`
	DepartmentID primitive.ObjectID `bson:"department_id" json:"department_id" binding:"required"`
	Warehouse    string             `bson:"warehouse,omitempty" json:"warehouse,omitempty"`
	Unit         string             `bson:"unit" json:"unit" binding:"required"` // dona, kg, litr, gramm, ...
	Soni         float64            `bson:"soni" json:"soni"`                    // available stock, 3-decimal precision
	Expiration   *time.Time         `bson:"expiration,omitempty" json:"expiration,omitempty"`
	CreatedAt    time.Time          `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt    time.Time          `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

type UpdateFood struct {
	Name        string   `json:"name,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Category    string   `json:"category,omitempty"`
	Subcategory *string  `json:"subcategory,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	Soni        *float64 `json:"soni,omitempty"`
	Warehouse   string   `json:"warehouse,omitempty"`
}
