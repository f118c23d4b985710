package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ZipcodeDoc is one gazetteer row as stored in Mongo
type ZipcodeDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Zipcode          string             `bson:"zipcode" json:"zipcode"` // 5 digits
	City             string             `bson:"city" json:"city"`
	StateName        string             `bson:"state_name" json:"state_name"`
	State            string             `bson:"state" json:"state"` // Two-letter code
	County           string             `bson:"county" json:"county"`
	Latitude         float64            `bson:"latitude" json:"latitude"`
	Longitude        float64            `bson:"longitude" json:"longitude"`
	GazetteerVersion string             `bson:"gazetteer_version" json:"gazetteer_version"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

// Place is a search hit from the place index
type Place struct {
	Zipcode   string  `json:"zipcode"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	StateName string  `json:"state_name"`
	County    string  `json:"county"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IsValid checks the fields every gazetteer row needs
func (z *ZipcodeDoc) IsValid() bool {
	if len(z.Zipcode) != 5 || z.City == "" || len(z.State) != 2 {
		return false
	}
	for _, r := range z.Zipcode {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
