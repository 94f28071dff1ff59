package plgmodels

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LocalZone is the civil time zone all wall-clock math runs in. The building
// sits in Dhaka; a fixed offset is enough because Bangladesh has no DST.
var LocalZone = time.FixedZone("UTC+06", 6*60*60)

// Reading is one telemetry sample for one plug. Timestamps are stored naive
// UTC (offset subtracted, zone discarded) because the reading store has no
// zone awareness.
type Reading struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
	DeviceID   string             `bson:"device_id" json:"device_id"`
	DeviceName string             `bson:"device_name" json:"device_name"`
	Voltage    float64            `bson:"voltage" json:"voltage"`
	Current    float64            `bson:"current" json:"current"`
	Power      float64            `bson:"power" json:"power"`
	EnergyKWh  float64            `bson:"energy_kWh" json:"energy_kWh"`
}
