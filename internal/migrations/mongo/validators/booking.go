package validators

import "go.mongodb.org/mongo-driver/bson"

// BookingValidator enforces the booking document shape at the collection
// level. Application-level validation is stricter; this is the backstop
// against writes that bypass the service.
var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"ref_id",
			"origin",
			"destination",
			"pieces",
			"weight_kg",
			"status",
			"created_at",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"ref_id": bson.M{
				"bsonType": "string",
				"pattern":  "^RG-[0-9A-F]{8}$",
			},

			"origin": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 3,
			},

			"destination": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 3,
			},

			"pieces": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  10000,
			},

			"weight_kg": bson.M{
				"bsonType":         []string{"double", "int"},
				"exclusiveMinimum": true,
				"minimum":          0,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"BOOKED",
					"DEPARTED",
					"ARRIVED",
					"DELIVERED",
					"CANCELLED",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
