package validators

import "go.mongodb.org/mongo-driver/bson"

// OutboxValidator guards the outbox collection. published_at is required
// but nullable: null marks an undelivered entry, which is what the drain
// query filters on.
var OutboxValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"booking_ref",
			"event_type",
			"payload",
			"created_at",
			"published_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"booking_ref": bson.M{
				"bsonType": "string",
				"pattern":  "^RG-[0-9A-F]{8}$",
			},

			"event_type": bson.M{
				"bsonType": "string",
				"enum": []string{
					"booking.created",
					"booking.departed",
					"booking.arrived",
					"booking.delivered",
					"booking.cancelled",
				},
			},

			"payload": bson.M{
				"bsonType": "binData",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"published_at": bson.M{
				"bsonType": []string{"date", "null"},
			},
		},
	},
}
