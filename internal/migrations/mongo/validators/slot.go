package validators

import "go.mongodb.org/mongo-driver/bson"

var SlotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"pool_id",
			"start_time",
			"end_time",
			"status",
			"reserved_count",
			"booked_count",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"pool_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"start_time": bson.M{
				"bsonType": "date",
			},

			"end_time": bson.M{
				"bsonType": "date",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"open",
					"reserved",
					"booked",
					"cancelled",
				},
			},

			"reserved_count": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"booked_count": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"meta": bson.M{
				"bsonType": "object",
				"additionalProperties": bson.M{
					"bsonType": "string",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
