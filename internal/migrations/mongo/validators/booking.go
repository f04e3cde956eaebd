package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"pool_id",
			"slot_id",
			"assignee_member_id",
			"assignee_user_id",
			"requester_key",
			"assignment_algorithm",
			"rotation_persisted",
			"status",
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

			"slot_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"assignee_member_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"assignee_user_id": bson.M{
				"bsonType": "string",
			},

			"requester_key": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 254,
			},

			"note": bson.M{
				"bsonType":  "string",
				"maxLength": 1000,
			},

			"assignment_algorithm": bson.M{
				"bsonType": "string",
				"enum":     []string{"round_robin"},
			},

			"rotation_persisted": bson.M{
				"bsonType": "bool",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"confirmed",
					"cancelled",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
