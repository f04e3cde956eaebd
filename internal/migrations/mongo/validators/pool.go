package validators

import "go.mongodb.org/mongo-driver/bson"

var PoolValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"active",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 200,
			},

			"active": bson.M{
				"bsonType": "bool",
			},

			"last_assigned_member_id": bson.M{
				"bsonType": []string{"string", "null"},
			},

			"member_seq": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},
		},
	},
}

var PoolMemberValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"pool_id",
			"user_id",
			"join_order",
			"active",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"pool_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"join_order": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"active": bson.M{
				"bsonType": "bool",
			},
		},
	},
}
