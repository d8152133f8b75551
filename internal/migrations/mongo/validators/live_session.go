package validators

import "go.mongodb.org/mongo-driver/bson"

var LiveSessionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"expert_id",
			"title",
			"scheduled_at",
			"duration",
			"max_students",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"expert_id": objectIDString,

			"title": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 200,
			},

			"description": bson.M{
				"bsonType":  "string",
				"maxLength": 2000,
			},

			"session_type": bson.M{
				"bsonType":  "string",
				"maxLength": 50,
			},

			"scheduled_at": bson.M{
				"bsonType": "date",
			},

			"duration": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"max_students": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"status": bson.M{
				"enum": []string{"upcoming", "live", "completed", "cancelled"},
			},

			"booking_seq": bson.M{
				"bsonType": []string{"int", "long"},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
