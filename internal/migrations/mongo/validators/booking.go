package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"student_id",
			"expert_id",
			"session_type",
			"scheduled_at",
			"duration",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"student_id": objectIDString,
			"expert_id":  objectIDString,

			"live_session_id": objectIDString,

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

			"notes": bson.M{
				"bsonType":  "string",
				"maxLength": 2000,
			},

			"status": bson.M{
				"enum": []string{"pending", "confirmed", "completed", "cancelled"},
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

// objectIDString matches ids stored as their 24 character hex form.
var objectIDString = bson.M{
	"bsonType":  "string",
	"minLength": 24,
	"maxLength": 24,
}
