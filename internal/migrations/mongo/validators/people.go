package validators

import "go.mongodb.org/mongo-driver/bson"

var UserValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"external_id", "email", "created_at"},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},
			"external_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"email": bson.M{
				"bsonType":  "string",
				"maxLength": 320,
			},
			"first_name": bson.M{
				"bsonType": "string",
			},
			"last_name": bson.M{
				"bsonType": "string",
			},
		},
	},
}

var ExpertValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"email",
			"first_name",
			"last_name",
			"is_active",
			"is_deleted",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},
			"external_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"email": bson.M{
				"bsonType":  "string",
				"maxLength": 254,
			},
			"first_name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},
			"last_name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},
			"specialization": bson.M{
				"bsonType": []string{"array", "null"},
				"maxItems": 20,
				"items": bson.M{
					"bsonType": "string",
				},
			},
			"experience": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},
			"rating": bson.M{
				"bsonType": []string{"double", "int", "long"},
				"minimum":  0,
				"maximum":  5,
			},
			"is_active": bson.M{
				"bsonType": "bool",
			},
			"is_deleted": bson.M{
				"bsonType": "bool",
			},
		},
	},
}
