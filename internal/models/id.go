package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// IsValidID は文字列がMongoDBのObjectID (24桁の16進数) として正しいかを返します。
func IsValidID(s string) bool {
	return primitive.IsValidObjectID(s)
}

// ParseID は文字列をObjectIDに変換します。
func ParseID(s string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(s)
}
