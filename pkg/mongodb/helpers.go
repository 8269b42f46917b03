package mongodb

import "go.mongodb.org/mongo-driver/bson/primitive"

// GenerateIDString returns a new ObjectID hex string. Business identifiers
// (order, exception) are built by prefixing these, so they stay unique
// without a counter collection.
func GenerateIDString() string {
	return primitive.NewObjectID().Hex()
}
