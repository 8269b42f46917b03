package testing

import (
	"context"
	"fmt"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

// MongoDBContainer is a disposable MongoDB for integration tests. It runs
// as a single-node replica set because the repositories use multi-document
// transactions, which a standalone mongod rejects.
type MongoDBContainer struct {
	Container *mongodb.MongoDBContainer
	URI       string
}

// NewMongoDBContainer starts the container and blocks until it accepts
// connections.
func NewMongoDBContainer(ctx context.Context) (*MongoDBContainer, error) {
	container, err := mongodb.Run(ctx,
		"mongo:6",
		mongodb.WithReplicaSet("rs0"),
	)
	if err != nil {
		return nil, fmt.Errorf("start mongodb container: %w", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve mongodb connection string: %w", err)
	}

	return &MongoDBContainer{Container: container, URI: uri}, nil
}

// Close terminates the container.
func (m *MongoDBContainer) Close(ctx context.Context) error {
	if m.Container == nil {
		return nil
	}
	return m.Container.Terminate(ctx)
}
