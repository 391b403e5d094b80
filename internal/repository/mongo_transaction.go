package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// MongoTransactionRunner implements domain.TransactionRunner with a session per unit of work.
// Requires a replica set or sharded cluster.
type MongoTransactionRunner struct {
	client *mongo.Client
}

// NewMongoTransactionRunner creates a new transaction runner
func NewMongoTransactionRunner(client *mongo.Client) *MongoTransactionRunner {
	return &MongoTransactionRunner{client: client}
}

// WithinTransaction runs fn with a session context. Writes made through txCtx commit together
// or not at all. The driver re-invokes fn on transient transaction errors.
func (r *MongoTransactionRunner) WithinTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	sess, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(context.Background())

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txOpts)
	return err
}
