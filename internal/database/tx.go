package database

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxRunner runs fn as one atomic unit against the role store. The ownership
// transfer's read-modify-write of both sides must commit together or not at
// all.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// MongoTxRunner executes fn inside a Mongo session transaction. Requires a
// replica-set deployment (the hosted document stores this service targets
// all are).
type MongoTxRunner struct {
	client *mongo.Client
}

func NewMongoTxRunner(client *mongo.Client) *MongoTxRunner {
	return &MongoTxRunner{client: client}
}

func (t *MongoTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// MutexTxRunner serializes transactions under one process-wide mutex. Used
// with the in-memory repositories, where a lost-update race between
// concurrent transfers would otherwise be possible.
type MutexTxRunner struct {
	mu sync.Mutex
}

func NewMutexTxRunner() *MutexTxRunner { return &MutexTxRunner{} }

func (t *MutexTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}
