// Package firestore implements the storage repositories on Cloud Firestore.
// Contacts live in the "contacts" collection, profiles in "users" keyed by
// Google user ID. Reads are retried; writes are attempted once.
package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/becomeliminal/nim-wallet/retry"
)

const (
	contactsCollection = "contacts"
	usersCollection    = "users"
)

// NewClient connects to projectID using application default credentials
// unless opts say otherwise. FIRESTORE_EMULATOR_HOST is honoured by the SDK.
func NewClient(ctx context.Context, projectID string, opts ...option.ClientOption) (*firestore.Client, error) {
	return firestore.NewClient(ctx, projectID, opts...)
}

var readRetry = retry.Config{MaxAttempts: 3, Timeout: retry.DefaultConfig.Timeout}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// classify marks read failures that another attempt cannot fix as permanent.
func classify(err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal:
		return err
	}
	return retry.Permanent(err)
}

// first runs q and returns its first document, or nil when there is none.
func first(ctx context.Context, q firestore.Query) (*firestore.DocumentSnapshot, error) {
	return retry.Do(ctx, readRetry, func(ctx context.Context) (*firestore.DocumentSnapshot, error) {
		iter := q.Limit(1).Documents(ctx)
		defer iter.Stop()

		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil, nil
		}
		if err != nil {
			return nil, classify(err)
		}
		return doc, nil
	})
}

func getDoc(ctx context.Context, ref *firestore.DocumentRef) (*firestore.DocumentSnapshot, error) {
	return retry.Do(ctx, readRetry, func(ctx context.Context) (*firestore.DocumentSnapshot, error) {
		doc, err := ref.Get(ctx)
		if err != nil {
			return nil, classify(err)
		}
		return doc, nil
	})
}
