package taskstore

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/af-corp/taskmind/internal/types"
)

// FirestoreStore keeps tasks in the Firestore collection users/{uid}/tasks.
type FirestoreStore struct {
	client *firestore.Client
}

var _ Store = (*FirestoreStore)(nil)

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) collection(uid string) *firestore.CollectionRef {
	return s.client.Collection(usersCollection).Doc(uid).Collection(tasksCollection)
}

func (s *FirestoreStore) Add(ctx context.Context, uid string, task types.Task) (string, error) {
	ref, _, err := s.collection(uid).Add(ctx, map[string]interface{}(task))
	if err != nil {
		return "", fmt.Errorf("firestore add: %w", err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) List(ctx context.Context, uid string) ([]Document, error) {
	snaps, err := s.collection(uid).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore get all: %w", err)
	}

	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, Document{
			ID:   snap.Ref.ID,
			Data: types.Task(snap.Data()),
		})
	}
	return docs, nil
}

// Update applies fields as field-path updates, so dotted keys address nested
// fields and untouched fields survive. A missing document is ErrNotFound.
func (s *FirestoreStore) Update(ctx context.Context, uid, taskID string, fields types.Task) error {
	_, err := s.collection(uid).Doc(taskID).Update(ctx, fieldUpdates(fields))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("firestore update: %w", err)
	}
	return nil
}

// fieldUpdates converts fields to firestore updates in key order.
func fieldUpdates(fields types.Task) []firestore.Update {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, firestore.Update{Path: k, Value: fields[k]})
	}
	return updates
}
