package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore is a Store backed by top-level Firestore collections. Ids are
// auto-generated document ids.
type Firestore struct {
	client *firestore.Client
	logger *slog.Logger
}

func NewFirestore(ctx context.Context, projectID string, logger *slog.Logger) (*Firestore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Firestore client initialized", "project", projectID)
	return &Firestore{client: client, logger: logger}, nil
}

func (f *Firestore) Insert(ctx context.Context, collection string, row Row) (string, error) {
	ref, _, err := f.client.Collection(collection).Add(ctx, map[string]any(insertable(row, time.Now())))
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (f *Firestore) SelectByID(ctx context.Context, collection, id string) (Row, error) {
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return snapshotRow(snap), nil
}

// SelectAll filters on the server and sorts locally, so equality plus
// ordering on another field needs no composite index.
func (f *Firestore) SelectAll(ctx context.Context, collection string, q Query) ([]Row, error) {
	query := f.client.Collection(collection).Query
	if q.Field != "" {
		query = query.Where(q.Field, "==", q.Value)
	} else if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Desc {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var rows []Row
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, snapshotRow(snap))
	}

	if q.Field != "" {
		sortRows(rows, q.OrderBy, q.Desc)
	}
	return rows, nil
}

func (f *Firestore) DeleteByID(ctx context.Context, collection, id string) error {
	ref := f.client.Collection(collection).Doc(id)
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return err
	}
	_, err := ref.Delete(ctx)
	return err
}

func (f *Firestore) DeleteWhere(ctx context.Context, collection, field string, value any) (int64, error) {
	iter := f.client.Collection(collection).Where(field, "==", value).Documents(ctx)
	defer iter.Stop()

	var deleted int64
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return deleted, err
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			return deleted, fmt.Errorf("failed to delete %s/%s: %w", collection, snap.Ref.ID, err)
		}
		deleted++
	}
	return deleted, nil
}

// Ping lists at most one collection to confirm the client can reach the project.
func (f *Firestore) Ping(ctx context.Context) error {
	iter := f.client.Collections(ctx)
	_, err := iter.Next()
	if err != nil && !errors.Is(err, iterator.Done) {
		return err
	}
	return nil
}

func (f *Firestore) Close(ctx context.Context) error {
	return f.client.Close()
}

func snapshotRow(snap *firestore.DocumentSnapshot) Row {
	row := Row(snap.Data())
	row["id"] = snap.Ref.ID
	return row
}
