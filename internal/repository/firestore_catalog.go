package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/trebla915/web1111-sub002/internal/domain"
)

type FirestoreTableRepository struct {
	client *firestore.Client
}

func NewFirestoreTableRepository(client *firestore.Client) *FirestoreTableRepository {
	return &FirestoreTableRepository{
		client: client,
	}
}

func (f *FirestoreTableRepository) GetByID(ctx context.Context, eventID, tableID string) (*domain.Table, error) {
	snap, err := tableRef(f.client, eventID, tableID).Get(ctx)
	if err != nil {
		return nil, storeError("get table", err)
	}

	var doc tableDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, storeError("decode table", err)
	}

	return toTable(eventID, tableID, doc), nil
}

type FirestoreCatalogRepository struct {
	client *firestore.Client
}

func NewFirestoreCatalogRepository(client *firestore.Client) *FirestoreCatalogRepository {
	return &FirestoreCatalogRepository{
		client: client,
	}
}

func (f *FirestoreCatalogRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.CatalogItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	refs := make([]*firestore.DocumentRef, len(ids))
	for i, id := range ids {
		refs[i] = f.client.Collection(catalogCollection).Doc(id)
	}

	snaps, err := f.client.GetAll(ctx, refs)
	if err != nil {
		return nil, storeError("get catalog items", err)
	}

	items := make([]domain.CatalogItem, 0, len(snaps))
	for i, snap := range snaps {
		if !snap.Exists() {
			return nil, domain.NewNotFoundError("catalog item", ids[i])
		}

		var doc catalogDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, storeError("decode catalog item", err)
		}

		item := domain.CatalogItem{
			ID:   ids[i],
			Name: doc.Name,
			Kind: domain.CatalogItemKind(doc.Kind),
		}
		if doc.Price != nil {
			item.Price = fromFloat(*doc.Price)
		}

		items = append(items, item)
	}

	return items, nil
}

type FirestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) *FirestoreUserRepository {
	return &FirestoreUserRepository{
		client: client,
	}
}

func (f *FirestoreUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	snap, err := f.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, storeError("get user", err)
	}

	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, storeError("decode user", err)
	}

	return &domain.User{
		ID:          id,
		Email:       doc.Email,
		DisplayName: doc.DisplayName,
		FCMToken:    doc.FCMToken,
	}, nil
}
