package app

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/trebla915/web1111-sub002/internal/domain"
	"github.com/trebla915/web1111-sub002/internal/repository"
)

const (
	DevEventID = "dev-event"
	DevUserID  = "dev-user"
)

// seedDevData gives the in-memory store one event with a handful of tables and a small menu.
func seedDevData(store *repository.MemoryStore) {
	store.PutUser(domain.User{ID: DevUserID, Email: "dev@web1111.local", DisplayName: "Dev Guest"})

	prices := []int64{250, 300, 375, 500, 750}
	for i, price := range prices {
		store.PutTable(domain.Table{
			ID:             fmt.Sprintf("table-%d", i+1),
			EventID:        DevEventID,
			Number:         i + 1,
			Capacity:       6 + 2*i,
			Price:          decimal.NewFromInt(price),
			Location:       "main floor",
			MinimumBottles: i / 2,
		})
	}

	items := []domain.CatalogItem{
		{ID: "grey-goose", Name: "Grey Goose", Kind: domain.CatalogItemBottle, Price: decimal.NewFromInt(100)},
		{ID: "don-julio-1942", Name: "Don Julio 1942", Kind: domain.CatalogItemBottle, Price: decimal.NewFromInt(250)},
		{ID: "moet", Name: "Moët & Chandon", Kind: domain.CatalogItemBottle, Price: decimal.NewFromInt(50)},
		{ID: "cranberry", Name: "Cranberry Juice", Kind: domain.CatalogItemMixer, Price: decimal.NewFromInt(20)},
		{ID: "red-bull", Name: "Red Bull", Kind: domain.CatalogItemMixer, Price: decimal.RequireFromString("12.50")},
	}
	for _, item := range items {
		store.PutCatalogItem(item)
	}
}
