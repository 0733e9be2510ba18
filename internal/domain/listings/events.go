package listings

import (
	"time"
)

type ListingCreatedEvent struct {
	ListingID ListingID `json:"listing_id"`
	SellerID  SellerID  `json:"seller_id"`
	Title     string    `json:"title"`
	Price     float64   `json:"price"`
	At        time.Time `json:"at"`
}

func (e ListingCreatedEvent) EventName() string     { return "listing.created" }
func (e ListingCreatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingCreatedEvent) OccurredAt() time.Time { return e.At }

type ListingUpdatedEvent struct {
	ListingID ListingID `json:"listing_id"`
	SellerID  SellerID  `json:"seller_id"`
	At        time.Time `json:"at"`
}

func (e ListingUpdatedEvent) EventName() string     { return "listing.updated" }
func (e ListingUpdatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingUpdatedEvent) OccurredAt() time.Time { return e.At }

type ListingDeletedEvent struct {
	ListingID ListingID `json:"listing_id"`
	DeletedBy string    `json:"deleted_by"`
	At        time.Time `json:"at"`
}

func (e ListingDeletedEvent) EventName() string     { return "listing.deleted" }
func (e ListingDeletedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingDeletedEvent) OccurredAt() time.Time { return e.At }
