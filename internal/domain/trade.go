package domain

import "time"

// SellLog is the seller's immutable record of a settled purchase.
type SellLog struct {
	ID        string
	Seller    string
	Buyer     string
	At        time.Time
	Type      ListingType
	ListingID uint64
	Asset     Asset
	Price     Price
	TaxRate   int
}

// BuyLog is the buyer's immutable record of a settled purchase.
type BuyLog struct {
	ID        string
	Buyer     string
	Seller    string
	At        time.Time
	Type      ListingType
	ListingID uint64
	Asset     Asset
	Price     Price
}

// Payment is an outbound transfer instruction to the settlement ledger.
type Payment struct {
	ID     string
	From   string
	To     string
	Amount Price
	Memo   string
}

// Settlement is the outcome of a successful purchase.
type Settlement struct {
	Listing Listing
	TaxRate int
	Tax     Price
	Net     Price
	Sell    SellLog
	Buy     BuyLog
	Payment Payment
}
