package model

// Offer is one seller row scraped from a product listing page.
type Offer struct {
	Price     float64
	Score     float64
	Opinions  int
	Shop      string
	Delivery  float64 // total with delivery minus item price, 0 when not separately payable
	Available string
}

// TimeMarker identifies one sampling pass.
type TimeMarker struct {
	ID   int64
	Time int64 // epoch seconds
}

type Product struct {
	ID   int64
	Name string
}

type Shop struct {
	ID   int64
	Name string
}

// PriceFact is an immutable observation of one offer during one pass.
type PriceFact struct {
	ShopID    int64
	ProductID int64
	TimeID    int64
	Score     float64
	Opinions  int
	Available string
	Price     float64
	Delivery  float64
}
