package crawler

import "github.com/PuerkitoBio/goquery"

// Strategy locates the offer containers for one page layout.
type Strategy interface {
	Name() string
	Containers(doc *goquery.Document) *goquery.Selection
}

// DefaultStrategies lists the known layouts in priority order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		SelectorStrategy{Label: "list", Selector: "li.js_productOfferGroupItem"},
		SelectorStrategy{Label: "table", Selector: "table.product-offers tr.product-offer"},
	}
}

// SelectorStrategy matches containers with a single CSS selector.
type SelectorStrategy struct {
	Label    string
	Selector string
}

func (s SelectorStrategy) Name() string { return s.Label }

func (s SelectorStrategy) Containers(doc *goquery.Document) *goquery.Selection {
	return doc.Find(s.Selector)
}
