package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricehist/internal/model"
)

// Field selectors shared by every container layout.
const (
	priceSelector     = "span.price-format"
	scoreSelector     = ".stars"
	opinionsSelector  = ".link--accent"
	shopSelector      = "a.store-logo img"
	deliverySelector  = ".product-delivery-info"
	availableSelector = ".product-availability"
)

// Parser turns a listing page into offers using the first strategy that finds containers.
type Parser struct {
	Strategies []Strategy
}

func NewParser() *Parser {
	return &Parser{Strategies: DefaultStrategies()}
}

func (p *Parser) Parse(html string) ([]model.Offer, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ExtractionError{Offer: -1, Reason: "invalid document", Err: err}
	}
	return p.ParseDocument(doc)
}

// ParseDocument extracts every offer or fails on the first incomplete one.
func (p *Parser) ParseDocument(doc *goquery.Document) ([]model.Offer, error) {
	for _, s := range p.Strategies {
		items := s.Containers(doc)
		if items.Length() == 0 {
			continue
		}

		offers := make([]model.Offer, 0, items.Length())
		var failed error
		items.EachWithBreak(func(i int, item *goquery.Selection) bool {
			o, err := extractOffer(item)
			if err != nil {
				err.Strategy = s.Name()
				err.Offer = i
				failed = err
				return false
			}
			offers = append(offers, o)
			return true
		})
		if failed != nil {
			return nil, failed
		}
		return offers, nil
	}

	return nil, &ExtractionError{Offer: -1, Reason: "no offers found"}
}

func extractOffer(item *goquery.Selection) (model.Offer, *ExtractionError) {
	var o model.Offer
	var err error

	text, ferr := fieldText(item, priceSelector, FieldPrice)
	if ferr != nil {
		return o, ferr
	}
	if o.Price, err = ParsePrice(text); err != nil {
		return o, malformed(FieldPrice, err)
	}

	text, ferr = fieldText(item, scoreSelector, FieldScore)
	if ferr != nil {
		return o, ferr
	}
	if o.Score, err = ParseScore(text); err != nil {
		return o, malformed(FieldScore, err)
	}

	text, ferr = fieldText(item, opinionsSelector, FieldOpinions)
	if ferr != nil {
		return o, ferr
	}
	if o.Opinions, err = ParseOpinionCount(text); err != nil {
		return o, malformed(FieldOpinions, err)
	}

	img := item.Find(shopSelector).First()
	if img.Length() == 0 {
		return o, &ExtractionError{Field: FieldShop, Reason: "shop logo image not found"}
	}
	alt, ok := img.Attr("alt")
	if !ok {
		return o, &ExtractionError{Field: FieldShop, Reason: "shop logo has no alt text"}
	}
	o.Shop = alt

	text, ferr = fieldText(item, deliverySelector, FieldDelivery)
	if ferr != nil {
		return o, ferr
	}
	total, err := ParseDeliveryTotal(text)
	if err != nil {
		return o, malformed(FieldDelivery, err)
	}
	// a total below the item price stays negative
	if total > 0 {
		o.Delivery = total - o.Price
	}

	text, ferr = fieldText(item, availableSelector, FieldAvailable)
	if ferr != nil {
		return o, ferr
	}
	o.Available = text

	return o, nil
}

func fieldText(item *goquery.Selection, selector, field string) (string, *ExtractionError) {
	node := item.Find(selector).First()
	if node.Length() == 0 {
		return "", &ExtractionError{Field: field, Reason: "node " + selector + " not found"}
	}
	return strings.TrimSpace(node.Text()), nil
}

func malformed(field string, err error) *ExtractionError {
	return &ExtractionError{Field: field, Err: err}
}
