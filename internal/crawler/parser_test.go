package crawler

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

type fixtureOffer struct {
	price, score, opinions, shop, delivery, available string
}

func listItem(o fixtureOffer) string {
	return fmt.Sprintf(`
<li class="product-offer js_productOfferGroupItem">
  <div class="product-price"><span class="price-format nowrap"><span class="value">%s</span></span></div>
  <span class="stars js_mini-shop-info">%s</span>
  <a class="dotted link--accent" href="#opinie">%s</a>
  <a class="store-logo" href="/click"><img src="logo.png" alt="%s"></a>
  <div class="product-delivery-info js_deliveryInfo">%s</div>
  <span class="product-availability">%s</span>
</li>`, o.price, o.score, o.opinions, o.shop, o.delivery, o.available)
}

func tableRow(o fixtureOffer) string {
	return fmt.Sprintf(`
<tr class="product-offer">
  <td><a class="store-logo"><img alt="%s"></a></td>
  <td><span class="stars">%s</span> <a class="link--accent">%s</a></td>
  <td><span class="price-format">%s</span><div class="product-delivery-info">%s</div></td>
  <td><span class="product-availability">%s</span></td>
</tr>`, o.shop, o.score, o.opinions, o.price, o.delivery, o.available)
}

func listPage(items ...string) string {
	return `<html><body><ul class="product-offers-group">` + strings.Join(items, "") + `</ul></body></html>`
}

var (
	shopA = fixtureOffer{"100,00 zł", "4,5/5", "123 opinie", "Shop A", "z wysyłką od 110,00 zł", "Wysyłka w 1 dzień"}
	shopB = fixtureOffer{"90,00 zł", "5/5", "7 opinii", "Shop B", "Darmowa wysyłka", "Wysyłka do 3 dni"}
)

func TestParser_ListLayout(t *testing.T) {
	offers, err := NewParser().Parse(listPage(listItem(shopA), listItem(shopB)))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("Expected 2 offers, got %d", len(offers))
	}

	a := offers[0]
	if a.Shop != "Shop A" || a.Price != 100 || a.Score != 4.5 || a.Opinions != 123 {
		t.Errorf("unexpected first offer: %+v", a)
	}
	if a.Delivery != 10 {
		t.Errorf("Expected delivery 10, got %v", a.Delivery)
	}
	if a.Available != "Wysyłka w 1 dzień" {
		t.Errorf("Expected availability verbatim, got %q", a.Available)
	}

	b := offers[1]
	if b.Shop != "Shop B" || b.Price != 90 || b.Delivery != 0 || b.Opinions != 7 || b.Score != 5 {
		t.Errorf("unexpected second offer: %+v", b)
	}
}

func TestParser_TableLayout(t *testing.T) {
	page := `<html><body>
<table class="product-offers"><tbody>` + tableRow(shopA) + `</tbody></table>
<table class="product-offers js_normal-offers"><tbody>` + tableRow(shopB) + `</tbody></table>
</body></html>`

	offers, err := NewParser().Parse(page)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("Expected 2 offers, got %d", len(offers))
	}
	if offers[0].Shop != "Shop A" || offers[1].Shop != "Shop B" {
		t.Errorf("unexpected shops: %q, %q", offers[0].Shop, offers[1].Shop)
	}
	if offers[0].Delivery != 10 {
		t.Errorf("Expected delivery 10, got %v", offers[0].Delivery)
	}
}

func TestParser_ListWinsOverTable(t *testing.T) {
	page := listPage(listItem(shopA)) +
		`<table class="product-offers">` + tableRow(shopB) + `</table>`

	offers, err := NewParser().Parse(page)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(offers) != 1 || offers[0].Shop != "Shop A" {
		t.Errorf("expected only the list offer, got %+v", offers)
	}
}

func TestParser_NegativeDeliveryIsKept(t *testing.T) {
	o := shopA
	o.delivery = "z wysyłką 95,00 zł"
	offers, err := NewParser().Parse(listPage(listItem(o)))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if offers[0].Delivery != -5 {
		t.Errorf("Expected delivery -5, got %v", offers[0].Delivery)
	}
}

func TestParser_NoOffers(t *testing.T) {
	_, err := NewParser().Parse(`<html><body><p>Nie znaleziono</p></body></html>`)

	var ee *ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if ee.Reason != "no offers found" || ee.Offer != -1 {
		t.Errorf("unexpected error context: %+v", ee)
	}
}

func TestParser_MissingPriceAbortsPage(t *testing.T) {
	broken := strings.Replace(listItem(shopB), `class="price-format nowrap"`, `class="nowrap"`, 1)

	offers, err := NewParser().Parse(listPage(listItem(shopA), broken))
	if offers != nil {
		t.Errorf("expected no offers, got %d", len(offers))
	}

	var ee *ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if ee.Field != FieldPrice || ee.Offer != 1 || ee.Strategy != "list" {
		t.Errorf("unexpected error context: %+v", ee)
	}
}

func TestParser_MissingShopAlt(t *testing.T) {
	broken := strings.Replace(listItem(shopA), ` alt="Shop A"`, "", 1)

	_, err := NewParser().Parse(listPage(broken))
	var ee *ExtractionError
	if !errors.As(err, &ee) || ee.Field != FieldShop {
		t.Fatalf("expected shop ExtractionError, got %v", err)
	}
}

func TestParser_MalformedFieldIsWrapped(t *testing.T) {
	o := shopA
	o.score = "brak ocen"

	_, err := NewParser().Parse(listPage(listItem(o)))

	var ee *ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	var mf *MalformedFieldError
	if !errors.As(err, &mf) {
		t.Fatalf("expected wrapped MalformedFieldError, got %v", err)
	}
	if mf.Field != FieldScore || mf.Raw != "brak ocen" {
		t.Errorf("unexpected field error: %+v", mf)
	}
	if !strings.Contains(err.Error(), "offer 0") {
		t.Errorf("error should name the offer: %v", err)
	}
}
