// Package runner executes one sampling pass: stamp a time marker, resolve the product,
// fetch and extract the offers, resolve their shops and store the price facts.
package runner

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"pricehist/internal/crawler"
	"pricehist/internal/dimension"
	"pricehist/internal/lock"
	"pricehist/internal/logger"
	"pricehist/internal/model"
	"pricehist/internal/observability"
)

type State string

const (
	StateStart           State = "START"
	StateDBOpen          State = "DB_OPEN"
	StateTimeStamped     State = "TIME_STAMPED"
	StateProductResolved State = "PRODUCT_RESOLVED"
	StateShopsLoaded     State = "SHOPS_LOADED"
	StateFetched         State = "FETCHED"
	StateExtracted       State = "EXTRACTED"
	StateShopResolved    State = "SHOP_RESOLVED"
	StateFactWritten     State = "FACT_WRITTEN"
	StateCommitted       State = "COMMITTED"
	StateDone            State = "DONE"
	StateFailed          State = "FAILED"
)

// Store is the persistence used by a run.
type Store interface {
	dimension.ShopStore
	dimension.ProductStore
	InsertTime(ctx context.Context, epoch int64) (model.TimeMarker, error)
	ListShops(ctx context.Context) ([]model.Shop, error)
	SaveFacts(ctx context.Context, facts []model.PriceFact) error
	Close() error
}

// Opener connects to the store and prepares its schema.
type Opener func(ctx context.Context) (Store, error)

type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Extractor interface {
	Parse(html string) ([]model.Offer, error)
}

// RunError marks the state a failed run was leaving.
type RunError struct {
	State State
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

type Request struct {
	URL     string
	Product string
}

type Result struct {
	RunID     string
	TimeID    int64
	ProductID int64
	Facts     []model.PriceFact
	NewShops  int
}

type Runner struct {
	Open         Opener
	Fetcher      Fetcher
	Extractor    Extractor
	Lock         lock.Locker           // nil means no lock
	Metrics      *observability.Metrics // nil disables metrics
	Logger       *logger.Logger
	Out          io.Writer // receives one line per stored offer, nil discards
	Now          func() time.Time
	ProductMatch dimension.MatchMode
}

// Run performs one pass. Dimension rows are committed as they are created and
// survive a failure; price facts are committed together at the end or not at all.
func (r *Runner) Run(ctx context.Context, req Request) (res *Result, err error) {
	started := time.Now()
	res = &Result{RunID: uuid.NewString()}
	log := r.Logger
	if log == nil {
		log = logger.Discard()
	}
	log = log.With("run_id", res.RunID, "product", req.Product)

	state := StateStart
	advance := func(next State, args ...any) {
		log.Debug("state", append([]any{"from", state, "to", next}, args...)...)
		state = next
	}
	fail := func(e error) error {
		log.Debug("state", "from", state, "to", StateFailed)
		return &RunError{State: state, Err: e}
	}
	defer func() {
		if r.Metrics != nil {
			r.Metrics.ObserveRun(err, time.Since(started))
		}
	}()

	if r.Lock != nil {
		release, lerr := r.Lock.Acquire(ctx, req.Product)
		if lerr != nil {
			return nil, fail(lerr)
		}
		defer func() {
			if rerr := release(context.Background()); rerr != nil {
				log.Warn("release run lock", "error", rerr)
			}
		}()
	}

	store, err := r.Open(ctx)
	if err != nil {
		return nil, fail(err)
	}
	defer store.Close()
	advance(StateDBOpen)

	marker, err := store.InsertTime(ctx, crawler.CurrentEpochSeconds(r.Now))
	if err != nil {
		return nil, fail(err)
	}
	res.TimeID = marker.ID
	advance(StateTimeStamped, "time_id", marker.ID, "time", marker.Time)

	productID, created, err := dimension.ResolveProduct(ctx, store, req.Product, r.ProductMatch)
	if err != nil {
		return nil, fail(err)
	}
	res.ProductID = productID
	advance(StateProductResolved, "product_id", productID, "created", created)

	known, err := store.ListShops(ctx)
	if err != nil {
		return nil, fail(err)
	}
	shops := dimension.NewShopResolver(store, known)
	advance(StateShopsLoaded, "shops", len(known))

	html, err := r.Fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, fail(err)
	}
	advance(StateFetched, "bytes", len(html))

	offers, err := r.Extractor.Parse(html)
	if err != nil {
		return nil, fail(err)
	}
	advance(StateExtracted, "offers", len(offers))

	batch := make([]model.PriceFact, 0, len(offers))
	for _, o := range offers {
		shopID, err := shops.Resolve(ctx, o.Shop)
		if err != nil {
			return nil, fail(err)
		}
		advance(StateShopResolved, "shop", o.Shop, "shop_id", shopID)

		batch = append(batch, model.PriceFact{
			ShopID:    shopID,
			ProductID: productID,
			TimeID:    marker.ID,
			Score:     o.Score,
			Opinions:  o.Opinions,
			Available: o.Available,
			Price:     o.Price,
			Delivery:  o.Delivery,
		})
		advance(StateFactWritten, "price", o.Price, "delivery", o.Delivery)
	}
	res.NewShops = shops.Created()

	if err := store.SaveFacts(ctx, batch); err != nil {
		return nil, fail(err)
	}
	res.Facts = batch
	advance(StateCommitted, "facts", len(batch))

	if r.Out != nil {
		for i, f := range batch {
			fmt.Fprintf(r.Out, "price: %v from %s (%d)\n", f.Price, offers[i].Shop, f.ShopID)
		}
	}
	if r.Metrics != nil {
		r.Metrics.Offers.Add(float64(len(batch)))
		r.Metrics.ShopsCreated.Add(float64(res.NewShops))
	}

	advance(StateDone)
	log.Info("run finished", "offers", len(batch), "new_shops", res.NewShops, "time_id", marker.ID)
	return res, nil
}
