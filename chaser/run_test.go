// Copyright (c) 2025 Kishore Bharat

package chaser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbharat/chasebot/exchange"
	"github.com/shopspring/decimal"
)

type fakeBooks struct {
	mu   sync.Mutex
	book *exchange.Book
	err  error

	fetches int
}

func (f *fakeBooks) FetchBook(ctx context.Context, coin string) (*exchange.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.book, nil
}

func (f *fakeBooks) setBook(book *exchange.Book) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.book, f.err = book, nil
}

func (f *fakeBooks) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

type createCall struct {
	clientOrderID string
	price         decimal.Decimal
	quantity      decimal.Decimal
}

type editCall struct {
	id    exchange.OrderID
	price decimal.Decimal
}

// fakeGateway records order operations and detects overlapping calls, which
// would mean two tasks are driving the same gateway at once.
type fakeGateway struct {
	inflight atomic.Int32
	overlap  atomic.Bool

	mu        sync.Mutex
	creates   []createCall
	edits     []editCall
	cancels   []exchange.OrderID
	nextID    int
	createErr error
	editErr   error
}

func (f *fakeGateway) enter() {
	if f.inflight.Add(1) != 1 {
		f.overlap.Store(true)
	}
}

func (f *fakeGateway) exit() {
	f.inflight.Add(-1)
}

func (f *fakeGateway) CreateOrder(ctx context.Context, clientOrderID string, side exchange.Side, coin string, price, quantity decimal.Decimal) (exchange.OrderID, error) {
	f.enter()
	defer f.exit()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.creates = append(f.creates, createCall{clientOrderID, price, quantity})
	f.nextID++
	return exchange.OrderID(fmt.Sprintf("order-%d", f.nextID)), nil
}

func (f *fakeGateway) EditOrder(ctx context.Context, id exchange.OrderID, price decimal.Decimal) error {
	f.enter()
	defer f.exit()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, editCall{id, price})
	return nil
}

func (f *fakeGateway) CancelOrder(ctx context.Context, id exchange.OrderID) error {
	f.enter()
	defer f.exit()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, id)
	return nil
}

func (f *fakeGateway) counts() (creates, edits, cancels int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates), len(f.edits), len(f.cancels)
}

func (f *fakeGateway) lastCreate() createCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates[len(f.creates)-1]
}

func (f *fakeGateway) lastEdit() editCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.edits[len(f.edits)-1]
}

func (f *fakeGateway) setEditErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editErr = err
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition was not met within %v", timeout)
}

func fastOptions() *Options {
	return &Options{
		LoopDelay:    time.Millisecond,
		BackoffFloor: time.Millisecond,
		MaxBackoff:   5 * time.Millisecond,
	}
}

func buyIntent() *Intent {
	return &Intent{
		Side:       exchange.SideBuy,
		Coin:       "BTC",
		LimitPrice: decimal.NewFromFloat(100),
		Precision:  2,
		Quote:      decimal.NewFromFloat(1000),
	}
}

func bidBook(price, quantity float64) *exchange.Book {
	return &exchange.Book{
		Bids: []exchange.BookLevel{level(price, quantity)},
	}
}

func TestSessionCreatesAndReprices(t *testing.T) {
	books := &fakeBooks{book: bidBook(99.50, 2)}
	gateway := new(fakeGateway)
	rt := &Runtime{Books: books, Orders: gateway}

	r := NewRegistry(0)
	defer r.Close()

	id, err := r.Start(rt, "tester", buyIntent(), fastOptions())
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, time.Second, func() bool {
		creates, _, _ := gateway.counts()
		return creates == 1
	})
	create := gateway.lastCreate()
	if want := decimal.NewFromFloat(99.51); !create.price.Equal(want) {
		t.Fatalf("want create at %s, got %s", want, create.price)
	}
	wantQty := decimal.NewFromFloat(1000).Div(create.price).Round(8)
	if !create.quantity.Equal(wantQty) {
		t.Fatalf("want quantity %s, got %s", wantQty, create.quantity)
	}

	// The market moves; the resting order must follow.
	books.setBook(bidBook(99.60, 2))
	waitFor(t, time.Second, func() bool {
		_, edits, _ := gateway.counts()
		return edits >= 1
	})
	edit := gateway.lastEdit()
	if want := decimal.NewFromFloat(99.61); !edit.price.Equal(want) {
		t.Fatalf("want edit to %s, got %s", want, edit.price)
	}
	if edit.id != "order-1" {
		t.Fatalf("want edit on order-1, got %s", edit.id)
	}

	if !r.Stop("tester", id) {
		t.Fatalf("session %d must be stoppable", id)
	}
	waitFor(t, time.Second, func() bool {
		return len(r.List("tester")) == 0
	})
	if _, _, cancels := gateway.counts(); cancels != 1 {
		t.Fatalf("want the resting order canceled on stop, got %d cancels", cancels)
	}
	if gateway.overlap.Load() {
		t.Fatalf("gateway calls for a single session must never overlap")
	}
}

func TestSessionStablePriceSendsNoEdit(t *testing.T) {
	books := &fakeBooks{book: bidBook(99.50, 2)}
	gateway := new(fakeGateway)
	rt := &Runtime{Books: books, Orders: gateway}

	r := NewRegistry(0)
	defer r.Close()

	id, err := r.Start(rt, "tester", buyIntent(), fastOptions())
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, time.Second, func() bool {
		creates, _, _ := gateway.counts()
		return creates == 1
	})
	fetched := books.fetchCount()
	waitFor(t, time.Second, func() bool {
		return books.fetchCount() >= fetched+5
	})
	if _, edits, _ := gateway.counts(); edits != 0 {
		t.Fatalf("want no edits while the target price is unchanged, got %d", edits)
	}
	r.Stop("tester", id)
}

func TestSessionEditFailureRecreates(t *testing.T) {
	books := &fakeBooks{book: bidBook(99.50, 2)}
	gateway := new(fakeGateway)
	rt := &Runtime{Books: books, Orders: gateway}

	r := NewRegistry(0)
	defer r.Close()

	id, err := r.Start(rt, "tester", buyIntent(), fastOptions())
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool {
		creates, _, _ := gateway.counts()
		return creates == 1
	})

	gateway.setEditErr(errors.New("exchange rejected the edit"))
	books.setBook(bidBook(99.60, 2))

	// The failed edit drops the order id; the session must place a fresh
	// order at the new target instead of looping on the dead one.
	waitFor(t, time.Second, func() bool {
		creates, _, _ := gateway.counts()
		return creates >= 2
	})
	create := gateway.lastCreate()
	if want := decimal.NewFromFloat(99.61); !create.price.Equal(want) {
		t.Fatalf("want re-create at %s, got %s", want, create.price)
	}
	r.Stop("tester", id)
}

func TestSessionNoCandidateIsNoOp(t *testing.T) {
	// All bids rest at or above the limit price, so no order may be placed.
	books := &fakeBooks{book: bidBook(100.00, 10)}
	gateway := new(fakeGateway)
	rt := &Runtime{Books: books, Orders: gateway}

	r := NewRegistry(0)
	defer r.Close()

	id, err := r.Start(rt, "tester", buyIntent(), fastOptions())
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, time.Second, func() bool {
		return books.fetchCount() >= 5
	})
	if creates, edits, _ := gateway.counts(); creates != 0 || edits != 0 {
		t.Fatalf("want no order operations without a candidate, got %d creates and %d edits", creates, edits)
	}
	r.Stop("tester", id)
	waitFor(t, time.Second, func() bool {
		return len(r.List("tester")) == 0
	})
	if _, _, cancels := gateway.counts(); cancels != 0 {
		t.Fatalf("want no cancel when no order was placed, got %d", cancels)
	}
}

func TestSessionNoCancelOnStop(t *testing.T) {
	books := &fakeBooks{book: bidBook(99.50, 2)}
	gateway := new(fakeGateway)
	rt := &Runtime{Books: books, Orders: gateway}

	r := NewRegistry(0)
	defer r.Close()

	opts := fastOptions()
	opts.NoCancelOnStop = true
	id, err := r.Start(rt, "tester", buyIntent(), opts)
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool {
		creates, _, _ := gateway.counts()
		return creates == 1
	})
	r.Stop("tester", id)
	waitFor(t, time.Second, func() bool {
		return len(r.List("tester")) == 0
	})
	if _, _, cancels := gateway.counts(); cancels != 0 {
		t.Fatalf("want the resting order left alone on stop, got %d cancels", cancels)
	}
}

func TestFailureBackoffGrowth(t *testing.T) {
	s := &Session{}
	s.opts.setDefaults(exchange.SideBuy)
	s.backoff = s.opts.BackoffFloor

	want := []time.Duration{3500, 4250, 5375} // milliseconds, 2s loop + 1.5x growth
	for i, ms := range want {
		if got := s.failureDelay(); got != time.Duration(ms)*time.Millisecond {
			t.Fatalf("failure %d: want %v, got %v", i+1, time.Duration(ms)*time.Millisecond, got)
		}
	}

	for i := 0; i < 20; i++ {
		s.failureDelay()
	}
	if got := s.failureDelay(); got != s.opts.LoopDelay+s.opts.MaxBackoff {
		t.Fatalf("want backoff capped at %v, got %v", s.opts.LoopDelay+s.opts.MaxBackoff, got)
	}

	// Success resets the backoff to the floor.
	s.backoff = s.opts.BackoffFloor
	if got := s.failureDelay(); got != s.opts.LoopDelay+1500*time.Millisecond {
		t.Fatalf("want growth to restart from the floor, got %v", got)
	}
}

type panicBooks struct{}

func (panicBooks) FetchBook(ctx context.Context, coin string) (*exchange.Book, error) {
	panic("boom")
}

func TestCyclePanicIsAbsorbed(t *testing.T) {
	s := &Session{intent: *buyIntent()}
	s.opts.setDefaults(s.intent.Side)
	s.backoff = s.opts.BackoffFloor

	rt := &Runtime{Books: panicBooks{}, Orders: new(fakeGateway)}
	delay := s.cycle(context.Background(), rt)
	if want := s.opts.LoopDelay + 2*s.opts.BackoffFloor; delay != want {
		t.Fatalf("want post-panic delay %v, got %v", want, delay)
	}
}

func TestNotifyThrottling(t *testing.T) {
	books := &fakeBooks{book: bidBook(99.50, 2)}
	gateway := new(fakeGateway)

	var notifies atomic.Int32
	rt := &Runtime{
		Books:  books,
		Orders: gateway,
		Notify: func(ctx context.Context, ownerID, text string) error {
			notifies.Add(1)
			return nil
		},
	}

	r := NewRegistry(0)
	defer r.Close()

	opts := fastOptions()
	opts.NotifyInterval = time.Hour
	id, err := r.Start(rt, "tester", buyIntent(), opts)
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, time.Second, func() bool {
		creates, _, _ := gateway.counts()
		return creates == 1
	})
	for i := 0; i < 5; i++ {
		books.setBook(bidBook(99.50+float64(i+1)*0.01, 2))
		time.Sleep(5 * time.Millisecond)
	}
	waitFor(t, time.Second, func() bool {
		_, edits, _ := gateway.counts()
		return edits >= 1
	})
	if n := notifies.Load(); n != 1 {
		t.Fatalf("want exactly one notification within the interval, got %d", n)
	}
	r.Stop("tester", id)
}
