package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"options-engine/internal/models"
)

// PaperGateway implements Gateway against in-memory state. It backs dry
// runs and tests: chains, prices and quotes are seeded by the caller, and
// order submissions are recorded and applied to simulated positions.
type PaperGateway struct {
	mu sync.RWMutex

	connected bool
	chains    map[string][]models.OptionChain // underlying symbol -> chains
	prices    map[string]float64              // underlying symbol -> spot
	quotes    map[string]models.OptionQuote   // contract key -> quote
	positions map[string]models.Position      // position key -> position
	account   map[string]float64              // tag -> value

	orders       []models.OrderIntent
	combos       []models.ComboOrder
	cancelCalls  int
	quoteBatches int
	failKeys     map[string]bool // contract keys whose orders are rejected
}

// NewPaperGateway creates an empty simulated gateway.
func NewPaperGateway() *PaperGateway {
	return &PaperGateway{
		chains:    make(map[string][]models.OptionChain),
		prices:    make(map[string]float64),
		quotes:    make(map[string]models.OptionQuote),
		positions: make(map[string]models.Position),
		account:   map[string]float64{AccountTagNetLiquidation: 1_000_000},
		failKeys:  make(map[string]bool),
	}
}

// Connect marks the gateway as connected.
func (p *PaperGateway) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	return nil
}

// Close disconnects the gateway.
func (p *PaperGateway) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

// SetChain seeds the option chains returned for an underlying.
func (p *PaperGateway) SetChain(symbol string, chains ...models.OptionChain) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chains[symbol] = chains
}

// SetPrice seeds the spot price for an underlying.
func (p *PaperGateway) SetPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = price
}

// SetQuote seeds the quote returned for a contract.
func (p *PaperGateway) SetQuote(q models.OptionQuote) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[q.Contract.Key()] = q
}

// SetPosition seeds an account position.
func (p *PaperGateway) SetPosition(pos models.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions[positionKey(pos)] = pos
}

// SetAccountValue seeds an account summary value.
func (p *PaperGateway) SetAccountValue(tag string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.account[tag] = value
}

// FailOrdersFor makes order submissions for the given contract be rejected.
func (p *PaperGateway) FailOrdersFor(c models.OptionContract) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failKeys[c.Key()] = true
}

// OptionChains returns the seeded chains for the underlying.
func (p *PaperGateway) OptionChains(ctx context.Context, u models.Underlying) ([]models.OptionChain, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]models.OptionChain(nil), p.chains[u.Symbol]...), nil
}

// UnderlyingPrice returns the seeded spot price, or zero when unset.
func (p *PaperGateway) UnderlyingPrice(ctx context.Context, u models.Underlying) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.prices[u.Symbol], nil
}

// Qualify resolves contracts that have a seeded quote, assigning contract
// IDs. Contracts with no market data are dropped, mirroring a brokerage
// rejecting unknown strikes.
func (p *PaperGateway) Qualify(ctx context.Context, contracts []models.OptionContract) ([]models.OptionContract, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	qualified := make([]models.OptionContract, 0, len(contracts))
	for _, c := range contracts {
		if _, ok := p.quotes[c.Key()]; !ok {
			continue
		}
		c.ContractID = uuid.NewString()
		qualified = append(qualified, c)
	}
	return qualified, nil
}

// Quotes returns seeded quotes for the given contracts and counts the
// batch. Contracts without a seeded quote are omitted.
func (p *PaperGateway) Quotes(ctx context.Context, contracts []models.OptionContract) ([]models.OptionQuote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quoteBatches++
	out := make([]models.OptionQuote, 0, len(contracts))
	for _, c := range contracts {
		if q, ok := p.quotes[c.Key()]; ok {
			q.Contract = c
			out = append(out, q)
		}
	}
	return out, nil
}

// Quote returns the seeded quote for a single contract.
func (p *PaperGateway) Quote(ctx context.Context, c models.OptionContract) (*models.OptionQuote, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if q, ok := p.quotes[c.Key()]; ok {
		q.Contract = c
		return &q, nil
	}
	return nil, fmt.Errorf("no quote for %s", c.LocalSymbol())
}

// PlaceOrder records the intent and applies it to the simulated positions.
func (p *PaperGateway) PlaceOrder(ctx context.Context, intent models.OrderIntent) (*OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failKeys[intent.Contract.Key()] {
		return nil, fmt.Errorf("order rejected for %s", intent.Contract.LocalSymbol())
	}
	if intent.ID == "" {
		intent.ID = uuid.NewString()
	}
	intent.PlacedAt = time.Now()
	p.orders = append(p.orders, intent)
	p.applyFill(intent.Contract, intent.Side, intent.Quantity)
	return &OrderResult{OrderID: intent.ID, Status: "FILLED"}, nil
}

// PlaceCombo records the combo and applies each leg.
func (p *PaperGateway) PlaceCombo(ctx context.Context, combo models.ComboOrder) (*OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, leg := range combo.Legs {
		if p.failKeys[leg.Contract.Key()] {
			return nil, fmt.Errorf("combo rejected for %s", leg.Contract.LocalSymbol())
		}
	}
	if combo.ID == "" {
		combo.ID = uuid.NewString()
	}
	combo.PlacedAt = time.Now()
	p.combos = append(p.combos, combo)
	for _, leg := range combo.Legs {
		p.applyFill(leg.Contract, leg.Side, leg.Ratio*combo.Quantity)
	}
	return &OrderResult{OrderID: combo.ID, Status: "FILLED"}, nil
}

// CancelAllOrders counts the global cancel request. Paper orders fill
// immediately, so there is nothing to cancel.
func (p *PaperGateway) CancelAllOrders(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelCalls++
	return nil
}

// Positions returns the simulated account positions.
func (p *PaperGateway) Positions(ctx context.Context) ([]models.Position, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	return out, nil
}

// AccountValue returns the seeded account summary value for the tag.
func (p *PaperGateway) AccountValue(ctx context.Context, tag string) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.account[tag]
	if !ok {
		return 0, fmt.Errorf("no account value for tag %s", tag)
	}
	return v, nil
}

// Orders returns all recorded single-contract intents.
func (p *PaperGateway) Orders() []models.OrderIntent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]models.OrderIntent(nil), p.orders...)
}

// Combos returns all recorded combo orders.
func (p *PaperGateway) Combos() []models.ComboOrder {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]models.ComboOrder(nil), p.combos...)
}

// QuoteBatches returns how many batched quote requests were issued.
func (p *PaperGateway) QuoteBatches() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.quoteBatches
}

// CancelAllCalls returns how many global cancels were requested.
func (p *PaperGateway) CancelAllCalls() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cancelCalls
}

func (p *PaperGateway) applyFill(c models.OptionContract, side models.OrderSide, qty int) {
	pos := models.Position{
		Symbol:   c.Symbol,
		SecType:  models.SecurityOption,
		Exchange: c.Exchange,
		Right:    c.Right,
		Expiry:   c.Expiry,
		Strike:   c.Strike,
	}
	key := positionKey(pos)
	existing, ok := p.positions[key]
	if ok {
		pos = existing
	}
	delta := float64(qty)
	if side == models.OrderSideSell {
		delta = -delta
	}
	pos.Quantity += delta
	if pos.Quantity == 0 {
		delete(p.positions, key)
		return
	}
	p.positions[key] = pos
}

func positionKey(pos models.Position) string {
	if pos.IsOption() {
		return pos.Option().Key()
	}
	return fmt.Sprintf("%s|%s", pos.Symbol, pos.SecType)
}
