package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultStartingCash is the opening balance for a fresh ledger.
const DefaultStartingCash = 10000.0

// investedTolerance is the float drift allowed between TotalInvested and
// the sum of holding cost bases before validation flags a mismatch.
const investedTolerance = 0.01

// Holding is a currently-owned position in one symbol.
// At most one Holding exists per symbol (case-insensitive).
type Holding struct {
	Symbol       string    `json:"symbol"`
	CompanyName  string    `json:"company_name"`
	Shares       int       `json:"shares"`
	AverageCost  float64   `json:"average_cost"`
	CurrentPrice float64   `json:"current_price"`
	PurchasedAt  time.Time `json:"purchased_at"`
}

// TotalCost returns the remaining cost basis of the position.
func (h Holding) TotalCost() float64 {
	return float64(h.Shares) * h.AverageCost
}

// CurrentValue returns the position value at the last known price.
func (h Holding) CurrentValue() float64 {
	return float64(h.Shares) * h.CurrentPrice
}

// GainLoss returns the unrealized profit or loss on the position.
func (h Holding) GainLoss() float64 {
	return h.CurrentValue() - h.TotalCost()
}

// GainLossPercent returns the unrealized return as a percentage of cost.
func (h Holding) GainLossPercent() float64 {
	cost := h.TotalCost()
	if cost <= 0 {
		return 0
	}
	return h.GainLoss() / cost * 100
}

// TransactionKind distinguishes buys from sells.
type TransactionKind string

const (
	TransactionBuy  TransactionKind = "Buy"
	TransactionSell TransactionKind = "Sell"
)

// Transaction is one append-only trade log entry. Never mutated or deleted.
type Transaction struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"company_name"`
	Kind        TransactionKind `json:"kind"`
	Quantity    int             `json:"quantity"`
	Price       float64         `json:"price"`
	Timestamp   time.Time       `json:"timestamp"`
}

// TotalAmount returns the gross value of the transaction.
func (t Transaction) TotalAmount() float64 {
	return float64(t.Quantity) * t.Price
}

// BuyStatus classifies the outcome of a buy request.
type BuyStatus string

const (
	BuyStatusSuccess           BuyStatus = "success"
	BuyStatusInsufficientFunds BuyStatus = "insufficient_funds"
	BuyStatusInvalidQuantity   BuyStatus = "invalid_quantity"
	BuyStatusAPIError          BuyStatus = "api_error"
)

// BuyResult is the outcome of a buy request. A rejection is a result
// value, not an error, so callers can always tell rejected from executed.
type BuyResult struct {
	Status    BuyStatus `json:"status"`
	Shares    int       `json:"shares,omitempty"`
	TotalCost float64   `json:"total_cost,omitempty"`
	Needed    float64   `json:"needed,omitempty"`
	Available float64   `json:"available,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// IsSuccess reports whether the trade executed.
func (r BuyResult) IsSuccess() bool {
	return r.Status == BuyStatusSuccess
}

// Message returns a human-readable description of the outcome.
func (r BuyResult) Message() string {
	switch r.Status {
	case BuyStatusSuccess:
		return fmt.Sprintf("Successfully bought %d shares for $%.2f", r.Shares, r.TotalCost)
	case BuyStatusInsufficientFunds:
		return fmt.Sprintf("Insufficient funds. You need $%.2f more.", r.Needed-r.Available)
	case BuyStatusInvalidQuantity:
		return "Invalid quantity. Please enter a positive number of shares."
	default:
		return "Error: " + r.Reason
	}
}

// BuyAPIError wraps an upstream quote failure as a buy outcome.
func BuyAPIError(reason string) BuyResult {
	return BuyResult{Status: BuyStatusAPIError, Reason: reason}
}

// SellStatus classifies the outcome of a sell request.
type SellStatus string

const (
	SellStatusSuccess            SellStatus = "success"
	SellStatusNotOwned           SellStatus = "not_owned"
	SellStatusInsufficientShares SellStatus = "insufficient_shares"
	SellStatusInvalidQuantity    SellStatus = "invalid_quantity"
	SellStatusAPIError           SellStatus = "api_error"
)

// SellResult is the outcome of a sell request.
type SellResult struct {
	Status    SellStatus `json:"status"`
	Shares    int        `json:"shares,omitempty"`
	SaleValue float64    `json:"sale_value,omitempty"`
	GainLoss  float64    `json:"gain_loss,omitempty"`
	Owned     int        `json:"owned,omitempty"`
	Requested int        `json:"requested,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// IsSuccess reports whether the trade executed.
func (r SellResult) IsSuccess() bool {
	return r.Status == SellStatusSuccess
}

// Message returns a human-readable description of the outcome.
func (r SellResult) Message() string {
	switch r.Status {
	case SellStatusSuccess:
		if r.GainLoss >= 0 {
			return fmt.Sprintf("Successfully sold %d shares for $%.2f (gain of $%.2f)", r.Shares, r.SaleValue, r.GainLoss)
		}
		return fmt.Sprintf("Successfully sold %d shares for $%.2f (loss of $%.2f)", r.Shares, r.SaleValue, -r.GainLoss)
	case SellStatusNotOwned:
		return "You don't own any shares of this stock."
	case SellStatusInsufficientShares:
		return fmt.Sprintf("You only own %d shares but tried to sell %d.", r.Owned, r.Requested)
	case SellStatusInvalidQuantity:
		return "Invalid quantity. Please enter a positive number of shares."
	default:
		return "Error: " + r.Reason
	}
}

// SellAPIError wraps an upstream quote failure as a sell outcome.
func SellAPIError(reason string) SellResult {
	return SellResult{Status: SellStatusAPIError, Reason: reason}
}

// Ledger is the single writable source of truth for a simulated account:
// cash, holdings with weighted-average cost bases, and the trade log.
// Mutations are not internally synchronized; callers serialize access.
type Ledger struct {
	CashBalance   float64       `json:"cash_balance"`
	Holdings      []Holding     `json:"holdings"`
	TotalInvested float64       `json:"total_invested"`
	Transactions  []Transaction `json:"transactions,omitempty"`
}

// NewLedger creates a fresh ledger. A non-positive startingCash falls
// back to DefaultStartingCash.
func NewLedger(startingCash float64) *Ledger {
	if startingCash <= 0 {
		startingCash = DefaultStartingCash
	}
	return &Ledger{
		CashBalance:  startingCash,
		Holdings:     []Holding{},
		Transactions: []Transaction{},
	}
}

// holdingIndex returns the index of the holding for symbol, or -1.
// Symbol matching is case-insensitive throughout the ledger.
func (l *Ledger) holdingIndex(symbol string) int {
	for i := range l.Holdings {
		if strings.EqualFold(l.Holdings[i].Symbol, symbol) {
			return i
		}
	}
	return -1
}

// Holding returns the position for symbol, if held.
func (l *Ledger) Holding(symbol string) (Holding, bool) {
	if i := l.holdingIndex(symbol); i >= 0 {
		return l.Holdings[i], true
	}
	return Holding{}, false
}

// SharesOwned returns the number of shares held for symbol, 0 if not held.
func (l *Ledger) SharesOwned(symbol string) int {
	if h, ok := l.Holding(symbol); ok {
		return h.Shares
	}
	return 0
}

// CanAfford reports whether the cash balance covers quantity shares at price.
func (l *Ledger) CanAfford(quantity int, price float64) bool {
	return float64(quantity)*price <= l.CashBalance
}

// Buy executes a purchase at the stock's current price. On success the
// holding is created or folded into the existing position at a
// quantity-weighted average cost, cash is deducted, and a Buy
// transaction is appended.
func (l *Ledger) Buy(stock Stock, quantity int) BuyResult {
	if quantity <= 0 {
		return BuyResult{Status: BuyStatusInvalidQuantity}
	}

	totalCost := float64(quantity) * stock.CurrentPrice
	if totalCost > l.CashBalance {
		return BuyResult{
			Status:    BuyStatusInsufficientFunds,
			Needed:    totalCost,
			Available: l.CashBalance,
		}
	}

	if i := l.holdingIndex(stock.Symbol); i >= 0 {
		existing := l.Holdings[i]
		totalShares := existing.Shares + quantity
		totalInvestment := existing.AverageCost*float64(existing.Shares) + totalCost

		l.Holdings[i].Shares = totalShares
		l.Holdings[i].AverageCost = totalInvestment / float64(totalShares)
		l.Holdings[i].CurrentPrice = stock.CurrentPrice
		l.Holdings[i].CompanyName = stock.CompanyName
	} else {
		l.Holdings = append(l.Holdings, Holding{
			Symbol:       strings.ToUpper(stock.Symbol),
			CompanyName:  stock.CompanyName,
			Shares:       quantity,
			AverageCost:  stock.CurrentPrice,
			CurrentPrice: stock.CurrentPrice,
			PurchasedAt:  time.Now(),
		})
	}

	l.CashBalance -= totalCost
	l.TotalInvested += totalCost
	l.appendTransaction(stock.Symbol, stock.CompanyName, TransactionBuy, quantity, stock.CurrentPrice)

	return BuyResult{Status: BuyStatusSuccess, Shares: quantity, TotalCost: totalCost}
}

// Sell executes a sale at currentPrice. Selling the full position removes
// the holding; a partial sell decrements shares and leaves the average
// cost of the remaining lot unchanged.
func (l *Ledger) Sell(symbol string, quantity int, currentPrice float64) SellResult {
	i := l.holdingIndex(symbol)
	if i < 0 {
		return SellResult{Status: SellStatusNotOwned}
	}
	if quantity <= 0 {
		return SellResult{Status: SellStatusInvalidQuantity}
	}

	holding := l.Holdings[i]
	if quantity > holding.Shares {
		return SellResult{
			Status:    SellStatusInsufficientShares,
			Owned:     holding.Shares,
			Requested: quantity,
		}
	}

	saleValue := float64(quantity) * currentPrice
	costRemoved := float64(quantity) * holding.AverageCost

	l.CashBalance += saleValue
	l.TotalInvested -= costRemoved

	if quantity == holding.Shares {
		l.Holdings = append(l.Holdings[:i], l.Holdings[i+1:]...)
	} else {
		l.Holdings[i].Shares -= quantity
	}

	l.appendTransaction(holding.Symbol, holding.CompanyName, TransactionSell, quantity, currentPrice)

	return SellResult{
		Status:    SellStatusSuccess,
		Shares:    quantity,
		SaleValue: saleValue,
		GainLoss:  saleValue - costRemoved,
	}
}

func (l *Ledger) appendTransaction(symbol, companyName string, kind TransactionKind, quantity int, price float64) {
	l.Transactions = append(l.Transactions, Transaction{
		ID:          uuid.NewString(),
		Symbol:      strings.ToUpper(symbol),
		CompanyName: companyName,
		Kind:        kind,
		Quantity:    quantity,
		Price:       price,
		Timestamp:   time.Now(),
	})
}

// UpdatePrices overwrites the current price of each holding whose symbol
// matches one of the given stocks. No other state changes.
func (l *Ledger) UpdatePrices(stocks []Stock) {
	for _, stock := range stocks {
		if i := l.holdingIndex(stock.Symbol); i >= 0 {
			l.Holdings[i].CurrentPrice = stock.CurrentPrice
		}
	}
}

// RecentTransactions returns up to limit transactions, newest last.
// A non-positive limit returns the full log.
func (l *Ledger) RecentTransactions(limit int) []Transaction {
	if limit <= 0 || limit >= len(l.Transactions) {
		return append([]Transaction(nil), l.Transactions...)
	}
	return append([]Transaction(nil), l.Transactions[len(l.Transactions)-limit:]...)
}

// TotalCostBasis returns the sum of cost bases across holdings.
func (l *Ledger) TotalCostBasis() float64 {
	var total float64
	for _, h := range l.Holdings {
		total += h.TotalCost()
	}
	return total
}

// TotalStockValue returns the value of all holdings at current prices.
func (l *Ledger) TotalStockValue() float64 {
	var total float64
	for _, h := range l.Holdings {
		total += h.CurrentValue()
	}
	return total
}

// TotalValue returns cash plus the value of all holdings.
func (l *Ledger) TotalValue() float64 {
	return l.CashBalance + l.TotalStockValue()
}

// TotalGainLoss returns the unrealized profit or loss across holdings.
func (l *Ledger) TotalGainLoss() float64 {
	return l.TotalStockValue() - l.TotalCostBasis()
}

// TotalGainLossPercent returns the unrealized return as a percentage of
// cost basis, 0 when nothing is held.
func (l *Ledger) TotalGainLossPercent() float64 {
	cost := l.TotalCostBasis()
	if cost <= 0 {
		return 0
	}
	return l.TotalGainLoss() / cost * 100
}

// Validate returns a list of integrity problems, empty when the ledger
// is well-formed. Used on load to decide whether a repair pass is needed.
func (l *Ledger) Validate() []string {
	var errs []string

	if l.CashBalance < 0 {
		errs = append(errs, fmt.Sprintf("cash balance cannot be negative: %.2f", l.CashBalance))
	}
	if l.TotalInvested < 0 {
		errs = append(errs, fmt.Sprintf("total invested cannot be negative: %.2f", l.TotalInvested))
	}

	seen := make(map[string]bool, len(l.Holdings))
	for i, h := range l.Holdings {
		if h.Shares <= 0 {
			errs = append(errs, fmt.Sprintf("holding %d (%s) has invalid share count: %d", i, h.Symbol, h.Shares))
		}
		if h.AverageCost <= 0 {
			errs = append(errs, fmt.Sprintf("holding %d (%s) has invalid average cost: %.2f", i, h.Symbol, h.AverageCost))
		}
		if h.CurrentPrice < 0 {
			errs = append(errs, fmt.Sprintf("holding %d (%s) has invalid current price: %.2f", i, h.Symbol, h.CurrentPrice))
		}
		if h.Symbol == "" {
			errs = append(errs, fmt.Sprintf("holding %d has empty symbol", i))
		}
		key := strings.ToUpper(h.Symbol)
		if seen[key] {
			errs = append(errs, fmt.Sprintf("duplicate holding for symbol %s", key))
		}
		seen[key] = true
	}

	if diff := l.TotalInvested - l.TotalCostBasis(); diff > investedTolerance || diff < -investedTolerance {
		errs = append(errs, fmt.Sprintf("total invested %.2f does not match holdings cost basis %.2f", l.TotalInvested, l.TotalCostBasis()))
	}

	return errs
}

// Repair normalizes a ledger loaded from storage: drops holdings failing
// the per-holding checks, merges case-insensitive duplicate symbols at a
// quantity-weighted average cost, clamps negative cash to zero, and
// recomputes TotalInvested from the surviving holdings. Idempotent.
func (l *Ledger) Repair() {
	kept := l.Holdings[:0]
	for _, h := range l.Holdings {
		if h.Shares <= 0 || h.AverageCost <= 0 || h.CurrentPrice < 0 || h.Symbol == "" {
			continue
		}
		kept = append(kept, h)
	}

	// Merge duplicates, preserving first-appearance order.
	merged := make([]Holding, 0, len(kept))
	index := make(map[string]int, len(kept))
	for _, h := range kept {
		key := strings.ToUpper(h.Symbol)
		i, ok := index[key]
		if !ok {
			h.Symbol = key
			index[key] = len(merged)
			merged = append(merged, h)
			continue
		}

		first := merged[i]
		totalShares := first.Shares + h.Shares
		totalInvestment := first.TotalCost() + h.TotalCost()
		merged[i].Shares = totalShares
		merged[i].AverageCost = totalInvestment / float64(totalShares)
		// Price, name, and purchase date stay with the first member of
		// the group; there is no way to know which duplicate was right.
	}
	l.Holdings = merged

	if l.CashBalance < 0 {
		l.CashBalance = 0
	}

	l.TotalInvested = l.TotalCostBasis()

	if l.Holdings == nil {
		l.Holdings = []Holding{}
	}
	if l.Transactions == nil {
		l.Transactions = []Transaction{}
	}
}
