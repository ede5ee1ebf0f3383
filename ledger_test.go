package coindash

import (
	"errors"
	"testing"
	"time"
)

func newLedger(t *testing.T, method CostBasisMethod) *Ledger {
	t.Helper()
	l, err := NewLedger("USD")
	if err != nil {
		t.Fatalf("NewLedger() unexpected error: %v", err)
	}
	l.SetCostBasisMethod(method)
	return l
}

func TestLedger_AverageCost(t *testing.T) {
	l := newLedger(t, AverageCost)
	if _, err := l.RecordBuy("BTC", Q(1), USD(50000), day(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := l.RecordBuy("BTC", Q(0.5), USD(60000), day(2)); err != nil {
		t.Fatal(err)
	}
	h := l.HoldingFor("BTC")
	if !h.Quantity.Equal(Q(1.5)) || !h.CostBasis.Equal(USD(80000)) {
		t.Fatalf("after buys: %s @ %v, want 1.5 @ $80,000.00", h.Quantity, h.CostBasis)
	}

	if _, err := l.RecordSell("BTC", Q(1), USD(70000), day(3)); err != nil {
		t.Fatal(err)
	}
	h = l.HoldingFor("BTC")
	if !h.Quantity.Equal(Q(0.5)) {
		t.Errorf("Quantity = %s, want 0.5", h.Quantity)
	}
	if got := h.CostBasis.Round(2); !got.Equal(USD(26666.67)) {
		t.Errorf("CostBasis = %v, want $26,666.67", got)
	}
	if got := h.Realized.Round(2); !got.Equal(USD(16666.67)) {
		t.Errorf("Realized = %v, want $16,666.67", got)
	}
	if !h.Invested.Equal(USD(80000)) || !h.Proceeds.Equal(USD(70000)) {
		t.Errorf("Invested, Proceeds = %v, %v, want $80,000.00, $70,000.00", h.Invested, h.Proceeds)
	}
	if !h.LastPrice.Equal(USD(70000)) || !h.LastTime.Equal(day(3)) {
		t.Errorf("last transaction = %v at %v, want $70,000.00 at %v", h.LastPrice, h.LastTime, day(3))
	}
}

func TestLedger_FIFO(t *testing.T) {
	l := newLedger(t, FIFO)
	l.RecordBuy("ETH", Q(2), USD(1000), day(1))
	l.RecordBuy("ETH", Q(2), USD(2000), day(2))
	if _, err := l.RecordSell("ETH", Q(3), USD(3000), day(3)); err != nil {
		t.Fatal(err)
	}
	h := l.HoldingFor("ETH")
	// sold 2 @ 1000 and 1 @ 2000
	if !h.CostBasis.Equal(USD(2000)) {
		t.Errorf("CostBasis = %v, want $2,000.00", h.CostBasis)
	}
	if !h.Realized.Equal(USD(5000)) {
		t.Errorf("Realized = %v, want $5,000.00", h.Realized)
	}

	// switching method recomputes the tally
	l.SetCostBasisMethod(AverageCost)
	if got := l.HoldingFor("ETH").CostBasis; !got.Equal(USD(1500)) {
		t.Errorf("average CostBasis = %v, want $1,500.00", got)
	}
	if err := l.Reconcile(); err != nil {
		t.Errorf("Reconcile() unexpected error: %v", err)
	}
}

func TestLedger_Record_Invalid(t *testing.T) {
	l := newLedger(t, AverageCost)
	if _, err := l.RecordBuy("BTC", Q(1), USD(50000), day(10)); err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name    string
		tx      Transaction
		wantErr error
	}{
		{"zero quantity", NewBuy(day(11), "BTC", Q(0), USD(1)), ErrInvalidQuantity},
		{"negative quantity", NewSell(day(11), "BTC", Q(-1), USD(1)), ErrInvalidQuantity},
		{"oversell", NewSell(day(11), "BTC", Q(1.5), USD(1)), ErrInsufficientHolding},
		{"sell never held", NewSell(day(11), "ETH", Q(1), USD(1)), ErrInsufficientHolding},
		{"negative price", NewBuy(day(11), "BTC", Q(1), USD(-1)), ErrInvalidPrice},
		{"other currency", NewBuy(day(11), "BTC", Q(1), EUR(1)), ErrCurrencyMismatch},
		{"same time", NewBuy(day(10), "BTC", Q(1), USD(1)), ErrNonMonotonicTime},
		{"before last", NewBuy(day(9), "BTC", Q(1), USD(1)), ErrNonMonotonicTime},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Record(tc.tx)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Record() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d after rejected transactions, want 1", l.Len())
	}
	if h := l.HoldingFor("BTC"); !h.Quantity.Equal(Q(1)) {
		t.Errorf("BTC quantity = %s after rejected transactions, want 1", h.Quantity)
	}
	if _, err := l.Record(Transaction{Side: Buy, Quantity: Q(1), Time: day(12)}); err == nil {
		t.Error("Record() expected an error on a missing coin")
	}
}

func TestLedger_Record_QuickFix(t *testing.T) {
	l := newLedger(t, AverageCost)
	now := day(20)
	l.now = func() time.Time { return now }

	tx, err := l.Record(NewBuy(time.Time{}, "BTC", Q(1), M(100, "")))
	if err != nil {
		t.Fatalf("Record() unexpected error: %v", err)
	}
	if !tx.Time.Equal(now) {
		t.Errorf("Time = %v, want now %v", tx.Time, now)
	}
	if tx.Price.Currency() != "USD" {
		t.Errorf("Price currency = %q, want the ledger currency", tx.Price.Currency())
	}
}

func TestLedger_CloseHolding(t *testing.T) {
	l := newLedger(t, AverageCost)
	l.RecordBuy("BTC", Q(1), USD(30000), day(1))
	l.RecordBuy("ETH", Q(1), USD(2000), day(2))
	if _, err := l.RecordSell("BTC", Q(1), USD(40000), day(3)); err != nil {
		t.Fatalf("RecordSell() of the whole holding unexpected error: %v", err)
	}
	h := l.HoldingFor("BTC")
	if !h.Quantity.IsZero() || !h.CostBasis.IsZero() {
		t.Errorf("closed holding = %s @ %v, want zero", h.Quantity, h.CostBasis)
	}
	holdings := l.Holdings()
	if len(holdings) != 1 || holdings[0].Coin != "ETH" {
		t.Errorf("Holdings() = %v, want only ETH", holdings)
	}
}

func TestLedger_Transactions(t *testing.T) {
	l := newLedger(t, AverageCost)
	l.RecordBuy("BTC", Q(1), USD(30000), day(1))
	l.RecordBuy("ETH", Q(1), USD(2000), day(2))
	l.RecordSell("BTC", Q(0.5), USD(40000), day(3))

	var got []time.Time
	for _, tx := range l.Transactions(ByCoin("BTC")) {
		got = append(got, tx.Time)
	}
	if len(got) != 2 || !got[0].Equal(day(1)) || !got[1].Equal(day(3)) {
		t.Errorf("Transactions(ByCoin(BTC)) times = %v, want days 1 and 3", got)
	}
}

func TestLedger_Import(t *testing.T) {
	l := newLedger(t, AverageCost)
	l.RecordBuy("BTC", Q(2), USD(30000), day(1))
	l.RecordSell("BTC", Q(1), USD(40000), day(2))

	other := newLedger(t, AverageCost)
	calls := 0
	other.Subscribe(func() { calls++ })
	if err := other.Import(l.Export()); err != nil {
		t.Fatalf("Import() unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("notifications = %d, want 1", calls)
	}
	if got, want := other.HoldingFor("BTC"), l.HoldingFor("BTC"); !got.equal(want) {
		t.Errorf("imported holding = %+v, want %+v", got, want)
	}

	// an invalid history is rejected as a whole
	bad := []Transaction{
		NewBuy(day(5), "ETH", Q(1), USD(1)),
		NewSell(day(6), "ETH", Q(2), USD(1)),
	}
	if err := other.Import(bad); !errors.Is(err, ErrInsufficientHolding) {
		t.Errorf("Import() error = %v, want %v", err, ErrInsufficientHolding)
	}
	if other.Len() != 2 {
		t.Errorf("Len() = %d after a failed import, want 2", other.Len())
	}
}

func TestParseCostBasisMethod(t *testing.T) {
	testCases := []struct {
		in      string
		want    CostBasisMethod
		wantErr bool
	}{
		{"", AverageCost, false},
		{"average", AverageCost, false},
		{"fifo", FIFO, false},
		{"lifo", 0, true},
	}
	for _, tc := range testCases {
		got, err := ParseCostBasisMethod(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ParseCostBasisMethod(%q) = %v, %v, want %v", tc.in, got, err, tc.want)
		}
	}
}
