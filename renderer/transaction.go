package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/coindash"
)

// Transaction renders a transaction to a string.
func Transaction(tx coindash.Transaction) string {
	switch tx.Side {
	case coindash.Buy:
		return fmt.Sprintf("Bought %s %s at %s for %s", tx.Quantity, tx.Coin, tx.Price, tx.Amount())
	case coindash.Sell:
		return fmt.Sprintf("Sold %s %s at %s for %s", tx.Quantity, tx.Coin, tx.Price, tx.Amount())
	default:
		return tx.String()
	}
}

// TransactionsMarkdown renders the transactions as a markdown table.
func TransactionsMarkdown(txs []coindash.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Transactions\n\n")
	if len(txs) == 0 {
		fmt.Fprintf(&b, "_No transaction._\n")
		return b.String()
	}
	fmt.Fprintln(&b, "| Time | Side | Coin | Quantity | Price | Amount | Memo |")
	fmt.Fprintln(&b, "|:---|:---|:---|--:|--:|--:|:---|")
	for _, tx := range txs {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			tx.Time.Format("2006-01-02 15:04:05"),
			tx.Side,
			tx.Coin,
			tx.Quantity,
			tx.Price,
			tx.Amount(),
			tx.Memo,
		)
	}
	return b.String()
}

// HoldingMarkdown renders the holding on a single coin, with its realized
// gains, in the ledger currency.
func HoldingMarkdown(h coindash.Holding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", h.Coin)
	fmt.Fprintln(&b, "| Quantity | Average Cost | Cost Basis | Invested | Proceeds | Realized | Last Price |")
	fmt.Fprintln(&b, "|--:|--:|--:|--:|--:|--:|--:|")
	fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
		h.Quantity,
		h.AverageCost(),
		h.CostBasis,
		h.Invested,
		h.Proceeds,
		h.Realized.SignedString(),
		h.LastPrice,
	)
	return b.String()
}
