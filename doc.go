// Package coindash is the derivation core of a local-first cryptocurrency
// dashboard: a market table filtered by a text query, a watchlist, and a
// simulated portfolio of buy and sell transactions, with every monetary value
// displayed in a user selected currency.
//
// The core functionalities include:
//   - Market snapshots: a Market is a complete, validated pull of coin data in
//     a base currency. A new snapshot replaces the previous one wholesale.
//   - Currency conversion: Rates hold a multiplier per currency against the
//     base currency, Convert moves Money between any two of them.
//   - Watchlist: an ordered set of coin symbols.
//   - Ledger: the append-only list of simulated transactions, the single
//     source of truth for holdings, cost basis and realized gains.
//   - Dashboard: the controller recomputing an immutable View each time one
//     of its inputs changes, so that readers never observe a partial update.
//   - Persistence: State is the exported form of the watchlist and the
//     ledger, encoded as JSONL.
//
// This package serves as the foundational logic for the `coindash`
// command-line tool.
package coindash
