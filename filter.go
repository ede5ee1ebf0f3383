package coindash

import (
	"slices"
	"strings"
)

// Filter returns the coins whose name or symbol contains query, ignoring case.
//
// The query is trimmed first; an empty query returns all coins. Matching
// coins keep their relative order. The result never aliases coins.
func Filter(coins []Coin, query string) []Coin {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return slices.Clone(coins)
	}
	res := make([]Coin, 0)
	for _, c := range coins {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Symbol), q) {
			res = append(res, c)
		}
	}
	return res
}
