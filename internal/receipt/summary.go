package receipt

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// VendorSpend is the summed total of one vendor's receipts
type VendorSpend struct {
	Vendor   string          `json:"vendor"`
	Total    decimal.Decimal `json:"total"`
	Receipts int             `json:"receipts"`
}

// SpendSummary aggregates stored totals. Totals are kept as detected, so
// those that are not plain amounts are counted in Skipped instead of summed.
type SpendSummary struct {
	Vendors []VendorSpend   `json:"vendors"`
	Total   decimal.Decimal `json:"total"`
	Skipped int             `json:"skipped"`
}

// SpendByVendor sums receipt totals per vendor, largest first
func (s *Service) SpendByVendor(ctx context.Context) (*SpendSummary, error) {
	receipts, err := s.ListReceipts(ctx)
	if err != nil {
		return nil, err
	}

	summary := &SpendSummary{Vendors: make([]VendorSpend, 0), Total: decimal.Zero}
	byVendor := make(map[string]*VendorSpend)
	for _, r := range receipts {
		amount, ok := parseAmount(r.Total)
		if !ok {
			summary.Skipped++
			continue
		}
		vs, found := byVendor[r.Vendor]
		if !found {
			vs = &VendorSpend{Vendor: r.Vendor, Total: decimal.Zero}
			byVendor[r.Vendor] = vs
		}
		vs.Total = vs.Total.Add(amount)
		vs.Receipts++
		summary.Total = summary.Total.Add(amount)
	}

	for _, vs := range byVendor {
		summary.Vendors = append(summary.Vendors, *vs)
	}
	sort.Slice(summary.Vendors, func(i, j int) bool {
		a, b := summary.Vendors[i], summary.Vendors[j]
		if c := a.Total.Cmp(b.Total); c != 0 {
			return c > 0
		}
		return a.Vendor < b.Vendor
	})
	return summary, nil
}

// parseAmount accepts detected totals such as "12.50", "$1,204.00" or "USD 3"
func parseAmount(text string) (decimal.Decimal, bool) {
	cleaned := strings.NewReplacer("$", "", ",", "", "USD", "", " ", "").Replace(strings.TrimSpace(text))
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
