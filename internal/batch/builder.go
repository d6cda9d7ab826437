// Package batch builds fiat-balance ad batches: per-token quantity ranges,
// per-fiat amount defaults and the create-batch request itself.
package batch

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Fantasim/p2pads/internal/config"
	"github.com/Fantasim/p2pads/internal/models"
)

// Range is an inclusive quantity range.
type Range struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// AmountDefault is the advertised order-amount range of a fiat currency.
// A nil side means no tier carried a parseable value for it.
type AmountDefault struct {
	Min *decimal.Decimal `json:"min"`
	Max *decimal.Decimal `json:"max"`
}

// FiatDefaults computes, for each selected fiat, the smallest advertised
// minimum and the largest advertised maximum over its limit tiers. Values
// that do not parse are ignored; a fiat with nothing parseable is omitted.
func FiatDefaults(limits map[string][]models.FiatLimitTier, fiats []string) map[string]AmountDefault {
	out := make(map[string]AmountDefault, len(fiats))
	for _, fiat := range fiats {
		var d AmountDefault
		for _, tier := range limits[fiat] {
			if v, ok := parseAmount(tier.MinAmount); ok && (d.Min == nil || v.LessThan(*d.Min)) {
				d.Min = &v
			}
			if v, ok := parseAmount(tier.MaxAmount); ok && (d.Max == nil || v.GreaterThan(*d.Max)) {
				d.Max = &v
			}
		}
		if d.Min == nil && d.Max == nil {
			continue
		}
		out[fiat] = d
	}
	return out
}

func parseAmount(s *string) (decimal.Decimal, bool) {
	if s == nil {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(strings.TrimSpace(*s))
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// BuyRange returns the BUY quantity range of a token. Unknown tokens get [0,0].
func (p *QuantityPolicy) BuyRange(token string) Range {
	t, ok := p.Tokens[token]
	if !ok {
		return Range{}
	}
	return Range{Min: t.BuyMin, Max: t.BuyMax}
}

// SellRange returns the SELL quantity range of a token on an account. The
// upper bound is the account balance when positive, otherwise the BUY
// maximum, otherwise the fixed SELL quantity.
func (p *QuantityPolicy) SellRange(token string, balances map[string]float64) Range {
	t := p.Tokens[token]
	r := Range{Min: t.SellFixed}

	if bal, ok := balances[token]; ok && bal > 0 {
		r.Max = decimal.NewFromFloat(bal)
		return r
	}
	if !t.BuyMax.IsZero() {
		r.Max = t.BuyMax
		return r
	}
	r.Max = t.SellFixed
	return r
}

// Clamp bounds qty to the token's BUY range and reports whether it changed.
// The result is for display only; submitted quantities are never clamped.
func (p *QuantityPolicy) Clamp(token string, qty decimal.Decimal) (decimal.Decimal, bool) {
	r := p.BuyRange(token)
	switch {
	case qty.LessThan(r.Min):
		return r.Min, true
	case qty.GreaterThan(r.Max):
		return r.Max, true
	}
	return qty, false
}

// InitBuyQuantities returns current with every selected token that has no
// quantity yet set to the bottom of its BUY range.
func (p *QuantityPolicy) InitBuyQuantities(tokens []string, current map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(current)+len(tokens))
	for k, v := range current {
		out[k] = v
	}
	for _, token := range tokens {
		if _, ok := out[token]; !ok {
			out[token] = p.BuyRange(token).Min
		}
	}
	return out
}

// Form is the operator input of the create page.
type Form struct {
	CredentialID  string                     `json:"credential_id"`
	Tokens        []string                   `json:"tokens"`
	Fiats         []string                   `json:"fiats"`
	BuyQuantities map[string]decimal.Decimal `json:"buy_quantities"`
	MinAmounts    map[string]string          `json:"min_amounts"`
	MaxAmounts    map[string]string          `json:"max_amounts"`
	Remark        string                     `json:"remark"`
}

// Validate checks that an account, a token and a fiat are selected.
func (f Form) Validate() error {
	if strings.TrimSpace(f.CredentialID) == "" {
		return config.ErrNoAccountSelected
	}
	if len(f.Tokens) == 0 {
		return config.ErrNoTokenSelected
	}
	if len(f.Fiats) == 0 {
		return config.ErrNoFiatSelected
	}
	return nil
}

// Build assembles the create-batch request. BUY quantities are sent as
// typed; a selected token without one gets the bottom of its range. Blank
// amount overrides are left out so the backend applies its own defaults.
func (p *QuantityPolicy) Build(f Form) (models.BatchCreateRequest, error) {
	if err := f.Validate(); err != nil {
		return models.BatchCreateRequest{}, err
	}

	qty := p.InitBuyQuantities(f.Tokens, f.BuyQuantities)
	buy := make(map[string]float64, len(f.Tokens))
	for _, token := range f.Tokens {
		buy[token] = qty[token].InexactFloat64()
	}

	minMap, err := amountMap(f.Fiats, f.MinAmounts, "min")
	if err != nil {
		return models.BatchCreateRequest{}, err
	}
	maxMap, err := amountMap(f.Fiats, f.MaxAmounts, "max")
	if err != nil {
		return models.BatchCreateRequest{}, err
	}

	return models.BatchCreateRequest{
		CredentialID:    f.CredentialID,
		Tokens:          f.Tokens,
		Fiats:           f.Fiats,
		BuyQuantityMap:  buy,
		SellQuantityMap: p.SellQuantityMap(),
		PaymentPeriod:   p.PaymentPeriod,
		Remark:          f.Remark,
		MinAmountMap:    minMap,
		MaxAmountMap:    maxMap,
	}, nil
}

func amountMap(fiats []string, raw map[string]string, side string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, fiat := range fiats {
		s := strings.TrimSpace(raw[fiat])
		if s == "" {
			continue
		}
		v, err := decimal.NewFromString(s)
		if err != nil || v.IsNegative() {
			return nil, fmt.Errorf("%w: %s %s amount %q", config.ErrInvalidAmount, fiat, side, raw[fiat])
		}
		out[fiat] = v.InexactFloat64()
	}
	return out, nil
}
