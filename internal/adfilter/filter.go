// Package adfilter narrows and groups the ads of one account for display.
package adfilter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Fantasim/p2pads/internal/config"
	"github.com/Fantasim/p2pads/internal/models"
)

// All disables a filter dimension.
const All = "all"

// Status filter values.
const (
	StatusAll    = All
	StatusActive = "active"
	StatusHidden = "hidden"
)

// Criteria is the operator's current filter selection.
type Criteria struct {
	Token    string `json:"token"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// DefaultCriteria matches every ad.
func DefaultCriteria() Criteria {
	return Criteria{Token: All, Currency: All, Status: StatusAll}
}

// Normalize fills empty dimensions with All and rejects unknown statuses.
func (c Criteria) Normalize() (Criteria, error) {
	if c.Token == "" {
		c.Token = All
	}
	if c.Currency == "" {
		c.Currency = All
	}
	switch c.Status {
	case "":
		c.Status = StatusAll
	case StatusAll, StatusActive, StatusHidden:
	default:
		return c, fmt.Errorf("%w: %q", config.ErrInvalidStatus, c.Status)
	}
	return c, nil
}

// IsFiatBalanceAd reports whether the ad carries the fiat-balance payment type.
func IsFiatBalanceAd(ad models.Ad) bool {
	for _, id := range ad.PaymentTypeIDs {
		if id.Is(config.FiatBalancePaymentType) {
			return true
		}
	}
	return false
}

// Partition splits ads into standard and fiat-balance ads. Every ad lands in
// exactly one of the two slices and input order is kept.
func Partition(ads []models.Ad) (standard, fiatBalance []models.Ad) {
	for _, ad := range ads {
		if IsFiatBalanceAd(ad) {
			fiatBalance = append(fiatBalance, ad)
		} else {
			standard = append(standard, ad)
		}
	}
	return standard, fiatBalance
}

// BaseAds returns the ads of an account that belong to a view mode, before
// any operator filter.
func BaseAds(account models.Account, mode models.ViewMode) []models.Ad {
	if mode == models.ViewFiatBalance {
		_, fiat := Partition(account.FiatBalanceAds)
		return fiat
	}
	standard, _ := Partition(account.Ads)
	return standard
}

// Options lists the distinct tokens (upper-cased) and fiat currencies in ads,
// sorted, without empty values.
func Options(ads []models.Ad) (tokens, currencies []string) {
	tokenSet := make(map[string]struct{})
	currencySet := make(map[string]struct{})
	for _, ad := range ads {
		if t := strings.ToUpper(ad.Token); t != "" {
			tokenSet[t] = struct{}{}
		}
		if ad.FiatCurrency != "" {
			currencySet[ad.FiatCurrency] = struct{}{}
		}
	}
	return sortedKeys(tokenSet), sortedKeys(currencySet)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IsActive reports whether the ad is online.
func IsActive(ad models.Ad) bool {
	return ad.StatusCode != nil && *ad.StatusCode == config.AdStatusActive
}

// Apply keeps the ads matching c. Token matching ignores case; currency
// matching is exact. Applying the same criteria twice changes nothing.
func Apply(ads []models.Ad, c Criteria) []models.Ad {
	out := make([]models.Ad, 0, len(ads))
	for _, ad := range ads {
		if c.Token != "" && c.Token != All && !strings.EqualFold(ad.Token, c.Token) {
			continue
		}
		if c.Currency != "" && c.Currency != All && ad.FiatCurrency != c.Currency {
			continue
		}
		switch c.Status {
		case StatusActive:
			if !IsActive(ad) {
				continue
			}
		case StatusHidden:
			if IsActive(ad) {
				continue
			}
		}
		out = append(out, ad)
	}
	return out
}

// FiatGroup holds the ads of one fiat currency split by side.
type FiatGroup struct {
	Fiat string      `json:"fiat"`
	Sell []models.Ad `json:"sell"`
	Buy  []models.Ad `json:"buy"`
}

// Group buckets ads by fiat currency in first-seen order. Ads without a
// currency go to UNKNOWN. Side SELL goes to Sell; any other side goes to Buy.
func Group(ads []models.Ad) []FiatGroup {
	var groups []FiatGroup
	index := make(map[string]int)

	for _, ad := range ads {
		fiat := ad.FiatCurrency
		if fiat == "" {
			fiat = config.UnknownFiatCurrency
		}
		i, ok := index[fiat]
		if !ok {
			i = len(groups)
			index[fiat] = i
			groups = append(groups, FiatGroup{Fiat: fiat, Sell: []models.Ad{}, Buy: []models.Ad{}})
		}
		if ad.Side == config.SideSell {
			groups[i].Sell = append(groups[i].Sell, ad)
		} else {
			groups[i].Buy = append(groups[i].Buy, ad)
		}
	}
	return groups
}
