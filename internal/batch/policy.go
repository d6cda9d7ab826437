package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Fantasim/p2pads/internal/config"
)

// TokenPolicy holds the quantity bounds of one token.
type TokenPolicy struct {
	BuyMin    decimal.Decimal
	BuyMax    decimal.Decimal
	SellFixed decimal.Decimal
}

// QuantityPolicy is the per-token quantity policy for fiat-balance batches.
type QuantityPolicy struct {
	PaymentPeriod string
	Tokens        map[string]TokenPolicy
}

// policyFile is the on-disk YAML layout. Quantities are strings so they
// survive the round trip without float rounding.
type policyFile struct {
	PaymentPeriod string                     `yaml:"payment_period"`
	Tokens        map[string]tokenPolicyFile `yaml:"tokens"`
}

type tokenPolicyFile struct {
	BuyMin    string `yaml:"buy_min"`
	BuyMax    string `yaml:"buy_max"`
	SellFixed string `yaml:"sell_fixed"`
}

// defaultPolicy is written when the policy file is missing.
var defaultPolicy = policyFile{
	PaymentPeriod: config.DefaultPaymentPeriod,
	Tokens: map[string]tokenPolicyFile{
		"USDT": {BuyMin: "10", BuyMax: "50000", SellFixed: "10"},
		"USDC": {BuyMin: "10", BuyMax: "50000", SellFixed: "10"},
		"BTC":  {BuyMin: "0.00011788", BuyMax: "2", SellFixed: "0.00011788"},
		"ETH":  {BuyMin: "0.00360639", BuyMax: "30", SellFixed: "0.00360639"},
	},
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() *QuantityPolicy {
	p, err := parsePolicy(defaultPolicy)
	if err != nil {
		panic(fmt.Sprintf("built-in quantity policy is invalid: %v", err))
	}
	return p
}

// LoadPolicy reads and validates a YAML policy file.
func LoadPolicy(path string) (*QuantityPolicy, error) {
	slog.Debug("loading quantity policy", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file %q: %w", path, err)
	}

	var raw policyFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", config.ErrInvalidPolicy, err)
	}

	p, err := parsePolicy(raw)
	if err != nil {
		return nil, err
	}

	slog.Info("quantity policy loaded",
		"path", path,
		"tokens", p.TokenSymbols(),
		"paymentPeriod", p.PaymentPeriod,
	)
	return p, nil
}

func parsePolicy(raw policyFile) (*QuantityPolicy, error) {
	if len(raw.Tokens) == 0 {
		return nil, fmt.Errorf("%w: no tokens defined", config.ErrInvalidPolicy)
	}

	p := &QuantityPolicy{
		PaymentPeriod: raw.PaymentPeriod,
		Tokens:        make(map[string]TokenPolicy, len(raw.Tokens)),
	}
	if p.PaymentPeriod == "" {
		p.PaymentPeriod = config.DefaultPaymentPeriod
	}

	for symbol, t := range raw.Tokens {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))

		buyMin, err := decimal.NewFromString(t.BuyMin)
		if err != nil {
			return nil, fmt.Errorf("%w: %s buy_min %q: %v", config.ErrInvalidPolicy, symbol, t.BuyMin, err)
		}
		buyMax, err := decimal.NewFromString(t.BuyMax)
		if err != nil {
			return nil, fmt.Errorf("%w: %s buy_max %q: %v", config.ErrInvalidPolicy, symbol, t.BuyMax, err)
		}
		sellFixed, err := decimal.NewFromString(t.SellFixed)
		if err != nil {
			return nil, fmt.Errorf("%w: %s sell_fixed %q: %v", config.ErrInvalidPolicy, symbol, t.SellFixed, err)
		}

		if buyMin.IsNegative() || sellFixed.IsNegative() {
			return nil, fmt.Errorf("%w: %s quantities must not be negative", config.ErrInvalidPolicy, symbol)
		}
		if buyMax.LessThan(buyMin) {
			return nil, fmt.Errorf("%w: %s buy_max %s < buy_min %s", config.ErrInvalidPolicy, symbol, buyMax, buyMin)
		}

		p.Tokens[symbol] = TokenPolicy{BuyMin: buyMin, BuyMax: buyMax, SellFixed: sellFixed}
	}
	return p, nil
}

// CreateDefaultPolicy writes the built-in policy to path.
func CreateDefaultPolicy(path string) error {
	slog.Info("creating default quantity policy", "path", path)

	data, err := yaml.Marshal(defaultPolicy)
	if err != nil {
		return fmt.Errorf("marshal default policy: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create policy directory %q: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write default policy to %q: %w", path, err)
	}
	return nil
}

// LoadOrCreatePolicy loads the policy at path, writing the built-in policy
// first when the file does not exist. An existing but invalid file is an error.
func LoadOrCreatePolicy(path string) (*QuantityPolicy, error) {
	p, err := LoadPolicy(path)
	if err == nil {
		return p, nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if err := CreateDefaultPolicy(path); err != nil {
		return nil, err
	}

	return LoadPolicy(path)
}

// TokenSymbols returns the configured tokens, sorted.
func (p *QuantityPolicy) TokenSymbols() []string {
	out := make([]string, 0, len(p.Tokens))
	for symbol := range p.Tokens {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// SellQuantityMap returns the fixed SELL quantity of every configured token.
func (p *QuantityPolicy) SellQuantityMap() map[string]float64 {
	out := make(map[string]float64, len(p.Tokens))
	for symbol, t := range p.Tokens {
		out[symbol] = t.SellFixed.InexactFloat64()
	}
	return out
}
