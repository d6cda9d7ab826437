package batch

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Fantasim/p2pads/internal/config"
	"github.com/Fantasim/p2pads/internal/models"
)

func str(s string) *string { return &s }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFiatDefaults(t *testing.T) {
	limits := map[string][]models.FiatLimitTier{
		"USD": {
			{MinAmount: str("10"), MaxAmount: str("500")},
			{MinAmount: str("5"), MaxAmount: str("300")},
		},
		"EUR": {
			{MinAmount: str("n/a"), MaxAmount: str("200")},
			{MinAmount: nil, MaxAmount: str("800.5")},
		},
		"GBP": {
			{MinAmount: str(""), MaxAmount: str("x")},
		},
	}

	got := FiatDefaults(limits, []string{"USD", "EUR", "GBP", "JPY"})

	usd, ok := got["USD"]
	if !ok {
		t.Fatal("USD missing")
	}
	if !usd.Min.Equal(dec("5")) || !usd.Max.Equal(dec("500")) {
		t.Errorf("USD = {%s,%s}, want {5,500}", usd.Min, usd.Max)
	}

	eur, ok := got["EUR"]
	if !ok {
		t.Fatal("EUR missing")
	}
	if eur.Min != nil {
		t.Errorf("EUR min = %s, want nil", eur.Min)
	}
	if !eur.Max.Equal(dec("800.5")) {
		t.Errorf("EUR max = %s, want 800.5", eur.Max)
	}

	if _, ok := got["GBP"]; ok {
		t.Error("GBP has no parseable tier and should be omitted")
	}
	if _, ok := got["JPY"]; ok {
		t.Error("JPY has no tiers and should be omitted")
	}
}

func TestFiatDefaults_OnlySelected(t *testing.T) {
	limits := map[string][]models.FiatLimitTier{
		"USD": {{MinAmount: str("1"), MaxAmount: str("2")}},
	}
	if got := FiatDefaults(limits, nil); len(got) != 0 {
		t.Errorf("FiatDefaults(nil) = %v, want empty", got)
	}
}

func TestBuyRange(t *testing.T) {
	p := DefaultPolicy()

	r := p.BuyRange("ETH")
	if !r.Min.Equal(dec("0.00360639")) || !r.Max.Equal(dec("30")) {
		t.Errorf("ETH = [%s,%s]", r.Min, r.Max)
	}

	r = p.BuyRange("DOGE")
	if !r.Min.IsZero() || !r.Max.IsZero() {
		t.Errorf("unknown token = [%s,%s], want [0,0]", r.Min, r.Max)
	}
}

func TestSellRange(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name     string
		token    string
		balances map[string]float64
		wantMin  string
		wantMax  string
	}{
		{"balance wins", "USDT", map[string]float64{"USDT": 1234.5}, "10", "1234.5"},
		{"zero balance falls back to buy max", "USDT", map[string]float64{"USDT": 0}, "10", "50000"},
		{"no balances", "BTC", nil, "0.00011788", "2"},
		{"unknown token", "DOGE", nil, "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := p.SellRange(tt.token, tt.balances)
			if !r.Min.Equal(dec(tt.wantMin)) || !r.Max.Equal(dec(tt.wantMax)) {
				t.Errorf("SellRange() = [%s,%s], want [%s,%s]", r.Min, r.Max, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestSellRange_FixedWhenNoBuyMax(t *testing.T) {
	p := &QuantityPolicy{Tokens: map[string]TokenPolicy{
		"XYZ": {SellFixed: dec("3")},
	}}
	r := p.SellRange("XYZ", nil)
	if !r.Max.Equal(dec("3")) {
		t.Errorf("max = %s, want 3", r.Max)
	}
}

func TestClamp(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		qty         string
		want        string
		wantChanged bool
	}{
		{"5", "10", true},
		{"100", "100", false},
		{"60000", "50000", true},
	}
	for _, tt := range tests {
		got, changed := p.Clamp("USDT", dec(tt.qty))
		if !got.Equal(dec(tt.want)) || changed != tt.wantChanged {
			t.Errorf("Clamp(%s) = %s,%v want %s,%v", tt.qty, got, changed, tt.want, tt.wantChanged)
		}
	}
}

func TestInitBuyQuantities(t *testing.T) {
	p := DefaultPolicy()
	current := map[string]decimal.Decimal{"USDT": dec("77")}

	got := p.InitBuyQuantities([]string{"USDT", "BTC"}, current)

	if !got["USDT"].Equal(dec("77")) {
		t.Errorf("USDT = %s, want typed value 77 kept", got["USDT"])
	}
	if !got["BTC"].Equal(dec("0.00011788")) {
		t.Errorf("BTC = %s, want range min", got["BTC"])
	}
	if _, ok := current["BTC"]; ok {
		t.Error("input map was mutated")
	}
}

func TestForm_Validate(t *testing.T) {
	tests := []struct {
		name string
		form Form
		want error
	}{
		{"ok", Form{CredentialID: "c1", Tokens: []string{"USDT"}, Fiats: []string{"USD"}}, nil},
		{"no account", Form{Tokens: []string{"USDT"}, Fiats: []string{"USD"}}, config.ErrNoAccountSelected},
		{"no token", Form{CredentialID: "c1", Fiats: []string{"USD"}}, config.ErrNoTokenSelected},
		{"no fiat", Form{CredentialID: "c1", Tokens: []string{"USDT"}}, config.ErrNoFiatSelected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.form.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	p := DefaultPolicy()

	req, err := p.Build(Form{
		CredentialID:  "c1",
		Tokens:        []string{"USDT", "BTC"},
		Fiats:         []string{"USD", "EUR"},
		BuyQuantities: map[string]decimal.Decimal{"USDT": dec("99999")},
		MinAmounts:    map[string]string{"USD": " 25 ", "EUR": ""},
		MaxAmounts:    map[string]string{"EUR": "900"},
		Remark:        "@fb@",
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if req.BuyQuantityMap["USDT"] != 99999 {
		t.Errorf("USDT buy = %v, want typed 99999 (no clamp)", req.BuyQuantityMap["USDT"])
	}
	if req.BuyQuantityMap["BTC"] != 0.00011788 {
		t.Errorf("BTC buy = %v, want range min", req.BuyQuantityMap["BTC"])
	}
	if len(req.BuyQuantityMap) != 2 {
		t.Errorf("buy map = %v, want selected tokens only", req.BuyQuantityMap)
	}
	if len(req.SellQuantityMap) != 4 || req.SellQuantityMap["ETH"] != 0.00360639 {
		t.Errorf("sell map = %v, want full policy map", req.SellQuantityMap)
	}
	if req.PaymentPeriod != "15" || req.Remark != "@fb@" || req.CredentialID != "c1" {
		t.Errorf("request = %+v", req)
	}
	if len(req.MinAmountMap) != 1 || req.MinAmountMap["USD"] != 25 {
		t.Errorf("min map = %v, want only USD=25", req.MinAmountMap)
	}
	if len(req.MaxAmountMap) != 1 || req.MaxAmountMap["EUR"] != 900 {
		t.Errorf("max map = %v, want only EUR=900", req.MaxAmountMap)
	}
}

func TestBuild_Errors(t *testing.T) {
	p := DefaultPolicy()
	base := Form{CredentialID: "c1", Tokens: []string{"USDT"}, Fiats: []string{"USD"}}

	if _, err := p.Build(Form{}); !errors.Is(err, config.ErrNoAccountSelected) {
		t.Errorf("empty form error = %v, want ErrNoAccountSelected", err)
	}

	bad := base
	bad.MinAmounts = map[string]string{"USD": "ten"}
	if _, err := p.Build(bad); !errors.Is(err, config.ErrInvalidAmount) {
		t.Errorf("invalid min error = %v, want ErrInvalidAmount", err)
	}

	neg := base
	neg.MaxAmounts = map[string]string{"USD": "-1"}
	if _, err := p.Build(neg); !errors.Is(err, config.ErrInvalidAmount) {
		t.Errorf("negative max error = %v, want ErrInvalidAmount", err)
	}
}
