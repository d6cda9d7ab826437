package adsview

import (
	"github.com/Fantasim/p2pads/internal/adfilter"
	"github.com/Fantasim/p2pads/internal/automation"
	"github.com/Fantasim/p2pads/internal/bulk"
	"github.com/Fantasim/p2pads/internal/models"
	"github.com/Fantasim/p2pads/internal/remark"
)

// AccountTab is one entry of the account selector.
type AccountTab struct {
	CredentialID string `json:"credential_id"`
	Label        string `json:"label"`
	Exchange     string `json:"exchange"`
	Error        string `json:"error,omitempty"`
}

// AdCard is an ad with its resolved automation state.
type AdCard struct {
	models.Ad
	Mode       remark.Mode           `json:"remark_mode"`
	Active     bool                  `json:"active"`
	Busy       bool                  `json:"busy"`
	Automation models.AutomationView `json:"automation"`
}

// CardGroup is the cards of one fiat currency split by side.
type CardGroup struct {
	Fiat string   `json:"fiat"`
	Sell []AdCard `json:"sell"`
	Buy  []AdCard `json:"buy"`
}

// AutomationStatus is the status line of one automation process.
type AutomationStatus struct {
	Mode            models.ViewMode `json:"mode"`
	Loaded          bool            `json:"loaded"`
	Running         bool            `json:"running"`
	Polling         bool            `json:"polling"`
	Busy            bool            `json:"busy"`
	IntervalSeconds int             `json:"interval_seconds,omitempty"`
	LastRunAt       string          `json:"last_run_at,omitempty"`
	LastSuccessAt   string          `json:"last_success_at,omitempty"`
	ServerError     string          `json:"server_error,omitempty"`
	Error           string          `json:"error,omitempty"`
}

// BulkSwitch is the "All Auto" switch. It only exists in the standard view.
type BulkSwitch struct {
	Checked  bool             `json:"checked"`
	State    bulk.SwitchState `json:"state"`
	Busy     bool             `json:"busy"`
	Disabled bool             `json:"disabled"`
}

// Page is the render model of the ads page.
type Page struct {
	Loaded          bool                              `json:"loaded"`
	Accounts        []AccountTab                      `json:"accounts"`
	SelectedAccount string                            `json:"selected_account"`
	AccountError    string                            `json:"account_error,omitempty"`
	Mode            models.ViewMode                   `json:"mode"`
	Filters         adfilter.Criteria                 `json:"filters"`
	TokenOptions    []string                          `json:"token_options"`
	CurrencyOptions []string                          `json:"currency_options"`
	Groups          []CardGroup                       `json:"groups"`
	Total           int                               `json:"total"`
	AdActionBusy    string                            `json:"ad_action_busy,omitempty"`
	BulkSwitch      *BulkSwitch                       `json:"bulk_switch,omitempty"`
	Automation      AutomationStatus                  `json:"automation"`
	FiatAutomation  AutomationStatus                  `json:"fiat_automation"`
	FiatSides       models.FiatAutomationStartRequest `json:"fiat_sides"`
	Error           string                            `json:"error,omitempty"`
}

// Page computes the render model from the current ad list and snapshots.
// Nothing is cached; every call joins the two collections afresh.
func (v *View) Page() Page {
	active, polling := v.scheduler.Active()

	v.mu.RLock()
	defer v.mu.RUnlock()

	page := Page{
		Loaded:          v.loaded,
		Accounts:        make([]AccountTab, 0, len(v.accounts)),
		SelectedAccount: v.selected,
		Mode:            v.mode,
		Filters:         v.criteria,
		TokenOptions:    []string{},
		CurrencyOptions: []string{},
		Groups:          []CardGroup{},
		AdActionBusy:    v.adBusy,
		FiatSides:       v.fiatSides,
	}
	if v.adsErr != nil {
		page.Error = v.adsErr.Error()
	}

	for _, a := range v.accounts {
		page.Accounts = append(page.Accounts, AccountTab{
			CredentialID: a.CredentialID,
			Label:        tabLabel(a),
			Exchange:     a.Exchange,
			Error:        a.Error,
		})
	}

	for _, mode := range models.AllViewModes {
		p := v.pollers[mode]
		st := AutomationStatus{
			Mode:    mode,
			Busy:    v.autoBusy[mode],
			Polling: polling && active.Mode == mode,
		}
		if snap := p.Snapshot(); snap != nil {
			st.Loaded = true
			st.Running = snap.Running
			st.IntervalSeconds = snap.IntervalSeconds
			st.LastRunAt = snap.LastRunAt
			st.LastSuccessAt = snap.LastSuccessAt
			st.ServerError = snap.LastError
		}
		if err := p.LastError(); err != nil {
			st.Error = err.Error()
		}
		if mode == models.ViewFiatBalance {
			page.FiatAutomation = st
		} else {
			page.Automation = st
		}
	}

	account, ok := v.selectedAccountLocked()
	if !ok {
		return page
	}
	page.AccountError = account.Error

	base := adfilter.BaseAds(account, v.mode)
	page.TokenOptions, page.CurrencyOptions = adfilter.Options(base)

	filtered := adfilter.Apply(base, v.criteria)
	page.Total = len(filtered)

	snap := v.pollers[v.mode].Snapshot()
	for _, g := range adfilter.Group(filtered) {
		page.Groups = append(page.Groups, CardGroup{
			Fiat: g.Fiat,
			Sell: v.cardsLocked(g.Sell, snap),
			Buy:  v.cardsLocked(g.Buy, snap),
		})
	}

	if v.mode == models.ViewStandard {
		page.BulkSwitch = &BulkSwitch{
			Checked:  v.bulkSwitch.Checked(bulk.AllAuto(filtered)),
			State:    v.bulkSwitch.State(),
			Busy:     v.bulkBusy,
			Disabled: v.bulkBusy || len(filtered) == 0,
		}
	}
	return page
}

func (v *View) cardsLocked(ads []models.Ad, snap *automation.Snapshot) []AdCard {
	cards := make([]AdCard, 0, len(ads))
	for _, ad := range ads {
		cards = append(cards, AdCard{
			Ad:         ad,
			Mode:       remark.ModeOf(ad.Remark),
			Active:     adfilter.IsActive(ad),
			Busy:       v.adBusy == ad.AdID,
			Automation: automation.Resolve(ad, snap, v.mode),
		})
	}
	return cards
}

// tabLabel renders "label (exchange)", or the exchange alone.
func tabLabel(a models.Account) string {
	if a.AccountLabel != "" {
		return a.AccountLabel + " (" + a.Exchange + ")"
	}
	return a.Exchange
}

// Selected returns the selected credential ID and view mode.
func (v *View) Selected() (string, models.ViewMode) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.selected, v.mode
}
