package automation

import (
	"github.com/Fantasim/p2pads/internal/models"
	"github.com/Fantasim/p2pads/internal/remark"
)

// Resolve derives the automation view of an ad.
//
// In the standard view the enabled/paused flags come from the remark markers
// and the snapshot only contributes telemetry. A paused ad is not enabled. In the fiat-balance view every
// ad shares the process state: enabled means the fiat-balance process is
// running, and ads are never shown as paused.
func Resolve(ad models.Ad, snap *Snapshot, mode models.ViewMode) models.AutomationView {
	tele, _ := snap.Telemetry(ad.AdID)

	if mode == models.ViewFiatBalance {
		groups := tele.CompetitorGroupsFull
		if len(groups) == 0 {
			groups = tele.CompetitorGroups
		}
		return models.AutomationView{
			IsAutoEnabled:    snap.IsRunning(),
			IsAutoPaused:     false,
			Groups:           nonNil(groups),
			SpotSymbol:       tele.SpotSymbol,
			SpotBid:          tele.SpotBid,
			SpotAsk:          tele.SpotAsk,
			TargetPrice:      tele.TargetPrice,
			GuardrailPrice:   tele.GuardrailPrice,
			AvailableBalance: tele.AvailableBalance,
			SuggestedBuyQty:  tele.SuggestedBuyQty,
		}
	}

	flags := remark.Classify(ad.Remark)
	return models.AutomationView{
		IsAutoEnabled: flags.Mode == remark.Auto,
		IsAutoPaused:  flags.Mode == remark.Paused,
		Groups:        nonNil(tele.CompetitorGroups),
		SpotSymbol:    tele.SpotSymbol,
		SpotBid:       tele.SpotBid,
		SpotAsk:       tele.SpotAsk,
		TargetPrice:   tele.TargetPrice,
	}
}

func nonNil(groups []models.PriceGroup) []models.PriceGroup {
	if groups == nil {
		return []models.PriceGroup{}
	}
	return groups
}
