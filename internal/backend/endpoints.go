package backend

import (
	"context"
	"fmt"

	"github.com/Fantasim/p2pads/internal/models"
)

// Backend API paths.
const (
	PathAds                   = "/api/ads"
	PathAdToggleAuto          = "/api/ads/toggle-auto"
	PathAdOffline             = "/api/ads/offline"
	PathAdActivate            = "/api/ads/activate"
	PathAutoPricing           = "/api/auto-pricing"
	PathFiatAutoPricing       = "/api/fiat-balance-auto-pricing"
	PathFiatBalanceConfig     = "/api/fiat-balance/config"
	PathFiatBalanceBatch      = "/api/fiat-balance/create-batch"
	PathFiatBalanceDeleteByRM = "/api/fiat-balance/delete-by-remark"
	PathPendingOrders         = "/api/orders/pending"
)

// automationBase returns the automation endpoint prefix for a view mode.
func automationBase(mode models.ViewMode) (string, error) {
	switch mode {
	case models.ViewStandard:
		return PathAutoPricing, nil
	case models.ViewFiatBalance:
		return PathFiatAutoPricing, nil
	default:
		return "", fmt.Errorf("unknown automation mode %q", mode)
	}
}

// FetchAds returns every account with its ads.
func (c *Client) FetchAds(ctx context.Context) ([]models.Account, error) {
	var resp models.AdsResponse
	if err := c.Get(ctx, PathAds, &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}

// FetchStatus returns the automation snapshot for a mode.
func (c *Client) FetchStatus(ctx context.Context, mode models.ViewMode) (*models.AutomationSnapshot, error) {
	base, err := automationBase(mode)
	if err != nil {
		return nil, err
	}
	var snap models.AutomationSnapshot
	if err := c.Get(ctx, base+"/status", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// StartAutomation starts the automation process for a mode. sides is only
// sent for the fiat-balance process; the standard process takes an empty body.
func (c *Client) StartAutomation(ctx context.Context, mode models.ViewMode, sides models.FiatAutomationStartRequest) error {
	base, err := automationBase(mode)
	if err != nil {
		return err
	}
	var body any = struct{}{}
	if mode == models.ViewFiatBalance {
		body = sides
	}
	return c.Post(ctx, base+"/start", body, nil)
}

// StopAutomation stops the automation process for a mode.
func (c *Client) StopAutomation(ctx context.Context, mode models.ViewMode) error {
	base, err := automationBase(mode)
	if err != nil {
		return err
	}
	return c.Post(ctx, base+"/stop", struct{}{}, nil)
}

// ToggleAuto enables or disables automation for a single ad.
func (c *Client) ToggleAuto(ctx context.Context, credentialID, adID string, enable bool) error {
	return c.Post(ctx, PathAdToggleAuto, models.ToggleAutoRequest{
		CredentialID: credentialID,
		AdID:         adID,
		Enable:       enable,
	}, nil)
}

// SetOffline takes an ad offline.
func (c *Client) SetOffline(ctx context.Context, credentialID, adID string) error {
	return c.Post(ctx, PathAdOffline, models.AdActionRequest{CredentialID: credentialID, AdID: adID}, nil)
}

// Activate brings an ad back online.
func (c *Client) Activate(ctx context.Context, credentialID, adID string) error {
	return c.Post(ctx, PathAdActivate, models.AdActionRequest{CredentialID: credentialID, AdID: adID}, nil)
}

// FetchFiatBalanceConfig returns the options for the fiat-balance create page.
func (c *Client) FetchFiatBalanceConfig(ctx context.Context) (*models.FiatBalanceConfig, error) {
	var cfg models.FiatBalanceConfig
	if err := c.Get(ctx, PathFiatBalanceConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CreateBatch submits a fiat-balance ad batch.
func (c *Client) CreateBatch(ctx context.Context, req models.BatchCreateRequest) ([]models.BatchResult, error) {
	var results []models.BatchResult
	if err := c.Post(ctx, PathFiatBalanceBatch, req, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteByRemark deletes every ad of an account whose remark carries the marker.
func (c *Client) DeleteByRemark(ctx context.Context, req models.DeleteByRemarkRequest) ([]models.BatchResult, error) {
	var results []models.BatchResult
	if err := c.Post(ctx, PathFiatBalanceDeleteByRM, req, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// FetchPendingOrders returns open orders grouped by account.
func (c *Client) FetchPendingOrders(ctx context.Context) ([]models.AccountPendingOrders, error) {
	var resp models.PendingOrdersResponse
	if err := c.Get(ctx, PathPendingOrders, &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}
