package usecase

import (
	"context"
	"log/slog"
	"time"

	"mesa-campaigns/internal/core/domain"
	"mesa-campaigns/internal/core/port"
)

// Analytics maintains raw campaign counters and the per-user impression log
// read by frequency targeting. Counters are incremented atomically by the
// store and tolerate eventual consistency.
type Analytics struct {
	store  port.CampaignStore
	views  port.ImpressionLog
	logger *slog.Logger
	now    func() time.Time
}

func NewAnalytics(store port.CampaignStore, views port.ImpressionLog, logger *slog.Logger) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analytics{store: store, views: views, logger: logger, now: time.Now}
}

// TrackImpression counts an impression. When userID is set the view is also
// appended to the impression log.
func (a *Analytics) TrackImpression(ctx context.Context, campaignID int64, userID string) error {
	if _, err := loadCampaign(ctx, a.store, campaignID); err != nil {
		return err
	}
	if err := a.store.IncrementAnalytics(ctx, campaignID, domain.AnalyticsDelta{Impressions: 1}); err != nil {
		return err
	}
	if userID == "" || a.views == nil {
		return nil
	}
	return a.views.RecordView(ctx, campaignID, userID, a.now())
}

// TrackClick counts a click, attributed to cta when given.
func (a *Analytics) TrackClick(ctx context.Context, campaignID int64, cta string) error {
	if _, err := loadCampaign(ctx, a.store, campaignID); err != nil {
		return err
	}
	return a.store.IncrementAnalytics(ctx, campaignID, domain.AnalyticsDelta{Clicks: 1, CTA: cta})
}

// TrackConversion counts a conversion.
func (a *Analytics) TrackConversion(ctx context.Context, campaignID int64) error {
	if _, err := loadCampaign(ctx, a.store, campaignID); err != nil {
		return err
	}
	return a.store.IncrementAnalytics(ctx, campaignID, domain.AnalyticsDelta{Conversions: 1})
}

// GetAnalytics returns the counters with derived rates.
func (a *Analytics) GetAnalytics(ctx context.Context, campaignID int64) (*port.AnalyticsResp, error) {
	c, err := loadCampaign(ctx, a.store, campaignID)
	if err != nil {
		return nil, err
	}
	an := c.Analytics
	return &port.AnalyticsResp{
		CampaignID:     c.ID,
		Impressions:    an.Impressions,
		Clicks:         an.Clicks,
		Conversions:    an.Conversions,
		CTR:            an.CTR(),
		ConversionRate: an.ConversionRate(),
		CTAClicks:      an.CTAClicks,
	}, nil
}
