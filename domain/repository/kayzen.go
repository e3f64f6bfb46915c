package repository

import (
	"context"

	"kayzen-ingest/domain/model"
)

// IKayzenAuth exchanges long-lived credentials for a short-lived bearer token.
type IKayzenAuth interface {
	GetAccessToken(ctx context.Context, creds model.Credentials) (string, error)
}

// ICampaignSource returns every campaign visible to the token, in page order.
type ICampaignSource interface {
	FetchAllCampaigns(ctx context.Context, accessToken string) ([]model.Campaign, error)
}
