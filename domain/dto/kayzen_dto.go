package dto

import "kayzen-ingest/domain/model"

// TokenRequest is the password-grant body sent to the token endpoint.
type TokenRequest struct {
	GrantType string `json:"grant_type"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

// CampaignListRequest holds the listing query parameters.
type CampaignListRequest struct {
	Page    int `url:"page"`
	PerPage int `url:"per_page"`
}

// CampaignListResponse is one page of the campaigns listing. Data is nil when
// the server omits the field.
type CampaignListResponse struct {
	Data []model.Campaign `json:"data"`
}
