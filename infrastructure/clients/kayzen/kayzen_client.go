package kayzen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"kayzen-ingest/domain/dto"
	"kayzen-ingest/domain/model"
	"kayzen-ingest/infrastructure/logger"
	"kayzen-ingest/infrastructure/metrics"

	"github.com/google/go-querystring/query"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://api.kayzen.io"
	// PageSize is the fixed per_page value used when listing campaigns.
	PageSize = 100

	tokenPath     = "/v1/authentication/token"
	campaignsPath = "/v1/campaigns"
)

// Config represents Kayzen API client configuration
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Client talks to the Kayzen reporting API. It carries no token state; every
// invocation authenticates again.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewKayzenClient creates a new Kayzen API client
func NewKayzenClient(config *Config) *Client {
	baseURL := DefaultBaseURL
	httpClient := http.DefaultClient
	if config != nil {
		if config.BaseURL != "" {
			baseURL = strings.TrimRight(config.BaseURL, "/")
		}
		if config.HTTPClient != nil {
			httpClient = config.HTTPClient
		}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// GetAccessToken performs the password grant. The API key and secret travel
// in a Basic header, the user's login in the JSON body.
func (c *Client) GetAccessToken(ctx context.Context, creds model.Credentials) (string, error) {
	payload, err := json.Marshal(dto.TokenRequest{
		GrantType: "password",
		Username:  creds.Username,
		Password:  creds.Password,
	})
	if err != nil {
		return "", &model.AuthenticationError{Err: fmt.Errorf("encoding token request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, bytes.NewReader(payload))
	if err != nil {
		return "", &model.AuthenticationError{Err: err}
	}
	req.SetBasicAuth(creds.APIKey, creds.APISecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &model.AuthenticationError{Err: err}
	}
	defer resp.Body.Close()
	metrics.ObserveAPIRequest("token", resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &model.AuthenticationError{StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &model.AuthenticationError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var token dto.TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", &model.AuthenticationError{StatusCode: resp.StatusCode, Body: string(body), Err: fmt.Errorf("decoding token response: %w", err)}
	}
	if token.AccessToken == "" {
		return "", &model.AuthenticationError{StatusCode: resp.StatusCode, Body: string(body), Err: fmt.Errorf("response has no access_token")}
	}
	return token.AccessToken, nil
}

// FetchAllCampaigns walks the listing from page 1 until a page comes back
// without data. Any failing page aborts the walk and drops what was gathered.
func (c *Client) FetchAllCampaigns(ctx context.Context, accessToken string) ([]model.Campaign, error) {
	httpClient := c.bearerClient(ctx, accessToken)
	campaigns := make([]model.Campaign, 0)

	for page := 1; ; page++ {
		data, err := c.fetchPage(ctx, httpClient, page)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			logger.GetLogger().
				WithField("page", page).
				WithField("campaigns", len(campaigns)).
				Debug("Campaign listing exhausted")
			break
		}
		metrics.PagesFetched.Inc()
		campaigns = append(campaigns, data...)
		logger.GetLogger().
			WithField("page", page).
			WithField("pageSize", len(data)).
			Debug("Fetched campaign page")
	}
	return campaigns, nil
}

func (c *Client) fetchPage(ctx context.Context, httpClient *http.Client, page int) ([]model.Campaign, error) {
	params, err := query.Values(dto.CampaignListRequest{Page: page, PerPage: PageSize})
	if err != nil {
		return nil, &model.FetchError{Page: page, Err: err}
	}
	u, err := url.Parse(c.baseURL + campaignsPath)
	if err != nil {
		return nil, &model.FetchError{Page: page, Err: err}
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &model.FetchError{Page: page, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &model.FetchError{Page: page, Err: err}
	}
	defer resp.Body.Close()
	metrics.ObserveAPIRequest("campaigns", resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.FetchError{Page: page, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &model.FetchError{Page: page, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var listing dto.CampaignListResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, &model.FetchError{Page: page, StatusCode: resp.StatusCode, Body: string(body), Err: fmt.Errorf("decoding campaigns: %w", err)}
	}
	for i, campaign := range listing.Data {
		if campaign == nil {
			return nil, &model.FetchError{Page: page, StatusCode: resp.StatusCode, Body: string(body), Err: fmt.Errorf("campaign %d is null, expected an object", i)}
		}
	}
	return listing.Data, nil
}

// bearerClient wraps the configured client so each request carries the
// access token.
func (c *Client) bearerClient(ctx context.Context, accessToken string) *http.Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return oauth2.NewClient(ctx, src)
}
