package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"campaign-autopilot/internal/engine"
)

// Account is one set of Marketing API credentials. Exactly one account is
// active at a time; the active one is resolved explicitly per pass and
// threaded into the client, never held as process-wide state.
type Account struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	AppID       string    `json:"app_id"`
	AppSecret   string    `json:"app_secret"`
	AccessToken string    `json:"access_token"`
	AccountID   string    `json:"account_id"`
	BusinessID  string    `json:"business_id"`
	PageID      string    `json:"page_id"`
	IsActive    bool      `json:"is_active"`
	LastUpdated time.Time `json:"last_updated"`
}

// RemoteError is a platform-side rejection, carrying the provider's error
// code and message.
type RemoteError struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("platform error %d (%s): %s", e.Code, e.Type, e.Message)
}

// Campaign is the campaign listing shape (passthrough for the API surface).
type Campaign struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	Objective      string `json:"objective,omitempty"`
	CreatedTime    string `json:"created_time,omitempty"`
	StartTime      string `json:"start_time,omitempty"`
	StopTime       string `json:"stop_time,omitempty"`
	DailyBudget    string `json:"daily_budget,omitempty"`
	LifetimeBudget string `json:"lifetime_budget,omitempty"`
}

// Client talks to the Graph-style Marketing API for one account.
type Client struct {
	http      *http.Client
	baseURL   string
	version   string
	token     string
	accountID string
}

func NewClient(baseURL, version string, timeout time.Duration, account Account) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(baseURL, "/"),
		version:   version,
		token:     account.AccessToken,
		accountID: account.AccountID,
	}
}

func (c *Client) objectURL(id string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.version, id)
}

// FetchCampaignFields reads the live campaign state needed to resolve an
// action. The platform serializes budgets as strings of the smallest
// currency unit; absent fields stay nil.
func (c *Client) FetchCampaignFields(ctx context.Context, campaignID string) (engine.CampaignState, error) {
	q := url.Values{}
	q.Set("fields", "name,status,daily_budget,lifetime_budget")
	q.Set("access_token", c.token)

	var raw struct {
		Name           string `json:"name"`
		Status         string `json:"status"`
		DailyBudget    string `json:"daily_budget"`
		LifetimeBudget string `json:"lifetime_budget"`
	}
	if err := c.get(ctx, c.objectURL(campaignID), q, &raw); err != nil {
		return engine.CampaignState{}, err
	}

	state := engine.CampaignState{Name: raw.Name, Status: raw.Status}
	if v, err := parseBudget(raw.DailyBudget); err == nil {
		state.DailyBudget = v
	}
	if v, err := parseBudget(raw.LifetimeBudget); err == nil {
		state.LifetimeBudget = v
	}
	return state, nil
}

// UpdateCampaign issues a partial mutation (status and/or budget).
func (c *Client) UpdateCampaign(ctx context.Context, campaignID string, patch engine.CampaignPatch) error {
	form := url.Values{}
	form.Set("access_token", c.token)
	if patch.Status != nil {
		form.Set("status", *patch.Status)
	}
	if patch.DailyBudget != nil {
		form.Set("daily_budget", strconv.FormatInt(*patch.DailyBudget, 10))
	}
	if patch.LifetimeBudget != nil {
		form.Set("lifetime_budget", strconv.FormatInt(*patch.LifetimeBudget, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.objectURL(campaignID),
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("update campaign %s: %w", campaignID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// ListCampaigns lists the account's campaigns with identity and budget fields.
func (c *Client) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	q := url.Values{}
	q.Set("fields", "id,name,status,objective,created_time,start_time,stop_time,daily_budget,lifetime_budget")
	q.Set("access_token", c.token)

	var raw struct {
		Data []Campaign `json:"data"`
	}
	path := c.objectURL("act_"+c.accountID) + "/campaigns"
	if err := c.get(ctx, path, q, &raw); err != nil {
		return nil, err
	}
	return raw.Data, nil
}

func (c *Client) get(ctx context.Context, rawURL string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var wrapped struct {
		Error *RemoteError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Error != nil {
		return wrapped.Error
	}
	return fmt.Errorf("platform returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func parseBudget(s string) (*int64, error) {
	if s == "" {
		return nil, fmt.Errorf("empty budget")
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
