package meta

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-autopilot/internal/engine"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	account := Account{AccessToken: "tok", AccountID: "12345"}
	return NewClient(srv.URL, "v19.0", 5*time.Second, account)
}

func TestFetchCampaignFields(t *testing.T) {
	t.Run("daily budget populated", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v19.0/C1", r.URL.Path)
			assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
			assert.Contains(t, r.URL.Query().Get("fields"), "daily_budget")
			w.Write([]byte(`{"name":"Summer Sale","status":"ACTIVE","daily_budget":"1000"}`))
		})

		state, err := c.FetchCampaignFields(context.Background(), "C1")
		require.NoError(t, err)
		assert.Equal(t, "Summer Sale", state.Name)
		assert.Equal(t, "ACTIVE", state.Status)
		require.NotNil(t, state.DailyBudget)
		assert.Equal(t, int64(1000), *state.DailyBudget)
		assert.Nil(t, state.LifetimeBudget)
	})

	t.Run("no budget fields", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"name":"X","status":"PAUSED"}`))
		})

		state, err := c.FetchCampaignFields(context.Background(), "C1")
		require.NoError(t, err)
		assert.Nil(t, state.DailyBudget)
		assert.Nil(t, state.LifetimeBudget)
	})

	t.Run("platform error preserved", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`))
		})

		_, err := c.FetchCampaignFields(context.Background(), "C1")
		var remote *RemoteError
		require.ErrorAs(t, err, &remote)
		assert.Equal(t, 190, remote.Code)
		assert.Equal(t, "Invalid OAuth access token", remote.Message)
	})
}

func TestUpdateCampaign(t *testing.T) {
	t.Run("status patch", func(t *testing.T) {
		var gotForm map[string][]string
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v19.0/C1", r.URL.Path)
			require.NoError(t, r.ParseForm())
			gotForm = r.PostForm
			w.Write([]byte(`{"success":true}`))
		})

		status := "PAUSED"
		err := c.UpdateCampaign(context.Background(), "C1", engine.CampaignPatch{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, []string{"PAUSED"}, gotForm["status"])
		assert.Equal(t, []string{"tok"}, gotForm["access_token"])
		assert.NotContains(t, gotForm, "daily_budget")
	})

	t.Run("budget patch", func(t *testing.T) {
		var gotForm map[string][]string
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			gotForm = r.PostForm
			w.Write([]byte(`{"success":true}`))
		})

		budget := int64(2000)
		err := c.UpdateCampaign(context.Background(), "C1", engine.CampaignPatch{DailyBudget: &budget})
		require.NoError(t, err)
		assert.Equal(t, []string{"2000"}, gotForm["daily_budget"])
	})

	t.Run("rejection surfaces remote error", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":{"message":"Permissions error","type":"FacebookApiException","code":200}}`))
		})

		status := "PAUSED"
		err := c.UpdateCampaign(context.Background(), "C1", engine.CampaignPatch{Status: &status})
		var remote *RemoteError
		require.ErrorAs(t, err, &remote)
		assert.Equal(t, 200, remote.Code)
	})
}

func TestListCampaigns(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v19.0/act_12345/campaigns", r.URL.Path)
		w.Write([]byte(`{"data":[
			{"id":"C1","name":"Summer Sale","status":"ACTIVE","daily_budget":"1000"},
			{"id":"C2","name":"Retargeting","status":"PAUSED","lifetime_budget":"50000"}
		]}`))
	})

	campaigns, err := c.ListCampaigns(context.Background())
	require.NoError(t, err)
	require.Len(t, campaigns, 2)
	assert.Equal(t, "C1", campaigns[0].ID)
	assert.Equal(t, "50000", campaigns[1].LifetimeBudget)
}

func TestFetchInsights(t *testing.T) {
	t.Run("derives purchases and cpa", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v19.0/act_12345/insights", r.URL.Path)
			assert.Equal(t, "campaign", r.URL.Query().Get("level"))
			assert.Equal(t, "last_7d", r.URL.Query().Get("date_preset"))
			assert.Contains(t, r.URL.Query().Get("filtering"), "campaign.id")
			w.Write([]byte(`{"data":[{
				"campaign_id":"C1","campaign_name":"Summer Sale",
				"spend":"125.50","impressions":"10000","clicks":"250","ctr":"2.5","cpc":"0.50",
				"actions":[{"action_type":"link_click","value":"200"},{"action_type":"purchase","value":"3"}],
				"cost_per_action_type":[{"action_type":"purchase","value":"41.83"}]
			}]}`))
		})

		snaps, err := c.FetchInsights(context.Background(), []string{"C1"}, RangeLast7d)
		require.NoError(t, err)
		require.Len(t, snaps, 1)
		snap := snaps[0]
		assert.Equal(t, "C1", snap.CampaignID)
		assert.Equal(t, 125.50, snap.Spend)
		assert.Equal(t, int64(10000), snap.Impressions)
		assert.Equal(t, int64(3), snap.Purchases)
		assert.Equal(t, 41.83, snap.CPA)
	})

	t.Run("cpa defaults to zero without purchase costs", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":[{
				"campaign_id":"C1","campaign_name":"No Sales","spend":"10.00",
				"actions":[{"action_type":"link_click","value":"5"}]
			}]}`))
		})

		snaps, err := c.FetchInsights(context.Background(), []string{"C1"}, RangeLast7d)
		require.NoError(t, err)
		require.Len(t, snaps, 1)
		assert.Equal(t, int64(0), snaps[0].Purchases)
		assert.Equal(t, 0.0, snaps[0].CPA)
	})

	t.Run("yesterday uses explicit window", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			day := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
			assert.Contains(t, r.URL.Query().Get("time_range"), day)
			assert.Empty(t, r.URL.Query().Get("date_preset"))
			w.Write([]byte(`{"data":[]}`))
		})

		_, err := c.FetchInsights(context.Background(), []string{"C1"}, RangeYesterday)
		require.NoError(t, err)
	})
}

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeRange
		wantErr bool
	}{
		{"", RangeLast7d, false},
		{"yesterday", RangeYesterday, false},
		{"last_7d", RangeLast7d, false},
		{"last_30d", RangeLast30d, false},
		{"last_90d", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTimeRange(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
