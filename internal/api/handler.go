package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"campaign-autopilot/internal/cache"
	"campaign-autopilot/internal/config"
	"campaign-autopilot/internal/engine"
	"campaign-autopilot/internal/meta"
	"campaign-autopilot/internal/observability"
	"campaign-autopilot/internal/storage"
)

// Store is the persistence surface the handlers need.
type Store interface {
	ListRules(ctx context.Context) ([]engine.Rule, error)
	ListActiveRules(ctx context.Context) ([]engine.Rule, error)
	CreateRule(ctx context.Context, r engine.Rule) (engine.Rule, error)
	ToggleRule(ctx context.Context, id int64, active bool) error
	DeleteRule(ctx context.Context, id int64) error
	RecordExecution(ctx context.Context, rec engine.Execution) error
	ListExecutions(ctx context.Context, limit int) ([]storage.ExecutionDetail, error)
	SaveAccount(ctx context.Context, a meta.Account) (meta.Account, error)
	ListAccounts(ctx context.Context) ([]meta.Account, error)
	ActiveAccount(ctx context.Context) (meta.Account, error)
	ActivateAccount(ctx context.Context, id int64) error
	DeleteAccount(ctx context.Context, id int64) error
}

// Platform is the ad platform surface for one account: the engine's two
// calls plus the listing/insights pulls a pass needs.
type Platform interface {
	engine.CampaignAPI
	ListCampaigns(ctx context.Context) ([]meta.Campaign, error)
	FetchInsights(ctx context.Context, campaignIDs []string, tr meta.TimeRange) ([]engine.Snapshot, error)
}

type Handler struct {
	store    Store
	rules    *cache.Snapshot[[]engine.Rule]
	cfg      config.Config
	platform func(meta.Account) Platform
}

func NewHandler(store Store, rules *cache.Snapshot[[]engine.Rule], cfg config.Config) *Handler {
	return &Handler{
		store: store,
		rules: rules,
		cfg:   cfg,
		platform: func(a meta.Account) Platform {
			return meta.NewClient(cfg.Meta.BaseURL, cfg.Meta.APIVersion, cfg.MetaTimeout(), a)
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.store.ListRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rules == nil {
		rules = []engine.Rule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

type createRuleRequest struct {
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	IsComposite  bool             `json:"is_composite"`
	Primary      engine.Condition `json:"primary"`
	Secondary    engine.Condition `json:"secondary"`
	JoinOperator engine.Join      `json:"join_operator"`
	ActionType   engine.Action    `json:"action_type"`
	ActionValue  float64          `json:"action_value"`
}

func (req createRuleRequest) validate() string {
	switch {
	case req.Name == "":
		return "name is required"
	case !req.Primary.Metric.Valid():
		return "unknown primary metric"
	case !req.Primary.Operator.Valid():
		return "unknown primary operator"
	case !req.ActionType.Valid():
		return "unknown action type"
	case req.ActionType == engine.ActionCustomMultiplier && req.ActionValue <= 0:
		return "custom multiplier requires a positive action value"
	}
	if req.IsComposite {
		switch {
		case !req.Secondary.Metric.Valid():
			return "unknown secondary metric"
		case !req.Secondary.Operator.Valid():
			return "unknown secondary operator"
		case req.JoinOperator != "" && !req.JoinOperator.Valid():
			return "unknown join operator"
		}
	}
	return ""
}

func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	rule := engine.Rule{
		Name:         req.Name,
		Description:  req.Description,
		IsComposite:  req.IsComposite,
		Primary:      req.Primary,
		Secondary:    req.Secondary,
		JoinOperator: req.JoinOperator,
		Action:       req.ActionType,
		ActionValue:  req.ActionValue,
	}
	created, err := h.store.CreateRule(r.Context(), rule)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.refreshRules(r.Context())
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) ToggleRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}
	var body struct {
		IsActive bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.store.ToggleRule(r.Context(), id, body.IsActive); err != nil {
		writeStoreError(w, err)
		return
	}
	h.refreshRules(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}
	if err := h.store.DeleteRule(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	h.refreshRules(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	execs, err := h.store.ListExecutions(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if execs == nil {
		execs = []storage.ExecutionDetail{}
	}
	writeJSON(w, http.StatusOK, execs)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.ListAccounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for i := range accounts {
		accounts[i].AppSecret = ""
		accounts[i].AccessToken = ""
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) SaveAccount(w http.ResponseWriter, r *http.Request) {
	var a meta.Account
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if a.Name == "" || a.AccessToken == "" || a.AccountID == "" {
		writeError(w, http.StatusBadRequest, "name, access_token and account_id are required")
		return
	}
	saved, err := h.store.SaveAccount(r.Context(), a)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	saved.AppSecret = ""
	saved.AccessToken = ""
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) ActivateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	if err := h.store.ActivateAccount(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	if err := h.store.DeleteAccount(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	account, err := h.store.ActiveAccount(r.Context())
	if err != nil {
		writeAccountError(w, err)
		return
	}
	campaigns, err := h.platform(account).ListCampaigns(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if campaigns == nil {
		campaigns = []meta.Campaign{}
	}
	writeJSON(w, http.StatusOK, campaigns)
}

// TriggerPass runs one full evaluation pass: active account, current
// campaigns, one insights pull, then every active rule against every
// snapshot. Having nothing to evaluate is a clean, successful end.
func (h *Handler) TriggerPass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, err := h.store.ActiveAccount(ctx)
	if err != nil {
		writeAccountError(w, err)
		return
	}

	rangeParam := r.URL.Query().Get("time_range")
	if rangeParam == "" {
		rangeParam = h.cfg.Insights.TimeRange
	}
	tr, err := meta.ParseTimeRange(rangeParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rules, ok := h.rules.Load()
	if !ok {
		rules, err = h.store.ListActiveRules(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		h.rules.Store(rules)
	}

	platform := h.platform(account)
	summary := engine.PassSummary{}

	if len(rules) == 0 {
		log.Info().Msg("no active rules; pass ends")
		writeJSON(w, http.StatusOK, summary)
		return
	}

	campaigns, err := platform.ListCampaigns(ctx)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	ids := make([]string, 0, len(campaigns))
	for _, c := range campaigns {
		ids = append(ids, c.ID)
	}
	var snaps []engine.Snapshot
	if len(ids) > 0 {
		snaps, err = platform.FetchInsights(ctx, ids, tr)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
	}

	eng := engine.New(platform, h.store, h.cfg.MetaTimeout())
	summary = eng.RunPass(ctx, rules, snaps)

	observability.PassesTotal.Inc()
	observability.PairsEvaluated.Add(float64(summary.Evaluated))
	observability.MatchesTotal.Add(float64(summary.Matched))
	observability.ActionsTotal.WithLabelValues("success").Add(float64(summary.Succeeded))
	observability.ActionsTotal.WithLabelValues("failure").Add(float64(summary.Failed))

	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) refreshRules(ctx context.Context) {
	active, err := h.store.ListActiveRules(ctx)
	if err != nil {
		log.Error().Err(err).Msg("refresh rules after mutation")
		return
	}
	h.rules.Store(active)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeAccountError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNoActiveAccount) {
		writeError(w, http.StatusConflict, storage.ErrNoActiveAccount.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
