package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RiotAPIClient wraps the rate-limited Riot hosts plus the Data Dragon CDN.
// Platform endpoints (summoner) live on the regional host, match and account
// endpoints live on the routing host, and both spend rate tokens. Data
// Dragon is a plain CDN and bypasses the limiter.
type RiotAPIClient struct {
	apiKey     string
	baseURL    string
	routingURL string
	ddragonURL string
	docsURL    string
	region     string

	client  *http.Client
	limiter Limiter
	cache   *CacheManager
	logger  *Logger
	metrics *MetricsCollector
}

func NewRiotAPIClient(cfg *Config, limiter Limiter, cache *CacheManager, logger *Logger, metrics *MetricsCollector) *RiotAPIClient {
	return &RiotAPIClient{
		apiKey:     cfg.RiotAPIKey,
		baseURL:    cfg.RiotBaseURL,
		routingURL: getRoutingAPIURL(cfg.RiotRegion),
		ddragonURL: cfg.DDragonBaseURL,
		docsURL:    "https://static.developer.riotgames.com",
		region:     cfg.RiotRegion,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: limiter,
		cache:   cache,
		logger:  logger,
		metrics: metrics,
	}
}

func getRoutingAPIURL(region string) string {
	switch region {
	case "BR1", "LA1", "LA2", "NA1":
		return "https://americas.api.riotgames.com"
	case "EUW1", "EUN1", "TR1", "RU":
		return "https://europe.api.riotgames.com"
	case "JP1", "KR":
		return "https://asia.api.riotgames.com"
	case "OC1":
		return "https://sea.api.riotgames.com"
	default:
		return "https://americas.api.riotgames.com"
	}
}

// doRequest issues one GET. limited=false is reserved for the CDN host,
// which is not subject to the API key's quota.
func (c *RiotAPIClient) doRequest(ctx context.Context, url string, limited bool) ([]byte, error) {
	if limited && c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, &TransportError{URL: url, Err: err}
		}
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	if limited {
		req.Header.Set("X-Riot-Token", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.recordRequest(url, start, 0)
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	c.recordRequest(url, start, resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{Status: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	if len(body) == 0 {
		return nil, ErrEmptyResponse
	}

	return body, nil
}

func (c *RiotAPIClient) getJSON(ctx context.Context, url string, limited bool, shape string, out interface{}) error {
	data, err := c.doRequest(ctx, url, limited)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &SchemaError{Shape: shape, Err: err}
	}

	return nil
}

func (c *RiotAPIClient) recordRequest(url string, start time.Time, status int) {
	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(url, time.Since(start), status)
	}
}

func errorCode(err error) string {
	var schemaErr *SchemaError
	var transportErr *TransportError
	switch {
	case errors.Is(err, ErrEmptyResponse):
		return "empty_response"
	case errors.As(err, &schemaErr):
		return "schema_mismatch"
	case errors.As(err, &transportErr):
		return "transport"
	default:
		return "unknown"
	}
}

// ListMatchIDs returns one page of match ids for a subject, newest first.
// Any failure is logged and surfaces as an empty page.
func (c *RiotAPIClient) ListMatchIDs(ctx context.Context, puuid string, start, count int) []string {
	url := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids?start=%d&count=%d", c.routingURL, puuid, start, count)

	var ids []string
	if err := c.getJSON(ctx, url, true, "match id list", &ids); err != nil {
		c.logger.Error("match_id_listing_failed").
			Component("riot_api").
			Operation("list_match_ids").
			Subject(puuid, c.region).
			Offset(start).
			ErrorCode(errorCode(err)).
			Err(err).
			Log()
		return nil
	}

	return ids
}

func (c *RiotAPIClient) GetMatch(ctx context.Context, matchID string) *Match {
	url := fmt.Sprintf("%s/lol/match/v5/matches/%s", c.routingURL, matchID)

	var match Match
	err := c.getJSON(ctx, url, true, "match", &match)
	if err == nil && match.Metadata.MatchID == "" {
		err = &SchemaError{Shape: "match", Err: fmt.Errorf("missing metadata.matchId")}
	}
	if err != nil {
		c.logger.Error("match_fetch_failed").
			Component("riot_api").
			Operation("get_match").
			Match(matchID).
			ErrorCode(errorCode(err)).
			Err(err).
			Log()
		return nil
	}

	return &match
}

func (c *RiotAPIClient) GetSummonerByPUUID(ctx context.Context, puuid string) *Summoner {
	cacheKey := c.cache.Key("summoner", c.region, puuid)

	var cached Summoner
	if err := c.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached
	}

	url := fmt.Sprintf("%s/lol/summoner/v4/summoners/by-puuid/%s", c.baseURL, puuid)

	var summoner Summoner
	err := c.getJSON(ctx, url, true, "summoner", &summoner)
	if err == nil && summoner.PUUID == "" {
		err = &SchemaError{Shape: "summoner", Err: fmt.Errorf("missing puuid")}
	}
	if err != nil {
		c.logger.Error("summoner_fetch_failed").
			Component("riot_api").
			Operation("get_summoner").
			Subject(puuid, c.region).
			ErrorCode(errorCode(err)).
			Err(err).
			Log()
		return nil
	}

	c.cache.Set(ctx, cacheKey, summoner, time.Hour)
	return &summoner
}

func (c *RiotAPIClient) GetAccountByPUUID(ctx context.Context, puuid string) *AccountData {
	cacheKey := c.cache.Key("account", c.region, puuid)

	var cached AccountData
	if err := c.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached
	}

	url := fmt.Sprintf("%s/riot/account/v1/accounts/by-puuid/%s", c.routingURL, puuid)

	var account AccountData
	err := c.getJSON(ctx, url, true, "account", &account)
	if err == nil && account.PUUID == "" {
		err = &SchemaError{Shape: "account", Err: fmt.Errorf("missing puuid")}
	}
	if err != nil {
		c.logger.Error("account_fetch_failed").
			Component("riot_api").
			Operation("get_account").
			Subject(puuid, c.region).
			ErrorCode(errorCode(err)).
			Err(err).
			Log()
		return nil
	}

	c.cache.Set(ctx, cacheKey, account, 6*time.Hour)
	return &account
}

// latestVersion resolves the current Data Dragon dataset version.
func (c *RiotAPIClient) latestVersion(ctx context.Context) (string, error) {
	var versions []string
	if err := c.getJSON(ctx, c.ddragonURL+"/api/versions.json", false, "version list", &versions); err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", &SchemaError{Shape: "version list", Err: fmt.Errorf("no versions returned")}
	}
	return versions[0], nil
}

func (c *RiotAPIClient) GetChampions(ctx context.Context) []Champion {
	version, err := c.latestVersion(ctx)
	if err != nil {
		c.logCatalogError("champions", err)
		return nil
	}

	var payload struct {
		Data map[string]Champion `json:"data"`
	}
	url := fmt.Sprintf("%s/cdn/%s/data/en_US/champion.json", c.ddragonURL, version)
	if err := c.getJSON(ctx, url, false, "champion catalog", &payload); err != nil {
		c.logCatalogError("champions", err)
		return nil
	}

	champions := make([]Champion, 0, len(payload.Data))
	for _, champ := range payload.Data {
		champions = append(champions, champ)
	}
	return champions
}

func (c *RiotAPIClient) GetItems(ctx context.Context) []Item {
	version, err := c.latestVersion(ctx)
	if err != nil {
		c.logCatalogError("items", err)
		return nil
	}

	var payload struct {
		Data map[string]struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	url := fmt.Sprintf("%s/cdn/%s/data/en_US/item.json", c.ddragonURL, version)
	if err := c.getJSON(ctx, url, false, "item catalog", &payload); err != nil {
		c.logCatalogError("items", err)
		return nil
	}

	items := make([]Item, 0, len(payload.Data))
	for key, raw := range payload.Data {
		id := 0
		fmt.Sscanf(key, "%d", &id)
		items = append(items, Item{ID: id, Name: raw.Name})
	}
	return items
}

func (c *RiotAPIClient) GetQueues(ctx context.Context) []Queue {
	var queues []Queue
	url := c.docsURL + "/docs/lol/queues.json"
	if err := c.getJSON(ctx, url, false, "queue catalog", &queues); err != nil {
		c.logCatalogError("queues", err)
		return nil
	}
	return queues
}

func (c *RiotAPIClient) logCatalogError(kind string, err error) {
	c.logger.Error("catalog_fetch_failed").
		Component("riot_api").
		Operation("get_catalog").
		ErrorCode(errorCode(err)).
		Err(err).
		Meta("catalog", kind).
		Log()
}
