package internal

import (
	"context"
	"errors"
	"testing"
)

type mockUpstream struct {
	pages      map[string][][]string
	pageIndex  map[string]int
	listCalls  int
	failMatch  map[string]bool
	fetchedIDs []string

	accounts  map[string]*AccountData
	summoners map[string]*Summoner

	champions []Champion
	items     []Item
	queues    []Queue
}

func (m *mockUpstream) ListMatchIDs(ctx context.Context, puuid string, start, count int) []string {
	m.listCalls++
	if m.pageIndex == nil {
		m.pageIndex = make(map[string]int)
	}
	pages := m.pages[puuid]
	idx := m.pageIndex[puuid]
	m.pageIndex[puuid] = idx + 1
	if idx >= len(pages) {
		return nil
	}
	return pages[idx]
}

func (m *mockUpstream) GetMatch(ctx context.Context, matchID string) *Match {
	m.fetchedIDs = append(m.fetchedIDs, matchID)
	if m.failMatch[matchID] {
		return nil
	}
	return &Match{
		Metadata: MatchMetadata{MatchID: matchID, DataVersion: "2"},
		Info: MatchInfo{
			QueueID: 420,
			Participants: []MatchParticipant{
				{PUUID: "player-1", ChampionID: 1, TeamID: 100},
			},
		},
	}
}

func (m *mockUpstream) GetSummonerByPUUID(ctx context.Context, puuid string) *Summoner {
	return m.summoners[puuid]
}

func (m *mockUpstream) GetAccountByPUUID(ctx context.Context, puuid string) *AccountData {
	return m.accounts[puuid]
}

func (m *mockUpstream) GetChampions(ctx context.Context) []Champion { return m.champions }
func (m *mockUpstream) GetItems(ctx context.Context) []Item         { return m.items }
func (m *mockUpstream) GetQueues(ctx context.Context) []Queue       { return m.queues }

type mockMatchStore struct {
	existing  map[string]bool
	existErr  error
	insertErr error
	batches   [][]string
	upserts   []string
	upsertErr error
	tracked   []string
	trackErr  error

	championRows int
	itemRows     int
	queueRows    int
	replaceErr   error
}

func (m *mockMatchStore) ExistingMatchIDs(ctx context.Context, ids []string) ([]string, error) {
	if m.existErr != nil {
		return nil, m.existErr
	}
	var found []string
	for _, id := range ids {
		if m.existing[id] {
			found = append(found, id)
		}
	}
	return found, nil
}

func (m *mockMatchStore) InsertMatchBatch(ctx context.Context, region string, matches []*Match) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if m.existing == nil {
		m.existing = make(map[string]bool)
	}
	var ids []string
	for _, match := range matches {
		ids = append(ids, match.Metadata.MatchID)
		m.existing[match.Metadata.MatchID] = true
	}
	m.batches = append(m.batches, ids)
	return nil
}

func (m *mockMatchStore) UpsertSummoner(ctx context.Context, region string, account *AccountData, summoner *Summoner) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts = append(m.upserts, account.PUUID)
	return nil
}

func (m *mockMatchStore) ListTrackedSummoners(ctx context.Context) ([]string, error) {
	return m.tracked, m.trackErr
}

func (m *mockMatchStore) ReplaceChampions(ctx context.Context, champions []Champion) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.championRows = len(champions)
	return nil
}

func (m *mockMatchStore) ReplaceItems(ctx context.Context, items []Item) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.itemRows = len(items)
	return nil
}

func (m *mockMatchStore) ReplaceQueues(ctx context.Context, queues []Queue) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.queueRows = len(queues)
	return nil
}

type mockPublisher struct {
	matchEvents []MatchIngestedEvent
	reports     []SyncReport
	err         error
}

func (m *mockPublisher) PublishMatchIngested(event MatchIngestedEvent) error {
	if m.err != nil {
		return m.err
	}
	m.matchEvents = append(m.matchEvents, event)
	return nil
}

func (m *mockPublisher) PublishSyncReport(report SyncReport) error {
	if m.err != nil {
		return m.err
	}
	m.reports = append(m.reports, report)
	return nil
}

func newTestMatchPipeline(api UpstreamAPI, store MatchStore, publisher EventPublisher, pageSize, maxPages int) *MatchPipeline {
	logger := createTestLogger()
	cfg := &Config{RiotRegion: "BR1", SyncPageSize: pageSize, SyncMaxPages: maxPages}
	dedup := NewDeduplicationResolver(store.(*mockMatchStore), logger)
	return NewMatchPipeline(cfg, api, store, dedup, publisher, logger, nil)
}

func TestMatchPipeline_EndToEnd(t *testing.T) {
	api := &mockUpstream{
		pages: map[string][][]string{
			"subject-1": {{"A", "B", "C"}},
		},
	}
	store := &mockMatchStore{existing: map[string]bool{"A": true, "B": true}}
	publisher := &mockPublisher{}
	pipeline := newTestMatchPipeline(api, store, publisher, 3, 10)

	report := pipeline.Run(context.Background(), "subject-1")

	if report.Processed != 3 {
		t.Errorf("expected 3 processed, got %d", report.Processed)
	}
	if report.Inserted != 1 {
		t.Errorf("expected 1 inserted, got %d", report.Inserted)
	}
	if report.Failed != 0 {
		t.Errorf("expected 0 failed, got %d", report.Failed)
	}
	if len(api.fetchedIDs) != 1 || api.fetchedIDs[0] != "C" {
		t.Errorf("expected exactly one fetch for C, got %v", api.fetchedIDs)
	}
	if len(store.batches) != 1 || len(store.batches[0]) != 1 || store.batches[0][0] != "C" {
		t.Errorf("expected one batch containing C, got %v", store.batches)
	}
	if len(publisher.matchEvents) != 1 || publisher.matchEvents[0].MatchID != "C" {
		t.Errorf("expected one ingested event for C, got %v", publisher.matchEvents)
	}

	// Second run against an unchanged upstream must be a no-op.
	api.pageIndex = nil
	report = pipeline.Run(context.Background(), "subject-1")
	if report.Inserted != 0 {
		t.Errorf("expected second run to insert nothing, got %d", report.Inserted)
	}
	if len(api.fetchedIDs) != 1 {
		t.Errorf("expected no additional fetches on second run, got %v", api.fetchedIDs)
	}
}

func TestMatchPipeline_PartialFailureIsolation(t *testing.T) {
	ids := []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7", "m8", "m9", "m10"}
	api := &mockUpstream{
		pages:     map[string][][]string{"subject-1": {ids}},
		failMatch: map[string]bool{"m5": true},
	}
	store := &mockMatchStore{}
	pipeline := newTestMatchPipeline(api, store, nil, 10, 10)

	report := pipeline.Run(context.Background(), "subject-1")

	if report.Inserted != 9 {
		t.Errorf("expected 9 inserted, got %d", report.Inserted)
	}
	if report.Failed != 1 {
		t.Errorf("expected 1 failed, got %d", report.Failed)
	}
	if len(store.batches) != 1 || len(store.batches[0]) != 9 {
		t.Errorf("expected one batch of 9, got %v", store.batches)
	}
}

func TestMatchPipeline_ShortPageTerminates(t *testing.T) {
	api := &mockUpstream{
		pages: map[string][][]string{"subject-1": {{"m1", "m2"}}},
	}
	store := &mockMatchStore{}
	pipeline := newTestMatchPipeline(api, store, nil, 5, 10)

	report := pipeline.Run(context.Background(), "subject-1")

	if api.listCalls != 1 {
		t.Errorf("expected paging to stop after a short page, got %d listing calls", api.listCalls)
	}
	if report.Inserted != 2 {
		t.Errorf("expected the short page to still be processed, got %d inserted", report.Inserted)
	}
	if report.Pages != 1 {
		t.Errorf("expected 1 page, got %d", report.Pages)
	}
}

func TestMatchPipeline_EmptyPageIsCaughtUp(t *testing.T) {
	api := &mockUpstream{
		pages: map[string][][]string{"subject-1": {}},
	}
	store := &mockMatchStore{}
	pipeline := newTestMatchPipeline(api, store, nil, 5, 10)

	report := pipeline.Run(context.Background(), "subject-1")

	if report.Processed != 0 || report.Inserted != 0 || report.Failed != 0 {
		t.Errorf("expected an all-zero report, got %+v", report)
	}
	if len(store.batches) != 0 {
		t.Errorf("expected no writes, got %v", store.batches)
	}
}

func TestMatchPipeline_PageCeiling(t *testing.T) {
	api := &mockUpstream{
		pages: map[string][][]string{"subject-1": {
			{"m1", "m2"}, {"m3", "m4"}, {"m5", "m6"}, {"m7", "m8"},
		}},
	}
	store := &mockMatchStore{}
	pipeline := newTestMatchPipeline(api, store, nil, 2, 2)

	report := pipeline.Run(context.Background(), "subject-1")

	if api.listCalls != 2 {
		t.Errorf("expected paging capped at 2 calls, got %d", api.listCalls)
	}
	if report.Inserted != 4 {
		t.Errorf("expected 4 inserted across 2 pages, got %d", report.Inserted)
	}
}

func TestMatchPipeline_BatchWriteFailure(t *testing.T) {
	api := &mockUpstream{
		pages: map[string][][]string{"subject-1": {{"m1", "m2"}}},
	}
	store := &mockMatchStore{insertErr: &StoreError{Op: "insert_match_batch", Err: errors.New("deadlock")}}
	pipeline := newTestMatchPipeline(api, store, nil, 5, 10)

	report := pipeline.Run(context.Background(), "subject-1")

	if report.Inserted != 0 {
		t.Errorf("expected 0 inserted, got %d", report.Inserted)
	}
	if report.Failed != 2 {
		t.Errorf("expected the whole page marked failed, got %d", report.Failed)
	}
}

func TestMatchPipeline_DedupStoreFailureStopsSubject(t *testing.T) {
	api := &mockUpstream{
		pages: map[string][][]string{"subject-1": {{"m1", "m2", "m3"}}},
	}
	store := &mockMatchStore{existErr: &StoreError{Op: "existing_match_ids", Err: errors.New("connection refused")}}
	pipeline := newTestMatchPipeline(api, store, nil, 3, 10)

	report := pipeline.Run(context.Background(), "subject-1")

	if report.Failed != 3 {
		t.Errorf("expected the page marked failed, got %d", report.Failed)
	}
	if len(api.fetchedIDs) != 0 {
		t.Errorf("expected no record fetches after a dedup failure, got %v", api.fetchedIDs)
	}
}

func TestSummonerPipeline_RefreshesAllSubjects(t *testing.T) {
	api := &mockUpstream{
		accounts: map[string]*AccountData{
			"p1": {PUUID: "p1", GameName: "One", TagLine: "BR1"},
			"p2": {PUUID: "p2", GameName: "Two", TagLine: "BR1"},
		},
		summoners: map[string]*Summoner{
			"p1": {PUUID: "p1", SummonerLevel: 30},
		},
	}
	store := &mockMatchStore{tracked: []string{"p1", "p2", "p3"}}
	cfg := &Config{RiotRegion: "BR1"}
	pipeline := NewSummonerPipeline(cfg, api, store, createTestLogger())

	report := pipeline.Run(context.Background())

	if report.Processed != 3 {
		t.Errorf("expected 3 processed, got %d", report.Processed)
	}
	if report.Inserted != 2 {
		t.Errorf("expected 2 refreshed, got %d", report.Inserted)
	}
	if report.Failed != 1 {
		t.Errorf("expected 1 failed (no account data), got %d", report.Failed)
	}
	if len(store.upserts) != 2 {
		t.Errorf("expected 2 upserts, got %v", store.upserts)
	}
}

func TestCatalogPipeline_FullReplace(t *testing.T) {
	api := &mockUpstream{
		champions: []Champion{{Key: "266", ID: "Aatrox", Name: "Aatrox"}},
		items:     []Item{{ID: 1001, Name: "Boots"}, {ID: 1004, Name: "Faerie Charm"}},
		queues:    []Queue{{QueueID: 420}},
	}
	store := &mockMatchStore{}
	pipeline := NewCatalogPipeline(api, store, createTestLogger())

	report := pipeline.Run(context.Background())

	if report.Failed != 0 {
		t.Errorf("expected no failures, got %d", report.Failed)
	}
	if report.Inserted != 4 {
		t.Errorf("expected 4 rows across catalogs, got %d", report.Inserted)
	}
	if store.championRows != 1 || store.itemRows != 2 || store.queueRows != 1 {
		t.Errorf("unexpected replace counts: %d/%d/%d", store.championRows, store.itemRows, store.queueRows)
	}
}

func TestCatalogPipeline_EmptyFetchKeepsPreviousCatalog(t *testing.T) {
	api := &mockUpstream{
		items:  []Item{{ID: 1001, Name: "Boots"}},
		queues: []Queue{{QueueID: 420}},
	}
	store := &mockMatchStore{}
	pipeline := NewCatalogPipeline(api, store, createTestLogger())

	report := pipeline.Run(context.Background())

	if report.Failed != 1 {
		t.Errorf("expected the empty champion fetch marked failed, got %d", report.Failed)
	}
	if report.Inserted != 2 {
		t.Errorf("expected 2 rows from the healthy catalogs, got %d", report.Inserted)
	}
}
