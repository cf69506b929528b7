package internal

import (
	"context"
)

// UpstreamAPI is the surface the pipelines consume. Helpers absorb their own
// fetch errors (logged with the remote key) and hand back zero values, so a
// single bad record can never crash a pipeline run.
type UpstreamAPI interface {
	ListMatchIDs(ctx context.Context, puuid string, start, count int) []string
	GetMatch(ctx context.Context, matchID string) *Match
	GetSummonerByPUUID(ctx context.Context, puuid string) *Summoner
	GetAccountByPUUID(ctx context.Context, puuid string) *AccountData
	GetChampions(ctx context.Context) []Champion
	GetItems(ctx context.Context) []Item
	GetQueues(ctx context.Context) []Queue
}

type Limiter interface {
	Acquire(ctx context.Context) error
}

type MatchStore interface {
	ExistingMatchIDs(ctx context.Context, ids []string) ([]string, error)
	InsertMatchBatch(ctx context.Context, region string, matches []*Match) error
	UpsertSummoner(ctx context.Context, region string, account *AccountData, summoner *Summoner) error
	ListTrackedSummoners(ctx context.Context) ([]string, error)
	ReplaceChampions(ctx context.Context, champions []Champion) error
	ReplaceItems(ctx context.Context, items []Item) error
	ReplaceQueues(ctx context.Context, queues []Queue) error
}

type EventPublisher interface {
	PublishMatchIngested(event MatchIngestedEvent) error
	PublishSyncReport(report SyncReport) error
}
