package internal

import (
	"context"
)

// MatchPipeline ingests one subject's match history incrementally: page the
// remote listing, drop already-known ids, fetch the rest one by one, and
// commit each page as a single batch. One bad match skips that match, one
// bad page skips that page; both are retried naturally on the next
// iteration because the missing ids stay missing.
type MatchPipeline struct {
	api       UpstreamAPI
	store     MatchStore
	dedup     *DeduplicationResolver
	publisher EventPublisher
	logger    *Logger
	metrics   *MetricsCollector

	region   string
	pageSize int
	maxPages int
}

func NewMatchPipeline(cfg *Config, api UpstreamAPI, store MatchStore, dedup *DeduplicationResolver, publisher EventPublisher, logger *Logger, metrics *MetricsCollector) *MatchPipeline {
	return &MatchPipeline{
		api:       api,
		store:     store,
		dedup:     dedup,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		region:    cfg.RiotRegion,
		pageSize:  cfg.SyncPageSize,
		maxPages:  cfg.SyncMaxPages,
	}
}

func (p *MatchPipeline) Run(ctx context.Context, puuid string) IngestionReport {
	report := IngestionReport{Subject: puuid}
	offset := 0

	for page := 0; page < p.maxPages; page++ {
		if ctx.Err() != nil {
			break
		}

		ids := p.api.ListMatchIDs(ctx, puuid, offset, p.pageSize)
		if len(ids) == 0 {
			// Caught up (or the listing failed and was logged upstream).
			break
		}

		report.Pages++
		report.Processed += len(ids)

		missing, err := p.dedup.ResolveMissing(ctx, ids)
		if err != nil {
			p.logger.Error("dedup_check_failed").
				Component("match_pipeline").
				Operation("resolve_missing").
				Subject(puuid, p.region).
				Offset(offset).
				Err(err).
				Log()
			report.Failed += len(ids)
			break
		}

		fetched := make([]*Match, 0, len(missing))
		for _, id := range missing {
			match := p.api.GetMatch(ctx, id)
			if match == nil {
				report.Failed++
				continue
			}
			fetched = append(fetched, match)
		}

		if len(fetched) > 0 {
			if err := p.store.InsertMatchBatch(ctx, p.region, fetched); err != nil {
				p.logger.Error("match_batch_write_failed").
					Component("match_pipeline").
					Operation("insert_batch").
					Subject(puuid, p.region).
					Offset(offset).
					Err(err).
					Meta("batch_size", len(fetched)).
					Log()
				report.Failed += len(fetched)
			} else {
				report.Inserted += len(fetched)
				if p.metrics != nil {
					p.metrics.RecordIngestion(len(fetched), 0)
				}
				p.publishIngested(puuid, fetched)
			}
		}

		if len(ids) < p.pageSize {
			break
		}
		offset += p.pageSize
	}

	if p.metrics != nil && report.Failed > 0 {
		p.metrics.RecordIngestion(0, report.Failed)
	}

	p.logger.Info("match_ingestion_finished").
		Component("match_pipeline").
		Operation("run").
		Subject(puuid, p.region).
		Meta("processed", report.Processed).
		Meta("inserted", report.Inserted).
		Meta("failed", report.Failed).
		Meta("pages", report.Pages).
		Log()

	return report
}

func (p *MatchPipeline) publishIngested(puuid string, matches []*Match) {
	if p.publisher == nil {
		return
	}
	for _, match := range matches {
		event := MatchIngestedEvent{
			MatchID: match.Metadata.MatchID,
			Subject: puuid,
			Region:  p.region,
		}
		if err := p.publisher.PublishMatchIngested(event); err != nil {
			p.logger.Warn("match_event_publish_failed").
				Component("match_pipeline").
				Operation("publish_event").
				Match(match.Metadata.MatchID).
				Err(err).
				Log()
		}
	}
}

// SummonerPipeline re-fetches the full profile for every tracked subject.
// Expensive relative to its value, so the scheduler only runs it every Kth
// iteration.
type SummonerPipeline struct {
	api    UpstreamAPI
	store  MatchStore
	logger *Logger
	region string
}

func NewSummonerPipeline(cfg *Config, api UpstreamAPI, store MatchStore, logger *Logger) *SummonerPipeline {
	return &SummonerPipeline{
		api:    api,
		store:  store,
		logger: logger,
		region: cfg.RiotRegion,
	}
}

func (p *SummonerPipeline) Run(ctx context.Context) IngestionReport {
	report := IngestionReport{}

	subjects, err := p.store.ListTrackedSummoners(ctx)
	if err != nil {
		p.logger.Error("subject_listing_failed").
			Component("summoner_pipeline").
			Operation("list_subjects").
			Err(err).
			Log()
		return report
	}

	for _, puuid := range subjects {
		if ctx.Err() != nil {
			break
		}
		report.Processed++
		if p.RefreshOne(ctx, puuid) {
			report.Inserted++
		} else {
			report.Failed++
		}
	}

	p.logger.Info("summoner_refresh_finished").
		Component("summoner_pipeline").
		Operation("run").
		Meta("processed", report.Processed).
		Meta("refreshed", report.Inserted).
		Meta("failed", report.Failed).
		Log()

	return report
}

// RefreshOne fetches the account and summoner records for one subject and
// upserts them. Also invoked by the NATS refresh worker.
func (p *SummonerPipeline) RefreshOne(ctx context.Context, puuid string) bool {
	account := p.api.GetAccountByPUUID(ctx, puuid)
	if account == nil {
		return false
	}
	summoner := p.api.GetSummonerByPUUID(ctx, puuid)

	if err := p.store.UpsertSummoner(ctx, p.region, account, summoner); err != nil {
		p.logger.Error("summoner_upsert_failed").
			Component("summoner_pipeline").
			Operation("upsert").
			Subject(puuid, p.region).
			Err(err).
			Log()
		return false
	}
	return true
}

// CatalogPipeline refreshes the static catalogs with full-replace
// semantics. The upstream versions these datasets as a whole and offers no
// incremental diff, so delete-all-then-insert-all is the only correct move.
type CatalogPipeline struct {
	api    UpstreamAPI
	store  MatchStore
	logger *Logger
}

func NewCatalogPipeline(api UpstreamAPI, store MatchStore, logger *Logger) *CatalogPipeline {
	return &CatalogPipeline{api: api, store: store, logger: logger}
}

func (p *CatalogPipeline) Run(ctx context.Context) IngestionReport {
	report := IngestionReport{}

	catalogs := []struct {
		kind    string
		refresh func() (int, error)
	}{
		{"champions", func() (int, error) {
			champions := p.api.GetChampions(ctx)
			if len(champions) == 0 {
				return 0, nil
			}
			return len(champions), p.store.ReplaceChampions(ctx, champions)
		}},
		{"items", func() (int, error) {
			items := p.api.GetItems(ctx)
			if len(items) == 0 {
				return 0, nil
			}
			return len(items), p.store.ReplaceItems(ctx, items)
		}},
		{"queues", func() (int, error) {
			queues := p.api.GetQueues(ctx)
			if len(queues) == 0 {
				return 0, nil
			}
			return len(queues), p.store.ReplaceQueues(ctx, queues)
		}},
	}

	for _, catalog := range catalogs {
		if ctx.Err() != nil {
			break
		}
		count, err := catalog.refresh()
		report.Processed++
		if err != nil {
			report.Failed++
			p.logger.Error("catalog_refresh_failed").
				Component("catalog_pipeline").
				Operation("refresh").
				Err(err).
				Meta("catalog", catalog.kind).
				Log()
			continue
		}
		if count == 0 {
			// Empty fetch: the error was already logged by the client.
			// Keep the previous catalog rather than replacing it with
			// nothing.
			report.Failed++
			continue
		}
		report.Inserted += count
	}

	return report
}
