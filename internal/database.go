package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// idChunkSize bounds how many candidate ids ride in a single ANY($1)
// predicate. Postgres handles large arrays fine, but chunking keeps the
// query planner and wire packets sane when a backfill pushes tens of
// thousands of ids through the dedup check.
const idChunkSize = 10000

type DatabaseManager struct {
	DB      *sql.DB
	Enabled bool
	logger  *Logger
}

func NewDatabaseManager(cfg *Config, logger *Logger) (*DatabaseManager, error) {
	if !cfg.DatabaseEnabled {
		logger.Warn("database_disabled").
			Component("database").
			Operation("connect").
			Log()
		return &DatabaseManager{Enabled: false, logger: logger}, nil
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.PostgresHost,
		cfg.PostgresPort,
		cfg.PostgresUser,
		cfg.PostgresPassword,
		cfg.PostgresDb,
		cfg.PostgresSSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, &StoreError{Op: "ping", Err: err}
	}

	logger.Info("database_connected").
		Component("database").
		Operation("connect").
		Log()

	return &DatabaseManager{DB: db, Enabled: true, logger: logger}, nil
}

var bootstrapStatements = []string{
	`CREATE TABLE IF NOT EXISTS tracked_summoners (
		puuid      TEXT PRIMARY KEY,
		region     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS summoners (
		puuid           TEXT PRIMARY KEY,
		region          TEXT NOT NULL,
		game_name       TEXT NOT NULL DEFAULT '',
		tag_line        TEXT NOT NULL DEFAULT '',
		summoner_id     TEXT,
		profile_icon_id INTEGER NOT NULL DEFAULT 0,
		summoner_level  INTEGER NOT NULL DEFAULT 0,
		revision_date   BIGINT NOT NULL DEFAULT 0,
		last_updated    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		match_id      TEXT PRIMARY KEY,
		region        TEXT NOT NULL,
		queue_id      INTEGER NOT NULL,
		game_version  TEXT NOT NULL,
		data_version  TEXT NOT NULL,
		game_creation BIGINT NOT NULL,
		game_duration BIGINT NOT NULL,
		payload       JSONB NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS match_participants (
		match_id    TEXT NOT NULL REFERENCES matches(match_id) ON DELETE CASCADE,
		puuid       TEXT NOT NULL,
		champion_id INTEGER NOT NULL,
		team_id     INTEGER NOT NULL,
		win         BOOLEAN NOT NULL,
		kills       INTEGER NOT NULL,
		deaths      INTEGER NOT NULL,
		assists     INTEGER NOT NULL,
		PRIMARY KEY (match_id, puuid)
	)`,
	`CREATE TABLE IF NOT EXISTS catalog_champions (
		key         TEXT PRIMARY KEY,
		champion_id TEXT NOT NULL,
		name        TEXT NOT NULL,
		title       TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS catalog_items (
		id   INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS catalog_queues (
		queue_id    INTEGER PRIMARY KEY,
		map         TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT ''
	)`,
}

// Bootstrap creates the schema if it does not exist yet, so the daemon can
// come up against a fresh database without migration tooling.
func (dm *DatabaseManager) Bootstrap(ctx context.Context) error {
	if !dm.Enabled {
		return nil
	}

	for _, stmt := range bootstrapStatements {
		if _, err := dm.DB.ExecContext(ctx, stmt); err != nil {
			return &StoreError{Op: "bootstrap", Err: err}
		}
	}
	return nil
}

// ExistingMatchIDs returns the subset of ids that already have a local row.
func (dm *DatabaseManager) ExistingMatchIDs(ctx context.Context, ids []string) ([]string, error) {
	if !dm.Enabled || len(ids) == 0 {
		return nil, nil
	}

	existing := make([]string, 0, len(ids))
	for start := 0; start < len(ids); start += idChunkSize {
		end := start + idChunkSize
		if end > len(ids) {
			end = len(ids)
		}

		rows, err := dm.DB.QueryContext(ctx,
			`SELECT match_id FROM matches WHERE match_id = ANY($1)`,
			pq.Array(ids[start:end]),
		)
		if err != nil {
			return nil, &StoreError{Op: "existing_match_ids", Err: err}
		}

		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, &StoreError{Op: "existing_match_ids", Err: err}
			}
			existing = append(existing, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, &StoreError{Op: "existing_match_ids", Err: err}
		}
		rows.Close()
	}

	return existing, nil
}

// InsertMatchBatch writes one page worth of matches and their participant
// rows in a single transaction, parents before children. ON CONFLICT DO
// NOTHING makes a replayed page harmless.
func (dm *DatabaseManager) InsertMatchBatch(ctx context.Context, region string, matches []*Match) error {
	if !dm.Enabled || len(matches) == 0 {
		return nil
	}

	tx, err := dm.DB.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Op: "insert_match_batch", Err: err}
	}
	defer tx.Rollback()

	matchStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO matches (match_id, region, queue_id, game_version, data_version, game_creation, game_duration, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (match_id) DO NOTHING
	`)
	if err != nil {
		return &StoreError{Op: "insert_match_batch", Err: err}
	}
	defer matchStmt.Close()

	participantStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO match_participants (match_id, puuid, champion_id, team_id, win, kills, deaths, assists)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (match_id, puuid) DO NOTHING
	`)
	if err != nil {
		return &StoreError{Op: "insert_match_batch", Err: err}
	}
	defer participantStmt.Close()

	for _, match := range matches {
		payload, err := json.Marshal(match)
		if err != nil {
			return &StoreError{Op: "insert_match_batch", Err: err}
		}

		_, err = matchStmt.ExecContext(ctx,
			match.Metadata.MatchID,
			region,
			match.Info.QueueID,
			match.Info.GameVersion,
			match.Metadata.DataVersion,
			match.Info.GameCreation,
			match.Info.GameDuration,
			payload,
		)
		if err != nil {
			return &StoreError{Op: "insert_match_batch", Err: err}
		}

		for _, p := range match.Info.Participants {
			if p.IsBot() {
				continue
			}
			_, err = participantStmt.ExecContext(ctx,
				match.Metadata.MatchID,
				p.PUUID,
				p.ChampionID,
				p.TeamID,
				p.Win,
				p.Kills,
				p.Deaths,
				p.Assists,
			)
			if err != nil {
				return &StoreError{Op: "insert_match_batch", Err: err}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StoreError{Op: "insert_match_batch", Err: err}
	}
	return nil
}

func (dm *DatabaseManager) UpsertSummoner(ctx context.Context, region string, account *AccountData, summoner *Summoner) error {
	if !dm.Enabled || account == nil {
		return nil
	}

	var summonerID sql.NullString
	var iconID, level int
	var revision int64
	if summoner != nil {
		summonerID = sql.NullString{String: summoner.ID, Valid: summoner.ID != ""}
		iconID = summoner.ProfileIconID
		level = summoner.SummonerLevel
		revision = summoner.RevisionDate
	}

	_, err := dm.DB.ExecContext(ctx, `
		INSERT INTO summoners (puuid, region, game_name, tag_line, summoner_id, profile_icon_id, summoner_level, revision_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (puuid) DO UPDATE SET
			region = $2,
			game_name = $3,
			tag_line = $4,
			summoner_id = $5,
			profile_icon_id = $6,
			summoner_level = $7,
			revision_date = $8,
			last_updated = CURRENT_TIMESTAMP
	`, account.PUUID, region, account.GameName, account.TagLine, summonerID, iconID, level, revision)
	if err != nil {
		return &StoreError{Op: "upsert_summoner", Err: err}
	}
	return nil
}

func (dm *DatabaseManager) ListTrackedSummoners(ctx context.Context) ([]string, error) {
	if !dm.Enabled {
		return nil, nil
	}

	rows, err := dm.DB.QueryContext(ctx, `SELECT puuid FROM tracked_summoners ORDER BY created_at`)
	if err != nil {
		return nil, &StoreError{Op: "list_tracked_summoners", Err: err}
	}
	defer rows.Close()

	var puuids []string
	for rows.Next() {
		var puuid string
		if err := rows.Scan(&puuid); err != nil {
			return nil, &StoreError{Op: "list_tracked_summoners", Err: err}
		}
		puuids = append(puuids, puuid)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list_tracked_summoners", Err: err}
	}
	return puuids, nil
}

func (dm *DatabaseManager) TrackSummoner(ctx context.Context, puuid, region string) error {
	if !dm.Enabled {
		return nil
	}

	_, err := dm.DB.ExecContext(ctx, `
		INSERT INTO tracked_summoners (puuid, region)
		VALUES ($1, $2)
		ON CONFLICT (puuid) DO NOTHING
	`, puuid, region)
	if err != nil {
		return &StoreError{Op: "track_summoner", Err: err}
	}
	return nil
}

// Catalog tables are small and versioned upstream, so refresh is a full
// replace: delete everything, insert everything, one transaction per kind.

func (dm *DatabaseManager) ReplaceChampions(ctx context.Context, champions []Champion) error {
	return dm.replaceCatalog(ctx, "catalog_champions", len(champions), func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO catalog_champions (key, champion_id, name, title) VALUES ($1, $2, $3, $4)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, c := range champions {
			if _, err := stmt.ExecContext(ctx, c.Key, c.ID, c.Name, c.Title); err != nil {
				return err
			}
		}
		return nil
	})
}

func (dm *DatabaseManager) ReplaceItems(ctx context.Context, items []Item) error {
	return dm.replaceCatalog(ctx, "catalog_items", len(items), func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO catalog_items (id, name) VALUES ($1, $2)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, item := range items {
			if _, err := stmt.ExecContext(ctx, item.ID, item.Name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (dm *DatabaseManager) ReplaceQueues(ctx context.Context, queues []Queue) error {
	return dm.replaceCatalog(ctx, "catalog_queues", len(queues), func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO catalog_queues (queue_id, map, description) VALUES ($1, $2, $3)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, q := range queues {
			if _, err := stmt.ExecContext(ctx, q.QueueID, q.Map, q.Description); err != nil {
				return err
			}
		}
		return nil
	})
}

func (dm *DatabaseManager) replaceCatalog(ctx context.Context, table string, count int, insert func(*sql.Tx) error) error {
	if !dm.Enabled || count == 0 {
		return nil
	}

	tx, err := dm.DB.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Op: "replace_" + table, Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return &StoreError{Op: "replace_" + table, Err: err}
	}
	if err := insert(tx); err != nil {
		return &StoreError{Op: "replace_" + table, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &StoreError{Op: "replace_" + table, Err: err}
	}

	dm.logger.Info("catalog_replaced").
		Component("database").
		Operation("replace_catalog").
		Meta("table", table).
		Meta("rows", count).
		Log()
	return nil
}

func (dm *DatabaseManager) Close() {
	if dm.Enabled && dm.DB != nil {
		dm.DB.Close()
	}
}
