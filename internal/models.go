package internal

import "time"

type AccountData struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

type Summoner struct {
	ID            string `json:"id"`
	AccountID     string `json:"accountId"`
	PUUID         string `json:"puuid"`
	ProfileIconID int    `json:"profileIconId"`
	RevisionDate  int64  `json:"revisionDate"`
	SummonerLevel int    `json:"summonerLevel"`
}

type Match struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`
}

type MatchMetadata struct {
	MatchID      string   `json:"matchId"`
	DataVersion  string   `json:"dataVersion"`
	Participants []string `json:"participants"`
}

type MatchInfo struct {
	GameCreation int64              `json:"gameCreation"`
	GameDuration int64              `json:"gameDuration"`
	GameVersion  string             `json:"gameVersion"`
	QueueID      int                `json:"queueId"`
	Participants []MatchParticipant `json:"participants"`
}

type MatchParticipant struct {
	PUUID        string `json:"puuid"`
	SummonerName string `json:"summonerName"`
	ChampionID   int    `json:"championId"`
	TeamID       int    `json:"teamId"`
	Win          bool   `json:"win"`
	Kills        int    `json:"kills"`
	Deaths       int    `json:"deaths"`
	Assists      int    `json:"assists"`
}

// IsBot reports whether a participant slot was filled by a bot. Bot slots
// carry no PUUID and cannot be linked back to a real summoner row.
func (p *MatchParticipant) IsBot() bool {
	return p.PUUID == "" || p.PUUID == "BOT"
}

type Champion struct {
	Key   string `json:"key"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

type Item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Queue struct {
	QueueID     int    `json:"queueId"`
	Map         string `json:"map"`
	Description string `json:"description"`
}

// IngestionReport summarizes one pipeline run for one subject.
type IngestionReport struct {
	Subject   string `json:"subject"`
	Processed int    `json:"processed"`
	Inserted  int    `json:"inserted"`
	Failed    int    `json:"failed"`
	Pages     int    `json:"pages"`
}

func (r *IngestionReport) Merge(other IngestionReport) {
	r.Processed += other.Processed
	r.Inserted += other.Inserted
	r.Failed += other.Failed
	r.Pages += other.Pages
}

type SummonerRefreshTask struct {
	PUUID  string `json:"puuid"`
	Region string `json:"region"`
}

type MatchIngestedEvent struct {
	MatchID string `json:"match_id"`
	Subject string `json:"subject"`
	Region  string `json:"region"`
}

// SyncReport is published after every scheduler iteration.
type SyncReport struct {
	ReportID   string    `json:"report_id"`
	Iteration  uint64    `json:"iteration"`
	Region     string    `json:"region"`
	Subjects   int       `json:"subjects"`
	Inserted   int       `json:"inserted"`
	Failed     int       `json:"failed"`
	Refreshed  bool      `json:"refreshed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
