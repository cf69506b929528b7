package internal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectMatchIngested   = "riftsync.match.ingested"
	SubjectSyncReport      = "riftsync.sync.report"
	SubjectSummonerRefresh = "riftsync.summoner.refresh"
)

type NATSClient struct {
	Conn   *nats.Conn
	logger *Logger
}

func NewNATSClient(cfg *Config, logger *Logger) (*NATSClient, error) {
	conn, err := nats.Connect(cfg.NATSUrl,
		nats.Name(cfg.NATSClientID),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &NATSClient{Conn: conn, logger: logger}, nil
}

func (nc *NATSClient) publishJSON(subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return nc.Conn.Publish(subject, data)
}

func (nc *NATSClient) PublishMatchIngested(event MatchIngestedEvent) error {
	return nc.publishJSON(SubjectMatchIngested, event)
}

func (nc *NATSClient) PublishSyncReport(report SyncReport) error {
	return nc.publishJSON(SubjectSyncReport, report)
}

func (nc *NATSClient) PublishSummonerRefreshTask(task SummonerRefreshTask) error {
	return nc.publishJSON(SubjectSummonerRefresh, task)
}

// StartSummonerRefreshWorker consumes on-demand refresh tasks. The worker
// shares the process rate budget with the scheduler, so a burst of tasks
// queues behind the limiter instead of blowing the quota.
func (nc *NATSClient) StartSummonerRefreshWorker(pipeline *SummonerPipeline) (*nats.Subscription, error) {
	handler := func(msg *nats.Msg) {
		nc.processSummonerRefreshTask(msg, pipeline)
	}

	sub, err := nc.Conn.QueueSubscribe(SubjectSummonerRefresh, "refresh-workers", handler)
	if err != nil {
		return nil, err
	}

	nc.logger.Info("refresh_worker_started").
		Component("nats").
		Operation("subscribe").
		Meta("subject", SubjectSummonerRefresh).
		Log()
	return sub, nil
}

func (nc *NATSClient) processSummonerRefreshTask(msg *nats.Msg, pipeline *SummonerPipeline) {
	var task SummonerRefreshTask
	if err := json.Unmarshal(msg.Data, &task); err != nil {
		nc.logger.Error("refresh_task_decode_failed").
			Component("nats").
			Operation("process_task").
			Err(err).
			Log()
		return
	}
	if task.PUUID == "" {
		nc.logger.Warn("refresh_task_missing_puuid").
			Component("nats").
			Operation("process_task").
			Log()
		return
	}

	ctx := context.Background()
	if pipeline.RefreshOne(ctx, task.PUUID) {
		nc.logger.Info("refresh_task_completed").
			Component("nats").
			Operation("process_task").
			Subject(task.PUUID, task.Region).
			Log()
	} else {
		nc.logger.Warn("refresh_task_failed").
			Component("nats").
			Operation("process_task").
			Subject(task.PUUID, task.Region).
			Log()
	}
}

func (nc *NATSClient) Close() {
	if nc.Conn != nil {
		nc.Conn.Close()
	}
}
