package internal

import (
	"encoding/json"
	"net/http"
)

// OpsServer exposes the daemon's operational surface: liveness, the state
// of the sync loop, and process counters. It deliberately serves none of
// the ingested data.
type OpsServer struct {
	scheduler *SyncScheduler
	store     *DatabaseManager
	nats      *NATSClient
	metrics   *MetricsCollector
	logger    *Logger
	region    string
}

func NewOpsServer(cfg *Config, scheduler *SyncScheduler, store *DatabaseManager, nats *NATSClient, metrics *MetricsCollector, logger *Logger) *OpsServer {
	return &OpsServer{
		scheduler: scheduler,
		store:     store,
		nats:      nats,
		metrics:   metrics,
		logger:    logger,
		region:    cfg.RiotRegion,
	}
}

func (s *OpsServer) Routes() *http.ServeMux {
	mw := NewLoggingMiddleware(s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", mw.Handler(s.handleHealthz))
	mux.HandleFunc("/status", mw.Handler(s.handleStatus))
	mux.HandleFunc("/metrics", mw.Handler(s.handleMetrics))
	mux.HandleFunc("/subjects", mw.Handler(s.handleSubjects))
	return mux
}

func (s *OpsServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *OpsServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"region":    s.region,
		"iteration": uint64(0),
	}
	if s.scheduler != nil {
		status["iteration"] = s.scheduler.Iteration()
		if report := s.scheduler.LastReport(); report != nil {
			status["last_report"] = report
		}
	}

	writeJSON(w, http.StatusOK, status)
}

func (s *OpsServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{})
		return
	}
	writeJSON(w, http.StatusOK, s.metrics.GetMetrics())
}

// handleSubjects registers a summoner for tracking and queues an immediate
// profile refresh for it.
func (s *OpsServer) handleSubjects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		PUUID string `json:"puuid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PUUID == "" {
		http.Error(w, "puuid is required", http.StatusBadRequest)
		return
	}

	if err := s.store.TrackSummoner(r.Context(), body.PUUID, s.region); err != nil {
		s.logger.Error("subject_registration_failed").
			Component("ops_http").
			Operation("track_subject").
			Subject(body.PUUID, s.region).
			Err(err).
			Log()
		http.Error(w, "failed to register subject", http.StatusInternalServerError)
		return
	}

	if s.nats != nil {
		task := SummonerRefreshTask{PUUID: body.PUUID, Region: s.region}
		if err := s.nats.PublishSummonerRefreshTask(task); err != nil {
			s.logger.Warn("refresh_task_publish_failed").
				Component("ops_http").
				Operation("track_subject").
				Subject(body.PUUID, s.region).
				Err(err).
				Log()
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"puuid": body.PUUID, "region": s.region})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
