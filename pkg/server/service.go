package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mikeboe/toolscout/pkg/clients"
	"github.com/mikeboe/toolscout/pkg/config"
	"github.com/mikeboe/toolscout/pkg/database"
	"github.com/mikeboe/toolscout/pkg/embeddings"
	"github.com/mikeboe/toolscout/pkg/firecrawl"
	"github.com/mikeboe/toolscout/pkg/reportindex"
	"github.com/mikeboe/toolscout/pkg/splitter"
	"github.com/mikeboe/toolscout/pkg/workflow"
)

// Service owns research jobs: creation, background execution, persistence and
// indexing of completed reports.
type Service struct {
	DB       *database.PostgresDB
	Cfg      *config.Config
	Embedder *embeddings.GoogleEmbedder
}

func NewService(ctx context.Context, db *database.PostgresDB, cfg *config.Config) (*Service, error) {
	embedder, err := embeddings.NewGoogleEmbedder(ctx, cfg.EmbeddingModel, cfg.GoogleApiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to init embedder: %w", err)
	}

	return &Service{
		DB:       db,
		Cfg:      cfg,
		Embedder: embedder,
	}, nil
}

type Job struct {
	ID        uuid.UUID       `json:"id"`
	Query     string          `json:"query"`
	Status    string          `json:"status"`
	Phase     string          `json:"phase"`
	Report    *string         `json:"report,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Config    json.RawMessage `json:"config"`
}

type CreateJobRequest struct {
	Query string `json:"query"`
}

func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error) {
	configJSON, _ := json.Marshal(map[string]any{
		"max_tools":       s.Cfg.MaxTools,
		"max_retries":     s.Cfg.MaxRetries,
		"timeout_seconds": s.Cfg.TimeoutSeconds,
		"collection":      s.Cfg.CollectionName,
	})

	jobID := uuid.New()
	query := `
		INSERT INTO research_jobs (id, query, status, config)
		VALUES ($1, $2, 'pending', $3)
		RETURNING id, query, status, phase, created_at, updated_at
	`

	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, jobID, req.Query, configJSON).Scan(
		&job.ID, &job.Query, &job.Status, &job.Phase, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	go s.runWorker(job.ID, req.Query)

	return job, nil
}

func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	query := `
		SELECT id, query, status, phase, report, created_at, updated_at, config
		FROM research_jobs
		WHERE id = $1
	`
	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.Query, &job.Status, &job.Phase, &job.Report, &job.CreatedAt, &job.UpdatedAt, &job.Config,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context) ([]Job, error) {
	query := `
		SELECT id, query, status, phase, report, created_at, updated_at, config
		FROM research_jobs
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(&job.ID, &job.Query, &job.Status, &job.Phase, &job.Report, &job.CreatedAt, &job.UpdatedAt, &job.Config); err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetJobLogs(ctx context.Context, jobID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM research_logs
		WHERE job_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

// SearchReports answers semantic queries across indexed past reports.
func (s *Service) SearchReports(ctx context.Context, query, toolFilter string, topK int) ([]reportindex.Match, error) {
	if topK <= 0 {
		topK = 5
	}

	queryEmbedding, err := s.Embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	store, err := reportindex.New(s.DB.Pool, s.Cfg.CollectionName)
	if err != nil {
		return nil, err
	}
	return store.Search(ctx, queryEmbedding, topK, toolFilter)
}

func (s *Service) runWorker(jobID uuid.UUID, query string) {
	ctx := context.Background()

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = 'running', updated_at = NOW() WHERE id = $1", jobID)

	dbLogger := slog.New(NewDBLogHandler(s.DB, jobID))

	llm, err := clients.GoogleAi(ctx, clients.ModelType(s.Cfg.ReasoningModel))
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("Failed to init LLM: %v", err))
		return
	}
	fc := firecrawl.NewClientWithKey(s.Cfg.FirecrawlApiKey)

	wf := workflow.New(workflow.Config{
		MaxTools:    s.Cfg.MaxTools,
		MaxAttempts: s.Cfg.MaxAttempts(),
		CallTimeout: s.Cfg.CallTimeout(),
	}, fc, fc, llm)
	wf.Logger = dbLogger

	wf.OnPhase = func(phase workflow.Phase, state workflow.State) {
		stateJSON, err := json.Marshal(state)
		if err != nil {
			dbLogger.Error("Failed to marshal state", "error", err)
			return
		}
		_, err = s.DB.Pool.Exec(context.Background(),
			"UPDATE research_jobs SET phase = $2, state = $3, updated_at = NOW() WHERE id = $1",
			jobID, phase.String(), stateJSON)
		if err != nil {
			dbLogger.Error("Failed to save state snapshot", "error", err)
		}
	}

	state, err := wf.Run(ctx, query)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("Research failed: %v", err))
		return
	}

	_, err = s.DB.Pool.Exec(ctx,
		"UPDATE research_jobs SET status = 'completed', report = $2, updated_at = NOW() WHERE id = $1",
		jobID, state.FinalReport)
	if err != nil {
		dbLogger.Error("Failed to save final report", "error", err)
	}

	if err := s.indexReport(ctx, jobID, state); err != nil {
		// Indexing is best-effort; the job itself already succeeded.
		dbLogger.Warn("Failed to index report", "error", err)
	}
}

// indexReport chunks and embeds the final report plus each tool analysis, so
// future queries and the chat assistant can find them.
func (s *Service) indexReport(ctx context.Context, jobID uuid.UUID, state *workflow.State) error {
	if err := s.DB.EnsureVectorExtension(ctx); err != nil {
		return err
	}
	if err := s.DB.CreateReportIndexTable(ctx, s.Cfg.CollectionName, embeddings.Dimension); err != nil {
		return err
	}

	chunker := splitter.NewChunker(s.Cfg.ChunkSize, s.Cfg.ChunkOverlap)

	var sections []reportindex.Section

	chunks, err := chunker.Chunk(state.FinalReport)
	if err != nil {
		return fmt.Errorf("failed to chunk report: %w", err)
	}
	for _, chunk := range chunks {
		sections = append(sections, reportindex.Section{JobID: jobID, Content: chunk})
	}

	for name, analysis := range state.Analyses {
		data, err := json.Marshal(analysis)
		if err != nil {
			continue
		}
		sections = append(sections, reportindex.Section{JobID: jobID, Tool: name, Content: string(data)})
	}

	texts := make([]string, len(sections))
	for i, sec := range sections {
		texts[i] = sec.Content
	}
	vectors, err := s.Embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed sections: %w", err)
	}
	for i := range sections {
		sections[i].Embedding = vectors[i]
	}

	store, err := reportindex.New(s.DB.Pool, s.Cfg.CollectionName)
	if err != nil {
		return err
	}
	return store.Add(ctx, sections)
}

func (s *Service) failJob(ctx context.Context, jobID uuid.UUID, reason string) {
	dbLogger := slog.New(NewDBLogHandler(s.DB, jobID))
	dbLogger.Error(reason)

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = 'failed', updated_at = NOW() WHERE id = $1", jobID)
}
