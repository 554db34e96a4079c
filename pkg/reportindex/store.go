// Package reportindex persists embedded sections of completed research
// reports and answers similarity queries over them.
package reportindex

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Section is one indexed chunk of a report. Tool is empty for chunks of the
// overall comparison text.
type Section struct {
	ID        string    `json:"id"`
	JobID     uuid.UUID `json:"job_id"`
	Tool      string    `json:"tool"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
}

// Match is a search hit with its cosine similarity.
type Match struct {
	Section Section `json:"section"`
	Score   float64 `json:"score"`
}

// Store handles one collection table of report sections.
type Store struct {
	pool      *pgxpool.Pool
	tableName string
}

// isValidTableName guards against SQL injection through collection names:
// lower-case identifier characters only, PostgreSQL length limit.
func isValidTableName(name string) bool {
	matched, _ := regexp.MatchString(`^[a-z_][a-zA-Z0-9_]{0,62}$`, name)
	return matched
}

// New creates a store over the named collection table.
func New(pool *pgxpool.Pool, tableName string) (*Store, error) {
	if !isValidTableName(tableName) {
		return nil, fmt.Errorf("invalid collection name %q: must start with a letter or underscore and contain only alphanumerics and underscores (max 63 chars)", tableName)
	}
	return &Store{pool: pool, tableName: tableName}, nil
}

// Add inserts sections in one batch.
func (s *Store) Add(ctx context.Context, sections []Section) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (job_id, tool, content, embedding)
		VALUES ($1, $2, $3, $4)
	`, pgx.Identifier{s.tableName}.Sanitize())

	batch := &pgx.Batch{}
	for _, sec := range sections {
		batch.Queue(query, sec.JobID, sec.Tool, sec.Content, pgvector.NewVector(sec.Embedding))
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range sections {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert section: %w", err)
		}
	}
	return nil
}

// Search returns the topK most similar sections, optionally restricted to one
// tool name.
func (s *Store) Search(ctx context.Context, queryEmbedding []float32, topK int, toolFilter string) ([]Match, error) {
	embedding := pgvector.NewVector(queryEmbedding)

	var query string
	var args []any
	if toolFilter != "" {
		query = fmt.Sprintf(`
			SELECT id, job_id, tool, content, 1 - (embedding <=> $1) AS similarity
			FROM %s
			WHERE tool = $2
			ORDER BY embedding <=> $1
			LIMIT $3
		`, pgx.Identifier{s.tableName}.Sanitize())
		args = []any{embedding, toolFilter, topK}
	} else {
		query = fmt.Sprintf(`
			SELECT id, job_id, tool, content, 1 - (embedding <=> $1) AS similarity
			FROM %s
			ORDER BY embedding <=> $1
			LIMIT $2
		`, pgx.Identifier{s.tableName}.Sanitize())
		args = []any{embedding, topK}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.Section.ID, &m.Section.JobID, &m.Section.Tool, &m.Section.Content, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return matches, nil
}

// SectionsByJob returns every indexed section of one research job.
func (s *Store) SectionsByJob(ctx context.Context, jobID uuid.UUID) ([]Section, error) {
	query := fmt.Sprintf(`
		SELECT id, job_id, tool, content
		FROM %s
		WHERE job_id = $1
		ORDER BY created_at ASC
	`, pgx.Identifier{s.tableName}.Sanitize())

	rows, err := s.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer rows.Close()

	var sections []Section
	for rows.Next() {
		var sec Section
		if err := rows.Scan(&sec.ID, &sec.JobID, &sec.Tool, &sec.Content); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		sections = append(sections, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return sections, nil
}

// SectionsByTool returns every indexed section mentioning one tool, across
// all jobs in the collection.
func (s *Store) SectionsByTool(ctx context.Context, tool string) ([]Section, error) {
	query := fmt.Sprintf(`
		SELECT id, job_id, tool, content
		FROM %s
		WHERE tool = $1
		ORDER BY created_at ASC
	`, pgx.Identifier{s.tableName}.Sanitize())

	rows, err := s.pool.Query(ctx, query, tool)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer rows.Close()

	var sections []Section
	for rows.Next() {
		var sec Section
		if err := rows.Scan(&sec.ID, &sec.JobID, &sec.Tool, &sec.Content); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		sections = append(sections, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return sections, nil
}
