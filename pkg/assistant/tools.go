package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"github.com/mikeboe/toolscout/pkg/config"
	"github.com/mikeboe/toolscout/pkg/database"
	"github.com/mikeboe/toolscout/pkg/embeddings"
	"github.com/mikeboe/toolscout/pkg/reportindex"
)

// ReportToolset exposes the report index to the assistant agent.
type ReportToolset struct {
	DB       *database.PostgresDB
	Embedder *embeddings.GoogleEmbedder
	config   *config.Config
}

func NewReportToolset(db *database.PostgresDB, embedder *embeddings.GoogleEmbedder, cfg *config.Config) *ReportToolset {
	return &ReportToolset{
		DB:       db,
		Embedder: embedder,
		config:   cfg,
	}
}

func (t *ReportToolset) Name() string {
	return "report_tools"
}

func (t *ReportToolset) Tools(ctx agent.ReadonlyContext) ([]tool.Tool, error) {
	searchTool, err := functiontool.New[SearchReportsArgs, SearchReportsResp](
		functiontool.Config{
			Name:        "search_reports",
			Description: "Search past tool comparison reports using semantic search.",
		},
		t.searchReportsTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search tool: %w", err)
	}

	toolSectionsTool, err := functiontool.New[ToolSectionsArgs, ToolSectionsResp](
		functiontool.Config{
			Name:        "find_tool_sections",
			Description: "Find every analyzed section about one specific tool across all reports.",
		},
		t.toolSectionsTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create find_tool_sections tool: %w", err)
	}

	return []tool.Tool{searchTool, toolSectionsTool}, nil
}

// --- Tool Implementations ---

type SearchReportsArgs struct {
	Query string `json:"query" description:"The search query"`
	TopK  int    `json:"topK,omitempty" description:"Number of results to return (default 5)"`
	Tool  string `json:"tool,omitempty" description:"Optional tool name filter"`
}

type SearchReportsResp struct {
	Results string `json:"results"`
}

// Wrapper for the ADK tool interface.
func (t *ReportToolset) searchReportsTool(ctx tool.Context, args SearchReportsArgs) (SearchReportsResp, error) {
	return t.SearchReports(ctx, args)
}

// SearchReports answers semantic queries over indexed report sections.
func (t *ReportToolset) SearchReports(ctx context.Context, args SearchReportsArgs) (SearchReportsResp, error) {
	if args.TopK == 0 {
		args.TopK = 5
	}

	slog.Info("Searching reports", "query", args.Query, "topK", args.TopK, "tool", args.Tool)

	queryEmbedding, err := t.Embedder.EmbedText(ctx, args.Query)
	if err != nil {
		return SearchReportsResp{}, fmt.Errorf("failed to embed query: %w", err)
	}

	store, err := reportindex.New(t.DB.Pool, t.config.CollectionName)
	if err != nil {
		return SearchReportsResp{}, fmt.Errorf("invalid collection name: %w", err)
	}

	matches, err := store.Search(ctx, queryEmbedding, args.TopK, args.Tool)
	if err != nil {
		return SearchReportsResp{}, fmt.Errorf("failed to search: %w", err)
	}

	var formatted []string
	for _, m := range matches {
		var sb strings.Builder
		fmt.Fprintf(&sb, "[Job]: %s\n", m.Section.JobID)
		if m.Section.Tool != "" {
			fmt.Fprintf(&sb, "[Tool]: %s\n", m.Section.Tool)
		}
		fmt.Fprintf(&sb, "[Content]: %s", m.Section.Content)
		formatted = append(formatted, sb.String())
	}

	return SearchReportsResp{Results: strings.Join(formatted, "\n\n")}, nil
}

type ToolSectionsArgs struct {
	Tool string `json:"tool" description:"The tool name to find sections for"`
}

type ToolSectionsResp struct {
	Content string `json:"content"`
}

// Wrapper for the ADK tool interface.
func (t *ReportToolset) toolSectionsTool(ctx tool.Context, args ToolSectionsArgs) (ToolSectionsResp, error) {
	return t.ToolSections(ctx, args)
}

// ToolSections returns every indexed section about one tool.
func (t *ReportToolset) ToolSections(ctx context.Context, args ToolSectionsArgs) (ToolSectionsResp, error) {
	store, err := reportindex.New(t.DB.Pool, t.config.CollectionName)
	if err != nil {
		return ToolSectionsResp{}, fmt.Errorf("invalid collection name: %w", err)
	}

	sections, err := store.SectionsByTool(ctx, args.Tool)
	if err != nil {
		return ToolSectionsResp{}, fmt.Errorf("failed to find sections: %w", err)
	}

	var formatted []string
	for _, sec := range sections {
		formatted = append(formatted, sec.Content)
	}
	return ToolSectionsResp{Content: strings.Join(formatted, "\n\n")}, nil
}
