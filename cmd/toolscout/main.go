package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mikeboe/toolscout/pkg/clients"
	"github.com/mikeboe/toolscout/pkg/config"
	"github.com/mikeboe/toolscout/pkg/firecrawl"
	"github.com/mikeboe/toolscout/pkg/workflow"
	"github.com/spf13/cobra"
)

var query string

func main() {
	// Setup structured logging
	handler := slog.NewTextHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "toolscout",
		Short: "A terminal-based developer-tool comparison agent",
		Long: `ToolScout researches a technology question by finding candidate tools on the web,
scraping and analyzing each one, and writing a structured comparison report.`,
		Run: func(cmd *cobra.Command, args []string) {
			queryFlagChanged := cmd.Flags().Changed("query")

			if !queryFlagChanged {
				// Interactive Mode
				reader := bufio.NewReader(os.Stdin)

				fmt.Print("Enter research query: ")
				input, _ := reader.ReadString('\n')
				query = strings.TrimSpace(input)
				if query == "" {
					slog.Error("Query cannot be empty")
					os.Exit(1)
				}
			} else {
				if query == "" {
					slog.Error("--query flag provided but empty")
					os.Exit(1)
				}
			}

			if err := cfg.ValidateCredentials(); err != nil {
				slog.Error("Missing credentials", "error", err)
				os.Exit(1)
			}

			slog.Info("Starting research", "query", query)

			llm, err := clients.GoogleAi(context.Background(), clients.ModelType(cfg.ReasoningModel))
			if err != nil {
				slog.Error("Failed to init LLM client", "error", err)
				os.Exit(1)
			}

			fc := firecrawl.NewClientWithKey(cfg.FirecrawlApiKey)

			wf := workflow.New(workflow.Config{
				MaxTools:    cfg.MaxTools,
				MaxAttempts: cfg.MaxAttempts(),
				CallTimeout: cfg.CallTimeout(),
			}, fc, fc, llm)

			state, err := wf.Run(context.Background(), query)
			if err != nil {
				slog.Error("Research failed", "error", err)
				os.Exit(1)
			}

			fmt.Println(state.FinalReport)

			filename := fmt.Sprintf("report_%d.md", time.Now().Unix())
			if err := os.WriteFile(filename, []byte(state.FinalReport), 0644); err != nil {
				slog.Warn("Failed to save report file", "error", err)
			} else {
				slog.Info("Report saved", "file", filename)
			}
		},
	}

	rootCmd.Flags().StringVarP(&query, "query", "q", "", "The research query")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
