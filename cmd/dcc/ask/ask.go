package ask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"dcc/internal/config"
	"dcc/internal/copilot"
	"dcc/internal/db"
	"dcc/internal/history"
	"dcc/internal/render"
	"dcc/internal/trace"

	"github.com/spf13/cobra"
)

var (
	sessionID string
	noHistory bool
	baseURL   string
	raw       bool
)

var Cmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the copilot a question and stream the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if baseURL != "" {
			cfg.Copilot.BaseURL = baseURL
		}

		if cfg.Trace.Enabled {
			shutdown, err := trace.Init(ctx, trace.Config{
				Endpoint: cfg.Trace.Endpoint,
				URLPath:  cfg.Trace.URLPath,
				APIKey:   cfg.Trace.APIKey,
			})
			if err != nil {
				return fmt.Errorf("starting tracing: %w", err)
			}
			defer shutdown(context.WithoutCancel(ctx))
		}

		req := copilot.ChatRequest{Query: strings.Join(args, " ")}

		var store *history.Store
		if !noHistory {
			database, err := db.Open(cfg.DB.Path)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer database.Close()
			if err := database.Migrate(ctx); err != nil {
				return fmt.Errorf("migrating database: %w", err)
			}
			store = history.NewStore(database)

			if sessionID == "" {
				sessionID = history.NewSessionID()
			} else if req.History, err = store.LoadHistory(ctx, sessionID, cfg.Copilot.HistoryTurns); err != nil {
				return fmt.Errorf("loading history: %w", err)
			}
		}

		printer := render.Stdout(raw)
		tr := &copilot.Transcript{Next: printer}
		rec := &history.Recorder{Next: tr}

		client := copilot.NewClient(cfg.Copilot.BaseURL, copilot.WithEndpoint(cfg.Copilot.Endpoint))
		streamErr := client.StreamChat(ctx, req, rec)
		printer.Close()
		if errors.Is(streamErr, copilot.ErrEmptyQuery) {
			return streamErr
		}

		if store != nil {
			// The question is recorded even when the handler chain failed.
			if _, err := store.SaveTurn(context.WithoutCancel(ctx), sessionID, req.Query, tr, rec.Events()); err != nil {
				slog.Error("saving turn", "session_id", sessionID, "error", err)
			}
			slog.Info("turn recorded", "session_id", sessionID, "status", tr.Status())
		}

		if streamErr != nil {
			return streamErr
		}
		if tr.Status() == copilot.StatusFailed {
			return fmt.Errorf("copilot: %s", tr.Err.Message)
		}
		return nil
	},
}

func init() {
	Cmd.Flags().StringVarP(&sessionID, "session", "s", "", "continue an earlier session")
	Cmd.Flags().BoolVar(&noHistory, "no-history", false, "neither load nor record history")
	Cmd.Flags().StringVar(&baseURL, "url", "", "override the copilot base URL")
	Cmd.Flags().BoolVar(&raw, "raw", false, "print events as NDJSON")
}
