package serve

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"dcc/internal/config"
	"dcc/internal/gateway"
	"dcc/internal/llm"
	"dcc/internal/trace"

	"github.com/spf13/cobra"
)

var (
	addr   string
	replay string
	delay  time.Duration
)

var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a development copilot server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if addr != "" {
			cfg.Gateway.Addr = addr
		}
		if replay != "" {
			cfg.Gateway.Replay = replay
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

		var responder gateway.Responder
		if cfg.Gateway.Replay != "" {
			responder = gateway.NewReplayResponder(cfg.Gateway.Replay, delay)
		} else {
			if cfg.LLM.APIKey == "" {
				return fmt.Errorf("no LLM api key configured; set llm.api_key, OPENAI_API_KEY or --replay")
			}
			provider := llm.NewOpenAI(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
			responder = gateway.NewLLMResponder(provider, cfg.LLM.SystemPrompt)
		}

		srv := gateway.NewServer(responder)
		slog.Info("starting gateway", "addr", cfg.Gateway.Addr, "responder", responder.Name())
		return srv.ListenAndServe(ctx, cfg.Gateway.Addr)
	},
}

func init() {
	Cmd.Flags().StringVarP(&addr, "addr", "a", "", "override gateway listen address")
	Cmd.Flags().StringVarP(&replay, "replay", "r", "", "serve this NDJSON transcript instead of asking the LLM")
	Cmd.Flags().DurationVar(&delay, "delay", 50*time.Millisecond, "pause between replayed events")
}
