package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GarryCodespace/Jarvis/engine"
	"github.com/GarryCodespace/Jarvis/memory"
)

const chatHelp = `Commands:
  /skill <name>   switch skill
  /lang <name>    set the programming language for language-aware skills
  /usage          show memory usage
  /clear          forget the conversation
  /quit           exit`

func newChatCmd() *cobra.Command {
	var (
		metricsAddr string
		skill       string
		language    string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with Claude using the conversation memory (needs ANTHROPIC_API_KEY)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			m, err := a.newManager()
			if err != nil {
				return err
			}
			defer m.Close()
			if err := a.watchPrompts(ctx, m); err != nil {
				return err
			}
			defer a.catalog.Close()

			if skill != "" {
				m.SetActiveSkill(skill)
			}

			if metricsAddr == "" {
				metricsAddr = a.cfg.Metrics.Addr
			}
			if metricsAddr != "" {
				srv := serveMetrics(metricsAddr, a.logger)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			// ANTHROPIC_API_KEY may come from a .env file
			_ = godotenv.Load()
			client := anthropic.NewClient()
			eng := engine.NewEngine(&client.Messages, m,
				engine.WithLogger(a.logger),
				engine.WithConfig(&engine.Config{
					Model:     a.cfg.LLM.Model,
					MaxTokens: a.cfg.LLM.MaxTokens,
					MaxTurns:  a.cfg.LLM.MaxTurns,
				}),
			)

			return runChat(ctx, eng, m, cmd.InOrStdin(), cmd.OutOrStdout(), language)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides metrics.addr)")
	cmd.Flags().StringVar(&skill, "skill", "", "Initial skill")
	cmd.Flags().StringVar(&language, "language", "", "Programming language for language-aware skills")

	return cmd
}

// serveMetrics exposes the default Prometheus registry on addr.
func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}

// runChat reads user lines from in until EOF, /quit or ctx is done.
func runChat(ctx context.Context, eng *engine.Engine, m *memory.Manager, in io.Reader, out io.Writer, language string) error {
	// Releases the reader goroutine if it is blocked handing over a line.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintf(out, "Skill: %s. Type /help for commands.\n", m.ActiveSkill())
	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch cmd, arg, _ := strings.Cut(line, " "); cmd {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, chatHelp)
			continue
		case "/skill":
			if arg = strings.TrimSpace(arg); arg == "" {
				fmt.Fprintf(out, "Current skill: %s\n", m.ActiveSkill())
				continue
			}
			m.SetActiveSkill(arg)
			fmt.Fprintf(out, "Skill: %s\n", m.ActiveSkill())
			continue
		case "/lang":
			language = strings.TrimSpace(arg)
			fmt.Fprintf(out, "Language: %q\n", language)
			continue
		case "/usage":
			u := m.GetMemoryUsage()
			fmt.Fprintf(out, "%d events, ~%d bytes, %.1f%% of capacity\n", u.EventCount, u.ApproximateSize, u.UtilizationPercent)
			continue
		case "/clear":
			m.Clear()
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		}

		resp, err := eng.Respond(ctx, &engine.Input{Message: line, ProgrammingLanguage: language})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, resp.Text)
	}
}
