package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/loqui-ai/loqui/pkg/breaker"
	"github.com/loqui-ai/loqui/pkg/config"
	"github.com/loqui-ai/loqui/pkg/observability"
	"github.com/loqui-ai/loqui/pkg/provider"
	"github.com/loqui-ai/loqui/pkg/ratelimit"
	"github.com/loqui-ai/loqui/pkg/reason"
	"github.com/loqui-ai/loqui/pkg/retry"
	"github.com/loqui-ai/loqui/pkg/router"
)

var (
	modelsFile string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "loqui",
		Short: "LLM orchestration core with provider routing and reasoning strategies",
		Long: `Loqui routes prompts across configured model backends with circuit
breaking, rate limiting, retry with backoff, and cost accounting, and
dispatches reasoning strategies (single-shot, step-by-step, branching,
self-critique, tool-augmented) around the routed call.`,
	}

	rootCmd.PersistentFlags().StringVar(&modelsFile, "models", "", "path to models config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(reasonCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(statusCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func askCmd() *cobra.Command {
	var modelFlag string
	var systemFlag string
	var offlineAware bool

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Route a prompt to the best available model",
		Long: `Routes the prompt across the configured models: the model with the
best success history goes first, with automatic fallback to the
remaining available models on failure.

Use --offline-aware to probe connectivity first and restrict routing
to local inference models when the network is down.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := buildRouter()
			if err != nil {
				return err
			}

			opts := &router.Options{PreferredModel: modelFlag, System: systemFlag}
			ctx := context.Background()

			var resp *provider.Response
			if offlineAware {
				resp, err = r.RouteWithOfflineFallback(ctx, args[0], opts)
			} else {
				resp, err = r.Route(ctx, args[0], opts)
			}
			if err != nil {
				return err
			}

			fmt.Println(resp.Content)
			fmt.Fprintf(os.Stderr, "\n[%s] %d tokens, $%.6f\n", resp.Model, resp.TokensUsed(), resp.Cost)
			return nil
		},
	}

	cmd.Flags().StringVar(&modelFlag, "model", "", "preferred model name")
	cmd.Flags().StringVar(&systemFlag, "system", "", "system prompt")
	cmd.Flags().BoolVar(&offlineAware, "offline-aware", false, "fall back to local models when offline")
	return cmd
}

func reasonCmd() *cobra.Command {
	var modeFlag string
	var personaFlag string
	var civilFlag bool
	var systemFlag string
	var toolsFlag []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "reason [prompt]",
		Short: "Run a prompt through the reasoning engine",
		Long: `Dispatches the prompt through a reasoning strategy before the model
call. Modes: single_shot, chain_of_thought, tree_of_thought, reflexion.
Declaring tools with --tools enables tool-necessity detection; without a
tool pipeline attached the result explains the capability is missing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			r, err := buildRouterFromConfig(cfg)
			if err != nil {
				return err
			}

			engine := reason.New(r,
				reason.WithLogger(logger()),
				reason.WithConfig(engineConfig(cfg.Models.Engine)))
			result := engine.Reason(context.Background(), systemFlag, args[0], reason.Context{
				Mode:           reason.Mode(modeFlag),
				Persona:        personaFlag,
				AvailableTools: toolsFlag,
			}, civilFlag)

			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Println(result.Content)
			if len(result.Steps) > 0 {
				fmt.Fprintln(os.Stderr)
				for _, step := range result.Steps {
					fmt.Fprintf(os.Stderr, "  %d. %s\n", step.Index+1, step.Thought)
				}
			}
			fmt.Fprintf(os.Stderr, "\n[%s] confidence %.2f\n", result.Kind, result.Confidence)
			if result.Degraded != nil {
				fmt.Fprintf(os.Stderr, "degraded (%s): %s\n", result.Degraded.Kind, result.Degraded.Cause)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modeFlag, "mode", "", "reasoning mode")
	cmd.Flags().StringVar(&personaFlag, "persona", "", "persona framing (sarcastic, contrarian, technical, reflective)")
	cmd.Flags().BoolVar(&civilFlag, "civil", false, "append a civil tone constraint")
	cmd.Flags().StringVar(&systemFlag, "system", "", "system prompt")
	cmd.Flags().StringSliceVar(&toolsFlag, "tools", nil, "tools declared available")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the full result as JSON")
	return cmd
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List configured models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPROVIDER\tTEMP\tMAX TOKENS\tCREDENTIALS")
			for _, m := range cfg.Models.Models {
				ready := "missing"
				if cfg.HasProvider(m.Provider) {
					ready = "ok"
				}
				fmt.Fprintf(w, "%s\t%s\t%.1f\t%d\t%s\n", m.Name, m.Provider, m.Temperature, m.MaxTokens, ready)
			}
			return w.Flush()
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show circuit breaker states, metrics, and total cost",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := buildRouter()
			if err != nil {
				return err
			}

			breakers := r.BreakerStatus()
			metrics := r.Metrics()

			names := make([]string, 0, len(breakers))
			for name := range breakers {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tBREAKER\tFAILURES\tREQUESTS\tSUCCEEDED\tFAILED\tCOST")
			for _, name := range names {
				b := breakers[name]
				m := metrics[name]
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t$%.6f\n",
					name, b.State, b.ConsecutiveFailures,
					m.TotalRequests, m.SuccessfulRequests, m.FailedRequests, m.TotalCost)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("\ntotal cost: $%.6f\n", r.TotalCost())
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	if modelsFile != "" {
		return config.LoadWithModelsFile(modelsFile)
	}
	return config.Load()
}

func buildRouter() (*router.Router, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return buildRouterFromConfig(cfg)
}

func buildRouterFromConfig(cfg *config.Config) (*router.Router, error) {
	providers := buildProviders(cfg)

	// Only route to models whose family has credentials configured.
	var models []config.ModelConfig
	for _, m := range cfg.Models.Models {
		if cfg.HasProvider(m.Provider) {
			models = append(models, m)
		}
	}

	opts := []router.Option{router.WithLogger(logger())}
	opts = append(opts, tuningOptions(cfg.Models)...)
	return router.New(models, providers, opts...)
}

func buildProviders(cfg *config.Config) map[string]provider.Provider {
	pricing := cfg.Models.PriceTable()
	return map[string]provider.Provider{
		provider.FamilyOpenAI:    provider.NewOpenAI(cfg.OpenAIKey(), pricing),
		provider.FamilyAnthropic: provider.NewAnthropic(cfg.AnthropicKey(), pricing),
		provider.FamilyGoogle:    provider.NewGoogle(cfg.GoogleKey(), pricing),
		provider.FamilyOllama:    provider.NewOllama(cfg.OllamaBaseURL()),
		provider.FamilyMock:      provider.NewMock(),
	}
}

func tuningOptions(models *config.ModelsConfig) []router.Option {
	var opts []router.Option

	if bc := models.Breaker; bc != (config.BreakerConfig{}) {
		cfg := breaker.DefaultConfig()
		if bc.FailureThreshold > 0 {
			cfg.FailureThreshold = bc.FailureThreshold
		}
		if bc.RecoveryTimeoutMs > 0 {
			cfg.RecoveryTimeout = msToDuration(bc.RecoveryTimeoutMs)
		}
		if bc.HalfOpenProbes > 0 {
			cfg.HalfOpenProbes = bc.HalfOpenProbes
		}
		opts = append(opts, router.WithBreakerConfig(cfg))
	}

	if rl := models.RateLimit; rl != (config.RateLimitConfig{}) {
		cfg := ratelimit.DefaultConfig()
		if rl.WindowMs > 0 {
			cfg.Window = msToDuration(rl.WindowMs)
		}
		if rl.MaxRequests > 0 {
			cfg.MaxRequests = rl.MaxRequests
		}
		opts = append(opts, router.WithRateLimitConfig(cfg))
	}

	if rc := models.Retry; rc != (config.RetryConfig{}) {
		policy := retry.DefaultPolicy()
		if rc.MaxAttempts > 0 {
			policy.MaxAttempts = rc.MaxAttempts
		}
		if rc.BaseBackoffMs > 0 {
			policy.BaseDelay = msToDuration(rc.BaseBackoffMs)
		}
		if rc.MaxBackoffMs > 0 {
			policy.MaxDelay = msToDuration(rc.MaxBackoffMs)
		}
		if rc.JitterMs > 0 {
			policy.JitterMax = msToDuration(rc.JitterMs)
		}
		if rc.AttemptTimeoutMs > 0 {
			policy.AttemptTimeout = msToDuration(rc.AttemptTimeoutMs)
		}
		opts = append(opts, router.WithRetryPolicy(policy))
	}

	return opts
}

func engineConfig(ec config.EngineConfig) reason.Config {
	cfg := reason.Config{
		DefaultMode: reason.Mode(ec.DefaultMode),
		MaxSteps:    ec.MaxSteps,
	}
	if ec.PipelineTimeoutMs > 0 {
		cfg.PipelineTimeout = msToDuration(ec.PipelineTimeoutMs)
	}
	return cfg
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func logger() *zap.Logger {
	if verbose {
		return observability.MustLogger("development")
	}
	return zap.NewNop()
}
