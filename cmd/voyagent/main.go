// Command voyagent runs the travel advisor: an interactive chat REPL,
// warehouse bootstrap, memory store maintenance, and the red-team attack
// scenarios used for security testing.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voyagent/voyagent/adapter/llm"
	"github.com/voyagent/voyagent/advisor"
	"github.com/voyagent/voyagent/config"
	"github.com/voyagent/voyagent/memory"
	"github.com/voyagent/voyagent/middleware"
	"github.com/voyagent/voyagent/observability"
	"github.com/voyagent/voyagent/redteam"
	"github.com/voyagent/voyagent/safety"
	"github.com/voyagent/voyagent/session"
	"github.com/voyagent/voyagent/toolbox"
	"github.com/voyagent/voyagent/tools"
	"github.com/voyagent/voyagent/voyagent"
	"github.com/voyagent/voyagent/warehouse"
)

var (
	configPath string
	cfg        *config.Config
)

func main() {
	root := &cobra.Command{
		Use:   "voyagent",
		Short: "Travel advisor agent with cross-session memory",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Logging.Level == "debug" {
				level = slog.LevelDebug
			}
			observability.InitLogging("voyagent", level)
			if _, err := observability.InitTracing("voyagent", cfg.Logging.TraceStdout); err != nil {
				return err
			}
			if _, err := observability.InitMetrics("voyagent"); err != nil {
				return err
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "voyagent.yaml", "config file path")

	root.AddCommand(chatCmd(), setupCmd(), memoryCmd(), redteamCmd(), toolsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRunner(ctx context.Context) (*advisor.Runner, error) {
	model, err := llm.NewLLM(ctx, llm.ProviderConfig{
		Provider:  cfg.Model.Provider,
		ModelName: cfg.Model.Name,
		APIKey:    cfg.Model.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	registry, err := buildRegistry(ctx)
	if err != nil {
		return nil, err
	}

	adv, err := advisor.New(&advisor.Config{
		LLM:         model,
		Instruction: advisorInstruction(cfg.Project.ID, cfg.Warehouse.Dataset, registry),
	})
	if err != nil {
		return nil, err
	}

	root, err := advisor.NewRoot(adv)
	if err != nil {
		return nil, err
	}

	agent, err := buildAgent(root, registry)
	if err != nil {
		return nil, err
	}

	var sessions session.Service
	switch cfg.Sessions.Backend {
	case "file":
		sessions, err = session.NewFileService(cfg.Sessions.Dir)
		if err != nil {
			return nil, err
		}
	default:
		sessions = session.NewInMemoryService()
	}

	var store *memory.SQLiteMemory
	if cfg.Memory.Enabled {
		store, err = memory.NewSQLiteMemory(cfg.Memory.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open memory store: %w", err)
		}
	}

	recent, err := newRecentMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to create working memory: %w", err)
	}

	return advisor.NewRunner(&advisor.RunnerConfig{
		Agent:    agent,
		Sessions: sessions,
		Memory:   store,
		Recent:   recent,
	})
}

// advisorInstruction extends the generated system instruction with the
// registered tool descriptions so the model sees the callable surface.
func advisorInstruction(projectID, datasetID string, registry *tools.Registry) string {
	return advisor.InstructionPrompt(projectID, datasetID) + "\n\n" + registry.Descriptions()
}

// buildAgent assembles the per-turn pipeline: tool dispatch around the root
// agent, tracing and metrics, retries, and input validation outermost.
func buildAgent(root voyagent.Agent, registry *tools.Registry) (voyagent.Agent, error) {
	var agent voyagent.Agent = tools.NewToolAgent(root, registry)
	agent = observability.NewTracingMiddleware(agent, "")
	agent, err := observability.NewMetricsMiddleware(agent)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
	}
	agent = middleware.NewRetryDecorator(agent, middleware.DefaultRetryConfig())
	return safety.NewValidator(agent, nil, nil, false), nil
}

// newRecentMemory selects the session-scoped working memory backend.
func newRecentMemory() (memory.Memory, error) {
	switch cfg.Memory.Recent {
	case "none":
		return nil, nil
	case "redis":
		return memory.NewRedisMemory(cfg.Memory.RedisURL, cfg.Memory.RedisTTL, "voyagent:memory")
	default:
		return memory.NewInMemoryMemory(1000), nil
	}
}

func chatCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive travel advisor session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			runner, err := newRunner(ctx)
			if err != nil {
				return err
			}

			if cfg.Logging.MetricsAddr != "" {
				go func() {
					if err := http.ListenAndServe(cfg.Logging.MetricsAddr, observability.MetricsHandler()); err != nil {
						slog.Error("metrics server stopped", "error", err)
					}
				}()
			}

			sess, err := runner.NewSession(ctx, userID)
			if err != nil {
				return err
			}

			fmt.Printf("Travel advisor ready (session %s, memory %v). Type 'history' to replay recent turns, 'exit' to quit.\n",
				sess.ID, runner.MemoryEnabled())

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					break
				}
				if line == "history" {
					msgs, err := runner.Recent(ctx, sess.ID, 10)
					if err != nil {
						fmt.Fprintln(os.Stderr, "error:", err)
						continue
					}
					for i := len(msgs) - 1; i >= 0; i-- {
						fmt.Printf("[%s] %s\n", msgs[i].Role, msgs[i].Content)
					}
					continue
				}

				response, err := runner.Send(ctx, userID, sess.ID, line)
				if err != nil {
					fmt.Fprintln(os.Stderr, "error:", err)
					continue
				}
				fmt.Println(response.Content)
			}
			return scanner.Err()
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "default_user", "user identifier")
	return cmd
}

func setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Bootstrap the BigQuery warehouse with tables and sample destinations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if cfg.Project.ID == "" {
				return fmt.Errorf("project id is required (set GOOGLE_CLOUD_PROJECT)")
			}

			svc, err := warehouse.NewService(ctx, cfg.Project.ID, cfg.Warehouse.Dataset)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.Initialize(ctx); err != nil {
				return err
			}
			fmt.Printf("Warehouse %s.%s ready with %d sample destinations.\n",
				cfg.Project.ID, cfg.Warehouse.Dataset, len(warehouse.SampleDestinations))
			return nil
		},
	}
}

func openMemory() (*memory.SQLiteMemory, error) {
	if !cfg.Memory.Enabled {
		return nil, fmt.Errorf("memory is disabled in config")
	}
	return memory.NewSQLiteMemory(cfg.Memory.DBPath)
}

func memoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and maintain the cross-session memory store",
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show memory store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openMemory()
			if err != nil {
				return err
			}
			defer store.Close()

			s, err := store.GetStats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Conversations: %d\nSummaries:     %d\nUsers:         %d\nApps:          %d\nDB size:       %.2f MB\n",
				s.TotalConversations, s.TotalSummaries, s.UniqueUsers, s.UniqueApps, s.DBSizeMB)
			return nil
		},
	}

	var clearApp string
	clear := &cobra.Command{
		Use:   "clear <user-id>",
		Short: "Clear a user's memories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openMemory()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ClearUser(cmd.Context(), args[0], clearApp); err != nil {
				return err
			}
			fmt.Printf("Cleared memory for user %s.\n", args[0])
			return nil
		},
	}
	clear.Flags().StringVar(&clearApp, "app", "", "limit to one application scope")

	cmd.AddCommand(stats, clear)
	return cmd
}

// buildRegistry assembles the local tool surface: the mock travel lookups,
// the deliberately vulnerable red-team tools, and, when a project is
// configured, the warehouse toolset served either locally or from a remote
// toolbox server.
func buildRegistry(ctx context.Context) (*tools.Registry, error) {
	registry := tools.NewRegistry()

	local := []voyagent.Tool{
		tools.NewWeatherTool(),
		tools.NewFlightSearchTool(),
		tools.NewHotelSearchTool(),
		tools.NewCurrencyTool(),
		tools.NewFileStoreTool(""),
		tools.NewSQLQueryTool(""),
	}
	for _, tool := range local {
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}

	if cfg.Project.ID == "" {
		return registry, nil
	}

	if cfg.Toolbox.Mock {
		svc, err := warehouse.NewService(ctx, cfg.Project.ID, cfg.Warehouse.Dataset)
		if err != nil {
			return nil, fmt.Errorf("failed to create warehouse service: %w", err)
		}
		mockTools := toolbox.NewMockClient(svc).Tools()
		if cfg.Toolbox.Manifest != "" {
			manifest, err := toolbox.LoadManifest(cfg.Toolbox.Manifest)
			if err != nil {
				return nil, fmt.Errorf("failed to load tool manifest: %w", err)
			}
			specs, err := manifest.ToolsetSpecs(cfg.Toolbox.Toolset)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve toolset: %w", err)
			}
			mockTools = toolbox.FilterTools(mockTools, specs)
		}
		for _, tool := range mockTools {
			if err := registry.Register(tool); err != nil {
				return nil, err
			}
		}
		return registry, nil
	}

	auth, err := toolbox.NewAuthProvider(ctx, cfg.Project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create toolbox auth: %w", err)
	}
	client := toolbox.NewClient(cfg.Toolbox.URL, auth)
	specs, err := client.LoadToolset(ctx, cfg.Toolbox.Toolset)
	if err != nil {
		return nil, fmt.Errorf("failed to load toolset: %w", err)
	}
	for _, spec := range specs {
		if err := registry.Register(toolbox.NewRemoteTool(client, spec)); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func toolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect and invoke the advisor's tools",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := buildRegistry(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Print(registry.Descriptions())
			return nil
		},
	}

	invoke := &cobra.Command{
		Use:   "invoke <tool-name> [params-json]",
		Short: "Invoke a tool directly",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := buildRegistry(cmd.Context())
			if err != nil {
				return err
			}
			tool, ok := registry.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown tool: %s", args[0])
			}

			params := map[string]interface{}{}
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &params); err != nil {
					return fmt.Errorf("invalid params: %w", err)
				}
			}

			result, err := tool.Execute(cmd.Context(), params)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.AddCommand(list, invoke)
	return cmd
}

func redteamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redteam",
		Short: "Run memory attack scenarios for security testing",
	}

	var auditPath string
	newHarness := func() (*redteam.Harness, func(), error) {
		store, err := openMemory()
		if err != nil {
			return nil, nil, err
		}

		var audit *safety.AuditLogger
		if auditPath != "" {
			audit, err = safety.NewAuditLogger(auditPath, safety.SeverityInfo)
			if err != nil {
				store.Close()
				return nil, nil, err
			}
		}

		harness, err := redteam.NewHarness(store, advisor.DefaultAppName, audit)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		cleanup := func() {
			store.Close()
			if audit != nil {
				audit.Close()
			}
		}
		return harness, cleanup, nil
	}

	poison := &cobra.Command{
		Use:   "poison <user-id> <payload>",
		Short: "Inject a fabricated high-relevance memory into a user's store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			harness, cleanup, err := newHarness()
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := harness.Poison(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Poisoning of %s: injected=%v retrieved=%v\n",
				result.TargetUser, result.Succeeded, result.Retrieved)
			return nil
		},
	}

	contaminate := &cobra.Command{
		Use:   "contaminate <source-user> <target-user> <payload>",
		Short: "Copy attacker-controlled data across user boundaries",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			harness, cleanup, err := newHarness()
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := harness.Contaminate(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Printf("Contamination %s -> %s: injected=%v retrieved=%v\n",
				result.SourceUser, result.TargetUser, result.Succeeded, result.Retrieved)
			return nil
		},
	}

	scan := &cobra.Command{
		Use:   "scan <user-id>",
		Short: "Scan a user's memories for injection markers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			harness, cleanup, err := newHarness()
			if err != nil {
				return err
			}
			defer cleanup()

			suspicious, err := harness.DetectPoisoned(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(suspicious) == 0 {
				fmt.Println("No suspicious memories found.")
				return nil
			}
			for _, rec := range suspicious {
				fmt.Printf("[%s/%s] %s\n", rec.Kind, rec.MemoryType, rec.Content)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&auditPath, "audit", "security_audit.log", "audit log path")
	cmd.AddCommand(poison, contaminate, scan)
	return cmd
}
