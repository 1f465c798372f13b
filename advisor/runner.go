package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/voyagent/voyagent/memory"
	"github.com/voyagent/voyagent/session"
	"github.com/voyagent/voyagent/voyagent"
)

// DefaultAppName scopes sessions and memories when no app name is given.
const DefaultAppName = "travel_advisor"

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// AppName scopes sessions and memories (default: "travel_advisor")
	AppName string

	// Agent handles each turn. Required.
	Agent voyagent.Agent

	// Sessions persists conversation turns. Defaults to an in-memory service.
	Sessions session.Service

	// Memory is the optional cross-session store. When nil the runner works
	// in sessions-only mode.
	Memory *memory.SQLiteMemory

	// Recent is the optional session-scoped working memory. Each turn is
	// mirrored into it so resumed sessions can replay recent exchanges
	// without touching the cross-session store.
	Recent memory.Memory

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Runner drives the advisor turn loop: it preloads cross-session memories
// into the user message, invokes the agent, appends both turns to the
// session, and stores the exchange back into memory.
//
// When memory configuration is incomplete the runner degrades to
// sessions-only operation rather than failing; the condition is logged.
type Runner struct {
	appName  string
	agent    voyagent.Agent
	sessions session.Service
	memory   *memory.SQLiteMemory
	recent   memory.Memory
	logger   *slog.Logger
}

// NewRunner creates a runner from the given config.
func NewRunner(config *RunnerConfig) (*Runner, error) {
	if config == nil || config.Agent == nil {
		return nil, fmt.Errorf("agent is required")
	}

	appName := config.AppName
	if appName == "" {
		appName = DefaultAppName
	}
	sessions := config.Sessions
	if sessions == nil {
		sessions = session.NewInMemoryService()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("runner created",
		"app_name", appName,
		"memory_enabled", config.Memory != nil)

	if introspector, ok := config.Agent.(voyagent.Introspector); ok {
		if state := introspector.Introspect(); state != nil {
			logger.Debug("agent state",
				"agent", state.AgentName,
				"capabilities", state.Capabilities,
				"internal", state.InternalState)
		}
	}

	return &Runner{
		appName:  appName,
		agent:    config.Agent,
		sessions: sessions,
		memory:   config.Memory,
		recent:   config.Recent,
		logger:   logger,
	}, nil
}

// NewMemoryRunner creates a runner with cross-session memory when the
// environment carries complete memory configuration (GOOGLE_CLOUD_PROJECT
// and MEMORY_DB_PATH). With incomplete configuration it logs a warning and
// returns a sessions-only runner, matching the degraded behavior users see
// in partially configured deployments.
func NewMemoryRunner(agent voyagent.Agent, appName string) (*Runner, error) {
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	dbPath := os.Getenv("MEMORY_DB_PATH")

	var store *memory.SQLiteMemory
	if projectID == "" || dbPath == "" {
		slog.Warn("memory configuration incomplete, using sessions only",
			"have_project", projectID != "",
			"have_db_path", dbPath != "")
	} else {
		var err error
		store, err = memory.NewSQLiteMemory(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open memory store: %w", err)
		}
	}

	return NewRunner(&RunnerConfig{
		AppName:  appName,
		Agent:    agent,
		Sessions: session.NewInMemoryService(),
		Memory:   store,
	})
}

// AppName returns the runner's application scope.
func (r *Runner) AppName() string {
	return r.appName
}

// MemoryEnabled reports whether cross-session memory is active.
func (r *Runner) MemoryEnabled() bool {
	return r.memory != nil
}

// Sessions returns the runner's session service.
func (r *Runner) Sessions() session.Service {
	return r.sessions
}

// NewSession creates a fresh session for the user.
func (r *Runner) NewSession(ctx context.Context, userID string) (*session.Session, error) {
	return r.sessions.Create(ctx, r.appName, userID)
}

// Send processes one user turn inside a session.
//
// With memory enabled, relevant memories for the user are retrieved first
// and prepended to the message as context. After the agent responds, the
// exchange is appended to the session and stored into memory, which also
// extracts preference and fact summaries from the turn.
func (r *Runner) Send(ctx context.Context, userID, sessionID, text string) (*voyagent.Message, error) {
	if text == "" {
		return nil, fmt.Errorf("message text is required")
	}

	content := text
	if r.memory != nil {
		records, err := r.memory.RetrieveMemories(ctx, userID, r.appName, text, 5)
		if err != nil {
			// Retrieval failure should not block the turn
			r.logger.WarnContext(ctx, "memory retrieval failed", "error", err)
		} else if len(records) > 0 {
			memoryContext := memory.BuildContext(records)
			if memoryContext != "" {
				content = memory.InjectContext(text, memoryContext)
			}
		}
	}

	userMessage := voyagent.NewMessage("user", content)
	if err := r.sessions.AppendMessage(ctx, r.appName, userID, sessionID, userMessage); err != nil {
		return nil, fmt.Errorf("failed to record user message: %w", err)
	}

	response, err := r.agent.Process(ctx, userMessage)
	if err != nil {
		return nil, fmt.Errorf("agent processing failed: %w", err)
	}

	if err := r.sessions.AppendMessage(ctx, r.appName, userID, sessionID, response); err != nil {
		return nil, fmt.Errorf("failed to record agent response: %w", err)
	}

	if r.memory != nil {
		// Store the raw user text, not the context-injected version
		if err := r.memory.StoreConversation(ctx, userID, r.appName, sessionID, text, response.Content, nil); err != nil {
			r.logger.WarnContext(ctx, "memory store failed", "error", err)
		}
	}

	if r.recent != nil {
		// Mirror the raw turn, same as the cross-session store
		for _, msg := range []*voyagent.Message{voyagent.NewMessage("user", text), response} {
			if err := r.recent.Store(ctx, sessionID, msg, nil); err != nil {
				r.logger.WarnContext(ctx, "recent memory store failed", "error", err)
				break
			}
		}
	}

	return response, nil
}

// Recent returns up to limit messages from the session-scoped working
// memory, most recent first. Without a working memory backend it returns
// nothing.
func (r *Runner) Recent(ctx context.Context, sessionID string, limit int) ([]*voyagent.Message, error) {
	if r.recent == nil {
		return nil, nil
	}
	return r.recent.Retrieve(ctx, sessionID, memory.RetrieveOptions{Limit: limit})
}
