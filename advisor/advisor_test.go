package advisor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/voyagent/voyagent/adapter/llm"
	"github.com/voyagent/voyagent/memory"
	"github.com/voyagent/voyagent/session"
	"github.com/voyagent/voyagent/voyagent"
)

// fakeLLM replies with a canned response and records the window it saw.
type fakeLLM struct {
	reply    string
	lastSeen []*voyagent.Message
}

func (f *fakeLLM) Complete(ctx context.Context, messages []*voyagent.Message, opts ...llm.CallOption) (*voyagent.Message, error) {
	f.lastSeen = messages
	return voyagent.NewMessage("agent", f.reply), nil
}

func (f *fakeLLM) Stream(ctx context.Context, messages []*voyagent.Message, opts ...llm.CallOption) (<-chan *voyagent.Message, error) {
	ch := make(chan *voyagent.Message, 1)
	ch <- voyagent.NewMessage("agent", f.reply)
	close(ch)
	return ch, nil
}

func (f *fakeLLM) Model() string       { return "fake-model" }
func (f *fakeLLM) Unwrap() interface{} { return nil }

// echoAgent responds with a fixed prefix and records the last message.
type echoAgent struct {
	name string
	last *voyagent.Message
	fail bool
}

func (a *echoAgent) Name() string           { return a.name }
func (a *echoAgent) Capabilities() []string { return []string{"conversational"} }
func (a *echoAgent) Process(ctx context.Context, msg *voyagent.Message) (*voyagent.Message, error) {
	if a.fail {
		return nil, fmt.Errorf("agent unavailable")
	}
	a.last = msg
	return voyagent.NewMessage("agent", "echo: "+msg.Content), nil
}

func TestInstructionPrompt(t *testing.T) {
	prompt := InstructionPrompt("test-project", "")

	if !strings.Contains(prompt, "`test-project.travel_data.destinations`") {
		t.Error("prompt missing qualified destinations table")
	}
	if !strings.Contains(prompt, "Double any single quotes") {
		t.Error("prompt missing quote doubling guidance")
	}
	if strings.Contains(prompt, "{bq}") || strings.Contains(prompt, "{dataset}") {
		t.Error("prompt contains unexpanded placeholders")
	}
}

func TestAdvisorConversation(t *testing.T) {
	model := &fakeLLM{reply: "Consider Bali for a budget beach trip."}
	adv, err := New(&Config{LLM: model, ProjectID: "test-project"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	resp, err := adv.Process(context.Background(), voyagent.NewMessage("user", "beach on a budget?"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if resp.Content != "Consider Bali for a budget beach trip." {
		t.Errorf("response = %q", resp.Content)
	}

	// The model sees the system instruction plus the user turn
	if len(model.lastSeen) != 2 {
		t.Fatalf("model saw %d messages, want 2", len(model.lastSeen))
	}
	if model.lastSeen[0].Role != "system" {
		t.Errorf("first message role = %q, want system", model.lastSeen[0].Role)
	}

	// History now holds system, user, agent
	if adv.HistoryLength() != 3 {
		t.Errorf("HistoryLength() = %d, want 3", adv.HistoryLength())
	}

	adv.ClearHistory()
	if adv.HistoryLength() != 1 {
		t.Errorf("HistoryLength() after clear = %d, want 1", adv.HistoryLength())
	}
	if adv.History()[0].Role != "system" {
		t.Error("clear should keep the system instruction")
	}
}

func TestAdvisorHistoryPruning(t *testing.T) {
	model := &fakeLLM{reply: "ok"}
	adv, err := New(&Config{LLM: model, MaxHistory: 5})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 10; i++ {
		msg := voyagent.NewMessage("user", fmt.Sprintf("turn %d", i))
		if _, err := adv.Process(context.Background(), msg); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
	}

	history := adv.History()
	if len(history) > 5 {
		t.Errorf("history length = %d, want at most 5", len(history))
	}
	if history[0].Role != "system" {
		t.Error("pruning must preserve the system instruction")
	}
	last := history[len(history)-1]
	if last.Content != "ok" {
		t.Errorf("last message = %q, want most recent response", last.Content)
	}
}

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		request string
		want    Intent
	}{
		{"I want to book a flight to Paris", IntentBooking},
		{"Please reserve a hotel room", IntentBooking},
		{"Can you recommend a beach destination?", IntentAdvisory},
		{"Where should I go in spring?", IntentAdvisory},
		{"Tell me about Tokyo", IntentGeneral},
		{"BOOK IT NOW", IntentBooking},
	}

	for _, tt := range tests {
		t.Run(tt.request, func(t *testing.T) {
			if got := ClassifyIntent(tt.request); got != tt.want {
				t.Errorf("ClassifyIntent(%q) = %v, want %v", tt.request, got, tt.want)
			}
		})
	}
}

func TestOrchestratorRouting(t *testing.T) {
	adv := &echoAgent{name: "TravelAdvisor"}
	orch, err := NewOrchestrator(adv)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	resp, err := orch.Process(context.Background(), voyagent.NewMessage("user", "book a hotel"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if resp.Metadata["route"] != "reservation" {
		t.Errorf("route = %v, want reservation", resp.Metadata["route"])
	}
	if !strings.Contains(resp.Content, "Routing to reservation agent") {
		t.Errorf("content = %q, want routing acknowledgement", resp.Content)
	}
	if adv.last != nil {
		t.Error("booking request should not reach the advisor")
	}

	resp, err = orch.Process(context.Background(), voyagent.NewMessage("user", "recommend a destination"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if resp.Metadata["route"] != "advisor" {
		t.Errorf("route = %v, want advisor", resp.Metadata["route"])
	}
	if adv.last == nil {
		t.Fatal("advisory request should reach the advisor")
	}

	// General queries default to the advisor
	resp, err = orch.Process(context.Background(), voyagent.NewMessage("user", "tell me about Bali"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if resp.Metadata["intent"] != string(IntentGeneral) {
		t.Errorf("intent = %v, want general", resp.Metadata["intent"])
	}
	if resp.Metadata["route"] != "advisor" {
		t.Errorf("route = %v, want advisor", resp.Metadata["route"])
	}
}

func TestSequentialPipeline(t *testing.T) {
	first := &echoAgent{name: "first"}
	second := &echoAgent{name: "second"}

	seq, err := NewSequential("pipeline", first, second)
	if err != nil {
		t.Fatalf("NewSequential() error = %v", err)
	}

	resp, err := seq.Process(context.Background(), voyagent.NewMessage("user", "hello"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if resp.Content != "echo: echo: hello" {
		t.Errorf("content = %q, want doubled echo", resp.Content)
	}

	failing := &echoAgent{name: "broken", fail: true}
	seq, _ = NewSequential("pipeline", first, failing)
	if _, err := seq.Process(context.Background(), voyagent.NewMessage("user", "hello")); err == nil {
		t.Error("pipeline should stop on agent error")
	}

	if _, err := NewSequential("empty"); err == nil {
		t.Error("NewSequential() with no agents should error")
	}
}

func TestRunnerSessionsOnly(t *testing.T) {
	agent := &echoAgent{name: "TravelAdvisor"}
	runner, err := NewRunner(&RunnerConfig{Agent: agent})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	if runner.MemoryEnabled() {
		t.Error("runner without memory config should be sessions-only")
	}
	if runner.AppName() != DefaultAppName {
		t.Errorf("AppName() = %q, want %q", runner.AppName(), DefaultAppName)
	}

	ctx := context.Background()
	sess, err := runner.NewSession(ctx, "alice")
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	resp, err := runner.Send(ctx, "alice", sess.ID, "hello there")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.Content != "echo: hello there" {
		t.Errorf("response = %q", resp.Content)
	}

	stored, err := runner.Sessions().Get(ctx, DefaultAppName, "alice", sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(stored.Messages) != 2 {
		t.Errorf("session has %d messages, want 2", len(stored.Messages))
	}
}

func TestRunnerMemoryInjection(t *testing.T) {
	store, err := memory.NewSQLiteMemory(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("NewSQLiteMemory() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	agent := &echoAgent{name: "TravelAdvisor"}
	runner, err := NewRunner(&RunnerConfig{
		Agent:    agent,
		Sessions: session.NewInMemoryService(),
		Memory:   store,
	})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	if !runner.MemoryEnabled() {
		t.Fatal("memory should be enabled")
	}

	ctx := context.Background()
	sess, err := runner.NewSession(ctx, "alice")
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	// First turn establishes a preference in memory
	if _, err := runner.Send(ctx, "alice", sess.ID, "I prefer luxury hotels"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	// Second turn should carry injected memory context
	if _, err := runner.Send(ctx, "alice", sess.ID, "plan my next trip"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if agent.last == nil {
		t.Fatal("agent saw no message")
	}
	if !strings.Contains(agent.last.Content, "CONTEXT:") {
		t.Errorf("second turn missing memory context: %q", agent.last.Content)
	}
	if !strings.Contains(agent.last.Content, "USER MESSAGE: plan my next trip") {
		t.Errorf("second turn missing original text: %q", agent.last.Content)
	}

	// The stored conversation keeps the raw user text
	records, err := store.RetrieveMemories(ctx, "alice", DefaultAppName, "", 10)
	if err != nil {
		t.Fatalf("RetrieveMemories() error = %v", err)
	}
	foundRaw := false
	for _, rec := range records {
		if rec.Kind == "conversation" && rec.Content == "plan my next trip" {
			foundRaw = true
		}
	}
	if !foundRaw {
		t.Error("memory should store the raw user text, not the injected version")
	}
}

func TestRunnerRecentMemory(t *testing.T) {
	agent := &echoAgent{name: "TravelAdvisor"}
	runner, err := NewRunner(&RunnerConfig{
		Agent:  agent,
		Recent: memory.NewInMemoryMemory(100),
	})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	ctx := context.Background()
	sess, err := runner.NewSession(ctx, "alice")
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	if _, err := runner.Send(ctx, "alice", sess.ID, "first question"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if _, err := runner.Send(ctx, "alice", sess.ID, "second question"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	msgs, err := runner.Recent(ctx, sess.ID, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("Recent() returned %d messages, want 4", len(msgs))
	}
	if msgs[0].Content != "echo: second question" {
		t.Errorf("newest message = %q, want the last response", msgs[0].Content)
	}
	if msgs[3].Content != "first question" {
		t.Errorf("oldest message = %q, want the first user turn", msgs[3].Content)
	}

	other, err := runner.Recent(ctx, "unknown-session", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("other session has %d messages, want 0", len(other))
	}
}

func TestRunnerWithoutRecentMemory(t *testing.T) {
	runner, err := NewRunner(&RunnerConfig{Agent: &echoAgent{name: "TravelAdvisor"}})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	msgs, err := runner.Recent(context.Background(), "any", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if msgs != nil {
		t.Errorf("Recent() without a backend = %v, want nil", msgs)
	}
}
