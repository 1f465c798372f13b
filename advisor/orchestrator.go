package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voyagent/voyagent/voyagent"
)

// Intent classifies a user request for routing.
type Intent string

const (
	// IntentBooking routes to the reservation path.
	IntentBooking Intent = "booking"
	// IntentAdvisory routes to the travel advisor.
	IntentAdvisory Intent = "advisory"
	// IntentGeneral is the fallback; general queries go to the advisor.
	IntentGeneral Intent = "general"
)

var (
	bookingKeywords  = []string{"book", "reserve", "reservation", "booking", "purchase", "buy"}
	advisoryKeywords = []string{"recommend", "suggest", "plan", "advice", "where", "when", "what"}
)

// ClassifyIntent detects the routing intent of a request by keyword match.
// Booking keywords win over advisory keywords; anything else is general.
func ClassifyIntent(request string) Intent {
	lower := strings.ToLower(request)
	for _, kw := range bookingKeywords {
		if strings.Contains(lower, kw) {
			return IntentBooking
		}
	}
	for _, kw := range advisoryKeywords {
		if strings.Contains(lower, kw) {
			return IntentAdvisory
		}
	}
	return IntentGeneral
}

// Orchestrator routes user requests between the travel advisor and the
// reservation path.
//
// Booking requests get a handoff response; advisory and general requests go
// to the advisor. The reservation agent itself is a future integration, so
// the booking path returns a routing acknowledgement.
type Orchestrator struct {
	name    string
	advisor voyagent.Agent
	logger  *slog.Logger
}

var _ voyagent.Agent = (*Orchestrator)(nil)

// NewOrchestrator creates an orchestrator over the given advisor agent.
func NewOrchestrator(advisorAgent voyagent.Agent) (*Orchestrator, error) {
	if advisorAgent == nil {
		return nil, fmt.Errorf("advisor agent is required")
	}
	return &Orchestrator{
		name:    "TravelOrchestrator",
		advisor: advisorAgent,
		logger:  slog.Default(),
	}, nil
}

// Name returns the agent's identifier.
func (o *Orchestrator) Name() string {
	return o.name
}

// Capabilities returns the agent's capabilities.
func (o *Orchestrator) Capabilities() []string {
	caps := o.advisor.Capabilities()
	return append(caps, "routing")
}

// Process routes the message by intent and returns the chosen path's
// response. The resolved route is recorded in the response metadata.
func (o *Orchestrator) Process(ctx context.Context, message *voyagent.Message) (*voyagent.Message, error) {
	if message == nil {
		return nil, fmt.Errorf("message cannot be nil")
	}

	intent := ClassifyIntent(message.Content)
	o.logger.InfoContext(ctx, "routing request", "intent", string(intent))

	if intent == IntentBooking {
		response := voyagent.NewMessage("agent", "Routing to reservation agent for booking assistance...")
		response.Metadata["route"] = "reservation"
		response.Metadata["intent"] = string(intent)
		return response, nil
	}

	response, err := o.advisor.Process(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("advisor failed: %w", err)
	}
	response.Metadata["route"] = "advisor"
	response.Metadata["intent"] = string(intent)
	return response, nil
}

// Sequential executes a pipeline of agents in order, each receiving the
// previous agent's output. The root agent of the system is a Sequential
// wrapping the orchestrator.
type Sequential struct {
	name   string
	agents []voyagent.Agent
}

var _ voyagent.Agent = (*Sequential)(nil)

// NewSequential creates a pipeline over the given agents.
func NewSequential(name string, agents ...voyagent.Agent) (*Sequential, error) {
	if len(agents) == 0 {
		return nil, fmt.Errorf("at least one agent is required")
	}
	if name == "" {
		name = "SequentialAgent"
	}
	return &Sequential{name: name, agents: agents}, nil
}

// NewRoot builds the root agent: a sequential pipeline containing the
// orchestrator over the given advisor.
func NewRoot(advisorAgent voyagent.Agent) (*Sequential, error) {
	orch, err := NewOrchestrator(advisorAgent)
	if err != nil {
		return nil, err
	}
	return NewSequential("orchestrator", orch)
}

// Name returns the pipeline's identifier.
func (s *Sequential) Name() string {
	return s.name
}

// Capabilities returns the combined capabilities of the pipeline's agents.
func (s *Sequential) Capabilities() []string {
	seen := make(map[string]bool)
	caps := make([]string, 0)
	for _, agent := range s.agents {
		for _, c := range agent.Capabilities() {
			if !seen[c] {
				seen[c] = true
				caps = append(caps, c)
			}
		}
	}
	return append(caps, "sequential")
}

// Process passes the message through each agent in order. The pipeline
// stops at the first error.
func (s *Sequential) Process(ctx context.Context, message *voyagent.Message) (*voyagent.Message, error) {
	if message == nil {
		return nil, fmt.Errorf("message cannot be nil")
	}

	current := message
	for i, agent := range s.agents {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("pipeline cancelled at stage %d: %w", i, ctx.Err())
		default:
		}

		result, err := agent.Process(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("agent %d (%s) failed: %w", i, agent.Name(), err)
		}
		current = result
	}
	return current, nil
}
