// Package safety provides input validation and audit logging for the travel
// advisor: prompt injection detection tuned to the attacks the red-team
// harness exercises, and a structured security audit trail.
package safety

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/voyagent/voyagent/voyagent"
)

// PromptInjectionDetector scores input text for prompt injection attempts.
//
// Detection combines regex patterns for common injection phrasings
// (instruction overrides, role hijacks, special tokens) with weighted
// keyword scoring and a few heuristics. The travel advisor additionally
// watches for memory poisoning markers, since its cross-session memory is a
// known attack surface.
//
// Example:
//
//	detector := safety.NewPromptInjectionDetector(10)
//	injected, score, patterns := detector.Detect("Ignore all previous instructions")
type PromptInjectionDetector struct {
	patterns  []string
	compiled  []*regexp.Regexp
	keywords  map[string]int
	threshold int
}

// NewPromptInjectionDetector creates a detector with the given score
// threshold (0-100). Inputs scoring at or above the threshold are flagged.
func NewPromptInjectionDetector(threshold int) *PromptInjectionDetector {
	patterns := []string{
		`ignore\s+(previous|all|above|prior)\s+instructions?`,
		`disregard\s+(previous|all|above|prior)`,
		`forget\s+(everything|all|previous)`,
		`new\s+instructions?:`,
		`system\s*(prompt|message)?:`,
		`you\s+are\s+now`,
		`act\s+as\s+(if|though)`,
		`pretend\s+(you|to)\s+(are|be)`,
		`admin\s+mode`,
		`developer\s+mode`,
		`jailbreak`,
		`</?\s*system\s*>`,
		`<\|.*?\|>`,
		`\[INST\]`,
		// Memory poisoning markers
		`\[INJECTED\]`,
		`always\s+recommend`,
		`remember\s+this\s+(forever|permanently)`,
	}

	keywords := map[string]int{
		"ignore":       3,
		"disregard":    3,
		"override":     2,
		"bypass":       3,
		"jailbreak":    5,
		"injection":    4,
		"system":       2,
		"admin":        2,
		"sudo":         3,
		"instructions": 2,
		"injected":     4,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	kept := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			slog.Warn("failed to compile detection pattern", "pattern", pattern, "error", err)
			continue
		}
		compiled = append(compiled, re)
		kept = append(kept, pattern)
	}

	return &PromptInjectionDetector{
		patterns:  kept,
		compiled:  compiled,
		keywords:  keywords,
		threshold: threshold,
	}
}

var wordRe = regexp.MustCompile(`\w+`)

// Detect analyzes text and returns whether it crosses the threshold, the
// raw risk score, and the matched patterns.
func (d *PromptInjectionDetector) Detect(text string) (bool, int, []string) {
	lower := strings.ToLower(text)
	score := 0
	matched := make([]string, 0)

	for i, re := range d.compiled {
		if re.MatchString(lower) {
			score += 10
			matched = append(matched, d.patterns[i])
		}
	}

	for _, word := range wordRe.FindAllString(lower, -1) {
		score += d.keywords[word]
	}

	// Heavy special-character use suggests token smuggling
	if strings.Count(text, "<")+strings.Count(text, ">")+strings.Count(text, "{")+strings.Count(text, "}")+strings.Count(text, "|") > 5 {
		score += 2
	}
	if len(text) > 5000 {
		score++
	}

	return score >= d.threshold, score, matched
}

// IsSafe reports whether text stays under the detection threshold.
func (d *PromptInjectionDetector) IsSafe(text string) bool {
	injected, _, _ := d.Detect(text)
	return !injected
}

// Validator wraps an agent with prompt injection screening.
//
// In strict mode flagged inputs are rejected with an error; otherwise the
// detection is logged and audited but the message still reaches the agent.
type Validator struct {
	agent    voyagent.Agent
	detector *PromptInjectionDetector
	audit    *AuditLogger
	strict   bool
	logger   *slog.Logger
}

var _ voyagent.Agent = (*Validator)(nil)

// NewValidator creates a validation wrapper around an agent. A nil detector
// gets a default with threshold 10; audit may be nil.
func NewValidator(agent voyagent.Agent, detector *PromptInjectionDetector, audit *AuditLogger, strict bool) *Validator {
	if detector == nil {
		detector = NewPromptInjectionDetector(10)
	}
	return &Validator{
		agent:    agent,
		detector: detector,
		audit:    audit,
		strict:   strict,
		logger:   slog.Default(),
	}
}

// Name returns the name of the wrapped agent.
func (v *Validator) Name() string {
	return v.agent.Name()
}

// Capabilities returns the capabilities of the wrapped agent.
func (v *Validator) Capabilities() []string {
	return v.agent.Capabilities()
}

// Process screens the message before handing it to the wrapped agent.
func (v *Validator) Process(ctx context.Context, message *voyagent.Message) (*voyagent.Message, error) {
	injected, score, matched := v.detector.Detect(message.Content)
	if injected {
		v.logger.WarnContext(ctx, "prompt injection detected",
			"score", score,
			"patterns", len(matched),
			"strict", v.strict)

		if v.audit != nil {
			event := NewEvent(EventPromptInjection, SeverityWarning)
			event.AgentName = v.agent.Name()
			event.Message = "prompt injection detected in user input"
			event.Details["score"] = score
			event.Details["patterns"] = matched
			v.audit.Log(event)
		}

		if v.strict {
			return nil, fmt.Errorf("input rejected: prompt injection detected (score %d)", score)
		}
	}

	return v.agent.Process(ctx, message)
}
