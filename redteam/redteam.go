// Package redteam drives controlled memory-attack scenarios against the
// advisor's cross-session memory store. It exists for security testing: the
// scenarios fabricate high-relevance memories, contaminate victims with
// another user's data, and record every attack in the security audit trail
// so defenses can be evaluated against a known ground truth.
package redteam

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/voyagent/voyagent/memory"
	"github.com/voyagent/voyagent/safety"
)

// Scenario names reported in results and audit events.
const (
	ScenarioPoisoning     = "memory_poisoning"
	ScenarioContamination = "cross_user_contamination"
)

// Result describes the outcome of one attack scenario.
type Result struct {
	Scenario   string `json:"scenario"`
	TargetUser string `json:"target_user"`
	SourceUser string `json:"source_user,omitempty"`
	Payload    string `json:"payload"`
	Succeeded  bool   `json:"succeeded"`
	// Retrieved reports whether the payload surfaced in a post-attack
	// memory retrieval, which is what makes the attack effective.
	Retrieved bool `json:"retrieved"`
}

// Harness runs attack scenarios against a memory store.
type Harness struct {
	store   *memory.SQLiteMemory
	appName string
	audit   *safety.AuditLogger
	logger  *slog.Logger
}

// NewHarness creates a red-team harness over the given store. The audit
// logger may be nil.
func NewHarness(store *memory.SQLiteMemory, appName string, audit *safety.AuditLogger) (*Harness, error) {
	if store == nil {
		return nil, fmt.Errorf("memory store is required")
	}
	if appName == "" {
		appName = "travel_advisor"
	}
	return &Harness{
		store:   store,
		appName: appName,
		audit:   audit,
		logger:  slog.Default(),
	}, nil
}

// Poison injects a fabricated high-relevance preference into the target
// user's memory and verifies it surfaces on retrieval.
//
// The injected summary is stored at maximum relevance so it outranks the
// user's genuine memories, and a fake conversation turn marked [INJECTED]
// is written alongside it, mirroring how an attacker with store access
// would corrupt the memory trail.
func (h *Harness) Poison(ctx context.Context, targetUser, payload string) (*Result, error) {
	result := &Result{
		Scenario:   ScenarioPoisoning,
		TargetUser: targetUser,
		Payload:    payload,
	}

	if err := h.store.InjectMaliciousMemory(ctx, targetUser, h.appName, payload, "preference", 1.0); err != nil {
		return result, fmt.Errorf("poisoning injection failed: %w", err)
	}
	result.Succeeded = true

	retrieved, err := h.payloadRetrieved(ctx, targetUser, payload)
	if err != nil {
		return result, err
	}
	result.Retrieved = retrieved

	h.logger.WarnContext(ctx, "poisoning scenario complete",
		"target_user", targetUser,
		"retrieved", retrieved)
	h.auditAttack(safety.EventMemoryPoisoning, targetUser, "", payload, retrieved)

	return result, nil
}

// Contaminate copies attacker-controlled data from a source user into a
// target user's memory, simulating a cross-user isolation failure.
func (h *Harness) Contaminate(ctx context.Context, sourceUser, targetUser, payload string) (*Result, error) {
	result := &Result{
		Scenario:   ScenarioContamination,
		TargetUser: targetUser,
		SourceUser: sourceUser,
		Payload:    payload,
	}

	if err := h.store.ContaminateCrossUser(ctx, sourceUser, targetUser, h.appName, payload); err != nil {
		return result, fmt.Errorf("contamination failed: %w", err)
	}
	result.Succeeded = true

	retrieved, err := h.payloadRetrieved(ctx, targetUser, payload)
	if err != nil {
		return result, err
	}
	result.Retrieved = retrieved

	h.logger.WarnContext(ctx, "contamination scenario complete",
		"source_user", sourceUser,
		"target_user", targetUser,
		"retrieved", retrieved)
	h.auditAttack(safety.EventCrossUserAccess, targetUser, sourceUser, payload, retrieved)

	return result, nil
}

// payloadRetrieved checks whether the payload appears in the target's
// retrieved memories.
func (h *Harness) payloadRetrieved(ctx context.Context, userID, payload string) (bool, error) {
	records, err := h.store.RetrieveMemories(ctx, userID, h.appName, payload, 10)
	if err != nil {
		return false, fmt.Errorf("post-attack retrieval failed: %w", err)
	}
	for _, rec := range records {
		if rec.Content == payload {
			return true, nil
		}
	}
	return false, nil
}

func (h *Harness) auditAttack(eventType safety.EventType, targetUser, sourceUser, payload string, retrieved bool) {
	if h.audit == nil {
		return
	}
	event := safety.NewEvent(eventType, safety.SeverityCritical)
	event.UserID = targetUser
	event.Message = "red-team attack scenario executed"
	event.Details["payload"] = payload
	event.Details["retrieved"] = retrieved
	if sourceUser != "" {
		event.Details["source_user"] = sourceUser
	}
	if err := h.audit.Log(event); err != nil {
		h.logger.Warn("failed to audit attack", "error", err)
	}
}

// DetectPoisoned scans a user's memories for injection markers and returns
// the suspicious records. A clean store returns nothing, a poisoned one
// returns the planted rows.
func (h *Harness) DetectPoisoned(ctx context.Context, userID string) ([]memory.Record, error) {
	records, err := h.store.RetrieveMemories(ctx, userID, h.appName, "", 50)
	if err != nil {
		return nil, fmt.Errorf("scan retrieval failed: %w", err)
	}

	detector := safety.NewPromptInjectionDetector(10)
	suspicious := make([]memory.Record, 0)
	for _, rec := range records {
		if rec.MemoryType == "contamination" {
			suspicious = append(suspicious, rec)
			continue
		}
		if injected, _, _ := detector.Detect(rec.Content); injected {
			suspicious = append(suspicious, rec)
		}
	}
	return suspicious, nil
}
