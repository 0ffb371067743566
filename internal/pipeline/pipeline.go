// Package pipeline orchestrates a single message exchange: eligibility gate,
// inbound filter, reply generation, outbound filter, persistence. The fixed
// step ordering is modeled as a finite state machine; filtering always happens
// before persistence and before the reply is returned, in both directions.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qmuntal/stateless"
	"go.uber.org/zap"

	"github.com/KemboiK/evolve-bot/internal/filter"
	"github.com/KemboiK/evolve-bot/internal/gate"
	"github.com/KemboiK/evolve-bot/internal/generator"
	"github.com/KemboiK/evolve-bot/internal/models"
	"github.com/KemboiK/evolve-bot/internal/store"
)

// FSM states, in pipeline order. Rejected and Failed are the short-circuit
// terminals.
type fsmState stateless.State

var (
	stateReceived         fsmState = "Received"
	stateGateChecked      fsmState = "GateChecked"
	stateInboundFiltered  fsmState = "InboundFiltered"
	stateGenerated        fsmState = "Generated"
	stateOutboundFiltered fsmState = "OutboundFiltered"
	statePersisted        fsmState = "Persisted"
	stateResponded        fsmState = "Responded"
	stateRejected         fsmState = "Rejected"
	stateFailed           fsmState = "Failed"
)

type fsmTrigger stateless.Trigger

var (
	triggerStart      fsmTrigger = "Start"
	triggerGatePassed fsmTrigger = "GatePassed"
	triggerInboundOK  fsmTrigger = "InboundAllowed"
	triggerGenerated  fsmTrigger = "Generated"
	triggerOutboundOK fsmTrigger = "OutboundFiltered"
	triggerPersisted  fsmTrigger = "Persisted"
	triggerResponded  fsmTrigger = "Responded"
	triggerRejected   fsmTrigger = "Rejected"
	triggerFailed     fsmTrigger = "Failed"
)

// historyLimit bounds how many persisted records are replayed to the
// generation provider per call.
const historyLimit = 20

// Generator produces reply text from conversation history, a new message and
// the user's preferred name.
type Generator interface {
	Generate(ctx context.Context, history []models.Record, text, name string) (string, error)
}

// Request is one user turn handed to the pipeline by the transport layer.
type Request struct {
	Text  string
	Name  string
	Claim gate.Claim
}

// Outcome is the pipeline's answer to the transport layer. Rejected outcomes
// are policy decisions, not errors; Process returns a non-nil error only for
// storage failures.
type Outcome struct {
	Reply        string
	Rejected     bool
	Reason       string
	FallbackUsed bool
	RecordID     int64
}

// Pipeline wires the gate, filter policy, generator and store together. It is
// stateless across invocations; concurrent Process calls share only the
// read-only policy and the append-only store.
type Pipeline struct {
	gate   *gate.Gate
	policy *filter.Policy
	gen    Generator
	store  store.Store
	logger *zap.Logger
}

// New creates a pipeline.
func New(g *gate.Gate, policy *filter.Policy, gen Generator, st store.Store, logger *zap.Logger) *Pipeline {
	return &Pipeline{gate: g, policy: policy, gen: gen, store: st, logger: logger}
}

// procState carries one invocation's data through the FSM. The inbound and
// outbound messages are built fully formed, verdict included, at the step
// that judges them.
type procState struct {
	sess *gate.Session
	req  Request

	inbound      models.Message
	outbound     models.Message
	genText      string
	fallbackUsed bool
	reason       string
	recordID     int64
	err          error
}

// Process runs one message through the pipeline. The returned error is a
// storage failure only; policy rejections and provider fallbacks are reported
// through the Outcome.
func (p *Pipeline) Process(ctx context.Context, sess *gate.Session, req Request) (Outcome, error) {
	ps := &procState{sess: sess, req: req}
	fsm := p.configure(ps)

	if err := fsm.FireCtx(ctx, triggerStart); err != nil {
		return Outcome{}, fmt.Errorf("pipeline: %w", err)
	}

	switch fsm.MustState() {
	case stateResponded:
		return Outcome{
			Reply:        ps.outbound.Text,
			FallbackUsed: ps.fallbackUsed,
			RecordID:     ps.recordID,
		}, nil
	case stateRejected:
		if ps.err != nil {
			// audit record could not be written
			return Outcome{}, ps.err
		}
		return Outcome{Rejected: true, Reason: ps.reason, RecordID: ps.recordID}, nil
	case stateFailed:
		if ps.err == nil {
			ps.err = errors.New("pipeline failed without a specific error")
		}
		return Outcome{}, ps.err
	default:
		return Outcome{}, fmt.Errorf("pipeline ended in unexpected state %v", fsm.MustState())
	}
}

func (p *Pipeline) configure(ps *procState) *stateless.StateMachine {
	fsm := stateless.NewStateMachine(stateReceived)

	// Received: run the eligibility gate. Not eligible is terminal; the
	// inbound message is still persisted for audit.
	fsm.Configure(stateReceived).
		PermitReentry(triggerStart).
		OnEntry(func(ctx context.Context, _ ...any) error {
			decision := p.gate.Check(ps.sess, ps.req.Claim)
			if !decision.Eligible {
				ps.reason = string(decision.Reason)
				return fsm.FireCtx(ctx, triggerRejected)
			}
			return fsm.FireCtx(ctx, triggerGatePassed)
		}).
		Permit(triggerGatePassed, stateGateChecked).
		Permit(triggerRejected, stateRejected)

	// GateChecked: filter the inbound text. A rejection is terminal and the
	// generator is never called.
	fsm.Configure(stateGateChecked).
		OnEntry(func(ctx context.Context, _ ...any) error {
			verdict := p.policy.Classify(ps.req.Text, models.DirectionInbound)
			ps.inbound = models.Message{
				UserID:    ps.sess.UserID,
				Text:      ps.req.Text,
				Direction: models.DirectionInbound,
				Verdict:   verdict,
				CreatedAt: time.Now().UTC(),
			}
			if !verdict.Allowed {
				ps.reason = verdict.Reason
				return fsm.FireCtx(ctx, triggerRejected)
			}
			return fsm.FireCtx(ctx, triggerInboundOK)
		}).
		Permit(triggerInboundOK, stateInboundFiltered).
		Permit(triggerRejected, stateRejected)

	// InboundFiltered: call the generation provider with the user's persisted
	// history. A provider failure is not a pipeline failure: substitute the
	// fixed fallback and carry on.
	fsm.Configure(stateInboundFiltered).
		OnEntry(func(ctx context.Context, _ ...any) error {
			history, err := p.store.History(ctx, ps.sess.UserID, historyLimit)
			if err != nil {
				p.logger.Warn("history unavailable, generating without context",
					zap.String("user_id", ps.sess.UserID), zap.Error(err))
				history = nil
			}

			reply, err := p.gen.Generate(ctx, history, ps.req.Text, ps.req.Name)
			if err != nil {
				p.logger.Warn("generation failed, using fallback",
					zap.String("user_id", ps.sess.UserID), zap.Error(err))
				reply = generator.Fallback
				ps.fallbackUsed = true
			}
			ps.genText = reply
			return fsm.FireCtx(ctx, triggerGenerated)
		}).
		Permit(triggerGenerated, stateGenerated)

	// Generated: filter the reply exactly like user input. A rejected reply is
	// replaced by the fallback, never surfaced raw; the verdict kept on the
	// outbound message is the generated text's, the interesting fact for
	// review.
	fsm.Configure(stateGenerated).
		OnEntry(func(ctx context.Context, _ ...any) error {
			verdict := p.policy.Classify(ps.genText, models.DirectionOutbound)
			text := ps.genText
			if !verdict.Allowed {
				p.logger.Warn("generated reply rejected by filter",
					zap.String("user_id", ps.sess.UserID),
					zap.String("reason", verdict.Reason))
				text = generator.Fallback
				ps.fallbackUsed = true
			}
			ps.outbound = models.Message{
				UserID:    ps.sess.UserID,
				Text:      text,
				Direction: models.DirectionOutbound,
				Verdict:   verdict,
				CreatedAt: time.Now().UTC(),
			}
			return fsm.FireCtx(ctx, triggerOutboundOK)
		}).
		Permit(triggerOutboundOK, stateOutboundFiltered)

	// OutboundFiltered: append the record. A storage failure is fatal for
	// this request; the audit trail is a safety requirement.
	fsm.Configure(stateOutboundFiltered).
		OnEntry(func(ctx context.Context, _ ...any) error {
			rec := &models.Record{
				UserID:          ps.sess.UserID,
				InboundText:     ps.inbound.Text,
				OutboundText:    ps.outbound.Text,
				VerdictInbound:  ps.inbound.Verdict.Label(),
				VerdictOutbound: ps.outbound.Verdict.Label(),
				FallbackUsed:    ps.fallbackUsed,
				CreatedAt:       time.Now().UTC(),
			}
			id, err := p.store.Append(ctx, rec)
			if err != nil {
				ps.err = fmt.Errorf("persist record: %w", err)
				return fsm.FireCtx(ctx, triggerFailed)
			}
			ps.recordID = id
			return fsm.FireCtx(ctx, triggerPersisted)
		}).
		Permit(triggerPersisted, statePersisted).
		Permit(triggerFailed, stateFailed)

	fsm.Configure(statePersisted).
		OnEntry(func(ctx context.Context, _ ...any) error {
			return fsm.FireCtx(ctx, triggerResponded)
		}).
		Permit(triggerResponded, stateResponded)

	// Rejected: persist a minimal audit record (inbound text plus the
	// rejection reason, no reply) before reporting the rejection.
	fsm.Configure(stateRejected).
		OnEntry(func(ctx context.Context, _ ...any) error {
			rec := &models.Record{
				UserID:          ps.sess.UserID,
				InboundText:     ps.req.Text,
				OutboundText:    "",
				VerdictInbound:  models.Verdict{Allowed: false, Reason: ps.reason}.Label(),
				VerdictOutbound: "",
				CreatedAt:       time.Now().UTC(),
			}
			id, err := p.store.Append(ctx, rec)
			if err != nil {
				ps.err = fmt.Errorf("persist rejection record: %w", err)
				return nil
			}
			ps.recordID = id
			p.logger.Info("message rejected",
				zap.String("user_id", ps.sess.UserID), zap.String("reason", ps.reason))
			return nil
		})

	return fsm
}
