package chatbot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/action"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/chunk"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/event"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/plan"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/logger"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/metrics"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/usecase/grounding"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/usecase/synth"
)

// run tracks the delivery state of one request.
type run struct {
	id       string
	sink     event.Sink
	log      *zap.Logger
	state    State
	seq      int
	full     strings.Builder
	terminal bool
}

func (r *run) enter(s State) {
	if r.state == s {
		return
	}
	r.state = s
	r.log.Debug("State changed", zap.String("state", string(s)))
}

func (r *run) fragment(ctx context.Context, text string) error {
	if err := r.sink.Deliver(ctx, event.Fragment(r.id, r.seq, text)); err != nil {
		return fmt.Errorf("deliver fragment %d: %w", r.seq, err)
	}
	r.seq++
	r.full.WriteString(text)
	return nil
}

func (r *run) succeed(ctx context.Context, sug *action.Suggestion) error {
	if err := r.sink.Deliver(ctx, event.Success(r.id, r.full.String(), sug)); err != nil {
		return fmt.Errorf("deliver terminal: %w", err)
	}
	r.terminal = true
	r.enter(StateCompleted)
	return nil
}

// fail reports cause once, best effort.
func (r *run) fail(ctx context.Context, cause error) {
	from := r.state
	r.enter(StateFailed)
	if r.terminal {
		r.log.Error("Request failed after terminal event", zap.String("from", string(from)), zap.Error(cause))
		return
	}
	code := domain.FailureCode(cause)
	r.log.Error("Request failed",
		zap.String("from", string(from)), zap.String("code", code), zap.Error(cause))
	if err := r.sink.Deliver(ctx, event.Failure(r.id, code)); err != nil {
		r.log.Error("Failure event not delivered", zap.Error(err))
		return
	}
	r.terminal = true
}

// Run processes one question and delivers its events to sink: fragments with
// seq from 0, then exactly one terminal event. It returns the cause of a
// failed run.
func (s *Service) Run(ctx context.Context, requestID string, q domain.Question, sink event.Sink) (err error) {
	ctx, log := logger.With(ctx,
		zap.String("request_id", requestID),
		zap.String("asker_id", q.AskerID),
		zap.String("tenant_id", q.TenantID),
	)
	r := &run{id: requestID, sink: sink, log: log, state: StateReceived}
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			log.Error("Panic in request", zap.Any("panic", p), zap.Stack("stack"))
			err = fmt.Errorf("panic: %v", p)
		}
		if err != nil {
			r.fail(ctx, err)
		}
		metrics.RequestsTotal.WithLabelValues(string(r.state)).Inc()
		metrics.RequestDuration.Observe(time.Since(start).Seconds())
		log.Info("Request finished",
			zap.String("state", string(r.state)),
			zap.Int("fragments", r.seq),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	return s.run(ctx, r, q)
}

func (s *Service) run(ctx context.Context, r *run, q domain.Question) error {
	r.enter(StatePlanning)
	p := s.planner.Plan(ctx, q)
	r.log.Info("Plan ready",
		zap.String("mode", string(p.Mode)),
		zap.Int("semantic_tasks", len(p.SemanticTasks)),
		zap.Int("structured_tasks", len(p.StructuredTasks)),
	)
	for _, t := range p.StructuredTasks {
		r.log.Debug("Structured task not executed", zap.String("name", t.Name), zap.Any("args", t.Args))
	}

	r.enter(StateRetrieving)
	gc, err := s.retrieve(ctx, q, p)
	if err != nil {
		return err
	}

	if gc.Empty() {
		r.enter(StateDeliverInsufficient)
		if err := r.fragment(ctx, grounding.InsufficientMessage); err != nil {
			return err
		}
		return r.succeed(ctx, nil)
	}

	in := synth.Input{
		Question:    q.Text,
		History:     q.History,
		Grounding:   gc,
		AnswerStyle: p.AnswerStyle,
	}

	r.enter(StateSynthesizing)
	for frag, err := range s.synth.Stream(ctx, in) {
		if err != nil {
			return err
		}
		r.enter(StateStreaming)
		if err := r.fragment(ctx, frag); err != nil {
			return err
		}
	}

	r.enter(StateSuggestingAction)
	sug := s.suggester.Suggest(ctx, in)
	return r.succeed(ctx, sug)
}

// retrieve runs the paths the plan selects. Failures leave their part empty;
// a panic in either path fails the request.
func (s *Service) retrieve(ctx context.Context, q domain.Question, p plan.Plan) (grounding.Context, error) {
	log := logger.FromContext(ctx)

	var (
		rs       domain.ResultSet
		snippets []string
		g        errgroup.Group
	)
	if p.Mode.UsesStructured() {
		goRecover(&g, log, "structured", func() error {
			res, qerr := s.structured.Query(ctx, q)
			res, err := domain.Fallback(res, qerr, domain.ResultSet{},
				domain.ErrGuardViolation, domain.ErrProvider, domain.ErrRetrieval)
			switch {
			case err != nil:
				log.Error("Structured retrieval failed", zap.Error(err))
				return nil
			case qerr != nil:
				log.Warn("Structured retrieval degraded to empty", zap.Error(qerr))
			}
			rs = res
			return nil
		})
	}
	if p.Mode.UsesSemantic() {
		goRecover(&g, log, "semantic", func() error {
			snippets = s.semantic.SearchAll(ctx, p.Searches(q.Text), chunk.Filter{TenantID: q.TenantID})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return grounding.Context{}, err
	}

	log.Info("Retrieval done", zap.Int("rows", rs.Len()), zap.Int("snippets", len(snippets)))
	return s.assembler.Assemble(rs, snippets), nil
}

// goRecover runs fn on g and turns a panic into its error. Panics in errgroup
// goroutines would otherwise bypass the recover in Run.
func goRecover(g *errgroup.Group, log *zap.Logger, path string, fn func() error) {
	g.Go(func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				log.Error("Panic in retrieval", zap.String("path", path), zap.Any("panic", p), zap.Stack("stack"))
				err = fmt.Errorf("%s retrieval panic: %v", path, p)
			}
		}()
		return fn()
	})
}
