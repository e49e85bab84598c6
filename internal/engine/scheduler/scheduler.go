// Package scheduler decides which declared commands must re-run and runs them
// in dependency order.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"maps"
	"slices"

	"go.trai.ch/depex/internal/core/domain"
	"go.trai.ch/depex/internal/core/ports"
	"go.trai.ch/depex/internal/engine/detector"
	"go.trai.ch/depex/internal/engine/state"
	"go.trai.ch/zerr"
)

// Mode selects how far a seeded run propagates.
type Mode uint8

const (
	// ModeExpand runs the seed and every command downstream of it.
	ModeExpand Mode = iota
	// ModeOnly runs the seed alone.
	ModeOnly
)

// String returns the flag name of the mode.
func (m Mode) String() string {
	if m == ModeOnly {
		return "only"
	}
	return "all"
}

// Span attribute keys.
const (
	attrCommand = "depex.command"
	attrArgv    = "depex.argv"
	attrPlanID  = "depex.plan_id"
)

// Options controls a single scheduler invocation.
type Options struct {
	// Seed names a command that runs regardless of input changes. Empty means
	// only changed inputs drive the run.
	Seed string
	// Mode is honoured only together with Seed.
	Mode Mode
}

// Plan is the outcome of change detection and graph analysis, before any
// command runs.
type Plan struct {
	// Changed lists the read paths whose content differs from the record.
	Changed []string
	// Forced lists the seed's read paths, treated as changed for reachability.
	Forced []string
	// Order is the full topological order of the graph. It is empty when the
	// graph was not built.
	Order []domain.Node
	// Commands lists the affected commands in execution order.
	Commands []string
	// ID identifies the affected commands and their order.
	ID string
}

// Empty reports whether the plan runs nothing.
func (p *Plan) Empty() bool {
	return len(p.Commands) == 0
}

// Report describes what a run did.
type Report struct {
	Plan *Plan
	// Executed lists the commands that completed successfully, in order.
	Executed []string
	// Updated lists the paths whose fingerprint was recorded, sorted.
	Updated []string
}

// Scheduler runs affected commands sequentially in topological order.
type Scheduler struct {
	detector      *detector.Detector
	executor      ports.Executor
	fingerprinter ports.Fingerprinter
	tracer        ports.Tracer
	logger        ports.Logger
}

// NewScheduler creates a new Scheduler with the given dependencies.
func NewScheduler(
	det *detector.Detector,
	executor ports.Executor,
	fingerprinter ports.Fingerprinter,
	tracer ports.Tracer,
	logger ports.Logger,
) *Scheduler {
	return &Scheduler{
		detector:      det,
		executor:      executor,
		fingerprinter: fingerprinter,
		tracer:        tracer,
		logger:        logger,
	}
}

// Plan computes which commands a run with opts would execute. Nothing is
// executed and the state is left untouched.
func (s *Scheduler) Plan(ctx context.Context, h *state.Handle, opts Options) (plan *Plan, err error) {
	st, err := h.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := h.Close(ctx); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	plan, _, err = s.plan(ctx, st, opts)
	return plan, err
}

// Run executes every affected command and records the new fingerprints.
//
// Fingerprints of a command's outputs are persisted as soon as it succeeds.
// On failure the run stops, the failing command's outputs keep their old
// fingerprints and the partial report is returned with the error.
func (s *Scheduler) Run(ctx context.Context, h *state.Handle, opts Options) (report *Report, err error) {
	st, err := h.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := h.Close(ctx); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	plan, changes, err := s.plan(ctx, st, opts)
	if err != nil {
		return nil, err
	}

	report = &Report{Plan: plan}
	if plan.Empty() {
		return report, nil
	}

	s.tracer.EmitPlan(ctx, plan.Commands, plan.ID)

	updated := make(map[string]struct{})
	for _, name := range plan.Commands {
		cmd, _ := st.Command(name)

		if err := s.execute(ctx, cmd, plan.ID); err != nil {
			report.Updated = slices.Sorted(maps.Keys(updated))
			return report, zerr.With(zerr.Wrap(domain.Classify(domain.ErrCommandFailed, err), "failed to run command"), "command", name)
		}
		report.Executed = append(report.Executed, name)

		for _, path := range cmd.Writes {
			digest, err := s.fingerprinter.Fingerprint(path)
			if err != nil {
				if errors.Is(err, iofs.ErrNotExist) {
					err = domain.Classify(domain.ErrOutputMissing, err)
				}
				report.Updated = slices.Sorted(maps.Keys(updated))
				return report, zerr.With(zerr.Wrap(err, "failed to record output"), "command", name)
			}
			st.SetFingerprint(path, digest)
			updated[path] = struct{}{}
		}

		if err := h.Checkpoint(ctx); err != nil {
			report.Updated = slices.Sorted(maps.Keys(updated))
			return report, err
		}
	}

	executed := make(map[string]struct{}, len(report.Executed))
	for _, name := range report.Executed {
		executed[name] = struct{}{}
	}

	pending := 0
	for _, c := range changes {
		if _, ok := updated[c.Path]; ok || c.Digest == "" {
			continue
		}
		if !allExecuted(st.Readers(c.Path), executed) {
			pending++
			continue
		}
		st.SetFingerprint(c.Path, c.Digest)
		updated[c.Path] = struct{}{}
	}
	if pending > 0 {
		s.logger.Warn(fmt.Sprintf("%d changed input(s) have readers that did not run and stay pending", pending))
	}

	report.Updated = slices.Sorted(maps.Keys(updated))
	return report, nil
}

// plan runs change detection and, if anything needs to run, builds and
// walks the graph. It also returns the raw changes for recording later.
func (s *Scheduler) plan(ctx context.Context, st *domain.State, opts Options) (*Plan, []detector.Change, error) {
	var seed domain.Command
	if opts.Seed != "" {
		cmd, ok := st.Command(opts.Seed)
		if !ok {
			return nil, nil, zerr.With(zerr.Wrap(domain.ErrCommandNotFound, "unknown command"), "command", opts.Seed)
		}
		seed = cmd
	}

	changes, err := s.detector.Changes(ctx, st)
	if err != nil {
		return nil, nil, err
	}

	plan := &Plan{Changed: make([]string, 0, len(changes)), Forced: seed.Reads}
	for _, c := range changes {
		plan.Changed = append(plan.Changed, c.Path)
	}

	if len(changes) == 0 && opts.Seed == "" {
		plan.ID = domain.PlanID(nil)
		return plan, changes, nil
	}

	graph, err := domain.BuildGraph(st)
	if err != nil {
		return nil, nil, err
	}
	plan.Order = graph.Order()

	var affected domain.NodeSet
	switch {
	case opts.Seed == "":
		roots := make([]domain.Node, 0, len(changes))
		for _, c := range changes {
			roots = append(roots, domain.FileNode(c.Path))
			if c.Digest == "" {
				// A missing output is rebuilt by its writers.
				for _, name := range st.Writers(c.Path) {
					roots = append(roots, domain.CommandNode(name))
				}
			}
		}
		affected = graph.ReachableFrom(roots...)
	case opts.Mode == ModeOnly:
		affected = domain.NodeSet{domain.CommandNode(opts.Seed): {}}
	default:
		affected = graph.ReachableFrom(domain.CommandNode(opts.Seed))
	}

	var nodes []domain.Node
	for _, n := range plan.Order {
		if n.IsCommand() && affected.Has(n) {
			nodes = append(nodes, n)
			plan.Commands = append(plan.Commands, n.ID.String())
		}
	}
	plan.ID = domain.PlanID(nodes)

	return plan, changes, nil
}

// execute runs a single command inside its own span. Output streams into the span.
func (s *Scheduler) execute(ctx context.Context, cmd domain.Command, planID string) error {
	ctx, span := s.tracer.Start(ctx, cmd.Name,
		ports.WithAttribute(attrCommand, cmd.Name),
		ports.WithAttribute(attrArgv, cmd.Argv),
		ports.WithAttribute(attrPlanID, planID),
	)
	defer span.End()

	if err := s.executor.Execute(ctx, cmd, span, span); err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttribute("depex.outputs", len(cmd.Writes))
	return nil
}

func allExecuted(readers []string, executed map[string]struct{}) bool {
	for _, name := range readers {
		if _, ok := executed[name]; !ok {
			return false
		}
	}
	return true
}
