package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/depex/internal/adapters/telemetry"
	"go.trai.ch/depex/internal/engine/scheduler"
)

// RunOptions configuration for the Run, Plan and Watch methods.
type RunOptions struct {
	// Seed names a command to run even if its inputs are unchanged.
	Seed string
	// Only restricts a seeded run to the seed itself.
	Only bool
}

func (o RunOptions) scheduler() scheduler.Options {
	opts := scheduler.Options{Seed: o.Seed, Mode: scheduler.ModeExpand}
	if o.Only {
		opts.Mode = scheduler.ModeOnly
	}
	return opts
}

// Run re-runs every command affected by changed inputs.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	_, err := a.run(ctx, opts)
	return err
}

func (a *App) run(ctx context.Context, opts RunOptions) (*scheduler.Report, error) {
	// Create a bridge that sends OTel spans to the renderer.
	bridge := telemetry.NewBridge(a.renderer)
	tp := setupOTel(bridge)
	defer func() {
		_ = tp.Shutdown(context.WithoutCancel(ctx))
	}()

	// The renderer also receives command output directly via the batcher.
	tracer := telemetry.NewOTelTracer("depex").WithRenderer(a.renderer)

	sched := scheduler.NewScheduler(a.detector, a.executor, a.fingerprinter, tracer, a.logger)

	if err := a.renderer.Start(ctx); err != nil {
		return nil, err
	}
	report, err := sched.Run(ctx, a.handle(), opts.scheduler())
	stopErr := a.renderer.Stop()
	if err != nil {
		return report, err
	}
	if stopErr != nil {
		return report, stopErr
	}

	if report.Plan.Empty() {
		a.logger.Info("nothing to do, all inputs are up to date")
		return report, nil
	}
	a.logger.Info(fmt.Sprintf("ran %d command(s), recorded %d fingerprint(s)", len(report.Executed), len(report.Updated)))
	return report, nil
}

// Plan prints what Run would do without executing anything.
func (a *App) Plan(ctx context.Context, opts RunOptions) error {
	sched := scheduler.NewScheduler(a.detector, a.executor, a.fingerprinter, telemetry.NewNoOpTracer(), a.logger)

	plan, err := sched.Plan(ctx, a.handle(), opts.scheduler())
	if err != nil {
		return err
	}
	return WritePlan(a.stdout, plan)
}

// setupOTel configures the OpenTelemetry SDK with the renderer bridge.
func setupOTel(bridge *telemetry.Bridge) *sdktrace.TracerProvider {
	tp := telemetry.NewProvider(bridge)

	// Register it as the global provider.
	otel.SetTracerProvider(tp)
	return tp
}
