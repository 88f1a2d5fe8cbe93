// Command clinicflow runs a scripted check-in and check-out of a demo
// appointment against the configured store.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/rom8726/clinicflow"
	"github.com/rom8726/clinicflow/archetype"
	"github.com/rom8726/clinicflow/dialog"
	"github.com/rom8726/clinicflow/imtasks"
	"github.com/rom8726/clinicflow/internal/config"
	"github.com/rom8726/clinicflow/plugins/engine/audit"
	"github.com/rom8726/clinicflow/plugins/engine/metrics"
	"github.com/rom8726/clinicflow/plugins/engine/notifications"
	ratelimiter "github.com/rom8726/clinicflow/plugins/engine/rate-limiter"
	"github.com/rom8726/clinicflow/plugins/engine/telemetry"
	"github.com/rom8726/clinicflow/workflows"
	"github.com/rom8726/clinicflow/workflows/checkin"
	"github.com/rom8726/clinicflow/workflows/checkout"
	"github.com/rom8726/clinicflow/workflows/payment"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, stdout, stderr io.Writer) error {
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	clk := clock.New()

	service, closeService, err := openService(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeService()

	pm, shutdown, registry, err := plugins(cfg, logger, clk, stdout, stderr)
	if err != nil {
		return err
	}
	defer shutdown()

	d, err := seed(ctx, service, clk)
	if err != nil {
		return err
	}

	ext := clinicflow.NewLocalContext()
	ext.SetTill(d.till)
	ext.SetUser(d.clinician)

	script := dialog.NewScript(logger).
		On(checkin.TitleClinician, dialog.Skip()).
		On(checkin.TitleWeight, dialog.Save(map[string]any{"weight": 12.4})).
		On(checkout.TitlePost, dialog.Press(dialog.ButtonYes)).
		On(payment.TitlePay, dialog.Press(dialog.ButtonYes)).
		On(payment.TitleEdit, dialog.Save(nil)).
		On("Print *", dialog.Press(dialog.ButtonOK))

	deps := workflows.Deps{
		Service: service,
		Dialogs: script,
		Clock:   clk,
		Logger:  logger,
		Plugins: pm,
		Printer: printer(stdout),

		AbsorbPolicy: cfg.AbsorbPolicy(),
	}

	in, err := checkin.New(deps, ext, d.appointment.Ref(), checkin.Options{CreateTask: cfg.Checkin.CreateTask})
	if err != nil {
		return fmt.Errorf("build check-in: %w", err)
	}
	out, err := checkout.New(deps, ext, d.appointment.Ref(), checkout.Options{
		EditInvoice:  cfg.Checkout.EditInvoice,
		PrintInvoice: cfg.Checkout.PrintInvoice,
	})
	if err != nil {
		return fmt.Errorf("build check-out: %w", err)
	}

	visualizer := clinicflow.NewVisualizer()
	for _, wf := range []*clinicflow.Workflow{in, out} {
		if err := wf.Run(ctx); err != nil {
			return fmt.Errorf("run %s: %w", wf.Name(), err)
		}

		fmt.Fprintln(stdout, visualizer.RenderTree(wf))
		fmt.Fprintln(stdout, visualizer.RenderHistory(wf))

		if !wf.Outcome().IsCompleted() {
			return fmt.Errorf("%s: %s", wf.Name(), wf.Outcome())
		}
	}

	appointment, err := service.Get(ctx, d.appointment.Ref())
	if err != nil {
		return fmt.Errorf("reload appointment: %w", err)
	}
	fmt.Fprintf(stdout, "appointment %s: %s\n", appointment.Ref(), appointment.GetString(archetype.NodeStatus))

	if registry != nil {
		families, err := registry.Gather()
		if err != nil {
			return fmt.Errorf("gather metrics: %w", err)
		}
		for _, family := range families {
			fmt.Fprintf(stdout, "%s %d series\n", family.GetName(), len(family.GetMetric()))
		}
	}

	return nil
}

func plugins(
	cfg config.Config,
	logger *slog.Logger,
	clk clock.Clock,
	stdout io.Writer,
	stderr io.Writer,
) (*clinicflow.PluginManager, func(), *prometheus.Registry, error) {
	pm := clinicflow.NewPluginManager()
	shutdown := func() {}

	pm.Register(notifications.New(
		notifications.ChannelFunc(func(_ context.Context, n notifications.Notification) error {
			logger.Info("[clinicflow] notification", "type", n.Type, "workflow", n.Workflow, "status", n.Status)

			return nil
		}),
		notifications.NotificationTypeWorkflowCompleted,
		notifications.NotificationTypeWorkflowFailed,
	))

	if cfg.LogLevel() <= slog.LevelDebug {
		pm.Register(audit.New(audit.NewJSONWriter(stderr), audit.WithClock(clk)))
	}

	if cfg.Limits.MaxStarts > 0 {
		pm.Register(ratelimiter.New(cfg.Limits.MaxStarts, cfg.Limits.Refill, ratelimiter.WithClock(clk)))
	}

	if cfg.Tracing.Enabled {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(stdout), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("creating trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		shutdown = func() { _ = tp.Shutdown(context.Background()) }
		pm.Register(telemetry.New(tp.Tracer("clinicflow")))
	}

	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		pm.Register(metrics.New(metrics.NewPrometheusCollector(registry)))
	}

	return pm, shutdown, registry, nil
}

func printer(w io.Writer) imtasks.Printer {
	return imtasks.PrinterFunc(func(_ context.Context, obj *archetype.IMObject) error {
		_, err := fmt.Fprintf(w, "printed %s (%s, amount %.2f)\n",
			obj.Ref(), obj.GetString(archetype.NodeStatus), obj.GetFloat(archetype.NodeAmount))

		return err
	})
}
