package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erp/console/internal/application/listing"
	"github.com/erp/console/internal/application/notify"
	"github.com/erp/console/internal/application/page"
	"github.com/erp/console/internal/domain/capability"
	"github.com/erp/console/internal/domain/entity"
	"github.com/erp/console/internal/domain/session"
	"github.com/erp/console/internal/infrastructure/client"
	"github.com/erp/console/internal/infrastructure/config"
	"github.com/erp/console/internal/infrastructure/logger"
	"github.com/erp/console/internal/infrastructure/sessionstore"
	"github.com/erp/console/internal/infrastructure/telemetry"
	"github.com/erp/console/internal/interfaces/screens"
	"github.com/erp/console/internal/interfaces/view"
)

const shutdownTimeout = 5 * time.Second

// app is everything one command invocation needs. It is built per command
// and closed when the command returns.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	store    sessionstore.Store
	session  *session.Context
	api      *client.Client
	registry *prometheus.Registry
	catalog  *screens.Catalog
	policy   *capability.Policy
	notifier *notify.Center

	telemetry *telemetry.Provider

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func newApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.Demo {
		cfg.List.DemoFallback = true
	}

	log, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log = log.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env))

	tel, err := telemetry.Setup(cmd.Context(), telemetry.Config{
		Enabled:       cfg.Telemetry.Enabled,
		Endpoint:      cfg.Telemetry.Endpoint,
		Insecure:      cfg.Telemetry.Insecure,
		SamplingRatio: cfg.Telemetry.SamplingRatio,
		ServiceName:   cfg.App.Name,
		Logs:          cfg.Telemetry.Logs,
	}, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	log = tel.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	a := &app{
		cfg:       cfg,
		log:       log,
		telemetry: tel,
		in:        cmd.InOrStdin(),
		out:       cmd.OutOrStdout(),
		errOut:    cmd.ErrOrStderr(),
	}
	if err := a.wire(cmd); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// wire opens the session store and builds the collaborators every screen
// shares.
func (a *app) wire(cmd *cobra.Command) error {
	cfg, log := a.cfg, a.log
	store, err := sessionstore.Open(sessionstore.Config{
		Backend:   cfg.Session.Backend,
		Path:      cfg.Session.Path,
		KeyPrefix: cfg.Session.KeyPrefix,
		Driver:    cfg.Session.Driver,
		DSN:       cfg.Session.DSN,
		Redis: sessionstore.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Session.TTL,
		},
	}, log)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	a.store = store
	a.session = session.NewContext(store)

	a.registry = prometheus.NewRegistry()
	metrics, err := client.NewMetrics(a.registry)
	if err != nil {
		return err
	}
	a.api, err = client.New(client.Config{
		BaseURL:  cfg.API.BaseURL,
		BasePath: cfg.API.BasePath,
		Timeout:  cfg.API.Timeout,
		Headers:  cfg.API.Headers,
	}, a.session, client.WithMetrics(metrics), client.WithLogger(log))
	if err != nil {
		return err
	}

	fallback := make(map[string]entity.FallbackPolicy, len(cfg.List.Fallback))
	for name, policy := range cfg.List.Fallback {
		if policy == "sample" {
			fallback[name] = entity.FallbackSample
		} else {
			fallback[name] = entity.FallbackStale
		}
	}
	a.catalog, err = screens.New(screens.Options{
		Demo:     cfg.List.DemoFallback,
		Fallback: fallback,
		Seed:     cfg.List.SampleSeed,
	})
	if err != nil {
		return err
	}
	a.policy, err = capability.NewPolicy(a.catalog.All())
	if err != nil {
		return err
	}

	a.notifier = notify.NewCenter(
		notify.WithTTL(cfg.Notify.TTL),
		notify.WithSink(notify.NewWriterSink(cmd.ErrOrStderr())),
		notify.WithSink(notify.NewLogSink(log)),
	)
	return nil
}

// context attaches the logger and the current actor to ctx.
func (a *app) context(ctx context.Context) context.Context {
	ctx = logger.WithContext(ctx, a.log)
	if actor := a.session.Current(ctx).ActorID; actor != "" {
		ctx = logger.WithActorID(ctx, actor)
	}
	return ctx
}

func (a *app) close() {
	if a.cfg.Metrics.Enabled && a.registry != nil {
		if err := a.writeMetrics(a.errOut); err != nil {
			a.log.Warn("failed to report metrics", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("failed to close session store", zap.Error(err))
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.log.Warn("failed to flush telemetry", zap.Error(err))
	}
	_ = a.log.Sync()
}

func (a *app) screen(name string) (*entity.Schema, error) {
	schema, ok := a.catalog.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown screen %q (available: %s)", name, strings.Join(a.catalog.Names(), ", "))
	}
	return schema, nil
}

func (a *app) page(schema *entity.Schema, assumeYes bool) *page.Page {
	return page.New(schema, page.Deps{
		Session:     a.session,
		Policy:      a.policy,
		API:         a.api,
		Notifier:    a.notifier,
		Navigator:   loginHint{out: a.errOut},
		Confirmer:   newPrompt(a.in, a.errOut, assumeYes),
		ListOptions: []listing.Option{listing.WithPageSize(a.cfg.List.PageSize)},
	})
}

// writeMetrics prints the request counter, one line per label set.
func (a *app) writeMetrics(w io.Writer) error {
	families, err := a.registry.Gather()
	if err != nil {
		return err
	}
	var pairs [][2]string
	for _, mf := range families {
		if mf.GetName() != client.MetricRequestsTotal {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(labels)
			pairs = append(pairs, [2]string{strings.Join(labels, " "), fmt.Sprintf("%.0f", m.GetCounter().GetValue())})
		}
	}
	if len(pairs) == 0 {
		return nil
	}
	fmt.Fprintln(w, "API requests:")
	return view.KeyValues(w, pairs)
}
