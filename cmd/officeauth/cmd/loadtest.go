package cmd

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	officeauth "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/internal"
	otelexport "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/metrics/export/otel"
	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

type loadtestOptions struct {
	sessions     int
	tokens       int
	concurrency  int
	ops          int
	ips          int
	redisLimiter bool
}

func newLoadtestCmd() *cobra.Command {
	opts := loadtestOptions{}

	loadtestCmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Hammer the resolver and the rate limiter in-process",
		Long: `Seeds sessions and bearer tokens, then runs concurrent identity
resolution and login rate-limit checks against the configured backends,
printing latency percentiles and admitted counts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.sessions <= 0 || opts.tokens <= 0 || opts.concurrency <= 0 || opts.ops <= 0 || opts.ips <= 0 {
				return fmt.Errorf("sessions, tokens, concurrency, ops and ips must be > 0")
			}
			return runLoadtest(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := loadtestCmd.Flags()
	f.IntVar(&opts.sessions, "sessions", 10000, "number of sessions to seed")
	f.IntVar(&opts.tokens, "tokens", 10000, "number of bearer tokens to issue")
	f.IntVar(&opts.concurrency, "concurrency", 256, "number of concurrent workers")
	f.IntVar(&opts.ops, "ops", 200000, "operations per phase")
	f.IntVar(&opts.ips, "ips", 1000, "distinct client IPs in the rate-limit phase")
	f.BoolVar(&opts.redisLimiter, "redis-limiter", false, "use the redis limiter instead of the in-memory one")

	return loadtestCmd
}

func runLoadtest(ctx context.Context, out io.Writer, opts loadtestOptions) error {
	logger := zap.NewNop()

	rdb, closeRedis, err := openRedis(ctx, cfg.RedisURL, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	engineCfg := cfg.EngineConfig()
	engineCfg.Audit.Enabled = false
	engineCfg.Metrics.Enabled = true
	engineCfg.Metrics.EnableLatencyHistograms = true
	if opts.redisLimiter {
		engineCfg.RateLimit.Backend = "redis"
	} else {
		engineCfg.RateLimit.Backend = "memory"
	}
	if len(engineCfg.Token.Secret) == 0 {
		secret, err := internal.NewToken(internal.SessionTokenSize)
		if err != nil {
			return err
		}
		engineCfg.Token.Secret = []byte(secret)
		fmt.Fprintln(out, "AUTH_SECRET not set, signing with a throwaway secret")
	}

	engine, err := officeauth.New().WithConfig(engineCfg).WithRedis(rdb).Build()
	if err != nil {
		return fmt.Errorf("build auth engine: %w", err)
	}
	defer engine.Close()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()
	exporter, err := otelexport.NewOTelExporter(provider.Meter("officeauth-loadtest"), engine)
	if err != nil {
		return err
	}
	defer func() { _ = exporter.Close() }()

	fmt.Fprintf(out, "seeding %d sessions and %d tokens...\n", opts.sessions, opts.tokens)
	startSeed := time.Now()
	cookies := make([]string, opts.sessions)
	for i := range cookies {
		c, err := engine.StartSession(ctx, loadtestIdentity(i), "10.0.0.1")
		if err != nil {
			return fmt.Errorf("seed session: %w", err)
		}
		cookies[i] = c.Value
	}
	tokens := make([]string, opts.tokens)
	for i := range tokens {
		tok, _, err := engine.IssueToken(ctx, loadtestIdentity(i))
		if err != nil {
			return fmt.Errorf("seed token: %w", err)
		}
		tokens[i] = tok
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	cookieName := engine.SessionCookieName()
	sessionStats := runPhase(opts.ops, opts.concurrency, func(r *rand.Rand) bool {
		rc := &officeauth.RequestContext{
			Cookies:    []*http.Cookie{{Name: cookieName, Value: cookies[r.Intn(len(cookies))]}},
			RemoteAddr: "10.0.0.1:40000",
		}
		return engine.ResolveIdentity(ctx, rc) != nil
	})

	tokenStats := runPhase(opts.ops, opts.concurrency, func(r *rand.Rand) bool {
		rc := &officeauth.RequestContext{
			Headers:    http.Header{"Authorization": {"Bearer " + tokens[r.Intn(len(tokens))]}},
			RemoteAddr: "10.0.0.1:40000",
		}
		return engine.ResolveIdentity(ctx, rc) != nil
	})

	var admitted, denied atomic.Int64
	limitStats := runPhase(opts.ops, opts.concurrency, func(r *rand.Rand) bool {
		n := r.Intn(opts.ips)
		ip := fmt.Sprintf("10.%d.%d.%d", (n>>16)&0xff, (n>>8)&0xff, n&0xff)
		res, err := engine.CheckRateLimit(ctx, officeauth.OperationLogin, ip)
		if err != nil {
			return false
		}
		if res.Success {
			admitted.Add(1)
		} else {
			denied.Add(1)
		}
		return true
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "resolve/session", sessionStats)
	printStats(out, "resolve/token", tokenStats)
	printStats(out, "ratelimit/login", limitStats)

	budget := engineCfg.RateLimit.Limit(officeauth.OperationLogin)
	fmt.Fprintf(out, "ratelimit/login: admitted=%d denied=%d per-window ceiling=%d (%d ips x %d per %s)\n",
		admitted.Load(), denied.Load(), opts.ips*budget.MaxRequests, opts.ips, budget.MaxRequests, budget.Window)

	return printEngineMetrics(ctx, out, reader)
}

func loadtestIdentity(i int) officeauth.Identity {
	return officeauth.Identity{
		ID:    fmt.Sprintf("user-%d", i),
		Email: fmt.Sprintf("user-%d@loadtest.invalid", i),
		Role:  officeauth.RoleClient,
	}
}

// runPhase spreads ops calls of op over concurrency workers. op reports
// whether the call succeeded.
func runPhase(ops, concurrency int, op func(r *rand.Rand) bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				ok := op(r)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// printEngineMetrics collects the engine counters through the OpenTelemetry
// exporter and prints the non-zero ones. Latency gauges are skipped; the
// phase percentiles above already cover them.
func printEngineMetrics(ctx context.Context, out io.Writer, reader sdkmetric.Reader) error {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collect engine metrics: %w", err)
	}

	values := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					values[m.Name] += dp.Value
				}
			}
		}
	}

	names := make([]string, 0, len(values))
	for name, v := range values {
		if v != 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	fmt.Fprintln(out, "---- engine metrics ----")
	for _, name := range names {
		fmt.Fprintf(out, "%s %d\n", name, values[name])
	}
	return nil
}
