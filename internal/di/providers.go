package di

import (
	"context"
	"fmt"
	"time"

	"MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
	domsvc "MacroPulse/internal/domain/service"
	"MacroPulse/internal/handler/api"
	"MacroPulse/internal/handler/stream"
	mid "MacroPulse/internal/middleware"
	internalrepo "MacroPulse/internal/repository"
	svccache "MacroPulse/internal/service/cache"
	"MacroPulse/internal/service/llm"
	svcmetrics "MacroPulse/internal/service/metrics"
	"MacroPulse/internal/service/news"
	"MacroPulse/internal/service/ratelimit"
	"MacroPulse/internal/service/source"
	"MacroPulse/internal/usecase"
	pkgcache "MacroPulse/pkg/cache"
	pkgch "MacroPulse/pkg/clickhouse"
	"MacroPulse/pkg/config"
	xhttp "MacroPulse/pkg/http"
	pkgkafka "MacroPulse/pkg/kafka"
	applogger "MacroPulse/pkg/logger"
	"MacroPulse/pkg/metrics"
	pkgpg "MacroPulse/pkg/postgres"
	"MacroPulse/pkg/server"
	pkgsqlite "MacroPulse/pkg/sqlite"
	"MacroPulse/pkg/util"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const schemaTimeout = 10 * time.Second

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry creates the Prometheus registry served on /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) domrepo.Metrics {
	return metrics.NewWithRegisterer(reg)
}

func ProvideEndpointMetrics(reg *prometheus.Registry) *svcmetrics.EndpointMetrics {
	return svcmetrics.NewEndpointMetrics(reg)
}

// ProvideTickStore opens the configured backend and prepares its schema.
// The cleanup closes the underlying client.
func ProvideTickStore(cfg *config.Config, l *applogger.Logger) (domrepo.TickStore, func(), error) {
	sl := l.With("tick_store")
	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()

	switch cfg.Store.Backend {
	case "memory":
		return internalrepo.NewMemoryTickStore(), func() {}, nil

	case "clickhouse":
		sc := cfg.Store.ClickHouse
		client, err := pkgch.NewClient(
			pkgch.WithHost(sc.Host),
			pkgch.WithPort(sc.Port),
			pkgch.WithDatabase(sc.Database),
			pkgch.WithCredentials(sc.User, sc.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithHTTP(sc.UseHTTP),
			pkgch.WithTimeouts(sc.DialTimeout, 30*time.Second, 30*time.Second),
			pkgch.WithConnectTimeout(sc.ConnectTimeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		if err := client.InitSchema(ctx, internalrepo.ClickHouseSchema(sc.Database)); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		return internalrepo.NewClickHouseTickStore(client.DB(), sc.Database+".ticks", sl), closeWith(sl, "clickhouse", client.Close), nil

	case "postgres":
		pc := cfg.Store.Postgres
		client, err := pkgpg.NewClient(context.Background(),
			pkgpg.WithDSN(pc.DSN),
			pkgpg.WithMaxConns(pc.MaxConns),
			pkgpg.WithConnectTimeout(pc.ConnectTimeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres client: %w", err)
		}
		if err := client.InitSchema(ctx, internalrepo.PostgresSchema); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("postgres schema: %w", err)
		}
		return internalrepo.NewPostgresTickStore(client.Pool(), sl), closeWith(sl, "postgres", client.Close), nil

	default:
		client, err := pkgsqlite.NewClient(
			pkgsqlite.WithPath(cfg.Store.SQLite.Path),
			pkgsqlite.WithBusyTimeout(cfg.Store.SQLite.BusyTimeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite client: %w", err)
		}
		if err := client.InitSchema(ctx, internalrepo.SQLiteSchema); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("sqlite schema: %w", err)
		}
		return internalrepo.NewSQLiteTickStore(client.DB(), sl), closeWith(sl, "sqlite", client.Close), nil
	}
}

// ProvideTickPublisher returns a buffered Kafka publisher when kafka is
// enabled, a no-op one otherwise.
func ProvideTickPublisher(cfg *config.Config, reg *prometheus.Registry, m domrepo.Metrics, l *applogger.Logger) (domrepo.TickPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopTickPublisher{}, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithTopic(cfg.Kafka.Topic),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	l.Info("kafka publisher enabled",
		applogger.Strings("brokers", cfg.Kafka.Brokers),
		applogger.String("topic", cfg.Kafka.Topic),
	)
	pipe := mid.NewPublishPipeline(internalrepo.NewKafkaTickPublisher(producer), m,
		mid.WithSendTimeout(cfg.Kafka.WriteTimeout),
		mid.WithPipelineLogger(l.With("publish")),
	)
	pipe.Start()
	return pipe, closeWith(l, "kafka", pipe.Close), nil
}

// ProvideCacheService returns a memory+Redis layered cache when redis is
// enabled and a plain memory cache otherwise.
func ProvideCacheService(cfg *config.Config, l *applogger.Logger) (pkgcache.Service, func(), error) {
	if !cfg.Redis.Enabled {
		mem := pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(256))
		return mem, closeWith(l, "memory cache", mem.Close), nil
	}
	rc, err := pkgcache.NewRedisCache(context.Background(),
		pkgcache.WithRedisAddr(cfg.Redis.Addr),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	layered := pkgcache.NewLayeredCache(rc,
		pkgcache.WithLayeredMemorySize(256),
		pkgcache.WithLayeredMemoryTTL(time.Minute),
	)
	return layered, closeWith(l, "redis cache", layered.Close), nil
}

func ProvideAnalysisStore(c pkgcache.Service) domrepo.AnalysisStore {
	return svccache.NewAnalysisStore(c)
}

// ProvideSourceClient creates the rate-limited client shared by every
// outbound source request.
func ProvideSourceClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(
		xhttp.WithTimeout(cfg.Sources.Timeout),
		xhttp.WithRateLimit(cfg.Sources.RateLimit, cfg.Sources.Burst),
		xhttp.WithUserAgent(cfg.Sources.UserAgent),
	)
}

func ProvideIndicatorSource(cfg *config.Config, client *xhttp.Client, l *applogger.Logger) (domrepo.IndicatorSource, error) {
	eps := make([]source.Endpoint, 0, len(cfg.Collector.Indicators))
	for _, ind := range cfg.Collector.Indicators {
		eps = append(eps, source.Endpoint{
			Symbol:  ind.Symbol,
			URL:     ind.URL,
			Extract: ind.Extract,
			Path:    ind.Path,
			Pattern: ind.Pattern,
			Scale:   ind.Scale,
			Headers: ind.Headers,
		})
	}
	src, err := source.NewHTTPSource(client, eps, l.With("source"))
	if err != nil {
		return nil, fmt.Errorf("indicator source: %w", err)
	}
	return src, nil
}

func ProvideHeadlineSource(cfg *config.Config, client *xhttp.Client, l *applogger.Logger) domrepo.HeadlineSource {
	return news.NewRSSSource(client, cfg.News.Feeds, cfg.News.Limit, l.With("news"))
}

func ProvideSnapshotHolder() *usecase.SnapshotHolder {
	return usecase.NewSnapshotHolder()
}

// ProvideCollector creates the collection scheduler.
func ProvideCollector(
	cfg *config.Config,
	src domrepo.IndicatorSource,
	store domrepo.TickStore,
	snap *usecase.SnapshotHolder,
	pub domrepo.TickPublisher,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Collector {
	symbols := make([]string, 0, len(cfg.Collector.Indicators))
	for _, ind := range cfg.Collector.Indicators {
		symbols = append(symbols, ind.Symbol)
	}
	return usecase.NewCollector(src, store, snap, symbols,
		usecase.WithCollectorInterval(cfg.Collector.Interval),
		usecase.WithFetchTimeout(cfg.Collector.FetchTimeout),
		usecase.WithComputed(computedModels(cfg.Collector.Computed)),
		usecase.WithPublisher(pub),
		usecase.WithCollectorMetrics(m),
		usecase.WithCollectorLogger(l.With("collector")),
	)
}

func ProvideCandleAggregator(store domrepo.TickStore) *usecase.CandleAggregator {
	return usecase.NewCandleAggregator(store)
}

func ProvideNewsUseCase(cfg *config.Config, src domrepo.HeadlineSource, l *applogger.Logger) *usecase.NewsUseCase {
	return usecase.NewNewsUseCase(src, svccache.NewTTLCache[[]models.Headline](), cfg.News.CacheTTL, l.With("news"))
}

// ProvideGenerator returns the OpenAI generator, or a disabled one when no
// API key is configured so that every analysis degrades cleanly.
func ProvideGenerator(cfg *config.Config, l *applogger.Logger) domsvc.Generator {
	oc := cfg.Analysis.OpenAI
	if oc.APIKey == "" {
		l.Warn("no OpenAI API key configured, analyses will degrade")
		return llm.Disabled{}
	}
	return llm.NewGenerator(oc.APIKey, l.With("llm"),
		llm.WithModel(oc.Model),
		llm.WithMaxTokens(oc.MaxTokens),
		llm.WithTemperature(oc.Temperature),
		llm.WithBaseURL(oc.BaseURL),
	)
}

// ProvideAnalysisGuard creates the analysis guard over every collected symbol.
func ProvideAnalysisGuard(
	cfg *config.Config,
	gen domsvc.Generator,
	store domrepo.AnalysisStore,
	snap *usecase.SnapshotHolder,
	agg *usecase.CandleAggregator,
	collector *usecase.Collector,
	newsUC *usecase.NewsUseCase,
	m domrepo.Metrics,
	l *applogger.Logger,
) (*usecase.AnalysisGuard, error) {
	fine, err := window("fine", cfg.Analysis.Fine)
	if err != nil {
		return nil, err
	}
	coarse, err := window("coarse", cfg.Analysis.Coarse)
	if err != nil {
		return nil, err
	}
	return usecase.NewAnalysisGuard(gen, store, snap, agg, collector.Symbols(),
		usecase.WithAnalysisTTL(cfg.Analysis.TTL),
		usecase.WithCooldown(cfg.Analysis.Cooldown),
		usecase.WithGenerateTimeout(cfg.Analysis.Timeout),
		usecase.WithWindows(fine, coarse),
		usecase.WithHeadlines(newsUC),
		usecase.WithAnalysisMetrics(m),
		usecase.WithAnalysisLogger(l.With("analysis")),
	), nil
}

func ProvideReservesReader(cfg *config.Config) *usecase.ReservesReader {
	return usecase.NewReservesReader(cfg.Reserves.Path)
}

// ProvideClientLimiter limits analysis requests per client address.
func ProvideClientLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(float64(cfg.Server.ClientBurst), cfg.Server.ClientRate)
}

func ProvideMarketHandler(
	l *applogger.Logger,
	snap *usecase.SnapshotHolder,
	agg *usecase.CandleAggregator,
	store domrepo.TickStore,
	newsUC *usecase.NewsUseCase,
	reserves *usecase.ReservesReader,
	em *svcmetrics.EndpointMetrics,
) *api.MarketHandler {
	return api.NewMarketHandler(l.With("api"), snap, agg, store, newsUC, reserves, em)
}

func ProvideAnalysisHandler(
	l *applogger.Logger,
	guard *usecase.AnalysisGuard,
	limiter *ratelimit.Limiter,
	em *svcmetrics.EndpointMetrics,
) *api.AnalysisHandler {
	return api.NewAnalysisHandler(l.With("api"), guard, limiter, em)
}

func ProvideStreamHub(l *applogger.Logger, snap *usecase.SnapshotHolder) *stream.Hub {
	return stream.NewHub(l.With("stream"), snap, nil)
}

// ProvideHTTPServer assembles the echo server with every route group.
func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	reg *prometheus.Registry,
	market *api.MarketHandler,
	analysis *api.AnalysisHandler,
	hub *stream.Hub,
) *xhttp.Server {
	return xhttp.NewServer(l.With("http"), []xhttp.Handler{market, analysis, hub},
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(!cfg.Server.DisableCORS),
		xhttp.WithRegistry(reg, reg),
	)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.Collector,
	httpServer *xhttp.Server,
	hub *stream.Hub,
	limiter *ratelimit.Limiter,
) *server.App {
	return server.New(cfg, l, collector, httpServer, hub, limiter)
}

func window(label string, w config.Window) (usecase.Window, error) {
	bucket, err := util.ParseSpan(w.Interval)
	if err != nil {
		return usecase.Window{}, fmt.Errorf("analysis.%s.interval: %w", label, err)
	}
	rng, err := util.ParseSpan(w.Range)
	if err != nil {
		return usecase.Window{}, fmt.Errorf("analysis.%s.range: %w", label, err)
	}
	return usecase.Window{Label: label, Bucket: bucket, Range: rng}, nil
}

func computedModels(in []config.ComputedIndicator) []models.ComputedIndicator {
	out := make([]models.ComputedIndicator, 0, len(in))
	for _, ci := range in {
		out = append(out, models.ComputedIndicator{Symbol: ci.Symbol, Minuend: ci.Minuend, Subtrahend: ci.Subtrahend})
	}
	return out
}

func closeWith(l *applogger.Logger, name string, closeFn func() error) func() {
	return func() {
		if err := closeFn(); err != nil {
			l.Warn("close failed", applogger.String("resource", name), applogger.Error(err))
		}
	}
}
