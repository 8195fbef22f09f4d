package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"reflect"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/mapclusterer/clusterer"
	"github.com/aukilabs/mapclusterer/datasets"
	"github.com/aukilabs/mapclusterer/featureflag"
	mchttp "github.com/aukilabs/mapclusterer/http"
	"github.com/aukilabs/mapclusterer/methods/grid"
	"github.com/aukilabs/mapclusterer/methods/registry"
	mcwebsocket "github.com/aukilabs/mapclusterer/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The mapclusterer version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "mapclusterer_info",
		Help:        "Map clusterer information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"MAPCLUSTERER_ADDR"                 help:"Listening address for client connections."`
	AdminAddr          string        `cli:""        env:"MAPCLUSTERER_ADMIN_ADDR"           help:"Admin listening address."`
	PublicEndpoint     string        `cli:""        env:"MAPCLUSTERER_PUBLIC_ENDPOINT"      help:"The public endpoint where this server is reachable."`
	LogLevel           string        `cli:""        env:"MAPCLUSTERER_LOG_LEVEL"            help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"MAPCLUSTERER_LOG_INDENT"           help:"Indent logs."`
	Datasets           []string      `cli:""        env:"MAPCLUSTERER_DATASETS"             help:"Comma separated GeoJSON datasets to serve, as name=path."`
	DatasetsFile       string        `cli:""        env:"MAPCLUSTERER_DATASETS_FILE"        help:"A TOML manifest listing the GeoJSON datasets to serve."`
	GridSize           int           `cli:""        env:"MAPCLUSTERER_GRID_SIZE"            help:"The default size of a grid cell, in pixels."`
	ScreenOffset       int           `cli:",hidden" env:"MAPCLUSTERER_SCREEN_OFFSET"        help:"The margin in pixels added around viewports when selecting visible cells."`
	TickTimeout        time.Duration `cli:",hidden" env:"MAPCLUSTERER_TICK_TIMEOUT"         help:"The minimum time between two renders triggered by viewport changes."`
	ClientIdleTimeout  time.Duration `cli:",hidden" env:"MAPCLUSTERER_CLIENT_IDLE_TIMEOUT"  help:"Time until an idle client will be disconnected"`
	LogSummaryInterval time.Duration `cli:",hidden" env:"MAPCLUSTERER_LOG_SUMMARY_INTERVAL" help:"The duration between each log summary by connection."`
	APIKeys            []string      `cli:",hidden" env:"MAPCLUSTERER_API_KEYS"             help:"Comma separated API keys accepted from clients. Empty accepts every client."`
	Events             eventsConfig  `cli:",hidden" env:"-"                                 help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"MAPCLUSTERER_FEATURE_FLAGS"        help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                                 help:"Show version."`
	Help               bool          `cli:""        env:"-"                                 help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"MAPCLUSTERER_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"MAPCLUSTERER_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"MAPCLUSTERER_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"MAPCLUSTERER_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:               ":4000",
		AdminAddr:          ":18190",
		PublicEndpoint:     "http://localhost:4000",
		LogLevel:           logs.InfoLevel.String(),
		GridSize:           grid.DefaultGridSize,
		ScreenOffset:       grid.DefaultScreenOffset,
		TickTimeout:        clusterer.DefaultTickTimeout,
		ClientIdleTimeout:  time.Minute * 5,
		LogSummaryInterval: time.Minute,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts the map clusterer server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     metrics.HTTPTransport(http.DefaultTransport),
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "mapclusterer",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	store := datasets.NewStore()
	if err := store.Load(conf.Datasets...); err != nil {
		logs.Fatal(errors.New("loading datasets failed").Wrap(err))
	}

	if conf.DatasetsFile != "" {
		sources, err := datasets.LoadManifest(conf.DatasetsFile)
		if err != nil {
			logs.Fatal(err)
		}

		if err := store.LoadSources(sources...); err != nil {
			logs.Fatal(errors.New("loading datasets failed").Wrap(err))
		}
	}

	gridOptions := grid.Options{
		GridSize:     float64(conf.GridSize),
		ScreenOffset: float64(conf.ScreenOffset),
		IDMode:       grid.IDCanonical,
	}
	featureFlags := featureflag.New(conf.FeatureFlags)
	apiKeys := mchttp.APIKeys(conf.APIKeys)

	readinessCheck := func() bool {
		return store.Len() != 0
	}

	service := chi.NewRouter()
	service.Use(middleware.Recoverer)
	service.Use(mchttp.HandleWithCORS)

	service.Get("/health", mchttp.HandleHealthCheck)
	service.Get("/ready", mchttp.HandleReadyCheck(readinessCheck))
	service.Get("/version", mchttp.HandleVersion(version))

	service.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return mchttp.VerifyAPIKeyHandler(apiKeys, next)
		})

		r.Get("/datasets", mchttp.HandleDatasets(store))
		r.Get("/datasets/{"+mchttp.URLParamDataset+"}/clusters", mchttp.HandleClusters(store, registry.Registry{
			GridOptions:  gridOptions,
			FeatureFlags: featureFlags,
		}))
	})

	service.Handle("/", websocket.Server{
		Handshake: mchttp.VerifyAPIKey(apiKeys),
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			var ch mcwebsocket.Handler = &mcwebsocket.ClusterHandler{
				ClientIdleTimeout: conf.ClientIdleTimeout,
				Datasets:          store,
				GridOptions:       gridOptions,
				TickTimeout:       conf.TickTimeout,
				FeatureFlags:      featureFlags,
			}
			h := mcwebsocket.HandlerWithLogs(ch, conf.LogSummaryInterval)
			h = mcwebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
			defer h.Close()

			mcwebsocket.Handle(ctx, conn, h)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", mchttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", mchttp.HandleReadyCheck(readinessCheck))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("datasets", store.Names()).
		WithTag("grid_size", conf.GridSize).
		WithTag("tick_timeout", conf.TickTimeout).
		Info("starting mapclusterer server")

	mchttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(service,
			mchttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

func validateConfig(conf config) error {
	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return errors.New("invalid public endpoint").Wrap(err)
	}

	if len(conf.Datasets) == 0 && conf.DatasetsFile == "" {
		return errors.New("have to specify datasets or a datasets file")
	}

	for _, d := range conf.Datasets {
		if _, err := datasets.ParseSource(d); err != nil {
			return err
		}
	}

	if conf.GridSize <= 0 {
		return errors.New("grid size must be greater than 0").
			WithTag("grid_size", conf.GridSize)
	}

	if conf.ScreenOffset < 0 {
		return errors.New("screen offset must not be negative").
			WithTag("screen_offset", conf.ScreenOffset)
	}

	if conf.TickTimeout < 0 {
		return errors.New("tick timeout must not be negative").
			WithTag("tick_timeout", conf.TickTimeout)
	}

	if conf.ClientIdleTimeout <= 0 {
		return errors.New("client idle timeout must be greater than 0").
			WithTag("client_idle_timeout", conf.ClientIdleTimeout)
	}

	return nil
}
