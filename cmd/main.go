package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aukilabs/cellgrid/featureflag"
	"github.com/aukilabs/cellgrid/grid"
	cellgridhttp "github.com/aukilabs/cellgrid/http"
	"github.com/aukilabs/cellgrid/models"
	"github.com/aukilabs/cellgrid/modules/dagaz"
	"github.com/aukilabs/cellgrid/smoketest"
	cellgridws "github.com/aukilabs/cellgrid/websocket"
	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
)

var (
	// The cellgrid version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "cellgrid_info",
		Help:        "Cellgrid information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"CELLGRID_ADDR"                 help:"Listening address for the API."`
	AdminAddr          string        `cli:""        env:"CELLGRID_ADMIN_ADDR"           help:"Admin listening address."`
	PublicEndpoint     string        `cli:""        env:"CELLGRID_PUBLIC_ENDPOINT"      help:"The public endpoint where this cellgrid server is reachable."`
	LogLevel           string        `cli:""        env:"CELLGRID_LOG_LEVEL"            help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"CELLGRID_LOG_INDENT"           help:"Indent logs."`
	SpaceName          string        `cli:""        env:"CELLGRID_SPACE_NAME"           help:"The name of the object space."`
	CellSize           string        `cli:""        env:"CELLGRID_CELL_SIZE"            help:"Comma separated cell size of each axis of the object space."`
	HashBase           int           `cli:",hidden" env:"CELLGRID_HASH_BASE"            help:"The base of the cell index hash."`
	DagazResolution    int           `cli:""        env:"CELLGRID_DAGAZ_RESOLUTION"     help:"The cell size of the dagaz surface index."`
	StreamIdleTimeout  time.Duration `cli:",hidden" env:"CELLGRID_STREAM_IDLE_TIMEOUT"  help:"Time until an idle query stream will be disconnected."`
	StreamMaxResults   int           `cli:",hidden" env:"CELLGRID_STREAM_MAX_RESULTS"   help:"The maximum number of objects streamed for one query."`
	LogSummaryInterval time.Duration `cli:",hidden" env:"CELLGRID_LOG_SUMMARY_INTERVAL" help:"The duration between each log summary by query stream."`
	Events             eventsConfig  `cli:",hidden" env:"-"                             help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"CELLGRID_FEATURE_FLAGS"        help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                             help:"Show version."`
	Help               bool          `cli:""        env:"-"                             help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"CELLGRID_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"CELLGRID_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"CELLGRID_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"CELLGRID_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:               ":4000",
		AdminAddr:          ":18190",
		PublicEndpoint:     "http://localhost:4000",
		LogLevel:           logs.InfoLevel.String(),
		SpaceName:          "default",
		CellSize:           "1,1,1",
		HashBase:           grid.DefaultHashBase,
		DagazResolution:    1,
		StreamIdleTimeout:  time.Minute * 5,
		StreamMaxResults:   cellgridws.DefaultMaxQueryResults,
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
		Help("Starts a cellgrid server.").
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

	transport := metrics.HTTPTransport(http.DefaultTransport)

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     transport,
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "cellgrid",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	cellSize, err := parseCellSize(conf.CellSize)
	if err != nil {
		logs.Fatal(err)
	}
	space, err := models.NewSpace(conf.SpaceName, cellSize, grid.WithHashBase(uint64(conf.HashBase)))
	if err != nil {
		logs.Fatal(errors.New("creating object space failed").Wrap(err))
	}

	featureFlags := featureflag.New(conf.FeatureFlags)

	api := cellgridhttp.API{
		Space:        space,
		Dagaz:        &dagaz.Module{State: dagaz.NewState(uint(conf.DagazResolution))},
		FeatureFlags: featureFlags,
	}

	var service http.ServeMux
	service.Handle("/health", cellgridhttp.HandleWithCORS(http.HandlerFunc(cellgridhttp.HandleHealthCheck)))
	service.Handle("/version", cellgridhttp.HandleWithCORS(http.HandlerFunc(cellgridhttp.HandleVersion(version))))
	service.Handle("/", cellgridhttp.HandleWithCORS(api.Handler()))

	featureFlags.IfNotSet(featureflag.FlagDisableQueryStream, func() {
		streamer := cellgridws.QueryStreamer{
			Space:            space,
			IdleTimeout:      conf.StreamIdleTimeout,
			ExactBallQueries: api.ExactBallQueries(),
			SummaryInterval:  conf.LogSummaryInterval,
			MaxQueryResults:  conf.StreamMaxResults,
		}
		service.Handle("/stream", streamer.Handler())
	})

	service.HandleFunc("POST /smoke-test", smoketest.HandleSmokeTest(ctx, smoketest.Options{
		Endpoint:   conf.PublicEndpoint,
		UserAgent:  fmt.Sprintf("cellgrid %s", version),
		Transport:  transport,
		SendResult: logSmokeTestResults,
	}))

	readinessCheck := cellgridhttp.HandleReadyCheck(
		cellgridhttp.ShutdownCheck(ctx.Done()),
		api.ReadinessCheck,
	)
	service.Handle("/ready", cellgridhttp.HandleWithCORS(readinessCheck))

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", cellgridhttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", readinessCheck)

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("space", conf.SpaceName).
		WithTag("cell_size", cellSize).
		WithTag("feature_flags", featureFlags.Strings()).
		Info("starting cellgrid server")

	cellgridhttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			cellgridhttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

func logSmokeTestResults(ctx context.Context, res smoketest.Results) error {
	entry := logs.WithTag("from_endpoint", res.FromEndpoint).
		WithTag("to_endpoint", res.ToEndpoint).
		WithTag("steps", res.Steps).
		WithTag("latency_ms", res.LatencyMilliSec)

	if !res.Success {
		entry.Warn(errors.New("smoke test failed").
			WithTag("error", res.Error))
		return nil
	}
	entry.Info("smoke test succeeded")
	return nil
}

func parseCellSize(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	cellSize := make([]float64, len(parts))
	for k, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.New("invalid cell size").
				WithTag("cell_size", s).
				WithTag("axis", k).
				Wrap(err)
		}
		cellSize[k] = v
	}
	return cellSize, nil
}

func validateConfig(conf config) error {
	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return errors.New("invalid public endpoint").Wrap(err)
	}

	cellSize, err := parseCellSize(conf.CellSize)
	if err != nil {
		return err
	}
	for k, h := range cellSize {
		if !(h > 0) {
			return errors.New("cell size must be positive").
				WithTag("cell_size", conf.CellSize).
				WithTag("axis", k)
		}
	}

	if conf.HashBase < 2 {
		return errors.New("hash base must be greater than 1").
			WithTag("hash_base", conf.HashBase)
	}

	if conf.DagazResolution < 1 {
		return errors.New("dagaz resolution must be positive").
			WithTag("dagaz_resolution", conf.DagazResolution)
	}

	if conf.StreamMaxResults < 0 {
		return errors.New("stream max results must not be negative").
			WithTag("stream_max_results", conf.StreamMaxResults)
	}

	if conf.StreamIdleTimeout <= 0 {
		return errors.New("stream idle timeout must be positive").
			WithTag("stream_idle_timeout", conf.StreamIdleTimeout)
	}

	return nil
}
