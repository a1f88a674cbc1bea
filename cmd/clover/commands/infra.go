package commands

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Ramsey-B/clover/internal/repositories/commission"
	"github.com/Ramsey-B/clover/pkg/cache"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/graph"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/pipeline"
	"github.com/Ramsey-B/clover/pkg/routes/health"
	"github.com/Ramsey-B/clover/pkg/routes/splits"
	"github.com/Ramsey-B/clover/pkg/startup"
)

// infra holds the optional backing services enabled in the config
type infra struct {
	startup  *startup.Startup
	db       *database.Instance
	redis    *redis.Client
	producer *kafka.Producer
	graph    *graph.Client
}

// connectInfra starts every enabled backing service, retrying with backoff
func connectInfra(ctx context.Context, migrate bool) (*infra, error) {
	in := &infra{startup: startup.NewStartup(logger, cfg.StartupMaxAttempts)}

	if cfg.DatabaseEnabled {
		in.startup.AddDependency(startup.Func{
			Name: "database",
			StartFn: func(ctx context.Context) error {
				db, err := database.Connect(ctx, database.Options{
					Driver:          cfg.DatabaseDriver,
					URL:             cfg.DatabaseURL(),
					MaxOpenConns:    cfg.DatabaseMaxOpenConns,
					MaxIdleConns:    cfg.DatabaseMaxIdleConns,
					ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
				}, logger)
				if err != nil {
					return err
				}
				in.db = db
				if migrate {
					return runMigrations(db)
				}
				return nil
			},
			StopFn: func(context.Context) error { return in.db.Close() },
		})
	}

	if cfg.RedisEnabled {
		in.startup.AddDependency(startup.Func{
			Name: "redis",
			StartFn: func(ctx context.Context) error {
				rdb, err := cache.Connect(ctx, cache.Config{
					Addr:     cfg.RedisAddr,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, logger)
				if err != nil {
					return err
				}
				in.redis = rdb
				return nil
			},
			StopFn: func(context.Context) error { return in.redis.Close() },
		})
	}

	if cfg.KafkaEnabled {
		in.startup.AddDependency(startup.Func{
			Name: "kafka-producer",
			StartFn: func(context.Context) error {
				in.producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      cfg.KafkaBrokers,
					Topic:        cfg.KafkaOutputTopic,
					BatchSize:    cfg.KafkaBatchSize,
					BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
					RequiredAcks: cfg.KafkaRequiredAcks,
					Compression:  cfg.KafkaCompression,
				}, logger)
				return nil
			},
			StopFn: func(context.Context) error { return in.producer.Close() },
		})
	}

	if cfg.GraphEnabled {
		in.startup.AddDependency(startup.Func{
			Name: "graph",
			StartFn: func(ctx context.Context) error {
				client, err := graph.NewClient(graph.Config{
					URI:      cfg.GraphURI(),
					Username: cfg.GraphDBUser,
					Password: cfg.GraphDBPassword,
				}, logger)
				if err != nil {
					return err
				}
				if err := client.VerifyConnectivity(ctx); err != nil {
					_ = client.Close(ctx)
					return err
				}
				in.graph = client
				return nil
			},
			StopFn: func(ctx context.Context) error { return in.graph.Close(ctx) },
		})
	}

	if err := in.startup.Start(ctx); err != nil {
		_ = in.close()
		return nil, err
	}
	return in, nil
}

func (in *infra) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return in.startup.Stop(ctx)
}

// outputs wires every enabled destination for finished reports
func (in *infra) outputs() *pipeline.Outputs {
	out := &pipeline.Outputs{Logger: logger}
	if in.db != nil {
		out.Store = commission.New(in.db, logger)
	}
	if in.producer != nil {
		out.Events = events.NewEmitter(in.producer, logger)
	}
	if in.graph != nil {
		out.Graph = graph.NewContributionWriter(in.graph, logger)
	}
	return out
}

func (in *infra) reportCache() *cache.ReportCache {
	if in.redis == nil {
		return nil
	}
	return cache.NewReportCache(in.redis, cfg.CacheTTL, cfg.LockTTL, logger)
}

func (in *infra) splitReader() splits.SplitReader {
	if in.db == nil {
		return nil
	}
	return commission.New(in.db, logger)
}

// addChecks registers a health check per connected service
func (in *infra) addChecks(checker *health.Checker) {
	if in.db != nil {
		checker.AddCheck("database", in.db.PingContext)
	}
	if in.redis != nil {
		checker.AddCheck("redis", func(ctx context.Context) error { return in.redis.Ping(ctx).Err() })
	}
	if in.graph != nil {
		checker.AddCheck("graph", in.graph.VerifyConnectivity)
	}
}

func runMigrations(db *database.Instance) error {
	migrator := database.NewMigrator(database.MigrationConfig{
		FolderPath: cfg.DatabaseMigrationFolderPath,
		Version:    uint(max(cfg.DatabaseMigrationVersion, 0)),
	}, logger)
	return migrator.Up(db.DB.DB, cfg.DatabaseName)
}
