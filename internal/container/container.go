// Package container wires the application together with samber/do. Each
// Package function registers lazy providers, so binaries only pay for the
// dependencies they actually invoke.
package container

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"

	"github.com/serroba/shortkit/internal/analytics"
	"github.com/serroba/shortkit/internal/cache"
	"github.com/serroba/shortkit/internal/handlers"
	"github.com/serroba/shortkit/internal/health"
	"github.com/serroba/shortkit/internal/messaging"
	"github.com/serroba/shortkit/internal/middleware"
	"github.com/serroba/shortkit/internal/registry"
	"github.com/serroba/shortkit/internal/resolver"
	"github.com/serroba/shortkit/internal/shortcode"
	"github.com/serroba/shortkit/internal/shortener"
	"github.com/serroba/shortkit/internal/store"
)

type Options struct {
	Port        int    `default:"8888"    help:"Port to listen on"                                          short:"p"`
	BaseURL     string `default:""        help:"Public base URL for short links; defaults to localhost"`
	DatabaseURL string `default:""        help:"Postgres connection string; empty uses the in-memory store"`
	RedisAddr   string `default:""        help:"Redis server address; empty uses the in-process event bus"  short:"r"`
	CacheSize   int    `default:"1000"    help:"Maximum hot cache entries"`
	LogFormat   string `default:"console" help:"Log output format (console or json)"`
}

// LoggerPackage provides the zap logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		options := do.MustInvoke[*Options](i)

		if options.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// RedisPackage provides the Redis client.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*redis.Client, error) {
		options := do.MustInvoke[*Options](i)

		return redis.NewClient(&redis.Options{
			Addr: options.RedisAddr,
		}), nil
	})
}

// PostgresPackage provides the pgx connection pool.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*pgxpool.Pool, error) {
		options := do.MustInvoke[*Options](i)

		pool, err := pgxpool.New(context.Background(), options.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("create postgres pool: %w", err)
		}

		return pool, nil
	})
}

// RepositoryPackage provides the short URL repository. Postgres when a
// database URL is configured, in-memory otherwise.
func RepositoryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (shortener.Repository, error) {
		options := do.MustInvoke[*Options](i)

		if options.DatabaseURL == "" {
			return store.NewMemoryRepository(), nil
		}

		return store.NewPostgresRepository(do.MustInvoke[*pgxpool.Pool](i)), nil
	})
}

// CachePackage provides the hot redirect cache with its background sweep
// running. The injector shuts it down on exit.
func CachePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*cache.HotCache, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		clock := do.MustInvoke[shortener.Clock](i)

		hot := cache.New(options.CacheSize, 0, 0, clock, logger)
		hot.Start()

		return hot, nil
	})
}

// PublisherGroupPackage provides the click event publisher. Redis Streams
// when Redis is configured, the shared in-process channel otherwise.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*gochannel.GoChannel, error) {
		logger := messaging.NewZapLoggerAdapter(do.MustInvoke[*zap.Logger](i))

		return gochannel.NewGoChannel(gochannel.Config{}, logger), nil
	})

	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		options := do.MustInvoke[*Options](i)

		if options.RedisAddr == "" {
			return messaging.NewPublisherGroup(do.MustInvoke[*gochannel.GoChannel](i)), nil
		}

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client: do.MustInvoke[*redis.Client](i),
		}, messaging.NewZapLoggerAdapter(do.MustInvoke[*zap.Logger](i)))
		if err != nil {
			return nil, fmt.Errorf("create redis publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})
}

// ConsumerGroupPackage provides the consumer group that persists click
// events into the repository. Without Redis it subscribes to the same
// in-process channel the publisher writes to, so a single binary still
// records clicks; that mode requires PublisherGroupPackage to be registered
// as well.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		var subscriber message.Subscriber
		if options.RedisAddr == "" {
			subscriber = do.MustInvoke[*gochannel.GoChannel](i)
		} else {
			var err error
			subscriber, err = redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        do.MustInvoke[*redis.Client](i),
				ConsumerGroup: "shortkit-analytics",
			}, messaging.NewZapLoggerAdapter(logger))
			if err != nil {
				return nil, fmt.Errorf("create redis subscriber: %w", err)
			}
		}

		recorder := analytics.NewRecorder(do.MustInvoke[shortener.Repository](i), logger)
		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(subscriber, analytics.TopicURLClicked, recorder.Handle, logger))

		return group, nil
	})
}

// ServicePackage provides the clock, code generator, registry, resolver and
// the expiry sweeper. The sweeper starts on first invocation and the
// injector shuts it down on exit.
func ServicePackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (shortener.Clock, error) {
		return shortener.SystemClock{}, nil
	})

	do.Provide(injector, func(i *do.Injector) (*shortcode.Generator, error) {
		return shortcode.NewGenerator(do.MustInvoke[*zap.Logger](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (*registry.Registry, error) {
		return registry.New(
			do.MustInvoke[shortener.Repository](i),
			do.MustInvoke[*cache.HotCache](i),
			do.MustInvoke[*shortcode.Generator](i),
			do.MustInvoke[shortener.Clock](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(injector, func(i *do.Injector) (*resolver.Resolver, error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)
		publish := messaging.NewPublishFunc[analytics.ClickEvent](group.Publisher(), analytics.TopicURLClicked)

		return resolver.New(
			do.MustInvoke[*cache.HotCache](i),
			do.MustInvoke[shortener.Repository](i),
			do.MustInvoke[shortener.Clock](i),
			publish,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(injector, func(i *do.Injector) (*registry.Sweeper, error) {
		sweeper := registry.NewSweeper(
			do.MustInvoke[shortener.Repository](i),
			do.MustInvoke[shortener.Clock](i),
			registry.DefaultSweepInterval,
			do.MustInvoke[*zap.Logger](i),
		)
		sweeper.Start()

		return sweeper, nil
	})
}

// HTTPPackage provides the chi router and the huma API with all routes and
// middleware registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		api := humachi.New(router, huma.DefaultConfig("shortkit", "1.0.0"))
		api.UseMiddleware(middleware.RequestMeta(api))
		api.UseMiddleware(middleware.Identity(api))

		baseURL := options.BaseURL
		if baseURL == "" {
			baseURL = fmt.Sprintf("http://localhost:%d", options.Port)
		}

		handler := handlers.NewLinkHandler(
			do.MustInvoke[*registry.Registry](i),
			do.MustInvoke[*resolver.Resolver](i),
			baseURL,
			logger,
		)
		handlers.RegisterRoutes(api, handler)

		var postgres, redisCheck health.Checker
		if options.DatabaseURL != "" {
			postgres = health.NewPostgresChecker(do.MustInvoke[*pgxpool.Pool](i))
		}

		if options.RedisAddr != "" {
			redisCheck = health.NewRedisChecker(do.MustInvoke[*redis.Client](i))
		}

		health.RegisterRoutes(api, health.NewHandler(postgres, redisCheck))

		return api, nil
	})
}
