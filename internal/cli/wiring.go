package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"adaptive-quiz-service/internal/adaptive"
	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/config"
	"adaptive-quiz-service/internal/infra/memory"
	"adaptive-quiz-service/internal/infra/postgres"
	redisstore "adaptive-quiz-service/internal/infra/redis"
	"adaptive-quiz-service/internal/infra/sqlite"
	"adaptive-quiz-service/internal/llm"
	"adaptive-quiz-service/internal/quizgen"
)

// services is the wired application graph shared by the subcommands.
type services struct {
	quizzes  *app.QuizService
	attempts *app.AttemptService
	results  *app.ResultService
	hub      *app.EventHub

	closers []func()
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

type stores struct {
	quizzes  app.QuizStore
	attempts app.AttemptRepository
	results  app.ResultRepository
}

func buildServices(ctx context.Context, cfg config.Config) (_ *services, err error) {
	svc := &services{hub: app.NewEventHub()}
	defer func() {
		if err != nil {
			svc.Close()
		}
	}()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		svc.closers = append(svc.closers, func() { redisClient.Close() })
	}

	st, err := openStores(ctx, cfg, redisClient, svc)
	if err != nil {
		return nil, err
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, st.quizzes, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(st.quizzes, quizTTL)
	}

	var sink llm.AuditSink
	if cfg.Audit.SQLitePath != "" {
		audit, err := sqlite.Open(cfg.Audit.SQLitePath)
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, func() { audit.Close() })
		sink = audit
	}

	llmCfg, err := llmConfig(cfg)
	if err != nil {
		return nil, err
	}
	provider, err := llm.NewProvider(ctx, llmCfg, sink)
	if err != nil {
		return nil, err
	}
	log.Printf("llm provider %s (model %s)", llmCfg.Provider, provider.ModelID())

	genCfg := quizgen.DefaultConfig()
	if cfg.LLM.MaxTokens > 0 {
		genCfg.MaxTokens = cfg.LLM.MaxTokens
	}
	if cfg.LLM.Temperature > 0 {
		genCfg.Temperature = cfg.LLM.Temperature
	}
	extractorCfg := adaptive.DefaultExtractorConfig()
	extractorCfg.Timeout = config.TTLDuration(cfg.Generation.WeakTopicTimeout, extractorCfg.Timeout)

	svc.quizzes = app.NewQuizService(
		st.quizzes,
		quizRepo,
		st.results,
		quizgen.NewGenerator(provider, genCfg),
		adaptive.NewBuilder(adaptive.NewWeakTopicExtractor(provider, extractorCfg)),
		app.QuizServiceConfig{
			MaxQuestions:      cfg.Generation.MaxQuestions,
			GenerationTimeout: generationTimeout(cfg),
		},
	)

	notifiers := []app.Notifier{svc.hub}
	if cfg.Events.RedisChannel != "" {
		notifiers = append(notifiers, redisstore.NewEventPublisher(redisClient, cfg.Events.RedisChannel))
	}
	svc.attempts = app.NewAttemptService(quizRepo, st.attempts, st.results, notifiers...)
	svc.results = app.NewResultService(st.results)
	return svc, nil
}

func openStores(ctx context.Context, cfg config.Config, redisClient *redis.Client, svc *services) (stores, error) {
	backend := cfg.StorageBackend()
	log.Printf("storage backend: %s", backend)

	switch backend {
	case config.StoragePostgres:
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return stores{}, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return stores{}, fmt.Errorf("connect postgres: %w", err)
		}
		svc.closers = append(svc.closers, pool.Close)
		return stores{
			quizzes:  postgres.NewQuizStore(pool),
			attempts: postgres.NewAttemptStore(pool),
			results:  postgres.NewResultStore(pool),
		}, nil
	case config.StorageRedis:
		if redisClient == nil {
			return stores{}, errors.New("redis storage requires redis.addr")
		}
		return stores{
			quizzes:  redisstore.NewQuizStore(redisClient),
			attempts: redisstore.NewAttemptStore(redisClient),
			results:  redisstore.NewResultStore(redisClient),
		}, nil
	default:
		return stores{
			quizzes:  memory.NewQuizStore(),
			attempts: memory.NewAttemptStore(),
			results:  memory.NewResultStore(),
		}, nil
	}
}

// llmConfig layers the YAML llm section, provider discovery and QUIZ_LLM_* variables over the defaults.
func llmConfig(cfg config.Config) (llm.Config, error) {
	lc := llm.DefaultConfig()
	lc.Model = cfg.LLM.Model
	lc.APIKey = cfg.LLM.APIKey
	lc.BaseURL = cfg.LLM.BaseURL
	lc.Timeout = config.TTLDuration(cfg.LLM.Timeout, lc.Timeout)

	retry := cfg.LLM.Retry
	if retry.MaxAttempts > 0 {
		lc.Retry.MaxAttempts = retry.MaxAttempts
	}
	lc.Retry.InitialWait = config.TTLDuration(retry.InitialWait, lc.Retry.InitialWait)
	lc.Retry.MaxWait = config.TTLDuration(retry.MaxWait, lc.Retry.MaxWait)
	if retry.Multiplier > 0 {
		lc.Retry.Multiplier = retry.Multiplier
	}

	switch {
	case cfg.LLM.Provider != "":
		lc.Provider = cfg.LLM.Provider
	case os.Getenv("QUIZ_LLM_PROVIDER") == "" && lc.APIKey == "":
		lc.DiscoverProvider()
	}
	lc.ApplyEnv()
	return lc, lc.Validate()
}

func generationTimeout(cfg config.Config) time.Duration {
	return config.TTLDuration(cfg.Generation.Timeout, 90*time.Second)
}
