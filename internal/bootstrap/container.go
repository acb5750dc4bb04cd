package bootstrap

import (
	"context"
	"fmt"
	"os"

	"ai-lifeplan-be/internal/config"
	"ai-lifeplan-be/internal/controller"
	"ai-lifeplan-be/internal/pkg/logger"
	"ai-lifeplan-be/internal/repository/unitofwork"
	"ai-lifeplan-be/internal/service"
	"ai-lifeplan-be/pkg/interview"
	"ai-lifeplan-be/pkg/interview/conversation"
	"ai-lifeplan-be/pkg/interview/extraction"
	"ai-lifeplan-be/pkg/interview/prompt"
	"ai-lifeplan-be/pkg/interview/ratelimit"
	"ai-lifeplan-be/pkg/llm/factory"

	pktNats "ai-lifeplan-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const bootstrapModule = "BOOTSTRAP"

type Container struct {
	// Controllers
	InterviewController controller.InterviewController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger

	closers []func() error
}

func NewContainer(db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, pubSub.Close)

	// 3. Infrastructure
	// NATS is optional; without it events are only logged
	var forwarder service.EventForwarder
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn(bootstrapModule, "NATS unavailable, events stay in-process", map[string]interface{}{"error": err.Error()})
	} else {
		forwarder = natsPub
		c.closers = append(c.closers, func() error { natsPub.Close(); return nil })
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		sysLogger.Warn(bootstrapModule, "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		// the limiter fails open and logs every degraded check
		sysLogger.Warn(bootstrapModule, "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
	}
	c.closers = append(c.closers, rdb.Close)

	// 4. Interview core
	completion, err := factory.NewCompletionService(factory.Settings{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  cfg.Ai.LLMBaseURL,
		APIKey:   cfg.Ai.LLMAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("init completion service: %w", err)
	}
	sysLogger.Info(bootstrapModule, "Completion service ready", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	rules, err := loadRules(cfg.Interview.RulesFile)
	if err != nil {
		return nil, err
	}

	defaultMode, err := interview.ParseMode(cfg.Interview.DefaultMode)
	if err != nil {
		sysLogger.Warn(bootstrapModule, "Unknown default mode, using deep", map[string]interface{}{"mode": cfg.Interview.DefaultMode})
		defaultMode = interview.ModeDeep
	}

	limiter := ratelimit.NewLimiter(
		ratelimit.NewRedisStore(rdb),
		ratelimit.Config{Limit: cfg.Interview.RateLimit, Window: cfg.Interview.RateWindow},
		sysLogger,
	)

	orchestrator := conversation.NewOrchestrator(
		completion,
		prompt.NewAssembler(rules),
		limiter,
		sysLogger,
		conversation.Config{
			DefaultMode: defaultMode,
			Timeout:     cfg.Ai.CompletionTimeout,
			Temperature: &cfg.Ai.Temperature,
		},
	)

	pipeline := extraction.NewPipeline(completion, sysLogger, extraction.Config{
		Timeout:       cfg.Interview.ExtractionTimeout,
		Temperature:   &cfg.Interview.ExtractTemperature,
		DocumentLimit: cfg.Interview.DocumentCharLimit,
	})

	// 5. Services
	publisherService := service.NewPublisherService(cfg.Interview.EventsTopic, pubSub)
	c.ConsumerService = service.NewConsumerService(
		pubSub,
		cfg.Interview.EventsTopic,
		forwarder,
		sysLogger,
	)

	interviewService := service.NewInterviewService(
		uowFactory,
		orchestrator,
		pipeline,
		rules,
		publisherService,
		sysLogger,
		service.InterviewServiceConfig{
			DefaultMode:       defaultMode,
			DocumentCharLimit: cfg.Interview.DocumentCharLimit,
		},
	)

	// 6. Controllers
	c.InterviewController = controller.NewInterviewController(interviewService)

	return c, nil
}

// Close releases the event bus and the outbound connections, in creation order.
func (c *Container) Close() error {
	var first error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func loadRules(path string) (*prompt.Rules, error) {
	if path == "" {
		return prompt.DefaultRules()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open prompt rules: %w", err)
	}
	defer f.Close()
	return prompt.LoadRules(f)
}
