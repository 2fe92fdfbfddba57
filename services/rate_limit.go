package services

import (
	"context"
	"fmt"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/scaffold-ai/scaffold_api/shared"
)

// RateLimitService guards the expensive generation endpoints. Limits
// are per owner per endpoint type, counted in a fixed Redis window; a
// full window blocks the owner for the block time.
type RateLimitService struct {
	appContext.DefaultService

	configs map[string]*RateLimitConfig

	redisSvc *RedisService
}

type RateLimitConfig struct {
	EndpointType string
	MaxRequests  int
	WindowSize   time.Duration
	BlockTime    time.Duration
	Description  string
}

const RATE_LIMIT_SVC = "rate_limit_svc"

func (svc RateLimitService) Id() string {
	return RATE_LIMIT_SVC
}

func (svc *RateLimitService) Configure(ctx *appContext.Context) error {
	svc.configs = map[string]*RateLimitConfig{
		shared.EndpointOutline: {
			EndpointType: shared.EndpointOutline,
			MaxRequests:  10,
			WindowSize:   15 * time.Minute,
			BlockTime:    15 * time.Minute,
			Description:  "Outline generation rate limit",
		},
		shared.EndpointLesson: {
			EndpointType: shared.EndpointLesson,
			MaxRequests:  30,
			WindowSize:   15 * time.Minute,
			BlockTime:    10 * time.Minute,
			Description:  "Lesson generation rate limit",
		},
		shared.EndpointQuiz: {
			EndpointType: shared.EndpointQuiz,
			MaxRequests:  30,
			WindowSize:   15 * time.Minute,
			BlockTime:    10 * time.Minute,
			Description:  "Quiz generation rate limit",
		},
		shared.EndpointChat: {
			EndpointType: shared.EndpointChat,
			MaxRequests:  60,
			WindowSize:   15 * time.Minute,
			BlockTime:    5 * time.Minute,
			Description:  "Chat rate limit",
		},
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *RateLimitService) Start() error {
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)
	return nil
}

// Limit returns a fiber middleware for one endpoint type. The owner
// id must already be resolved by the auth middleware.
func (svc *RateLimitService) Limit(endpointType string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cfg, ok := svc.configs[endpointType]
		if !ok {
			return c.Next()
		}

		identifier, _ := c.Locals(shared.UserID).(string)
		if identifier == "" {
			identifier = c.IP()
		}

		allowed, err := svc.allow(c.Context(), cfg, identifier)
		if err != nil {
			// Redis being down never blocks user actions
			log.WithError(err).WithField("endpoint_type", endpointType).Warn("Rate limit check failed, allowing request")
			return c.Next()
		}
		if !allowed {
			return shared.NewTooManyRequestsError(
				fmt.Sprintf("rate limit exceeded for %s, try again later", endpointType))
		}

		return c.Next()
	}
}

func (svc *RateLimitService) allow(ctx context.Context, cfg *RateLimitConfig, identifier string) (bool, error) {
	blockKey := fmt.Sprintf("rl:block:%s:%s", cfg.EndpointType, identifier)
	blocked, err := svc.redisSvc.Exists(ctx, blockKey)
	if err != nil {
		return false, err
	}
	if blocked {
		return false, nil
	}

	countKey := fmt.Sprintf("rl:count:%s:%s", cfg.EndpointType, identifier)
	count, err := svc.redisSvc.Increment(ctx, countKey)
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := svc.redisSvc.Expire(ctx, countKey, cfg.WindowSize); err != nil {
			return false, err
		}
	}

	if count > int64(cfg.MaxRequests) {
		if err := svc.redisSvc.Set(ctx, blockKey, "1", cfg.BlockTime); err != nil {
			return false, err
		}
		log.WithFields(log.Fields{
			"endpoint_type": cfg.EndpointType,
			"identifier":    identifier,
		}).Warn("Rate limit exceeded, blocking")
		return false, nil
	}

	return true, nil
}
