package main

import (
	"github.com/alphabatem/common/context"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/scaffold-ai/scaffold_api/services"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Warn().Err(err).Msg("No .env file loaded")
	}

	ctx, err := context.NewCtx(
		&services.JWTService{},
		&services.AuthMiddleware{},
		&services.SqlService{},
		&services.RedisService{},
		&services.RateLimitService{},
		&services.MinIOService{},
		&services.GenerationService{},
		&services.UserService{},
		&services.NoteService{},
		&services.CourseService{},
		&services.MonitoringService{},

		&services.HttpService{},
	)
	if err != nil {
		log.Fatal().Err(err)
		return
	}

	err = ctx.Run()
	if err != nil {
		log.Fatal().Err(err)
		return
	}
}
