package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Osman8a/TDAH-REST-API/internal/middleware"
	"github.com/Osman8a/TDAH-REST-API/internal/service"
)

type HandlerSet struct {
	log         zerolog.Logger
	environment string
	accounts    *service.AccountService
	// db and cache are nil when the memory driver runs without Redis.
	db    *pgxpool.Pool
	cache *redis.Client
}

func NewHandlerSet(log zerolog.Logger, environment string, accounts *service.AccountService, db *pgxpool.Pool, cache *redis.Client) HandlerSet {
	return HandlerSet{
		log:         log,
		environment: environment,
		accounts:    accounts,
		db:          db,
		cache:       cache,
	}
}

func (h HandlerSet) Routes(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	advisor := router.Group("/advisor")
	{
		advisor.POST("", h.CreateAdvisor)
		advisor.POST("/login", h.Login)

		protected := advisor.Group("")
		protected.Use(middleware.Auth(h.accounts, h.log))
		protected.GET("/me", h.Me)
		protected.PATCH("/me", h.UpdateMe)
		protected.DELETE("/me", h.DeleteMe)
		protected.GET("/all", h.All)
		protected.DELETE("/logout", h.Logout)
		protected.DELETE("/logout/all", h.LogoutAll)
	}
}
