package api

import (
	"alcyxob/gym-sync/internal/config"
	"alcyxob/gym-sync/internal/domain"
	"alcyxob/gym-sync/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	checkInCfg config.CheckInConfig,
	authService service.AuthService,
	checkInService service.CheckInService,
	historyService service.HistoryService,
	aggregator *service.Aggregator,
	directory service.DirectoryService,
) {
	authHandler := NewAuthHandler(authService)
	checkInHandler := NewCheckInHandler(checkInService, historyService, checkInCfg.RecentWindow, checkInCfg.WeeklyWindow)
	dashboardHandler := NewDashboardHandler(aggregator, checkInService, directory)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		authGroup.Use(RateLimiter(rate.Limit(1), 5))
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			role, _ := c.Get(ContextUserRoleKey)
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr, "role": role})
		})

		// --- Check-in toggle and history ---
		checkInGroup := protected.Group("/checkin")
		{
			checkInGroup.PUT("", checkInHandler.Enter)
			checkInGroup.DELETE("", checkInHandler.Leave)
			checkInGroup.PATCH("", checkInHandler.ChangeMuscleGroup)
			checkInGroup.GET("", checkInHandler.GetStatus)
			checkInGroup.GET("/stream", checkInHandler.StreamStatus)
			checkInGroup.GET("/history", checkInHandler.GetHistory)
		}

		// --- Shared occupancy dashboard ---
		dashboardGroup := protected.Group("/dashboard")
		{
			dashboardGroup.GET("", dashboardHandler.GetAggregate)
			dashboardGroup.GET("/stream", dashboardHandler.StreamAggregate)
		}

		// --- Admin-only views ---
		adminGroup := protected.Group("/admin")
		adminGroup.Use(RoleMiddleware(domain.RoleAdmin))
		{
			adminGroup.GET("/checkins", dashboardHandler.ListCheckIns)
		}
	}
}
