package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nestnote/backend/internal/service"
	"golang.org/x/time/rate"
)

// NewRouter mounts the full HTTP surface. Only the credential endpoints sit
// behind the rate limiter; refresh and logout rely on the rotation protocol
// instead.
func NewRouter(authSvc *service.AuthService, commentSvc *service.CommentService, allowedOrigins []string) *gin.Engine {
	r := gin.Default()
	r.Use(CORSMiddleware(allowedOrigins))

	r.GET("/", Root)
	r.GET("/ping", Ping)

	authHandler := NewAuthHandler(authSvc)
	commentHandler := NewCommentHandler(commentSvc)

	// 20 attempts per address, refilling over 15 minutes.
	authLimiter := RateLimitMiddleware(rate.Every(15*time.Minute/20), 20)

	auth := r.Group("/auth")
	auth.POST("/signup", authLimiter, authHandler.Signup)
	auth.POST("/login", authLimiter, authHandler.Login)
	auth.POST("/google", authLimiter, authHandler.Google)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/me", AuthMiddleware(authSvc), authHandler.Me)
	auth.PATCH("/me", AuthMiddleware(authSvc), authHandler.UpdateMe)

	r.GET("/comments", commentHandler.List)
	r.POST("/comments", AuthMiddleware(authSvc), commentHandler.Create)

	return r
}
