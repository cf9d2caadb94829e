package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/arunvm123/gigbooking/cache"
	"github.com/arunvm123/gigbooking/config"
	"github.com/arunvm123/gigbooking/model"
)

const principalKey = "principal"

// JWT service for token issuance and validation
type JWTService struct {
	secretKey string
	ttl       time.Duration
}

func NewJWTService(secretKey string, ttl time.Duration) *JWTService {
	return &JWTService{
		secretKey: secretKey,
		ttl:       ttl,
	}
}

// Claims represents the JWT claims
type Claims struct {
	UserID string     `json:"user_id"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken issues an access token for user.
func (j *JWTService) GenerateToken(user *model.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "gigbooking",
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

// ValidateToken validates a JWT token and returns the claims
func (j *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(j.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}

// AuthMiddleware validates the bearer token and stores the caller's
// model.Principal in the context.
func AuthMiddleware(jwtService *JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, fmt.Errorf("%w: authorization header is required", model.ErrUnauthenticated))
			return
		}

		// Check for Bearer token
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			abort(c, fmt.Errorf("%w: authorization header must be a bearer token", model.ErrUnauthenticated))
			return
		}

		claims, err := jwtService.ValidateToken(tokenParts[1])
		if err != nil {
			abort(c, fmt.Errorf("%w: invalid or expired token", model.ErrUnauthenticated))
			return
		}

		role, ok := model.ParseRole(string(claims.Role))
		if !ok || claims.UserID == "" {
			abort(c, fmt.Errorf("%w: token carries no valid identity", model.ErrUnauthenticated))
			return
		}

		c.Set(principalKey, model.Principal{UserID: claims.UserID, Role: role})
		c.Next()
	}
}

// RequireRoles rejects callers whose role is not listed. It must run after
// AuthMiddleware.
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFrom(c)
		if !ok {
			abort(c, model.ErrUnauthenticated)
			return
		}
		for _, r := range roles {
			if principal.Role == r {
				c.Next()
				return
			}
		}
		abort(c, model.ErrForbidden)
	}
}

func principalFrom(c *gin.Context) (model.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return model.Principal{}, false
	}
	p, ok := v.(model.Principal)
	return p, ok
}

// RateLimitMiddleware caps requests per client IP. When the limiter is
// unavailable requests are let through.
func RateLimitMiddleware(limiter cache.RateLimiter, cfg config.RateLimit, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || !cfg.Enabled {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP(), cfg.Max, cfg.Window())
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Max))
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, model.APIResponse{
				StatusCode: http.StatusTooManyRequests,
				Message:    "too many requests, please try again later",
			})
			return
		}

		c.Next()
	}
}

// CORSMiddleware handles Cross-Origin Resource Sharing
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PATCH, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if p, ok := principalFrom(c); ok {
			fields = append(fields, zap.String("user_id", p.UserID))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

func abort(c *gin.Context, err error) {
	resp := model.NewErrorResponse(err)
	c.AbortWithStatusJSON(resp.StatusCode, resp)
}
