// Package auth guards the /admin maintenance routes with a simple
// session cookie.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"pulseecho/backend/internal/config"
)

const sessionCookieName = "pulseecho_admin_session"

// Session cookie lifetime in seconds.
const sessionMaxAge = 8 * 60 * 60

// Auth holds admin credentials and active session tokens.
type Auth struct {
	username string
	password string

	mu       sync.Mutex
	sessions map[string]bool
}

// New builds an Auth from configuration. Missing credentials disable
// admin login entirely.
func New(cfg config.AdminConfig) *Auth {
	if cfg.Username == "" || cfg.Password == "" {
		log.Println("WARNING: admin credentials not configured; admin routes will reject all logins.")
	}
	return &Auth{
		username: cfg.Username,
		password: cfg.Password,
		sessions: make(map[string]bool),
	}
}

// LoginRequest is the payload of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginHandler verifies credentials and sets the session cookie.
func (a *Auth) LoginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	if a.username == "" ||
		subtle.ConstantTimeCompare([]byte(req.Username), []byte(a.username)) != 1 ||
		subtle.ConstantTimeCompare([]byte(req.Password), []byte(a.password)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := newSessionToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	a.mu.Lock()
	a.sessions[token] = true
	a.mu.Unlock()

	c.SetCookie(sessionCookieName, token, sessionMaxAge, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "login successful"})
}

// LogoutHandler invalidates the session cookie.
func (a *Auth) LogoutHandler(c *gin.Context) {
	if token, err := c.Cookie(sessionCookieName); err == nil {
		a.mu.Lock()
		delete(a.sessions, token)
		a.mu.Unlock()
	}
	c.SetCookie(sessionCookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Middleware rejects requests without a valid session cookie.
func (a *Auth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessionCookieName)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing session token"})
			c.Abort()
			return
		}

		a.mu.Lock()
		valid := a.sessions[token]
		a.mu.Unlock()

		if !valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: invalid session token"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
