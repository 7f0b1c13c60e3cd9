package main

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is a pre-computed bcrypt hash used when a login username isn't found.
// Running bcrypt against it (instead of returning early) keeps response time
// constant, preventing timing-based username enumeration.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy"), bcrypt.DefaultCost)

// login verifies username/password and returns the user's auth token.
// POST /api/login (public, no auth required).
func (h *Handler) login(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	u, lookupErr := queryOne[user](h.db, c,
		"SELECT * FROM users WHERE username = @username",
		pgx.NamedArgs{"username": body.Username})

	// Always run bcrypt to keep response time constant regardless of whether the
	// username was found, preventing timing-based username enumeration.
	hashToCheck := string(dummyHash)
	if lookupErr == nil {
		hashToCheck = u.Password
	}
	compareErr := bcrypt.CompareHashAndPassword([]byte(hashToCheck), []byte(body.Password))

	if lookupErr != nil {
		apiError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if compareErr != nil {
		apiError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": u.AuthToken, "user_id": u.ID})
}

// registerRequest is the request body for POST /api/register. Biometrics are
// optional; when present the onboarding targets are computed immediately.
type registerRequest struct {
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Password    string      `json:"password"`
	DisplayName string      `json:"display_name"`
	Biometrics  *Biometrics `json:"biometrics"`
}

// validate checks required fields and, when supplied, the biometrics.
func (r *registerRequest) validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	if r.Username == "" || r.Email == "" || r.Password == "" {
		return errors.New("username, email, and password are required")
	}
	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if r.DisplayName == "" {
		r.DisplayName = r.Username
	}
	if r.Biometrics != nil {
		return r.Biometrics.validate()
	}
	return nil
}

// register creates a user, their profile, and returns a fresh auth token.
// POST /api/register (public, no auth required).
func (h *Handler) register(c *gin.Context) {
	var body registerRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := body.validate(); err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[register] bcrypt error: %v", err)
		apiError(c, http.StatusInternalServerError, "failed to create user")
		return
	}

	p := userProfile{DisplayName: body.DisplayName, Mode: modeAIAuto, Level: 1}
	if body.Biometrics != nil {
		b := *body.Biometrics
		sex, level, goal := string(b.Sex), string(b.ActivityLevel), string(b.Goal)
		p.WeightKG, p.HeightCM, p.AgeYears = &b.WeightKG, &b.HeightCM, &b.AgeYears
		p.Sex, p.ActivityLevel, p.Goal = &sex, &level, &goal
		if err := recomputeTargets(&p); err != nil {
			apiError(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	tx, err := h.db.Begin(c)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create user")
		return
	}
	defer tx.Rollback(c)

	authToken := uuid.New().String()
	var userID int
	err = tx.QueryRow(c,
		`INSERT INTO users (username, email, password, auth_token)
		 VALUES (@username, @email, @password, @authToken)
		 ON CONFLICT DO NOTHING
		 RETURNING id`,
		pgx.NamedArgs{
			"username": body.Username, "email": body.Email,
			"password": string(hash), "authToken": authToken,
		}).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		apiError(c, http.StatusConflict, "username or email already exists")
		return
	}
	if err != nil {
		log.Printf("[register] insert user failed: %v", err)
		apiError(c, http.StatusInternalServerError, "failed to create user")
		return
	}

	p.UserID = userID
	if _, err := tx.Exec(c, insertProfileSQL, profileArgs(&p)); err != nil {
		log.Printf("[register] insert profile failed for user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to create user")
		return
	}
	if err := tx.Commit(c); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": authToken, "user_id": userID, "profile": p})
}

// authMiddleware validates the Bearer token and sets user_id on the context.
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			apiError(c, http.StatusUnauthorized, "missing or invalid authorization header")
			c.Abort()
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		var userID int
		err := h.db.QueryRow(c, "SELECT id FROM users WHERE auth_token = $1", token).Scan(&userID)
		if err != nil {
			apiError(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
