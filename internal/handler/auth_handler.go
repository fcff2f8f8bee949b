package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classconnect-api/internal/middleware"
	"github.com/noah-isme/classconnect-api/internal/models"
	"github.com/noah-isme/classconnect-api/internal/service"
	appErrors "github.com/noah-isme/classconnect-api/pkg/errors"
	"github.com/noah-isme/classconnect-api/pkg/response"
)

// RefreshTokenCookie carries the refresh token set at login.
const RefreshTokenCookie = "refreshToken"

type authService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*models.LoginResponse, error)
	Logout(ctx context.Context, userID string) error
}

// CookieConfig controls the session cookies.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	metrics *service.MetricsService
	cookies CookieConfig
}

// NewAuthHandler creates a new handler. metrics may be nil.
func NewAuthHandler(svc authService, metrics *service.MetricsService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{service: svc, metrics: metrics, cookies: cookies}
}

// Register godoc
// @Summary Register an account
// @Description Creates a student or teacher. The role defaults to the one in the path.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Register payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/register [post]
// @Router /teachers/register [post]
func (h *AuthHandler) Register(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid register payload"))
			return
		}
		if req.Role == "" {
			req.Role = role
		}
		if req.Role != role {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "role must be "+string(role)+" on this route"))
			return
		}

		user, err := h.service.Register(c.Request.Context(), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusCreated, user, "user registered successfully")
	}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email and password. Session tokens are set as HTTP-only cookies.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/login [post]
// @Router /teachers/login [post]
func (h *AuthHandler) Login(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid login payload"))
			return
		}

		res, err := h.service.Login(c.Request.Context(), req)
		if err != nil {
			// Store outages are not rejected attempts.
			if !appErrors.HasCode(err, appErrors.ErrInternal) {
				h.metrics.RecordLogin(string(role), false)
			}
			response.Error(c, err)
			return
		}
		h.metrics.RecordLogin(string(res.User.Role), true)

		h.setSessionCookies(c, res.Tokens)
		response.OK(c, gin.H{"user": res.User, "expiresIn": res.Tokens.ExpiresIn}, "user logged in successfully")
	}
}

// Refresh godoc
// @Summary Rotate session tokens
// @Description Exchanges the refresh token cookie for a new token pair.
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /students/refresh [post]
// @Router /teachers/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, _ := c.Cookie(RefreshTokenCookie)
	if token == "" {
		var payload struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := bindOptionalJSON(c, &payload); err != nil {
			response.Error(c, err)
			return
		}
		token = payload.RefreshToken
	}

	res, err := h.service.Refresh(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookies(c, res.Tokens)
	response.OK(c, gin.H{"user": res.User, "expiresIn": res.Tokens.ExpiresIn}, "session refreshed")
}

// Logout godoc
// @Summary Logout current session
// @Description Clears the stored refresh token and both session cookies.
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /students/logout [post]
// @Router /teachers/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "user not found"))
		return
	}

	if err := h.service.Logout(c.Request.Context(), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}

	h.clearSessionCookies(c)
	response.OK(c, nil, "user logged out successfully")
}

func (h *AuthHandler) setSessionCookies(c *gin.Context, tokens models.TokenPair) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, tokens.AccessToken, int(h.cookies.AccessTTL.Seconds()), "/", "", h.cookies.Secure, true)
	c.SetCookie(RefreshTokenCookie, tokens.RefreshToken, int(h.cookies.RefreshTTL.Seconds()), "/", "", h.cookies.Secure, true)
}

func (h *AuthHandler) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", h.cookies.Secure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", "", h.cookies.Secure, true)
}
