package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"storerate/internal/middleware"
	"storerate/internal/models"
	"storerate/internal/services"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	log         logrus.FieldLogger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log,
	}
}

// AuthPathPrefix is the route prefix whose errors use the auth envelope.
const AuthPathPrefix = "/api/auth/"

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Get("/profile", authRequired, h.HandleGetProfile)
	authRoutes.Put("/profile", authRequired, h.HandleUpdateProfile)
	authRoutes.Post("/verify-token", authRequired, h.HandleVerifyToken)
	authRoutes.Post("/logout", authRequired, h.HandleLogout)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return authError(c, h.log, badBody(err))
	}

	result, err := h.authService.Register(c.UserContext(), in)
	if err != nil {
		return authError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(AuthResponse{
		Message: "User registered successfully",
		Token:   result.Token,
		User:    &result.User,
	})
}

// HandleLogin authenticates a user and returns a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var in services.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return authError(c, h.log, badBody(err))
	}

	result, err := h.authService.Login(c.UserContext(), in)
	if err != nil {
		return authError(c, h.log, err)
	}
	return c.JSON(AuthResponse{
		Message: "Login successful",
		Token:   result.Token,
		User:    &result.User,
	})
}

func (h *AuthHandler) HandleGetProfile(c *fiber.Ctx) error {
	claims := middleware.CurrentClaims(c)
	profile, err := h.authService.GetProfile(c.UserContext(), claims.ID)
	if err != nil {
		return authError(c, h.log, err)
	}
	return c.JSON(AuthResponse{Message: "Profile retrieved successfully", User: profile})
}

func (h *AuthHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var in services.UpdateProfileInput
	if err := c.BodyParser(&in); err != nil {
		return authError(c, h.log, badBody(err))
	}

	claims := middleware.CurrentClaims(c)
	profile, err := h.authService.UpdateProfile(c.UserContext(), claims.ID, in)
	if err != nil {
		return authError(c, h.log, err)
	}
	return c.JSON(AuthResponse{Message: "Profile updated successfully", User: profile})
}

// HandleVerifyToken answers for a token that already passed AuthRequired.
func (h *AuthHandler) HandleVerifyToken(c *fiber.Ctx) error {
	claims := middleware.CurrentClaims(c)
	return c.JSON(AuthResponse{
		Message: "Token is valid",
		User:    &models.PublicUser{ID: claims.ID, Username: claims.Username, Type: claims.Type},
	})
}

// HandleLogout is a no-op: tokens are stateless and the client discards its copy.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	return c.JSON(AuthResponse{Message: "Logged out successfully"})
}
