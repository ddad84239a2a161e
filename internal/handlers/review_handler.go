package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"storerate/internal/middleware"
	"storerate/internal/services"
)

// ReviewHandler handles HTTP requests for reviews.
type ReviewHandler struct {
	reviewService *services.ReviewService
	log           logrus.FieldLogger
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService *services.ReviewService, log logrus.FieldLogger) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService, log: log}
}

// RegisterRoutes registers the review routes. Literal paths come before /:id.
func (h *ReviewHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	reviewRoutes := router.Group("/reviews")
	reviewRoutes.Get("/", h.HandleListAll)
	reviewRoutes.Get("/store/:storeId", h.HandleListByStore)
	reviewRoutes.Get("/user/:userId", authRequired, h.HandleListByUser)
	reviewRoutes.Get("/:id", h.HandleGet)
	reviewRoutes.Post("/", authRequired, h.HandleCreate)
	reviewRoutes.Put("/:id", authRequired, h.HandleUpdate)
	reviewRoutes.Delete("/:id", authRequired, h.HandleDelete)
}

func (h *ReviewHandler) HandleListAll(c *fiber.Ctx) error {
	page, err := h.reviewService.ListAll(c.UserContext(), c.QueryInt("page", 1), c.QueryInt("limit", services.DefaultReviewPageLimit))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, Response{Data: page.Reviews, Pagination: page.Pagination})
}

// HandleListByStore serves a page of one store's reviews. sort is one of
// newest, oldest, rating_high or rating_low.
func (h *ReviewHandler) HandleListByStore(c *fiber.Ctx) error {
	result, err := h.reviewService.ListByStore(
		c.UserContext(),
		c.Params("storeId"),
		c.QueryInt("page", 1),
		c.QueryInt("limit", services.DefaultReviewPageLimit),
		c.Query("sort"),
	)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, Response{
		Data:        result.Reviews,
		Pagination:  result.Pagination,
		RatingStats: result.RatingStats,
	})
}

func (h *ReviewHandler) HandleListByUser(c *fiber.Ctx) error {
	claims := middleware.CurrentClaims(c)
	reviews, err := h.reviewService.ListByUser(c.UserContext(), c.Params("userId"), claims.ID)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, Response{Data: reviews})
}

func (h *ReviewHandler) HandleGet(c *fiber.Ctx) error {
	review, err := h.reviewService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, Response{Data: review})
}

func (h *ReviewHandler) HandleCreate(c *fiber.Ctx) error {
	var in services.CreateReviewInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(err)
	}
	in.UserID = middleware.CurrentClaims(c).ID

	review, err := h.reviewService.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, Response{Message: "Review created successfully", Data: review})
}

func (h *ReviewHandler) HandleUpdate(c *fiber.Ctx) error {
	var in services.UpdateReviewInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(err)
	}

	claims := middleware.CurrentClaims(c)
	review, err := h.reviewService.Update(c.UserContext(), c.Params("id"), claims.ID, in)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, Response{Message: "Review updated successfully", Data: review})
}

func (h *ReviewHandler) HandleDelete(c *fiber.Ctx) error {
	claims := middleware.CurrentClaims(c)
	if err := h.reviewService.Delete(c.UserContext(), c.Params("id"), claims.ID); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, Response{Message: "Review deleted successfully"})
}
