package handlers

import (
	"mime/multipart"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"storerate/internal/middleware"
	"storerate/internal/services"
)

// ImageSaver stores an uploaded image and returns its public URL.
type ImageSaver interface {
	Save(fh *multipart.FileHeader) (string, error)
	Remove(url string) error
}

// StoreHandler handles HTTP requests for stores.
type StoreHandler struct {
	storeService *services.StoreService
	images       ImageSaver
	log          logrus.FieldLogger
}

// NewStoreHandler creates a new StoreHandler. images may be nil to disable uploads.
func NewStoreHandler(storeService *services.StoreService, images ImageSaver, log logrus.FieldLogger) *StoreHandler {
	return &StoreHandler{storeService: storeService, images: images, log: log}
}

// RegisterRoutes registers the store routes. Literal paths come before /:id.
func (h *StoreHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	storeRoutes := router.Group("/stores")
	storeRoutes.Get("/", h.HandleList)
	storeRoutes.Get("/search", h.HandleSearchQuery)
	storeRoutes.Get("/search/:query", h.HandleSearch)
	storeRoutes.Get("/category/:category", h.HandleCategory)
	storeRoutes.Get("/:id", h.HandleGet)
	storeRoutes.Post("/", authRequired, h.HandleCreate)
	storeRoutes.Put("/:id", authRequired, h.HandleUpdate)
	storeRoutes.Delete("/:id", authRequired, h.HandleDelete)
}

func (h *StoreHandler) HandleList(c *fiber.Ctx) error {
	page, err := h.storeService.List(c.UserContext(), c.QueryInt("page", 1), c.QueryInt("limit", services.DefaultStorePageLimit))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, Response{Data: page.Stores, Pagination: page.Pagination})
}

func (h *StoreHandler) HandleGet(c *fiber.Ctx) error {
	detail, err := h.storeService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, Response{Data: detail})
}

// HandleSearch serves /stores/search/:query.
func (h *StoreHandler) HandleSearch(c *fiber.Ctx) error {
	return h.search(c, unescape(c.Params("query")))
}

// HandleSearchQuery serves /stores/search?q=.
func (h *StoreHandler) HandleSearchQuery(c *fiber.Ctx) error {
	return h.search(c, c.Query("q"))
}

func (h *StoreHandler) search(c *fiber.Ctx, query string) error {
	stores, err := h.storeService.Search(c.UserContext(), query)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, Response{Data: stores})
}

func (h *StoreHandler) HandleCategory(c *fiber.Ctx) error {
	stores, err := h.storeService.ListByCategory(c.UserContext(), unescape(c.Params("category")))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, Response{Data: stores})
}

// HandleCreate accepts JSON or multipart/form-data with an optional image file.
func (h *StoreHandler) HandleCreate(c *fiber.Ctx) error {
	var in services.CreateStoreInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(err)
	}
	imageURL, err := h.saveImage(c)
	if err != nil {
		return err
	}
	in.ImageURL = imageURL

	claims := middleware.CurrentClaims(c)
	store, err := h.storeService.Create(c.UserContext(), in, claims.ID)
	if err != nil {
		h.discardImage(imageURL)
		return err
	}
	return ok(c, fiber.StatusCreated, Response{Message: "Store created successfully", Data: store})
}

func (h *StoreHandler) HandleUpdate(c *fiber.Ctx) error {
	var in services.UpdateStoreInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(err)
	}
	imageURL, err := h.saveImage(c)
	if err != nil {
		return err
	}
	in.ImageURL = imageURL

	store, err := h.storeService.Update(c.UserContext(), c.Params("id"), in)
	if err != nil {
		h.discardImage(imageURL)
		return err
	}
	return ok(c, fiber.StatusOK, Response{Message: "Store updated successfully", Data: store})
}

func (h *StoreHandler) HandleDelete(c *fiber.Ctx) error {
	removed, err := h.storeService.Delete(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, Response{
		Message: "Store deleted successfully",
		Data:    fiber.Map{"reviews_removed": removed},
	})
}

// saveImage stores the "image" part of a multipart request, if any.
func (h *StoreHandler) saveImage(c *fiber.Ctx) (*string, error) {
	if h.images == nil || !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, badBody(err)
	}
	files := form.File["image"]
	if len(files) == 0 {
		return nil, nil
	}
	saved, err := h.images.Save(files[0])
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// unescape decodes a percent-encoded path segment such as "Food%20%26%20Beverage".
func unescape(s string) string {
	if decoded, err := url.PathUnescape(s); err == nil {
		return decoded
	}
	return s
}

func (h *StoreHandler) discardImage(imageURL *string) {
	if imageURL == nil {
		return
	}
	if err := h.images.Remove(*imageURL); err != nil {
		h.log.WithError(err).Warn("failed to remove orphaned image")
	}
}
