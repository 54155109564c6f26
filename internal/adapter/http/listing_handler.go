package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	listingDomain "gaplend-backend/internal/domain/listing"
	"gaplend-backend/internal/usecase/listing"
)

type ListingHandler struct{ uc *listing.Usecase }

func NewListingHandler(uc *listing.Usecase) *ListingHandler { return &ListingHandler{uc: uc} }

type createListingReq struct {
	ListingID   uint64 `json:"listing_id"  validate:"required"`
	Borrower    string `json:"borrower"    validate:"required,ethaddr"`
	Principal   string `json:"principal"   validate:"required,wei"`
	StartBps    int    `json:"start_bps"   validate:"required,gte=1,lte=10000"`
	MinBps      int    `json:"min_bps"     validate:"gte=0,lte=10000"`
	Maturity    int64  `json:"maturity"    validate:"required"`
	Category    string `json:"category"    validate:"omitempty,oneof=car bakery real-estate other"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"   validate:"omitempty,url"`
}

func (h *ListingHandler) CreateListing(c echo.Context) error {
	var req createListingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dto, err := h.uc.Create(c.Request().Context(), listing.CreateListingInput{
		ListingID:   req.ListingID,
		Borrower:    req.Borrower,
		Principal:   req.Principal,
		StartBps:    req.StartBps,
		MinBps:      req.MinBps,
		Maturity:    req.Maturity,
		Category:    req.Category,
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		if errors.Is(err, listing.ErrInvalidInput) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *ListingHandler) GetListing(c echo.Context) error {
	listingID, err := parseListingID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid listing_id"})
	}
	dto, err := h.uc.Get(c.Request().Context(), listingID)
	if err != nil {
		if errors.Is(err, listingDomain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "storage error"})
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ListingHandler) ListListings(c echo.Context) error {
	dtos, err := h.uc.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "storage error"})
	}
	return c.JSON(http.StatusOK, dtos)
}

func (h *ListingHandler) ListFundingEvents(c echo.Context) error {
	listingID, err := parseListingID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid listing_id"})
	}
	events, err := h.uc.Events(c.Request().Context(), listingID)
	if err != nil {
		if errors.Is(err, listingDomain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "storage error"})
	}
	return c.JSON(http.StatusOK, events)
}

func parseListingID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("listing_id"), 10, 64)
}
