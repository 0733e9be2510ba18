package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"tumbi/internal/app/commands"
	"tumbi/internal/app/dto"
	listingapp "tumbi/internal/app/handlers/listings"
	"tumbi/internal/app/queries"
)

type ListingHTTP interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	BySlug(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// ListingHandler wires listing commands and queries to HTTP.
type ListingHandler struct {
	Commands     commands.Bus
	Queries      queries.Bus
	Logger       *slog.Logger
	DefaultLimit int
}

// List serves the feed. An empty page is encoded as [] so clients can stop paging.
func (h ListingHandler) List(c *gin.Context) {
	query := listingapp.SearchListingsQuery{
		Search:       c.Query("search"),
		MainCategory: c.Query("mainCategory"),
		SubCategory:  c.Query("subCategory"),
		City:         c.Query("city"),
		Sort:         c.Query("sortBy"),
		Limit:        parseIntWithDefault(c.Query("limit"), h.DefaultLimit),
		Offset:       parseInt(c.Query("offset")),
	}
	result, err := queries.Ask[listingapp.SearchListingsQuery, []dto.Listing](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if result == nil {
		result = []dto.Listing{}
	}
	c.JSON(http.StatusOK, result)
}

// Get returns one listing and counts the view.
func (h ListingHandler) Get(c *gin.Context) {
	cmd := listingapp.ViewListingCommand{ListingID: strings.TrimSpace(c.Param("id"))}
	result, err := commands.Dispatch[listingapp.ViewListingCommand, dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) BySlug(c *gin.Context) {
	query := listingapp.ListingBySlugQuery{Slug: c.Param("slug")}
	result, err := queries.Ask[listingapp.ListingBySlugQuery, dto.Listing](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Create(c *gin.Context) {
	requestKey, err := idempotencyKey(c)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	var req dto.ListingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request")
		return
	}
	cmd := listingapp.CreateListingCommand{SellerID: principalID(c), Input: req, RequestKey: requestKey}
	result, err := commands.Dispatch[listingapp.CreateListingCommand, dto.ListingCreated](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Header("Location", fmt.Sprintf("/api/listings/%s", result.ID))
	c.JSON(http.StatusCreated, result)
}

func (h ListingHandler) Update(c *gin.Context) {
	var req dto.ListingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request")
		return
	}
	cmd := listingapp.UpdateListingCommand{
		UserID:    principalID(c),
		ListingID: strings.TrimSpace(c.Param("id")),
		Input:     req,
	}
	result, err := commands.Dispatch[listingapp.UpdateListingCommand, dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Delete(c *gin.Context) {
	p, _ := currentPrincipal(c)
	cmd := listingapp.DeleteListingCommand{
		UserID:    p.ID,
		Admin:     p.Admin,
		ListingID: strings.TrimSpace(c.Param("id")),
	}
	if _, err := commands.Dispatch[listingapp.DeleteListingCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

var _ ListingHTTP = ListingHandler{}

func parseInt(raw string) int {
	value, _ := strconv.Atoi(strings.TrimSpace(raw))
	if value < 0 {
		return 0
	}
	return value
}

func parseIntWithDefault(raw string, fallback int) int {
	value := parseInt(raw)
	if value == 0 {
		return fallback
	}
	return value
}
