package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"tumbi/internal/app/commands"
	"tumbi/internal/app/dto"
	savedapp "tumbi/internal/app/handlers/saved"
	"tumbi/internal/app/queries"
)

type SavedHTTP interface {
	List(c *gin.Context)
	IDs(c *gin.Context)
	Status(c *gin.Context)
	Add(c *gin.Context)
	Remove(c *gin.Context)
}

type SavedHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h SavedHandler) List(c *gin.Context) {
	query := savedapp.SavedListingsQuery{UserID: principalID(c)}
	result, err := queries.Ask[savedapp.SavedListingsQuery, []dto.Listing](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if result == nil {
		result = []dto.Listing{}
	}
	c.JSON(http.StatusOK, result)
}

// IDs is the reconcile source for client-side saved sets.
func (h SavedHandler) IDs(c *gin.Context) {
	query := savedapp.SavedIDsQuery{UserID: principalID(c)}
	result, err := queries.Ask[savedapp.SavedIDsQuery, []string](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if result == nil {
		result = []string{}
	}
	c.JSON(http.StatusOK, result)
}

func (h SavedHandler) Status(c *gin.Context) {
	query := savedapp.SavedStatusQuery{UserID: principalID(c), ListingID: strings.TrimSpace(c.Param("id"))}
	result, err := queries.Ask[savedapp.SavedStatusQuery, dto.SavedStatus](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h SavedHandler) Add(c *gin.Context) {
	cmd := savedapp.AddSavedCommand{UserID: principalID(c), ListingID: strings.TrimSpace(c.Param("id"))}
	result, err := commands.Dispatch[savedapp.AddSavedCommand, dto.SavedStatus](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h SavedHandler) Remove(c *gin.Context) {
	cmd := savedapp.RemoveSavedCommand{UserID: principalID(c), ListingID: strings.TrimSpace(c.Param("id"))}
	result, err := commands.Dispatch[savedapp.RemoveSavedCommand, dto.SavedStatus](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ SavedHTTP = SavedHandler{}
