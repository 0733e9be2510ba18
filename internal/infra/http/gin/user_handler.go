package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"tumbi/internal/app/commands"
	"tumbi/internal/app/dto"
	listingapp "tumbi/internal/app/handlers/listings"
	profileapp "tumbi/internal/app/handlers/profile"
	"tumbi/internal/app/queries"
	domainuser "tumbi/internal/domain/user"
)

type UserHTTP interface {
	Profile(c *gin.Context)
	Listings(c *gin.Context)
	UpdateMe(c *gin.Context)
}

// UserHandler serves vendor pages and the signed-in user's profile edits.
type UserHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

// updateProfileRequest uses pointers so omitted fields stay untouched.
type updateProfileRequest struct {
	Name        *string `json:"name"`
	CompanyName *string `json:"companyName"`
	Phone       *string `json:"phone"`
	Location    *string `json:"location"`
	AvatarURL   *string `json:"avatarUrl"`
}

func (h UserHandler) Profile(c *gin.Context) {
	query := profileapp.PublicProfileQuery{UserID: strings.TrimSpace(c.Param("id"))}
	result, err := queries.Ask[profileapp.PublicProfileQuery, dto.PublicProfile](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h UserHandler) Listings(c *gin.Context) {
	query := listingapp.VendorListingsQuery{
		SellerID: strings.TrimSpace(c.Param("id")),
		Limit:    parseInt(c.Query("limit")),
		Offset:   parseInt(c.Query("offset")),
	}
	result, err := queries.Ask[listingapp.VendorListingsQuery, []dto.Listing](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if result == nil {
		result = []dto.Listing{}
	}
	c.JSON(http.StatusOK, result)
}

func (h UserHandler) UpdateMe(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request")
		return
	}
	cmd := profileapp.UpdateProfileCommand{
		UserID: principalID(c),
		Update: domainuser.ProfileUpdate{
			Name:        req.Name,
			CompanyName: req.CompanyName,
			Phone:       req.Phone,
			Location:    req.Location,
			AvatarURL:   req.AvatarURL,
		},
	}
	result, err := commands.Dispatch[profileapp.UpdateProfileCommand, dto.User](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ UserHTTP = UserHandler{}
