package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"tumbi/internal/app/commands"
	"tumbi/internal/app/dto"
	chatapp "tumbi/internal/app/handlers/chat"
	"tumbi/internal/app/queries"
)

type ChatHTTP interface {
	Start(c *gin.Context)
	List(c *gin.Context)
	Messages(c *gin.Context)
	Send(c *gin.Context)
}

type ChatHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type startConversationRequest struct {
	ListingID string `json:"listingId"`
}

type sendMessageRequest struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

// Start returns the buyer's existing conversation for the listing or opens one.
func (h ChatHandler) Start(c *gin.Context) {
	var req startConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request")
		return
	}
	cmd := chatapp.StartConversationCommand{BuyerID: principalID(c), ListingID: req.ListingID}
	result, err := commands.Dispatch[chatapp.StartConversationCommand, dto.Conversation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ChatHandler) List(c *gin.Context) {
	query := chatapp.ListConversationsQuery{UserID: principalID(c)}
	result, err := queries.Ask[chatapp.ListConversationsQuery, []dto.Conversation](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if result == nil {
		result = []dto.Conversation{}
	}
	c.JSON(http.StatusOK, result)
}

func (h ChatHandler) Messages(c *gin.Context) {
	query := chatapp.MessagesQuery{UserID: principalID(c), ConversationID: strings.TrimSpace(c.Param("id"))}
	result, err := queries.Ask[chatapp.MessagesQuery, []dto.Message](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if result == nil {
		result = []dto.Message{}
	}
	c.JSON(http.StatusOK, result)
}

func (h ChatHandler) Send(c *gin.Context) {
	requestKey, err := idempotencyKey(c)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request")
		return
	}
	cmd := chatapp.SendMessageCommand{
		SenderID:       principalID(c),
		ConversationID: req.ConversationID,
		Content:        req.Content,
		RequestKey:     requestKey,
	}
	result, err := commands.Dispatch[chatapp.SendMessageCommand, dto.Message](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

var _ ChatHTTP = ChatHandler{}
