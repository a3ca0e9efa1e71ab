package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/auth"
	"github.com/becomeliminal/nim-wallet/core"
)

type addAddressRequestBody struct {
	Nickname string `json:"nickname" binding:"required"`
	Address  string `json:"address" binding:"required"`
}

type addEmailRequestBody struct {
	Nickname string `json:"nickname" binding:"required"`
	Email    string `json:"email" binding:"required"`
}

type ContactsHandler struct {
	service ContactService
	logger  *zap.Logger
}

func NewContactsHandler(service ContactService, logger *zap.Logger) *ContactsHandler {
	return &ContactsHandler{
		service: service,
		logger:  logger,
	}
}

func (h *ContactsHandler) AddAddress(c *gin.Context) {
	var body addAddressRequestBody

	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errInvalidBody})
		return
	}

	contact, err := h.service.AddAddress(c.Request.Context(), auth.UserID(c), body.Nickname, body.Address)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, contact)
}

func (h *ContactsHandler) AddEmail(c *gin.Context) {
	var body addEmailRequestBody

	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errInvalidBody})
		return
	}

	contact, err := h.service.AddEmail(c.Request.Context(), auth.UserID(c), body.Nickname, body.Email)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, contact)
}

func (h *ContactsHandler) List(c *gin.Context) {
	contacts, err := h.service.List(c.Request.Context(), auth.UserID(c))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	if contacts == nil {
		contacts = []core.Contact{}
	}

	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

func (h *ContactsHandler) GetByNickname(c *gin.Context) {
	contact, err := h.service.GetByNickname(c.Request.Context(), auth.UserID(c), c.Param(NicknameKey))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, contact)
}

func (h *ContactsHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), auth.UserID(c), c.Param(IDKey)); err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}
