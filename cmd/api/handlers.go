package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vocalizeapp/vocalize/internal/auth"
	"github.com/vocalizeapp/vocalize/internal/database"
	"github.com/vocalizeapp/vocalize/internal/inference"
	"github.com/vocalizeapp/vocalize/internal/middleware"
	"github.com/vocalizeapp/vocalize/internal/service"
	"github.com/vocalizeapp/vocalize/pkg/models"
)

const maxVideoUploadBytes = 512 << 20 // 512 MiB

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type speechRequest struct {
	Text string `json:"text" binding:"required"`
}

// respondError maps service and storage sentinels to HTTP statuses. Anything
// unrecognized is a 500 with a generic body; the detail goes to the log.
func (api *API) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
	case errors.Is(err, auth.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, database.ErrInsufficientCredits):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient credits"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, database.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
	case errors.Is(err, inference.ErrUpstream):
		c.JSON(http.StatusBadGateway, gin.H{"error": "inference service unavailable"})
	default:
		api.logger.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (api *API) signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	user, token, apiKey, err := api.accounts.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		api.respondError(c, err)
		return
	}

	http.SetCookie(c.Writer, auth.SessionCookie(token, api.accounts.SessionTTL()))
	c.JSON(http.StatusCreated, gin.H{
		"user":    user,
		"api_key": apiKey,
	})
}

func (api *API) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	user, token, err := api.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		api.respondError(c, err)
		return
	}

	http.SetCookie(c.Writer, auth.SessionCookie(token, api.accounts.SessionTTL()))
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (api *API) logout(c *gin.Context) {
	http.SetCookie(c.Writer, auth.ClearSessionCookie())
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (api *API) me(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	user, err := api.accounts.Get(c.Request.Context(), userID)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (api *API) rotateAPIKey(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	apiKey, err := api.accounts.RotateAPIKey(c.Request.Context(), userID)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"api_key": apiKey})
}

func (api *API) getCredits(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	user, err := api.accounts.Get(c.Request.Context(), userID)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"credits": user.Credits})
}

func (api *API) getUsage(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	summary, err := api.jobs.Usage(c.Request.Context(), userID)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (api *API) synthesize(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req speechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	result, err := api.jobs.SynthesizeSync(c.Request.Context(), userID, req.Text)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (api *API) submitSpeech(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req speechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	job, err := api.jobs.SubmitSpeech(c.Request.Context(), userID, req.Text)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

// uploadVideo streams the raw request body into object storage. The body is
// the video itself, not a multipart form.
func (api *API) uploadVideo(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	if c.Request.ContentLength <= 0 || c.Request.ContentLength > maxVideoUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	job, err := api.jobs.SubmitVideo(c.Request.Context(), userID,
		c.Request.Body, c.Request.ContentLength, c.ContentType())
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

func (api *API) listJobs(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	jobs, err := api.jobs.ListJobs(c.Request.Context(), userID, limit, offset)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (api *API) getJob(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	job, err := api.jobs.GetJob(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"job": job})
}

func (api *API) getJobResult(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	result, err := api.jobs.Result(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (api *API) jobCallback(c *gin.Context) {
	var req models.CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
	if err := api.jobs.CompleteCallback(c.Request.Context(), token, &req); err != nil {
		api.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
