package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// FunctionHandlers serves the signup, resend-otp and verify-otp functions.
// Every response carries a success flag; failures add a human readable error.
type FunctionHandlers struct {
	otpSvc domain.OTPService
	log    *zap.Logger
}

// NewFunctionHandlers creates new function handlers
func NewFunctionHandlers(otpSvc domain.OTPService, log *zap.Logger) *FunctionHandlers {
	return &FunctionHandlers{otpSvc: otpSvc, log: log}
}

// SignupRequest is the body of the signup function
type SignupRequest struct {
	PhoneNumber      string         `json:"phoneNumber" binding:"omitempty,ethphone"`
	DisplayName      string         `json:"displayName"`
	PreferredChannel domain.Channel `json:"preferredChannel"`
}

// ResendRequest is the body of the resend-otp function
type ResendRequest struct {
	PhoneNumber string         `json:"phoneNumber" binding:"omitempty,ethphone"`
	Channel     domain.Channel `json:"channel"`
}

// VerifyRequest is the body of the verify-otp function
type VerifyRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"omitempty,ethphone"`
	OTP         string `json:"otp"`
}

// Signup handles POST /functions/v1/signup
func (h *FunctionHandlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, bindingMessage(err))
		return
	}

	result, err := h.otpSvc.Signup(c.Request.Context(), domain.SignupRequest{
		PhoneNumber: req.PhoneNumber,
		DisplayName: req.DisplayName,
		Channel:     req.PreferredChannel,
	})
	if err != nil {
		h.failWith(c, err)
		return
	}

	h.issued(c, "OTP sent successfully", result)
}

// ResendOTP handles POST /functions/v1/resend-otp
func (h *FunctionHandlers) ResendOTP(c *gin.Context) {
	var req ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, bindingMessage(err))
		return
	}

	result, err := h.otpSvc.Resend(c.Request.Context(), req.PhoneNumber, req.Channel)
	if err != nil {
		var limited *domain.RateLimitError
		if errors.As(err, &limited) {
			c.Header("Retry-After", strconv.FormatInt(limited.Seconds(), 10))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"error":       "Please wait before requesting another code",
				"retry_after": limited.Seconds(),
			})
			return
		}
		h.failWith(c, err)
		return
	}

	h.issued(c, "OTP resent successfully", result)
}

// VerifyOTP handles POST /functions/v1/verify-otp
func (h *FunctionHandlers) VerifyOTP(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, bindingMessage(err))
		return
	}

	result, err := h.otpSvc.Verify(c.Request.Context(), req.PhoneNumber, req.OTP)
	if err != nil {
		h.failWith(c, err)
		return
	}

	profile := result.Auth.Profile
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Phone number verified",
		"session_url":   result.SessionURL,
		"access_token":  result.Auth.AccessToken,
		"refresh_token": result.Auth.RefreshToken,
		"expires_in":    result.Auth.ExpiresIn,
		"user": gin.H{
			"id":           profile.UserID,
			"phone_number": profile.PhoneNumber,
			"role":         profile.Role,
		},
	})
}

func (h *FunctionHandlers) issued(c *gin.Context, message string, result *domain.IssueResult) {
	body := gin.H{"success": true, "message": message}
	if result.DevCode != "" {
		body["dev_otp"] = result.DevCode
	}
	c.JSON(http.StatusOK, body)
}

func (h *FunctionHandlers) failWith(c *gin.Context, err error) {
	status, msg := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error("function failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	h.fail(c, status, msg)
}

func (h *FunctionHandlers) fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}
