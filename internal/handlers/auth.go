package handlers

import (
	"errors"
	"net/http"

	"controlling_roaster/internal/service"

	"github.com/gin-gonic/gin"
)

const errInvalidCredentials = "invalid credentials"

// operatorCredentials is the body of both sign-up and sign-in.
type operatorCredentials struct {
	Username string `json:"username" binding:"required" example:"roastmaster"`
	Password string `json:"password" binding:"required" example:"s3cret"`
}

// bindCredentials answers 400 and returns false when the body does not bind.
func (h *Handler) bindCredentials(c *gin.Context) (operatorCredentials, bool) {
	var in operatorCredentials
	if err := c.ShouldBindJSON(&in); err != nil {
		h.logger().Debugw("auth_bad_request_body", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return in, false
	}
	return in, true
}

// @Summary      Register an operator
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body   operatorCredentials  true  "Credentials"
// @Success      200   {object}  map[string]int
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/sign-up [post]
func (h *Handler) signUp(c *gin.Context) {
	in, ok := h.bindCredentials(c)
	if !ok {
		return
	}
	id, err := h.services.SignUp(c.Request.Context(), in.Username, in.Password)
	if err != nil {
		h.logger().Infow("operator_sign_up_failed", "username", in.Username, "err", err)
		code := http.StatusBadRequest
		if errors.Is(err, service.ErrOperatorExists) {
			code = http.StatusConflict
		}
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}
	h.logger().Infow("operator_signed_up", "id", id, "username", in.Username)
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// @Summary      Obtain a bearer token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body   operatorCredentials  true  "Credentials"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/sign-in [post]
func (h *Handler) signIn(c *gin.Context) {
	in, ok := h.bindCredentials(c)
	if !ok {
		return
	}
	token, err := h.services.GenerateToken(c.Request.Context(), in.Username, in.Password)
	if err != nil {
		// the cause stays in the log; the client only learns it failed
		h.logger().Infow("operator_sign_in_failed", "username", in.Username, "err", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": errInvalidCredentials})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
