package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mzcATU/mzc-lp-backend-sub001/internal/domain"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondDomainError maps the service error categories onto HTTP statuses.
// Everything a caller can fix is 4xx; anything else is a server fault.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, domain.ErrStateConflict):
		RespondError(c, http.StatusConflict, "state_conflict", err)
	case errors.Is(err, domain.ErrStructural):
		RespondError(c, http.StatusUnprocessableEntity, "structural_violation", err)
	case errors.Is(err, domain.ErrOrder):
		RespondError(c, http.StatusUnprocessableEntity, "order_violation", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
