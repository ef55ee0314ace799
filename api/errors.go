package api

import (
	"net/http"

	"github.com/Domenick1991/tripbooking/internal/apperror"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Kind     string   `json:"kind"`
	Code     string   `json:"code"`
	Messages []string `json:"messages"`
}

var kindStatus = map[apperror.Kind]int{
	apperror.KindValidation: http.StatusBadRequest,
	apperror.KindNotFound:   http.StatusNotFound,
	apperror.KindConflict:   http.StatusConflict,
	apperror.KindPolicy:     http.StatusUnprocessableEntity,
	apperror.KindInternal:   http.StatusInternalServerError,
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(err error) int {
	if status, ok := kindStatus[apperror.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(StatusOf(err), errorResponse{
		Kind:     string(apperror.KindOf(err)),
		Code:     string(apperror.CodeOf(err)),
		Messages: apperror.MessagesOf(err),
	})
}

func respondBadRequest(c *gin.Context, messages ...string) {
	respondError(c, apperror.Validation(messages...))
}
