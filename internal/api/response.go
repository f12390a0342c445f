package api

import (
	"errors"
	"net/http"

	"github.com/anatolykoptev/go_review/internal/toolutil"
	"github.com/gin-gonic/gin"
)

// respondError writes {stage, error} with the status toolutil.Describe assigns to err.
func respondError(c *gin.Context, err error) {
	info := toolutil.Describe(err)
	c.AbortWithStatusJSON(info.Status, info)
}

func respondBadRequest(c *gin.Context, err error) {
	if err == nil {
		err = errors.New("bad request")
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, toolutil.ErrorInfo{Error: err.Error()})
}
