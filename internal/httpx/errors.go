package httpx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/backoffice-resto/internal/logging"
	"github.com/MikeMC777/backoffice-resto/internal/validation"
)

// HTTPError is the JSON error body of every endpoint.
// swagger:model
type HTTPError struct {
	// example: order not found
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

// Mapping pairs a sentinel error with the status it is reported as.
type Mapping struct {
	Err    error
	Status int
}

// Fail writes err using the first matching mapping; validation errors are 400
// and anything unmapped is logged and reported as 500.
func Fail(c *gin.Context, err error, mappings ...Mapping) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, HTTPError{Error: verr.Error(), Fields: verr.Fields})
		return
	}
	for _, m := range mappings {
		if errors.Is(err, m.Err) {
			c.JSON(m.Status, HTTPError{Error: err.Error()})
			return
		}
	}
	logging.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(http.StatusInternalServerError, HTTPError{Error: "internal error"})
}

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, HTTPError{Error: msg})
}
