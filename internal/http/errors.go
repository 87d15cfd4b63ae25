package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger/internal/core"
	"ledger/internal/log"
)

const (
	codeValidation   = "validation_failed"
	codeBadRequest   = "bad_request"
	codeNotFound     = "not_found"
	codeConflict     = "conflict"
	codeUnauthorized = "unauthorized"
	codeRateLimited  = "rate_limited"
	codeInternal     = "internal_error"
)

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Field   string            `json:"field,omitempty"`
}

func writeError(c *gin.Context, status int, body errorResponse) {
	c.AbortWithStatusJSON(status, body)
}

// respondError maps the error taxonomy onto status codes. Unknown errors are
// logged with the request context and reported without detail.
func respondError(c *gin.Context, err error) {
	var (
		verr *core.ValidationError
		nf   *core.NotFoundError
		cf   *core.ConflictError
		br   *badRequestError
	)
	switch {
	case errors.As(err, &verr):
		writeError(c, http.StatusUnprocessableEntity, errorResponse{
			Code: codeValidation, Message: "validation failed", Fields: verr.Fields,
		})
	case errors.As(err, &br):
		writeError(c, http.StatusBadRequest, errorResponse{Code: codeBadRequest, Message: br.Error()})
	case errors.As(err, &nf):
		writeError(c, http.StatusNotFound, errorResponse{Code: codeNotFound, Message: nf.Error()})
	case errors.As(err, &cf):
		writeError(c, http.StatusConflict, errorResponse{Code: codeConflict, Message: cf.Error(), Field: cf.Field})
	default:
		ctx := c.Request.Context()
		log.FromContext(ctx).ErrorContext(ctx, "Request failed",
			log.NewFields().
				WithError(err).
				WithHTTPRequest(c.Request.Method, c.Request.URL.Path, c.FullPath(), "", "").
				ToSlice()...)
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, errorResponse{Code: codeInternal, Message: "internal server error"})
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="ledger"`)
	writeError(c, http.StatusUnauthorized, errorResponse{Code: codeUnauthorized, Message: msg})
}

func rateLimited(c *gin.Context) {
	writeError(c, http.StatusTooManyRequests, errorResponse{Code: codeRateLimited, Message: "too many requests"})
}

func notFoundRoute(c *gin.Context) {
	writeError(c, http.StatusNotFound, errorResponse{Code: codeNotFound, Message: "route not found"})
}
