package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/zaki-44/bio-hackathon/internal/service"
)

// ok writes {"success": true, ...fields}.
func ok(c *gin.Context, status int, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}

// writeError is the single place where service errors become HTTP statuses.
func writeError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		abort(c, http.StatusRequestEntityTooLarge, "file_too_large", "upload exceeds the maximum allowed size")
		return
	}

	var se *service.Error
	if !errors.As(err, &se) {
		se = &service.Error{Kind: service.KindInternal, Code: service.ErrInternal.Code, Message: service.ErrInternal.Message, Err: err}
	}
	status := statusFor(se.Kind)
	if status == http.StatusInternalServerError {
		loggerFrom(c).WithError(err).Error("request failed")
	}
	abort(c, status, se.Code, se.Message)
}

func statusFor(k service.Kind) int {
	switch k {
	case service.KindValidation, service.KindDuplicate, service.KindConflict:
		return http.StatusBadRequest
	case service.KindAuthentication:
		return http.StatusUnauthorized
	case service.KindAuthorization:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "code": code, "error": msg})
}

func badRequest(c *gin.Context, msg string) {
	abort(c, http.StatusBadRequest, service.ErrValidation.Code, msg)
}

// paramID parses a positive numeric path parameter, answering 400 otherwise.
func paramID(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}

const loggerKey = "logger"

func loggerFrom(c *gin.Context) logrus.FieldLogger {
	if l, exists := c.Get(loggerKey); exists {
		if fl, ok := l.(logrus.FieldLogger); ok {
			return fl
		}
	}
	return logrus.StandardLogger()
}
