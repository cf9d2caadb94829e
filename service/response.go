package service

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/arunvm123/gigbooking/model"
)

// page is the cached shape of one page of a list result.
type page[T any] struct {
	Items      []T               `json:"items"`
	Pagination *model.Pagination `json:"pagination"`
}

// fail turns err into the error envelope. Internal failures are logged with
// their cause; the caller only sees a generic message.
func fail(logger *zap.Logger, op string, err error, fields ...zap.Field) *model.APIResponse {
	resp := model.NewErrorResponse(err)
	fields = append(fields, zap.String("op", op), zap.Error(err))
	if resp.StatusCode >= http.StatusInternalServerError {
		logger.Error("use case failed", fields...)
	} else {
		logger.Debug("use case rejected", fields...)
	}
	return resp
}
