/*
 * Copyright (C) 2025-2025, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package apiutils

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/refaktory/kube-workspace/pkg/api"
	kwerrors "github.com/refaktory/kube-workspace/pkg/errors"
)

// ApiError pairs an HTTP status with the message sent in the Error envelope.
type ApiError struct {
	HttpCode int    `json:"-"`
	Message  string `json:"message"`
}

func (err *ApiError) Error() string {
	return err.Message
}

// AbortWithApiError records the error on the gin context, converts it into
// the query protocol's Error envelope and aborts the request with the
// matching HTTP status.
func AbortWithApiError(c *gin.Context, err error) {
	handleErrors(c, err)
	rsp := convertToErrResponse(err)
	c.AbortWithStatusJSON(rsp.HttpCode, api.Response{Error: &api.Error{Message: rsp.Message}})
}

// convertToErrResponse maps an error onto an ApiError. Operator errors keep
// their status code, context deadlines become request timeouts and foreign
// Kubernetes API errors keep their meaning. Everything else is an internal
// error.
func convertToErrResponse(err error) ApiError {
	var result *ApiError
	if errors.As(err, &result) {
		return *result
	}
	var err2 *apierrors.StatusError
	if !errors.As(err, &err2) {
		switch {
		case errors.Is(err, context.DeadlineExceeded), apierrors.IsTimeout(err):
			err2 = kwerrors.NewRequestTimeout("Request has timed out")
		case apierrors.IsNotFound(err):
			err2 = kwerrors.NewNotFoundWithMessage(err.Error())
		case apierrors.IsBadRequest(err), apierrors.IsInvalid(err):
			err2 = kwerrors.NewBadRequest(err.Error())
		case apierrors.IsAlreadyExists(err):
			err2 = kwerrors.NewAlreadyExist(err.Error())
		case apierrors.IsRequestEntityTooLargeError(err):
			err2 = kwerrors.NewRequestEntityTooLargeError(err.Error())
		default:
			err2 = kwerrors.NewInternalError(err.Error())
		}
	}
	return ApiError{
		HttpCode: int(err2.Status().Code),
		Message:  err2.Error(),
	}
}

// handleErrors attaches the error, or every error of an aggregate, to the
// gin context so the logging middleware can report them.
func handleErrors(c *gin.Context, err error) {
	var errs []error
	if aggregate, ok := err.(utilerrors.Aggregate); ok {
		errs = aggregate.Errors()
	} else {
		errs = []error{err}
	}
	for _, val := range errs {
		if val != nil {
			_ = c.Error(val)
		}
	}
}
