/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"fmt"
	"net/http"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const OperatorPrefix = "KubeWorkspace."

/*
   5-digit Error Code Convention: [xx][yyy]
   [xx] Business ID (00-99), used to distinguish errors from different interfaces.
   00: General errors
   01: Workspace-related errors
   02: User/auth-related errors
   [yyy] Error code range (000-999)
*/

// general: 00xxx
const (
	InternalError         = OperatorPrefix + "00001"
	BadRequest            = OperatorPrefix + "00002"
	AlreadyExist          = OperatorPrefix + "00003"
	NotFound              = OperatorPrefix + "00004"
	RequestEntityTooLarge = OperatorPrefix + "00005"
	Unauthorized          = OperatorPrefix + "00006"
	RequestTimeout        = OperatorPrefix + "00007"
	Overloaded            = OperatorPrefix + "00008"
)

// workspace: 01xxx
const (
	WorkspaceNotFound = OperatorPrefix + "01001"
)

// user: 02xxx
const (
	UserNotVerified = OperatorPrefix + "02001"
)

// IsOperator returns true if the specified error carries an operator error code.
func IsOperator(err error) bool {
	if err == nil {
		return false
	}
	return strings.HasPrefix(string(apierrors.ReasonForError(err)), OperatorPrefix)
}

func IsAlreadyExist(err error) bool {
	return apierrors.ReasonForError(err) == AlreadyExist
}

func IsBadRequest(err error) bool {
	return apierrors.ReasonForError(err) == BadRequest
}

func IsInternal(err error) bool {
	return apierrors.ReasonForError(err) == InternalError
}

func IsNotFound(err error) bool {
	reason := apierrors.ReasonForError(err)
	return reason == NotFound || reason == WorkspaceNotFound
}

func IsUnauthorized(err error) bool {
	reason := apierrors.ReasonForError(err)
	return reason == Unauthorized || reason == UserNotVerified
}

func IsRequestEntityTooLarge(err error) bool {
	return apierrors.ReasonForError(err) == RequestEntityTooLarge
}

func IsRequestTimeout(err error) bool {
	return apierrors.ReasonForError(err) == RequestTimeout
}

func IsOverloaded(err error) bool {
	return apierrors.ReasonForError(err) == Overloaded
}

// GetErrorCode extracts the operator error code from an error, or "" for
// foreign errors.
func GetErrorCode(err error) string {
	if err == nil || !IsOperator(err) {
		return ""
	}
	return string(apierrors.ReasonForError(err))
}

func NewBadRequest(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusBadRequest,
		Reason:  BadRequest,
		Message: fmt.Sprintf("Bad request. %s", message),
	}}
}

func NewInternalError(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Reason:  InternalError,
		Message: fmt.Sprintf("Internal error. %s", message),
	}}
}

func NewAlreadyExist(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusConflict,
		Reason:  AlreadyExist,
		Message: message,
	}}
}

func NewNotFoundWithMessage(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusNotFound,
		Reason:  NotFound,
		Message: message,
	}}
}

func NewWorkspaceNotFound(username string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status: metav1.StatusFailure,
		Code:   http.StatusNotFound,
		Reason: WorkspaceNotFound,
		Details: &metav1.StatusDetails{
			Kind: "Workspace",
			Name: username,
		},
		Message: fmt.Sprintf("workspace for user %s not found.", username),
	}}
}

func NewRequestEntityTooLargeError(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusRequestEntityTooLarge,
		Reason:  RequestEntityTooLarge,
		Message: fmt.Sprintf("Request entity is too large: %s", message),
	}}
}

func NewUnauthorized(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusUnauthorized,
		Reason:  Unauthorized,
		Message: message,
	}}
}

// NewUserNotVerified is returned when the presented credentials do not match
// the configured whitelist. The message does not reveal whether the username
// or the key was wrong.
func NewUserNotVerified() *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusUnauthorized,
		Reason:  UserNotVerified,
		Message: "could not verify user: unknown username or mismatched SSH public key",
	}}
}

func NewRequestTimeout(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusRequestTimeout,
		Reason:  RequestTimeout,
		Message: message,
	}}
}

func NewOverloaded(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusServiceUnavailable,
		Reason:  Overloaded,
		Message: message,
	}}
}
