/*
 * Copyright (C) 2025-2025, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package apiutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	kwerrors "github.com/refaktory/kube-workspace/pkg/errors"
)

const (
	// DefaultMaxRequestBodyBytes caps query bodies. A query carries a
	// username and one SSH public key, so 16KiB is plenty.
	DefaultMaxRequestBodyBytes = int64(16 * 1024)
)

// ReadBody reads the HTTP request body with a size limit to prevent excessive
// memory consumption. Returns the body bytes, or an error when reading fails
// or the body exceeds the limit. The request body is closed after reading.
func ReadBody(req *http.Request) ([]byte, error) {
	defer req.Body.Close()
	var lr *io.LimitedReader
	data, err := func() ([]byte, error) {
		lr = &io.LimitedReader{
			R: req.Body,
			N: DefaultMaxRequestBodyBytes + 1,
		}
		return io.ReadAll(lr)
	}()
	if err != nil {
		return nil, kwerrors.NewInternalError(err.Error())
	}
	if lr != nil && lr.N <= 0 {
		return nil, kwerrors.NewRequestEntityTooLargeError(
			fmt.Sprintf("the max length is %d bytes", DefaultMaxRequestBodyBytes))
	}
	return data, nil
}

// ParseRequestBody reads the request body and unmarshals it into the provided
// struct, rejecting unknown fields. An empty body returns nil for both the
// body and the error. Decode failures are reported as bad requests.
func ParseRequestBody(req *http.Request, bodyStruct interface{}) ([]byte, error) {
	body, err := ReadBody(req)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	d := json.NewDecoder(bytes.NewReader(body))
	d.DisallowUnknownFields()
	if err = d.Decode(bodyStruct); err != nil {
		return body, kwerrors.NewBadRequest(err.Error())
	}
	return body, nil
}
