// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package objectstore

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/LeeDigitalWorks/assetvault/pkg/s3err"
)

// RemoteError is a non-2xx answer from the object store.
type RemoteError struct {
	Op         string
	Key        string
	StatusCode int
	// Code is the S3 error code from the XML body, or the status text
	// when the body carried none (HEAD responses never do).
	Code      string
	Message   string
	RequestID string
	Body      string
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s: remote returned %d %s", e.Op, e.StatusCode, e.Code)
	if e.Key != "" {
		msg += " for " + e.Key
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// IsNotFound reports whether err is a remote "no such key/bucket" answer.
func IsNotFound(err error) bool {
	var re *RemoteError
	if !errors.As(err, &re) {
		return false
	}
	return re.StatusCode == http.StatusNotFound ||
		re.Code == s3err.ErrNoSuchKey.Code() ||
		re.Code == s3err.ErrNoSuchBucket.Code()
}

func (r *response) remoteError(op, key string) *RemoteError {
	re := &RemoteError{
		Op:         op,
		Key:        key,
		StatusCode: r.status,
		Code:       http.StatusText(r.status),
		Body:       string(r.body),
	}
	if doc, ok := s3err.Parse(r.body); ok {
		re.Code = doc.Code
		re.Message = doc.Message
		re.RequestID = doc.RequestID
	}
	if re.RequestID == "" {
		re.RequestID = r.header.Get("X-Amz-Request-Id")
	}
	return re
}
