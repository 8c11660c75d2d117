// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package s3err holds the S3 error codes assetvault produces (dev server)
// and understands (client), with their XML error document.
package s3err

import (
	"encoding/xml"
	"net/http"
	"strings"
)

// APIError represents an S3 API error with its code, description, and HTTP status.
// Based on: https://docs.aws.amazon.com/AmazonS3/latest/API/ErrorResponses.html#ErrorCodeList
type APIError struct {
	Code           string
	Description    string
	HTTPStatusCode int
}

// Error represents the XML error response exchanged with S3 clients.
type Error struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	Resource  string   `xml:"Resource,omitempty"`
	RequestID string   `xml:"RequestId,omitempty"`
	HTTPCode  int      `xml:"-"`
}

func (e Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	b.WriteString(": ")
	if e.Resource != "" {
		b.WriteString(e.Resource)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// ErrorCode is an enumeration of S3 error codes.
type ErrorCode int

const (
	ErrNone ErrorCode = iota

	// Access & authentication
	ErrAccessDenied
	ErrInvalidAccessKeyID
	ErrSignatureDoesNotMatch
	ErrRequestTimeTooSkewed
	ErrAuthHeaderMalformed
	ErrContentSHA256Mismatch

	// Bucket
	ErrNoSuchBucket
	ErrBucketAlreadyExists
	ErrBucketAlreadyOwnedByYou
	ErrInvalidBucketName

	// Object
	ErrNoSuchKey
	ErrEntityTooLarge

	// Request
	ErrInvalidArgument
	ErrMethodNotAllowed
	ErrInternalError
)

var errorCodeResponse = map[ErrorCode]APIError{
	ErrAccessDenied: {
		Code:           "AccessDenied",
		Description:    "Access Denied.",
		HTTPStatusCode: http.StatusForbidden,
	},
	ErrInvalidAccessKeyID: {
		Code:           "InvalidAccessKeyId",
		Description:    "The AWS access key ID you provided does not exist in our records.",
		HTTPStatusCode: http.StatusForbidden,
	},
	ErrSignatureDoesNotMatch: {
		Code:           "SignatureDoesNotMatch",
		Description:    "The request signature we calculated does not match the signature you provided.",
		HTTPStatusCode: http.StatusForbidden,
	},
	ErrRequestTimeTooSkewed: {
		Code:           "RequestTimeTooSkewed",
		Description:    "The difference between the request time and the server's time is too large.",
		HTTPStatusCode: http.StatusForbidden,
	},
	ErrAuthHeaderMalformed: {
		Code:           "AuthorizationHeaderMalformed",
		Description:    "The authorization header is malformed.",
		HTTPStatusCode: http.StatusBadRequest,
	},
	ErrContentSHA256Mismatch: {
		Code:           "XAmzContentSHA256Mismatch",
		Description:    "The provided 'x-amz-content-sha256' header does not match what was computed.",
		HTTPStatusCode: http.StatusBadRequest,
	},
	ErrNoSuchBucket: {
		Code:           "NoSuchBucket",
		Description:    "The specified bucket does not exist.",
		HTTPStatusCode: http.StatusNotFound,
	},
	ErrBucketAlreadyExists: {
		Code:           "BucketAlreadyExists",
		Description:    "The requested bucket name is not available.",
		HTTPStatusCode: http.StatusConflict,
	},
	ErrBucketAlreadyOwnedByYou: {
		Code:           "BucketAlreadyOwnedByYou",
		Description:    "Your previous request to create the named bucket succeeded and you already own it.",
		HTTPStatusCode: http.StatusConflict,
	},
	ErrInvalidBucketName: {
		Code:           "InvalidBucketName",
		Description:    "The specified bucket is not valid.",
		HTTPStatusCode: http.StatusBadRequest,
	},
	ErrNoSuchKey: {
		Code:           "NoSuchKey",
		Description:    "The specified key does not exist.",
		HTTPStatusCode: http.StatusNotFound,
	},
	ErrEntityTooLarge: {
		Code:           "EntityTooLarge",
		Description:    "Your proposed upload exceeds the maximum allowed object size.",
		HTTPStatusCode: http.StatusBadRequest,
	},
	ErrInvalidArgument: {
		Code:           "InvalidArgument",
		Description:    "Invalid Argument.",
		HTTPStatusCode: http.StatusBadRequest,
	},
	ErrMethodNotAllowed: {
		Code:           "MethodNotAllowed",
		Description:    "The specified method is not allowed against this resource.",
		HTTPStatusCode: http.StatusMethodNotAllowed,
	},
	ErrInternalError: {
		Code:           "InternalError",
		Description:    "We encountered an internal error. Please try again.",
		HTTPStatusCode: http.StatusInternalServerError,
	},
}

// APIError returns the full APIError struct for this error code.
func (e ErrorCode) APIError() APIError {
	if err, ok := errorCodeResponse[e]; ok {
		return err
	}
	return errorCodeResponse[ErrInternalError]
}

// Code returns the S3 error code string.
func (e ErrorCode) Code() string {
	return e.APIError().Code
}

// Error implements the error interface.
func (e ErrorCode) Error() string {
	return e.APIError().Description
}

// HTTPStatusCode returns the HTTP status code for this error.
func (e ErrorCode) HTTPStatusCode() int {
	return e.APIError().HTTPStatusCode
}

// ToErrorResponse creates an Error response suitable for XML serialization.
func (e ErrorCode) ToErrorResponse(resource string) Error {
	api := e.APIError()
	return Error{
		Code:     api.Code,
		Message:  api.Description,
		Resource: resource,
		HTTPCode: api.HTTPStatusCode,
	}
}

// Parse decodes an S3 XML error body. ok is false when body is not an
// S3 error document (empty, HTML from a proxy, truncated...).
func Parse(body []byte) (Error, bool) {
	var e Error
	if len(body) == 0 {
		return e, false
	}
	if err := xml.Unmarshal(body, &e); err != nil || e.Code == "" {
		return Error{}, false
	}
	return e, true
}
