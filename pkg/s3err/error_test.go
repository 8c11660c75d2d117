// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package s3err

import (
	"encoding/xml"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCode_Lookup(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "NoSuchKey", ErrNoSuchKey.Code())
	assert.Equal(t, http.StatusNotFound, ErrNoSuchKey.HTTPStatusCode())
	assert.Equal(t, http.StatusConflict, ErrBucketAlreadyOwnedByYou.HTTPStatusCode())

	// Unknown codes degrade to InternalError
	assert.Equal(t, "InternalError", ErrorCode(9999).Code())
}

func TestParse_RoundTrip(t *testing.T) {
	t.Parallel()

	body, err := xml.Marshal(ErrSignatureDoesNotMatch.ToErrorResponse("/bucket/key"))
	require.NoError(t, err)

	parsed, ok := Parse(body)
	require.True(t, ok)
	assert.Equal(t, "SignatureDoesNotMatch", parsed.Code)
	assert.Equal(t, "/bucket/key", parsed.Resource)
	assert.Contains(t, parsed.Error(), "SignatureDoesNotMatch: /bucket/key")
}

func TestParse_NotAnErrorDocument(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"", "<html>bad gateway</html>", "not xml"} {
		_, ok := Parse([]byte(body))
		assert.False(t, ok, "body %q", body)
	}
}
