// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package s3mem

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LeeDigitalWorks/assetvault/pkg/s3err"
	"github.com/LeeDigitalWorks/assetvault/pkg/s3types"
	"github.com/LeeDigitalWorks/assetvault/pkg/signature"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessKey = "AKIDEXAMPLE"
	testSecretKey = "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY"
)

func newSignedServer(t *testing.T, opts ...Option) (*Server, *httptest.Server, *signature.Signer) {
	t.Helper()
	opts = append([]Option{WithCredentials(signature.StaticCredentials{testAccessKey: testSecretKey})}, opts...)
	s := New(opts...)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	signer := signature.NewSigner(signature.Credential{
		AccessKeyID: testAccessKey,
		SecretKey:   testSecretKey,
		Region:      "us-east-1",
	})
	return s, ts, signer
}

func send(t *testing.T, signer *signature.Signer, method, url string, body []byte, headers http.Header) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if len(body) > 0 {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header[k] = v
	}
	if signer != nil {
		require.NoError(t, signer.SignRequest(req, body))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestServer_ObjectLifecycle(t *testing.T) {
	t.Parallel()

	s, ts, signer := newSignedServer(t)

	resp, _ := send(t, signer, http.MethodPut, ts.URL+"/media", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := send(t, signer, http.MethodPut, ts.URL+"/media", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	e, ok := s3err.Parse(body)
	require.True(t, ok)
	assert.Equal(t, "BucketAlreadyOwnedByYou", e.Code)
	assert.NotEmpty(t, e.RequestID)

	h := http.Header{}
	h.Set("Content-Type", "image/png")
	resp, _ = send(t, signer, http.MethodPut, ts.URL+"/media/images/cat.png", []byte("meow"), h)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"4a4be40c96ac6314e91d93f38043a634"`, resp.Header.Get("ETag"))
	assert.Equal(t, 1, s.ObjectCount("media"))

	resp, body = send(t, signer, http.MethodGet, ts.URL+"/media/images/cat.png", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "meow", string(body))
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	resp, body = send(t, signer, http.MethodHead, ts.URL+"/media/images/cat.png", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body)

	resp, _ = send(t, signer, http.MethodDelete, ts.URL+"/media/images/cat.png", nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = send(t, signer, http.MethodHead, ts.URL+"/media/images/cat.png", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = send(t, signer, http.MethodGet, ts.URL+"/media/images/cat.png", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	e, ok = s3err.Parse(body)
	require.True(t, ok)
	assert.Equal(t, "NoSuchKey", e.Code)
}

func TestServer_RejectsBadSignatures(t *testing.T) {
	t.Parallel()

	_, ts, _ := newSignedServer(t, WithBuckets("media"))

	tests := []struct {
		name   string
		signer *signature.Signer
		code   string
	}{
		{
			name:   "unsigned",
			signer: nil,
			code:   "AuthorizationHeaderMalformed",
		},
		{
			name: "wrong secret",
			signer: signature.NewSigner(signature.Credential{
				AccessKeyID: testAccessKey, SecretKey: "nope", Region: "us-east-1",
			}),
			code: "SignatureDoesNotMatch",
		},
		{
			name: "unknown key",
			signer: signature.NewSigner(signature.Credential{
				AccessKeyID: "AKIDOTHER", SecretKey: testSecretKey, Region: "us-east-1",
			}),
			code: "InvalidAccessKeyId",
		},
		{
			name: "stale clock",
			signer: signature.NewSigner(signature.Credential{
				AccessKeyID: testAccessKey, SecretKey: testSecretKey, Region: "us-east-1",
			}, signature.WithClock(func() time.Time { return time.Now().Add(-time.Hour) })),
			code: "RequestTimeTooSkewed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp, body := send(t, tt.signer, http.MethodGet, ts.URL+"/media?prefix=", nil, nil)
			assert.GreaterOrEqual(t, resp.StatusCode, 400)
			e, ok := s3err.Parse(body)
			require.True(t, ok, string(body))
			assert.Equal(t, tt.code, e.Code)
		})
	}
}

func TestServer_PayloadHashMismatch(t *testing.T) {
	t.Parallel()

	_, ts, signer := newSignedServer(t, WithBuckets("media"))

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/media/a.txt", bytes.NewReader([]byte("actual")))
	require.NoError(t, err)
	// sign for a different body than the one sent
	require.NoError(t, signer.SignRequest(req, []byte("claimed")))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	e, ok := s3err.Parse(body)
	require.True(t, ok)
	assert.Equal(t, "XAmzContentSHA256Mismatch", e.Code)
}

func TestServer_Anonymous(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(New(WithBuckets("media"), WithMaxObjectSize(4)))
	defer ts.Close()

	resp, _ := send(t, nil, http.MethodPut, ts.URL+"/media/a.txt", []byte("ok"), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := send(t, nil, http.MethodPut, ts.URL+"/media/b.txt", []byte("too large"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	e, _ := s3err.Parse(body)
	assert.Equal(t, "EntityTooLarge", e.Code)

	resp, body = send(t, nil, http.MethodPut, ts.URL+"/Bad_Bucket", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	e, _ = s3err.Parse(body)
	assert.Equal(t, "InvalidBucketName", e.Code)

	resp, _ = send(t, nil, http.MethodPut, ts.URL+"/missing/a.txt", []byte("x"), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ListObjectsPaging(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(New(WithBuckets("media")))
	defer ts.Close()

	for _, k := range []string{"images/a.png", "images/b.png", "images/c.png", "videos/d.mp4"} {
		resp, _ := send(t, nil, http.MethodPut, ts.URL+"/media/"+k, []byte(k), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	list := func(query string) s3types.ListObjectsResult {
		resp, body := send(t, nil, http.MethodGet, ts.URL+"/media?"+query, nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var result s3types.ListObjectsResult
		require.NoError(t, xml.Unmarshal(body, &result))
		return result
	}

	page := list("prefix=images/&max-keys=2")
	require.Len(t, page.Contents, 2)
	assert.True(t, page.IsTruncated)
	assert.Equal(t, "images/b.png", page.NextMarker)
	assert.Equal(t, int64(len("images/a.png")), page.Contents[0].Size)

	page = list("prefix=images/&max-keys=2&marker=images/b.png")
	require.Len(t, page.Contents, 1)
	assert.False(t, page.IsTruncated)
	assert.Equal(t, "images/c.png", page.Contents[0].Key)

	page = list("prefix=docs/")
	assert.Empty(t, page.Contents)

	page = list("delimiter=/")
	assert.Empty(t, page.Contents)
	require.Len(t, page.CommonPrefixes, 2)
	assert.Equal(t, "images/", page.CommonPrefixes[0].Prefix)

	resp, _ := send(t, nil, http.MethodGet, ts.URL+"/media?max-keys=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// TestServer_AWSSDKClient checks that a stock AWS SDK client can talk to
// the server, which keeps the verifier honest against a third-party signer.
func TestServer_AWSSDKClient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, ts, signer := newSignedServer(t)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(testAccessKey, testSecretKey, "")),
	)
	require.NoError(t, err)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(ts.URL)
		o.UsePathStyle = true
	})

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String("library")})
	require.NoError(t, err)

	resp, _ := send(t, signer, http.MethodPut, ts.URL+"/library/docs/brief.pdf", []byte("%PDF-1.7"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String("library"),
		Key:    aws.String("docs/brief.pdf"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), aws.ToInt64(head.ContentLength))

	list, err := client.ListObjects(ctx, &s3.ListObjectsInput{
		Bucket: aws.String("library"),
		Prefix: aws.String("docs/"),
	})
	require.NoError(t, err)
	require.Len(t, list.Contents, 1)
	assert.Equal(t, "docs/brief.pdf", aws.ToString(list.Contents[0].Key))

	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String("library"),
		Key:    aws.String("docs/brief.pdf"),
	})
	require.NoError(t, err)

	_, err = client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String("library"),
		Key:    aws.String("docs/brief.pdf"),
	})
	assert.Error(t, err)
}
