// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package signature

const (
	AuthHeaderV4 = "AWS4-HMAC-SHA256"

	Iso8601BasicFormat = "20060102T150405Z"
	Iso8601DateFormat  = "20060102"

	// Terminator closes every credential scope and is the last link of the key chain.
	Terminator = "aws4_request"

	// ServiceS3 is the service name used in every scope assetvault signs.
	ServiceS3 = "s3"

	UnsignedPayload = "UNSIGNED-PAYLOAD"

	// Precomputed SHA256 hash of an empty payload
	HashedEmptyPayload = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	HeaderAuthorization = "Authorization"
	HeaderAmzDate       = "X-Amz-Date"
	HeaderContentSHA256 = "X-Amz-Content-Sha256"
)

// Credential is the long-lived secret a Signer derives its daily keys from.
// An empty Credential still yields well-formed, unauthenticated signatures,
// which is enough for buckets that allow anonymous writes.
type Credential struct {
	AccessKeyID string
	SecretKey   string
	Region      string
	Service     string
}

// IsAnonymous reports whether the credential carries no key material.
func (c Credential) IsAnonymous() bool {
	return c.AccessKeyID == "" || c.SecretKey == ""
}

func (c Credential) service() string {
	if c.Service == "" {
		return ServiceS3
	}
	return c.Service
}

func (c Credential) region() string {
	if c.Region == "" {
		return "us-east-1"
	}
	return c.Region
}
