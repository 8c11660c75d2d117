// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package s3types

import "encoding/xml"

// S3 namespace used on every response document.
const Xmlns = "http://s3.amazonaws.com/doc/2006-03-01/"

// LastModifiedFormat is the timestamp layout used inside listing documents.
const LastModifiedFormat = "2006-01-02T15:04:05.000Z"

// ListObjectsResult represents the XML response for ListObjects (v1)
type ListObjectsResult struct {
	XMLName        xml.Name        `xml:"ListBucketResult"`
	Xmlns          string          `xml:"xmlns,attr,omitempty"`
	Name           string          `xml:"Name"`
	Prefix         string          `xml:"Prefix"`
	Marker         string          `xml:"Marker"`
	Delimiter      string          `xml:"Delimiter,omitempty"`
	MaxKeys        int             `xml:"MaxKeys"`
	IsTruncated    bool            `xml:"IsTruncated"`
	NextMarker     string          `xml:"NextMarker,omitempty"`
	Contents       []ObjectContent `xml:"Contents"`
	CommonPrefixes []CommonPrefix  `xml:"CommonPrefixes,omitempty"`
}

// ObjectContent represents an object in list responses (v1)
type ObjectContent struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
	Size         int64  `xml:"Size"`
	StorageClass string `xml:"StorageClass,omitempty"`
}

// CommonPrefix represents a common prefix in list responses (for delimiter)
type CommonPrefix struct {
	Prefix string `xml:"Prefix"`
}
