package model

import "time"

// Bucket is a named container of objects.
type Bucket struct {
	Name       string `json:"name"`
	Size       Int64  `json:"size,omitempty"`
	NumObjects int32  `json:"numObjects,omitempty"`
}

// ObjectCount is the number of objects in this bucket.
func (b Bucket) ObjectCount() int { return int(b.NumObjects) }

// ObjectInfo describes an object stored in a bucket.
type ObjectInfo struct {
	Name     string            `json:"name"`
	Created  string            `json:"created,omitempty"`
	Size     Int64             `json:"size,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CreatedTime is when this object was created (or re-created).
func (o ObjectInfo) CreatedTime() *time.Time {
	return parseOptionalTime(o.Created)
}

// ObjectListing is the result of listing a bucket. Prefixes hold the names
// truncated after the delimiter when one was requested.
type ObjectListing struct {
	Prefixes []string     `json:"prefix,omitempty"`
	Objects  []ObjectInfo `json:"object,omitempty"`
}
