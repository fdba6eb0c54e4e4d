// Package storage manages buckets and objects of the Yamcs object store.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/multierr"

	"github.com/yamcs/yamcs-client-go/internal/client"
	"github.com/yamcs/yamcs-client-go/model"
)

// StorageClient manages buckets and objects.
type StorageClient struct {
	session *client.Session
}

// NewStorageClient creates a storage client on session.
func NewStorageClient(session *client.Session) *StorageClient {
	return &StorageClient{session: session}
}

func bucketsPath(instance string) string {
	return "/buckets/" + url.PathEscape(instance)
}

func bucketPath(instance, bucket string) string {
	return bucketsPath(instance) + "/" + url.PathEscape(bucket)
}

// objectPath keeps slashes in object names as path separators.
func objectPath(instance, bucket, object string) string {
	segments := strings.Split(object, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return bucketPath(instance, bucket) + "/" + strings.Join(segments, "/")
}

// ListBuckets lists the buckets of an instance.
func (c *StorageClient) ListBuckets(ctx context.Context, instance string) ([]model.Bucket, error) {
	var resp struct {
		Buckets []model.Bucket `json:"buckets"`
	}
	if err := c.session.Get(ctx, bucketsPath(instance), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Buckets, nil
}

// CreateBucket creates a new bucket.
func (c *StorageClient) CreateBucket(ctx context.Context, instance, bucket string) error {
	return c.session.Post(ctx, bucketsPath(instance), map[string]string{"name": bucket}, nil)
}

// RemoveBucket removes a bucket and all of its objects.
func (c *StorageClient) RemoveBucket(ctx context.Context, instance, bucket string) error {
	return c.session.Delete(ctx, bucketPath(instance, bucket))
}

// ListObjects lists the objects of a bucket. With a prefix only objects
// starting with that prefix are listed. With a delimiter, objects whose name
// contains the delimiter after the prefix are not listed; their names
// truncated after the delimiter appear once in the listing prefixes instead.
func (c *StorageClient) ListObjects(ctx context.Context, instance, bucket, prefix, delimiter string) (*model.ObjectListing, error) {
	query := url.Values{}
	if prefix != "" {
		query.Set("prefix", prefix)
	}
	if delimiter != "" {
		query.Set("delimiter", delimiter)
	}
	var listing model.ObjectListing
	if err := c.session.Get(ctx, bucketPath(instance, bucket), query, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// DownloadObject returns the content of an object.
func (c *StorageClient) DownloadObject(ctx context.Context, instance, bucket, object string) ([]byte, error) {
	resp, err := c.session.MakeRequest(ctx, client.RequestConfig{
		Method:  http.MethodGet,
		Uri:     objectPath(instance, bucket, object),
		Headers: map[string]string{"Accept": "*/*"},
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// UploadObject stores the content of r as object, replacing any existing
// object with that name.
func (c *StorageClient) UploadObject(ctx context.Context, instance, bucket, object string, r io.Reader) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", object)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("error in reading upload of %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return err
	}

	resp, err := c.session.MakeRequest(ctx, client.RequestConfig{
		Method:      http.MethodPost,
		Uri:         bucketPath(instance, bucket),
		Body:        body.Bytes(),
		ContentType: w.FormDataContentType(),
	})
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// RemoveObject removes an object.
func (c *StorageClient) RemoveObject(ctx context.Context, instance, bucket, object string) error {
	return c.session.Delete(ctx, objectPath(instance, bucket, object))
}

// RemoveObjects removes multiple objects. It continues past failures and
// returns all of them combined.
func (c *StorageClient) RemoveObjects(ctx context.Context, instance, bucket string, objects []string) error {
	var errs error
	for _, object := range objects {
		if err := c.RemoveObject(ctx, instance, bucket, object); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", object, err))
		}
	}
	return errs
}

// Bucket is a bucket handle bound to its instance.
type Bucket struct {
	model.Bucket
	instance string
	client   *StorageClient
}

// GetBucket returns a handle for an existing bucket.
func (c *StorageClient) GetBucket(ctx context.Context, instance, bucket string) (*Bucket, error) {
	buckets, err := c.ListBuckets(ctx, instance)
	if err != nil {
		return nil, err
	}
	for _, b := range buckets {
		if b.Name == bucket {
			return &Bucket{Bucket: b, instance: instance, client: c}, nil
		}
	}
	return nil, fmt.Errorf("bucket %s: %w", bucket, model.ErrNotFound)
}

// ListObjects lists the objects of this bucket.
func (b *Bucket) ListObjects(ctx context.Context, prefix, delimiter string) (*model.ObjectListing, error) {
	return b.client.ListObjects(ctx, b.instance, b.Name, prefix, delimiter)
}

// DownloadObject returns the content of an object of this bucket.
func (b *Bucket) DownloadObject(ctx context.Context, object string) ([]byte, error) {
	return b.client.DownloadObject(ctx, b.instance, b.Name, object)
}

// UploadObject stores an object in this bucket.
func (b *Bucket) UploadObject(ctx context.Context, object string, r io.Reader) error {
	return b.client.UploadObject(ctx, b.instance, b.Name, object, r)
}

// DeleteObject removes an object of this bucket.
func (b *Bucket) DeleteObject(ctx context.Context, object string) error {
	return b.client.RemoveObject(ctx, b.instance, b.Name, object)
}

// Delete removes this bucket.
func (b *Bucket) Delete(ctx context.Context) error {
	return b.client.RemoveBucket(ctx, b.instance, b.Name)
}
