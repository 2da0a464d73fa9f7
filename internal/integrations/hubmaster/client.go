// Package hubmaster reads the per-city hub master data documents (speaker
// mapping tables, facility details) that the drafting stage folds into its
// prompt context.
package hubmaster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the minimal S3 interface required by Client.
// *s3.Client from aws-sdk-go-v2 satisfies this interface.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Client reads hub master data objects from an S3 bucket. Documents change
// rarely, so reads are cached per city for the process lifetime.
type Client struct {
	api    s3API
	bucket string

	mu    sync.RWMutex
	cache map[string]string
}

// New creates a Client over the given bucket.
func New(api s3API, bucket string) (*Client, error) {
	if api == nil {
		return nil, errors.New("hubmaster: api must not be nil")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("hubmaster: bucket must not be empty")
	}
	return &Client{api: api, bucket: bucket, cache: map[string]string{}}, nil
}

// objectKey returns the document key for a hub city, e.g. "Hub-Bengaluru.md".
func objectKey(city string) string {
	return "Hub-" + city + ".md"
}

// HubData fetches the master data document for the given hub city.
func (c *Client) HubData(ctx context.Context, city string) (string, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return "", errors.New("hubmaster: city must not be empty")
	}

	c.mu.RLock()
	cached, ok := c.cache[city]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	key := objectKey(city)
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("hubmaster: get object %q: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(out.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("hubmaster: read object %q: %w", key, err)
	}
	data := string(raw)

	c.mu.Lock()
	c.cache[city] = data
	c.mu.Unlock()
	return data, nil
}
