package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// resultFilename is the artifact the extraction service writes for each
// processed document, nested somewhere under the submission's output prefix.
const resultFilename = "result.json"

// s3API is the minimal S3 interface required by Client.
// Defined here for testability.
type s3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// uploadAPI matches manager.Uploader.
type uploadAPI interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// downloadAPI matches manager.Downloader.
type downloadAPI interface {
	Download(ctx context.Context, w io.WriterAt, in *s3.GetObjectInput, optFns ...func(*manager.Downloader)) (int64, error)
}

// Client wraps one bucket of the content store. Submissions go under the
// input/ namespace, result artifacts are read back from output/.
type Client struct {
	api        s3API
	uploader   uploadAPI
	downloader downloadAPI
	bucket     string
}

// New creates a Client from the low-level API and transfer managers.
func New(api s3API, uploader uploadAPI, downloader downloadAPI, bucket string) (*Client, error) {
	if api == nil {
		return nil, errors.New("objectstore: api must not be nil")
	}
	if uploader == nil || downloader == nil {
		return nil, errors.New("objectstore: transfer managers must not be nil")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("objectstore: bucket must not be empty")
	}
	return &Client{api: api, uploader: uploader, downloader: downloader, bucket: bucket}, nil
}

// NewFromClient builds a Client plus transfer managers from an *s3.Client.
func NewFromClient(c *s3.Client, bucket string) (*Client, error) {
	if c == nil {
		return nil, errors.New("objectstore: s3 client must not be nil")
	}
	return New(c, manager.NewUploader(c), manager.NewDownloader(c), bucket)
}

// Bucket returns the wrapped bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// Upload streams the local file to the given object key.
func (c *Client) Upload(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("objectstore: open %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("objectstore: upload %s: %w", key, err)
	}
	return nil
}

// FindResult lists the given prefix and returns the key of the first
// result artifact found, or "" when none exists yet. Keys outside the
// exact prefix are never considered.
func (c *Client) FindResult(ctx context.Context, prefix string) (string, error) {
	var token *string
	for {
		out, err := c.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(c.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return "", fmt.Errorf("objectstore: list %s: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if path.Base(key) == resultFilename {
				return key, nil
			}
		}
		if !aws.ToBool(out.IsTruncated) {
			return "", nil
		}
		token = out.NextContinuationToken
	}
}

// Download copies the object at key to localPath, creating the file.
func (c *Client) Download(ctx context.Context, key, localPath string) error {
	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("objectstore: create %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = c.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("objectstore: download %s: %w", key, err)
	}
	return nil
}
