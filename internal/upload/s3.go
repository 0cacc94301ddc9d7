package upload

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"watermate-backend/config"
)

// Store saves and removes user-owned plant images.
type Store interface {
	Upload(ctx context.Context, userID int64, file multipart.File, filename string) (string, error)
	Delete(ctx context.Context, imageURL string) error
	DeleteAllForUser(ctx context.Context, userID int64) error
}

// S3Store keeps images in an S3 bucket, one prefix per user.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	baseURL  string
}

// NewS3Store builds a store from configuration using the default AWS
// credential chain.
func NewS3Store(ctx context.Context, cfg *config.UploadsConfig) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
	}, nil
}

func userPrefix(userID int64) string {
	return fmt.Sprintf("user_%d/", userID)
}

// Upload stores the image under the user's prefix and returns its public URL.
// The stored name is randomized so two uploads of "plant.jpg" never collide.
func (s *S3Store) Upload(ctx context.Context, userID int64, file multipart.File, filename string) (string, error) {
	key := userPrefix(userID) + uuid.NewString() + strings.ToLower(path.Ext(filename))

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   io.Reader(file),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

// Delete removes a single image given the URL previously returned by Upload.
// URLs outside this store's base URL are ignored so stock images survive.
func (s *S3Store) Delete(ctx context.Context, imageURL string) error {
	key, ok := strings.CutPrefix(imageURL, s.baseURL+"/")
	if !ok {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete image %q: %w", key, err)
	}
	return nil
}

// DeleteAllForUser removes every image under the user's prefix. Used when an
// account is deleted.
func (s *S3Store) DeleteAllForUser(ctx context.Context, userID int64) error {
	prefix := userPrefix(userID)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list images for user %d: %w", userID, err)
		}
		for _, obj := range page.Contents {
			_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				return fmt.Errorf("failed to delete image %q: %w", aws.ToString(obj.Key), err)
			}
		}
	}
	return nil
}

// NoopStore is used when uploads are disabled in configuration. Plants fall
// back to the stock image.
type NoopStore struct{}

func (NoopStore) Upload(ctx context.Context, userID int64, file multipart.File, filename string) (string, error) {
	return "", nil
}

func (NoopStore) Delete(ctx context.Context, imageURL string) error { return nil }

func (NoopStore) DeleteAllForUser(ctx context.Context, userID int64) error { return nil }
