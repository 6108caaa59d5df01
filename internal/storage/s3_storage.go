package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/Listd-Technologies/listd-prd/internal/config"
)

// IObjectStorage is the narrow contract to the object-storage
// collaborator: the core only issues upload URLs and stores keys. Upload
// and delete mechanics stay on the other side of the boundary.
type IObjectStorage interface {
	PresignListingImageUpload(ctx context.Context, userID, listingID, filename, contentType string) (url string, key string, err error)
	PresignAvatarUpload(ctx context.Context, userID, filename, contentType string) (url string, key string, err error)
	PublicURL(key string) string
}

type s3Storage struct {
	cfg           *config.Config
	s3Client      *s3.Client
	presignClient *s3.PresignClient
}

// NewS3Storage creates the S3-backed object storage boundary.
func NewS3Storage(cfg *config.Config) (IObjectStorage, error) {
	awsCfg, err := aws_config.LoadDefaultConfig(context.TODO(),
		aws_config.WithRegion(cfg.AwsRegion),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &s3Storage{
		cfg:           cfg,
		s3Client:      client,
		presignClient: s3.NewPresignClient(client),
	}, nil
}

func (s *s3Storage) presignPut(ctx context.Context, key, contentType string) (string, error) {
	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", fmt.Errorf("failed to presign PUT for %s: %w", key, err)
	}
	return req.URL, nil
}

// PresignListingImageUpload returns an upload URL and the object key the
// image will live under once the client completes the PUT.
func (s *s3Storage) PresignListingImageUpload(ctx context.Context, userID, listingID, filename, contentType string) (string, string, error) {
	key := fmt.Sprintf("listings/%s/%s/%s%s", userID, listingID, uuid.NewString(), safeExt(filename))
	url, err := s.presignPut(ctx, key, contentType)
	return url, key, err
}

// PresignAvatarUpload returns an upload URL and key for a user avatar.
func (s *s3Storage) PresignAvatarUpload(ctx context.Context, userID, filename, contentType string) (string, string, error) {
	key := fmt.Sprintf("avatars/%s/%s%s", userID, uuid.NewString(), safeExt(filename))
	url, err := s.presignPut(ctx, key, contentType)
	return url, key, err
}

// PublicURL renders the retrievable URL for a stored key.
func (s *s3Storage) PublicURL(key string) string {
	base := strings.TrimSuffix(s.cfg.ImageBaseS3URL, "/")
	return base + "/" + key
}

func safeExt(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
		return ext
	}
	return ""
}
