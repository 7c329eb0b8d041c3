// Package storage hands out presigned upload URLs for user media on an
// S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/apperr"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ids"
)

// Kind selects the key prefix of an upload.
type Kind string

const (
	KindAvatar    Kind = "avatar"
	KindSiteAsset Kind = "site_asset"
)

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var (
	ErrInvalidKind        = apperr.Validation("invalid_kind", "kind must be avatar or site_asset")
	ErrInvalidContentType = apperr.Validation("invalid_content_type", "content_type must be image/png, image/jpeg, image/webp or image/gif")
	ErrDisabled           = apperr.Precondition("uploads_disabled", "uploads are not configured")
)

// Upload tells the client where and how to PUT the file.
type Upload struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	Method      string    `json:"method"`
	ContentType string    `json:"content_type"`
	PublicURL   string    `json:"public_url,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Presigner signs a PUT for key.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
}

type Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	TTL           time.Duration
}

// S3Presigner presigns PUT requests with static credentials.
type S3Presigner struct {
	bucket string
	client *s3.PresignClient
}

func NewS3Presigner(ctx context.Context, cfg Config) (*S3Presigner, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Presigner{bucket: cfg.Bucket, client: s3.NewPresignClient(client)}, nil
}

func (p *S3Presigner) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

type Service struct {
	presigner     Presigner
	publicBaseURL string
	ttl           time.Duration
	now           func() time.Time
}

// NewService returns a Service. presigner may be nil, disabling uploads.
func NewService(presigner Presigner, publicBaseURL string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Service{
		presigner:     presigner,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		ttl:           ttl,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// PresignUpload issues an upload slot under {kind}/{userID}/.
func (s *Service) PresignUpload(ctx context.Context, userID string, kind Kind, contentType string) (Upload, error) {
	if s.presigner == nil {
		return Upload{}, ErrDisabled
	}
	if kind != KindAvatar && kind != KindSiteAsset {
		return Upload{}, ErrInvalidKind
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := extensions[contentType]
	if !ok {
		return Upload{}, ErrInvalidContentType
	}
	key := fmt.Sprintf("%s/%s/%s%s", kind, userID, strings.ToLower(ids.New()), ext)
	signed, err := s.presigner.PresignPut(ctx, key, contentType, s.ttl)
	if err != nil {
		return Upload{}, fmt.Errorf("presign upload: %w", err)
	}
	up := Upload{
		Key:         key,
		URL:         signed,
		Method:      "PUT",
		ContentType: contentType,
		ExpiresAt:   s.now().Add(s.ttl),
	}
	if s.publicBaseURL != "" {
		up.PublicURL = s.publicBaseURL + "/" + key
	}
	return up, nil
}
