package service

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"chirp/internal/config"
	"chirp/internal/model"
	"chirp/internal/repository"
)

// MediaService stores avatars in R2 (S3-compatible) storage.
type MediaService struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
	userRepo      repository.UserRepository
}

// NewMediaService creates a media service backed by Cloudflare R2.
func NewMediaService(cfg *config.Config, userRepo repository.UserRepository) (*MediaService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, ""),
		),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &MediaService{
		client:        client,
		bucket:        cfg.R2Bucket,
		publicBaseURL: strings.TrimRight(cfg.R2PublicBaseURL, "/"),
		userRepo:      userRepo,
	}, nil
}

// UploadAvatar validates, normalizes and stores a user's avatar, replacing
// any previous one. The image is center-cropped to a square and resized.
func (s *MediaService) UploadAvatar(ctx context.Context, userID int64, file io.Reader, contentType string) (*model.UploadResult, error) {
	if !model.IsAllowedImageType(contentType) {
		return nil, model.ErrInvalidImageType
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	limited := io.LimitReader(file, model.MaxAvatarSizeBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(raw) > model.MaxAvatarSizeBytes {
		return nil, model.ErrFileTooLarge
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, model.ErrInvalidImageType
	}
	avatar := imaging.Fill(img, model.AvatarWidth, model.AvatarHeight, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, avatar, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}

	key := fmt.Sprintf("%s/%d/%s%s", model.AvatarFolder, userID, uuid.New().String(), model.AvatarExt)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(buf.Bytes()),
		ContentType:  aws.String(model.ContentTypeJPEG),
		CacheControl: aws.String(model.AvatarCacheControl),
	})
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}

	oldKey := user.AvatarKey
	url := fmt.Sprintf("%s/%s", s.publicBaseURL, key)
	user.AvatarURL = &url
	user.AvatarKey = &key
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if oldKey != nil {
		if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    oldKey,
		}); err != nil {
			log.Printf("[Media] FAILED to delete old avatar %s: %v", *oldKey, err)
		}
	}

	return &model.UploadResult{URL: url, Key: key}, nil
}
