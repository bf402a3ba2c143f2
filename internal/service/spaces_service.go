package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/mrusso/postdeck/configs"
)

// SpacesService uploads media files to a DigitalOcean Spaces bucket and hands
// back their public URLs for later pre-upload to the partner API.
type SpacesService struct {
	config cfg.Config
}

func NewSpacesService(cfg cfg.Config) *SpacesService {
	return &SpacesService{config: cfg}
}

func (s *SpacesService) SpacesClient() *s3.Client {
	awsCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.config.Spaces.AccessKey, s.config.Spaces.SecretKey, "")),
		config.WithRegion(s.config.Spaces.Region),
	)
	if err != nil {
		slog.Info(err.Error())
		log.Fatal(err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.digitaloceanspaces.com", s.config.Spaces.Region))
	})
}

// Upload stores the file under key with a public-read ACL so the partner API
// can fetch it by URL during pre-upload.
func (s *SpacesService) Upload(ctx context.Context, key string, file []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Spaces.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(contentType),
		ACL:         "public-read",
	}

	client := s.SpacesClient()

	_, err := client.PutObject(ctx, input)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

// PublicURL is where an uploaded key can be fetched from.
func (s *SpacesService) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.%s.digitaloceanspaces.com/%s", s.config.Spaces.Bucket, s.config.Spaces.Region, key)
}
