// Package storage almacenamiento de fotos de evidencia en S3 o compatibles (MinIO, R2).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jhoicas/cafe-bot/internal/application/evidence"
	"github.com/jhoicas/cafe-bot/pkg/config"
	"github.com/jhoicas/cafe-bot/pkg/logger"
)

var _ evidence.ObjectStorage = (*S3Storage)(nil)

// putObjectAPI subconjunto del cliente S3 que se usa.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage sube objetos a un bucket.
type S3Storage struct {
	client    putObjectAPI
	bucket    string
	publicURL string
	log       *logger.Logger
}

// NewS3Storage crea el cliente desde la configuración. Sin AccessKey usa la cadena de credenciales por defecto de AWS.
func NewS3Storage(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: bucket requerido")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: configuración AWS: %w", err)
	}
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("storage: endpoint inválido: %w", err)
		}
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	publicURL := cfg.PublicURL
	if publicURL == "" {
		if endpoint != "" {
			publicURL = endpoint + "/" + cfg.Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
		}
	}
	return newS3Storage(client, cfg.Bucket, publicURL, log), nil
}

func newS3Storage(client putObjectAPI, bucket, publicURL string, log *logger.Logger) *S3Storage {
	if log == nil {
		log = logger.Nop()
	}
	return &S3Storage{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/"), log: log.Component("storage")}
}

// Put sube el contenido y devuelve la URL pública del objeto.
func (s *S3Storage) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	if key == "" {
		return "", errors.New("storage: key requerida")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("storage: subir %s: %w", key, err)
	}
	s.log.Debug().Str("bucket", s.bucket).Str("key", key).Int("bytes", len(body)).Msg("objeto subido")
	return s.ObjectURL(key), nil
}

// ObjectURL URL pública de una clave.
func (s *S3Storage) ObjectURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.publicURL + "/" + strings.Join(parts, "/")
}
