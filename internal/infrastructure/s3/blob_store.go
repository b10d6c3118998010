// Package s3 implementa el BlobStore sobre un bucket S3 o compatible (MinIO).
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/pkg/config"
)

const defaultPresignExpiry = 30 * time.Minute

// BlobStore implementa repository.BlobStore sobre un bucket S3. Toda operación
// valida primero que la clave pertenezca al prefijo del emisor que la invoca.
type BlobStore struct {
	client *s3.Client
	bucket string
}

// NewBlobStore construye el cliente S3. Con cfg.Endpoint no vacío apunta a un
// servicio compatible (MinIO, LocalStack) con credenciales estáticas.
func NewBlobStore(ctx context.Context, cfg config.StorageConfig) (*BlobStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: cargar configuración AWS: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return &BlobStore{client: client, bucket: cfg.Bucket}, nil
}

// Put sube un blob bajo la clave dada.
func (b *BlobStore) Put(ctx context.Context, tenantRUC, key string, data []byte, contentType string) error {
	if err := repository.ValidateBlobKey(tenantRUC, key); err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3: subir %s: %w", key, err)
	}
	return nil
}

// Get descarga un blob. Devuelve ErrNotFound si la clave no existe.
func (b *BlobStore) Get(ctx context.Context, tenantRUC, key string) ([]byte, error) {
	if err := repository.ValidateBlobKey(tenantRUC, key); err != nil {
		return nil, err
	}
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: blob %s", domain.ErrNotFound, key)
		}
		return nil, fmt.Errorf("s3: obtener %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Exists indica si la clave existe en el bucket.
func (b *BlobStore) Exists(ctx context.Context, tenantRUC, key string) (bool, error) {
	if err := repository.ValidateBlobKey(tenantRUC, key); err != nil {
		return false, err
	}
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var nf *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("s3: verificar %s: %w", key, err)
	}
	return true, nil
}

// Delete elimina un blob del emisor.
func (b *BlobStore) Delete(ctx context.Context, tenantRUC, key string) error {
	if err := repository.ValidateBlobKey(tenantRUC, key); err != nil {
		return err
	}
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3: eliminar %s: %w", key, err)
	}
	return nil
}

// List enumera las claves del emisor bajo el prefijo relativo dado.
func (b *BlobStore) List(ctx context.Context, tenantRUC, prefix string) ([]string, error) {
	if tenantRUC == "" {
		return nil, fmt.Errorf("%w: emisor vacío", domain.ErrInvalidInput)
	}
	if strings.Contains(prefix, "..") {
		return nil, fmt.Errorf("%w: prefijo %q malformado", domain.ErrInvalidInput, prefix)
	}
	full := tenantRUC + "/" + prefix
	var keys []string
	p := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(full),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3: listar %s: %w", full, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// PresignGet genera una URL firmada de descarga con la vigencia dada.
func (b *BlobStore) PresignGet(ctx context.Context, tenantRUC, key string, expiry time.Duration) (string, error) {
	if err := repository.ValidateBlobKey(tenantRUC, key); err != nil {
		return "", err
	}
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	presigner := s3.NewPresignClient(b.client)
	result, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("s3: presignar %s: %w", key, err)
	}
	return result.URL, nil
}

var _ repository.BlobStore = (*BlobStore)(nil)
