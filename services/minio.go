package services

import (
	"context"
	"fmt"
	"io"
	"os"

	appContext "github.com/alphabatem/common/context"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

// MinIOService keeps the uploaded source documents. The documents are
// also forwarded to the generation backend, but the stored copy is
// the durable record behind a course's file list.
type MinIOService struct {
	appContext.DefaultService
	client     *minio.Client
	bucketName string
	endpoint   string
	accessKey  string
	secretKey  string
	useSSL     bool
}

const MINIO_SVC = "minio_svc"

func (svc MinIOService) Id() string {
	return MINIO_SVC
}

func (svc *MinIOService) Configure(ctx *appContext.Context) error {
	svc.endpoint = os.Getenv("MINIO_ENDPOINT")
	if svc.endpoint == "" {
		svc.endpoint = "localhost:9000"
	}

	svc.accessKey = os.Getenv("MINIO_ACCESS_KEY")
	if svc.accessKey == "" {
		svc.accessKey = "admin"
	}

	svc.secretKey = os.Getenv("MINIO_SECRET_KEY")
	if svc.secretKey == "" {
		svc.secretKey = "password123"
	}

	svc.useSSL = os.Getenv("MINIO_USE_SSL") == "true"

	svc.bucketName = os.Getenv("MINIO_BUCKET_NAME")
	if svc.bucketName == "" {
		svc.bucketName = "scaffold-uploads"
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *MinIOService) Start() error {
	client, err := minio.New(svc.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(svc.accessKey, svc.secretKey, ""),
		Secure: svc.useSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %v", err)
	}

	svc.client = client

	if err := svc.ensureBucket(); err != nil {
		return fmt.Errorf("failed to ensure bucket exists: %v", err)
	}

	log.Printf("MinIO service started successfully with endpoint: %s", svc.endpoint)
	return nil
}

func (svc *MinIOService) ensureBucket() error {
	ctx := context.Background()

	exists, err := svc.client.BucketExists(ctx, svc.bucketName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return svc.client.MakeBucket(ctx, svc.bucketName, minio.MakeBucketOptions{})
}

func (svc *MinIOService) objectKey(uid, filename string) string {
	return fmt.Sprintf("%s/%s", uid, filename)
}

// StoreDocument writes one uploaded source file under the owner's
// prefix and returns the object key.
func (svc *MinIOService) StoreDocument(ctx context.Context, uid, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	key := svc.objectKey(uid, filename)

	_, err := svc.client.PutObject(ctx, svc.bucketName, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		log.WithError(err).WithField("object", key).Error("Failed to store document")
		return "", err
	}

	log.WithField("object", key).Debug("Stored source document")
	return key, nil
}

// RemoveDocument deletes the stored copy of an uploaded file. Missing
// objects are not an error; the file record is authoritative.
func (svc *MinIOService) RemoveDocument(ctx context.Context, uid, filename string) error {
	key := svc.objectKey(uid, filename)

	err := svc.client.RemoveObject(ctx, svc.bucketName, key, minio.RemoveObjectOptions{})
	if err != nil {
		log.WithError(err).WithField("object", key).Warn("Failed to remove document")
		return err
	}
	return nil
}
