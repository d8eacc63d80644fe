// Package backup produces encrypted snapshots of the patient database and
// uploads them to S3-compatible storage. The scheduler drives it through
// the Service's CreateBackup and DeleteArtifact methods.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rowandev/caretab/internal/model"
)

// objectClient is the subset of the S3 client the service uses.
// An interface so tests can substitute a fake.
type objectClient interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds backup service configuration.
type Config struct {
	S3         S3Config
	DBPath     string
	Passphrase string
}

// Artifact describes one produced backup artifact.
type Artifact struct {
	Filename   string
	StorageKey string
	SizeBytes  int64
}

// Service snapshots the SQLite database, encrypts the copy, and uploads
// it. It holds no run state; the scheduler owns sequencing.
type Service struct {
	cfg    Config
	db     *sql.DB
	client objectClient
	logger *slog.Logger
}

func NewService(cfg Config, db *sql.DB, logger *slog.Logger) *Service {
	svc := &Service{cfg: cfg, db: db, logger: logger}
	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" {
		svc.client = newS3Client(cfg.S3)
	}
	return svc
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether artifact storage is configured.
func (s *Service) Enabled() bool {
	return s.client != nil
}

// CreateBackup checkpoints the WAL, copies the database file, encrypts
// the copy, and uploads it under jobs/<job-id>/.
func (s *Service) CreateBackup(ctx context.Context, job *model.BackupJob) (Artifact, error) {
	if s.client == nil {
		return Artifact{}, fmt.Errorf("backup storage not configured")
	}
	if s.cfg.Passphrase == "" {
		return Artifact{}, fmt.Errorf("backup passphrase not configured")
	}

	timestamp := time.Now().UTC().Format("2006-01-02T150405Z")
	filename := fmt.Sprintf("backup-%s.db.enc", timestamp)
	storageKey := path.Join("jobs", job.ID, filename)

	tmpDir := os.TempDir()
	dbCopy := filepath.Join(tmpDir, fmt.Sprintf("caretab-%s-%s.db", job.ID, timestamp))
	encFile := dbCopy + ".enc"
	defer os.Remove(dbCopy)
	defer os.Remove(encFile)

	// Flush pending WAL frames so the file copy is a consistent snapshot.
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return Artifact{}, fmt.Errorf("wal checkpoint: %w", err)
	}

	if err := copyFile(s.cfg.DBPath, dbCopy); err != nil {
		return Artifact{}, fmt.Errorf("copy database: %w", err)
	}

	if err := EncryptFile(dbCopy, encFile, s.cfg.Passphrase); err != nil {
		return Artifact{}, fmt.Errorf("encrypt: %w", err)
	}

	encData, err := os.Open(encFile)
	if err != nil {
		return Artifact{}, fmt.Errorf("open encrypted file: %w", err)
	}
	defer encData.Close()

	stat, err := encData.Stat()
	if err != nil {
		return Artifact{}, fmt.Errorf("stat encrypted file: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.S3.Bucket),
		Key:           aws.String(storageKey),
		Body:          encData,
		ContentLength: aws.Int64(stat.Size()),
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("upload artifact: %w", err)
	}

	s.logger.Info("backup artifact uploaded",
		"job", job.ID, "key", storageKey, "size_bytes", stat.Size())

	return Artifact{Filename: filename, StorageKey: storageKey, SizeBytes: stat.Size()}, nil
}

// DeleteArtifact removes a previously uploaded artifact.
func (s *Service) DeleteArtifact(ctx context.Context, storageKey string) error {
	if s.client == nil {
		return fmt.Errorf("backup storage not configured")
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.S3.Bucket),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		return fmt.Errorf("delete artifact %s: %w", storageKey, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
