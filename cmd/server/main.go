package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nengock/katepeh/internal/config"
	"github.com/Nengock/katepeh/internal/delivery"
	"github.com/Nengock/katepeh/internal/domain"
	"github.com/Nengock/katepeh/internal/infrastructure"
	"github.com/Nengock/katepeh/internal/recognition"
	"github.com/Nengock/katepeh/internal/repository"
	"github.com/Nengock/katepeh/internal/usecase"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Unable to load configuration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 1. Audit repository (optional; the pipeline runs without a database)
	var audit domain.ExtractionRepository
	if cfg.DatabaseURL != "" {
		dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Unable to connect to database: %v", err)
		}
		defer dbPool.Close()
		audit = repository.NewPostgresRepository(dbPool)
		logger.Info("extraction audit trail enabled")
	}

	// 2. File storage
	var storage domain.FileStorage
	if cfg.UseS3() {
		client, err := newS3Client(ctx, cfg)
		if err != nil {
			log.Fatalf("Unable to load SDK config: %v", err)
		}
		bucket := cfg.S3Bucket
		if bucket == "" {
			bucket = "ktp-uploads"
		}
		logger.Info("using S3 storage", "bucket", bucket)
		storage = infrastructure.NewS3Storage(client, bucket)
	} else {
		logger.Info("using filesystem storage", "dir", cfg.UploadDir)
		storage = infrastructure.NewFileSystemStorage(cfg.UploadDir)
	}

	// 3. Recognition pipeline
	pre := recognition.NewPreprocessor()
	analyzer := recognition.NewDocumentAnalyzer()
	ocr := recognition.NewTesseractEngine(cfg.OCRLanguages)
	extractor := recognition.NewKTPExtractor()

	// 4. Use cases
	recognizeUC := usecase.NewRecognizeUseCase(pre, analyzer, ocr, extractor, audit, logger)
	uploadUC := usecase.NewUploadUseCase(storage, pre, logger)
	exportUC := usecase.NewExportUseCase()

	// 5. Delivery
	handler := delivery.NewHandler(cfg, recognizeUC, uploadUC, exportUC, audit, logger)

	addr := ":" + cfg.Port
	logger.Info("server starting", "addr", addr, "api_prefix", cfg.APIPrefix)
	if err := http.ListenAndServe(addr, handler.Router()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func newS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.S3Region))

	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     cfg.S3AccessKey,
					SecretAccessKey: cfg.S3SecretKey,
				}, nil
			})))
	} else if cfg.S3Endpoint != "" {
		// LocalStack and minio accept placeholder credentials.
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{AccessKeyID: "test", SecretAccessKey: "test"}, nil
			})))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
