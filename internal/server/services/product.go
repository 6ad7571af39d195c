package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alexbor287kz-boop/marketplace/internal/dbx"
	sc "github.com/alexbor287kz-boop/marketplace/internal/server/config"
	"github.com/alexbor287kz-boop/marketplace/internal/server/models"
	"github.com/alexbor287kz-boop/marketplace/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// presignExpiry bounds how long handed-out upload/download URLs stay valid.
const presignExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ProductInput carries the client-supplied fields for a new product.
// Tags is the raw comma-separated form the API accepts.
type ProductInput struct {
	Title            string
	ShortDescription string
	IconURL          string
	Category         string
	ProductType      string
	Tags             string
	ProductURL       string
}

// MediaInput describes one media attachment the client intends to upload.
type MediaInput struct {
	ContentType string
}

// ProductService provides catalog operations plus the media upload flow
// backed by object storage.
type ProductService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
}

func NewProductService(db *sql.DB, repomanager repomanager.RepositoryManager, config *sc.Config) *ProductService {
	return &ProductService{
		db:          db,
		repomanager: repomanager,
		config:      config,
	}
}

// GetRandomStorageKey builds a fresh object key, partitioned by date.
func GetRandomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("products/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

// ParseTags splits the comma-separated tag form into trimmed tags,
// dropping empty segments.
func ParseTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func (s *ProductService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// GetPresignedPutUrl mints a storage key and a presigned PUT URL for it.
func (s *ProductService) GetPresignedPutUrl(ctx context.Context) (string, string, error) {

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := GetRandomStorageKey()

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))

	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

// GetPresignedGetUrl returns a presigned GET URL for an existing storage key.
func (s *ProductService) GetPresignedGetUrl(ctx context.Context, key string) (string, error) {

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// List returns the whole catalog, newest first, with owner names attached.
func (s *ProductService) List(ctx context.Context) ([]*models.Product, error) {
	repo := s.repomanager.Products(s.db)

	result, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing products: %v", err)
	}
	return result, nil
}

// Create inserts a new product owned by ownerID together with pending media
// rows for each declared attachment. Presigned upload URLs are minted before
// the transaction; the product and its media rows are inserted atomically, so
// a failed media insert fails the whole creation instead of being dropped.
func (s *ProductService) Create(ctx context.Context, ownerID string, input *ProductInput, mediaInputs []*MediaInput) (*models.Product, []*models.MediaUploadTask, error) {

	product := &models.Product{
		OwnerID:          ownerID,
		Title:            input.Title,
		ShortDescription: input.ShortDescription,
		IconURL:          input.IconURL,
		Category:         input.Category,
		ProductType:      input.ProductType,
		Tags:             ParseTags(input.Tags),
		ProductURL:       input.ProductURL,
	}

	var uploadTasks []*models.MediaUploadTask
	var newMedia []*models.Media
	for _, mi := range mediaInputs {
		storageKey, url, err := s.GetPresignedPutUrl(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("error presigning upload: %v", err)
		}

		newMedia = append(newMedia, &models.Media{
			StorageKey:   storageKey,
			ContentType:  mi.ContentType,
			UploadStatus: models.MediaUploadPending,
		})
		uploadTasks = append(uploadTasks, &models.MediaUploadTask{StorageKey: storageKey, URL: url})
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {

		productRepo := s.repomanager.Products(tx)
		mediaRepo := s.repomanager.Media(tx)

		if _, err := productRepo.Create(ctx, product); err != nil {
			return err
		}

		for i, m := range newMedia {
			m.ProductID = product.ID
			created, err := mediaRepo.Create(ctx, m)
			if err != nil {
				return err
			}
			uploadTasks[i].MediaID = created.ID
		}

		return nil
	})

	if err != nil {
		return nil, nil, fmt.Errorf("error creating product: %v", err)
	}

	return product, uploadTasks, nil
}

// Update applies a partial update and returns the resulting product.
func (s *ProductService) Update(ctx context.Context, id string, upd *models.ProductUpdate) (*models.Product, error) {
	repo := s.repomanager.Products(s.db)

	product, err := repo.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes a product and, via the schema cascade, its media rows.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	repo := s.repomanager.Products(s.db)

	if err := repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("error deleting product: %v", err)
	}
	return nil
}

// AttachMedia creates a pending media row for an existing product and returns
// the upload task for it. The product must exist (common.ErrorNotFound).
func (s *ProductService) AttachMedia(ctx context.Context, productID, contentType string) (*models.MediaUploadTask, error) {
	productRepo := s.repomanager.Products(s.db)
	mediaRepo := s.repomanager.Media(s.db)

	if _, err := productRepo.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	storageKey, url, err := s.GetPresignedPutUrl(ctx)
	if err != nil {
		return nil, fmt.Errorf("error presigning upload: %v", err)
	}

	created, err := mediaRepo.Create(ctx, &models.Media{
		ProductID:    productID,
		StorageKey:   storageKey,
		ContentType:  contentType,
		UploadStatus: models.MediaUploadPending,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating media: %v", err)
	}

	return &models.MediaUploadTask{MediaID: created.ID, StorageKey: storageKey, URL: url}, nil
}

// MarkMediaUploaded transitions a media row out of the pending state.
func (s *ProductService) MarkMediaUploaded(ctx context.Context, id string) error {
	mediaRepo := s.repomanager.Media(s.db)

	if err := mediaRepo.MarkUploaded(ctx, id); err != nil {
		return err
	}
	return nil
}

// MediaDownloadURL returns a presigned GET URL for the media's payload.
func (s *ProductService) MediaDownloadURL(ctx context.Context, id string) (string, error) {
	mediaRepo := s.repomanager.Media(s.db)

	m, err := mediaRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	url, err := s.GetPresignedGetUrl(ctx, m.StorageKey)
	if err != nil {
		return "", fmt.Errorf("error presigning download: %v", err)
	}
	return url, nil
}

// DeleteMedia removes a media row. The object itself ages out of the bucket
// by lifecycle policy; the API only forgets the key.
func (s *ProductService) DeleteMedia(ctx context.Context, id string) error {
	mediaRepo := s.repomanager.Media(s.db)

	if err := mediaRepo.Delete(ctx, id); err != nil {
		return err
	}
	return nil
}
