package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"flai/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// StorageService stores rendered itinerary documents and returns a public
// URL. WhatsApp delivery needs a fetchable media URL; Telegram does not go
// through here.
type StorageService interface {
	UploadItinerary(ctx context.Context, pdfBytes []byte, filename string) (string, error)
}

// CloudinaryStorageService implements StorageService on Cloudinary raw uploads.
type CloudinaryStorageService struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryStorageService initializes a storage service from the app
// configuration.
func NewCloudinaryStorageService() (*CloudinaryStorageService, error) {
	cfg := config.AppConfig
	if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials not set in configuration")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryStorageService{cld: cld}, nil
}

// UploadItinerary uploads the PDF under flight_tickets/ and returns its
// secure URL.
func (s *CloudinaryStorageService) UploadItinerary(ctx context.Context, pdfBytes []byte, filename string) (string, error) {
	publicID := strings.TrimSuffix(filename, ".pdf")
	result, err := s.cld.Upload.Upload(ctx, bytes.NewReader(pdfBytes), uploader.UploadParams{
		Folder:       "flight_tickets",
		PublicID:     publicID,
		ResourceType: "raw",
	})
	if err != nil {
		return "", fmt.Errorf("upload itinerary %s: %w", filename, err)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("upload itinerary %s: no secure URL returned", filename)
	}
	return result.SecureURL, nil
}
