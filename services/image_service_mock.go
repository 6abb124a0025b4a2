package services

import (
	"fmt"
	"mime/multipart"

	"github.com/casaluna/casaluna-api/utils"
)

// MockImageService is an in-memory ImageService for tests
type MockImageService struct {
	// UploadedFiles records the keys handed out by UploadImage
	UploadedFiles []string
	// DeletedKeys records the keys passed to DeleteImage
	DeletedKeys []string
	// FailUpload forces UploadImage to return an error
	FailUpload bool
	// FailURL forces GetImageURL to return an error
	FailURL bool

	counter int
}

// NewMockImageService creates a mock image service
func NewMockImageService() *MockImageService {
	return &MockImageService{}
}

// UploadImage validates the file like the real service, then records a
// fake key instead of touching S3
func (m *MockImageService) UploadImage(fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}
	if m.FailUpload {
		return "", fmt.Errorf("mock upload failure")
	}

	m.counter++
	key := fmt.Sprintf("menu-items/mock_%d_%s", m.counter, fileHeader.Filename)
	m.UploadedFiles = append(m.UploadedFiles, key)
	return key, nil
}

// GetImageURL returns a deterministic fake URL for the key
func (m *MockImageService) GetImageURL(imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}
	if m.FailURL {
		return "", fmt.Errorf("mock URL failure")
	}
	return fmt.Sprintf("https://mock-bucket.example.com/%s", imageKey), nil
}

// DeleteImage records the deletion
func (m *MockImageService) DeleteImage(imageKey string) error {
	if imageKey == "" {
		return nil
	}
	m.DeletedKeys = append(m.DeletedKeys, imageKey)
	return nil
}
