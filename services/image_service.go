package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"repairshop-backend/models"
	"repairshop-backend/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MaxImageSize   = 10 << 20
	MaxImagesBatch = 10
)

var allowedImageTypes = map[string]string{
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ImageUpload is one file of a multipart upload.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

func validateImage(u ImageUpload) error {
	ext := strings.ToLower(filepath.Ext(u.Filename))
	want, ok := allowedImageTypes[ext]
	if !ok {
		return newValidationError("images", "only jpeg, jpg, png, gif and webp images are allowed")
	}
	ct := strings.ToLower(u.ContentType)
	if ct != "" && ct != want && !(ext == ".jpg" && ct == "image/jpg") {
		return newValidationError("images", fmt.Sprintf("%s does not match its content type", u.Filename))
	}
	if u.Size > MaxImageSize {
		return newValidationError("images", fmt.Sprintf("%s exceeds the 10MB limit", u.Filename))
	}
	return nil
}

// AddImages stores the uploaded files and records them on the repair. Files
// already stored are removed again when a later one fails.
func (s *RepairService) AddImages(ctx context.Context, actor *models.User, repairID uuid.UUID, stage models.ImageStage, uploads []ImageUpload) ([]models.RepairImage, error) {
	if len(uploads) == 0 {
		return nil, newValidationError("images", "no files uploaded")
	}
	if len(uploads) > MaxImagesBatch {
		return nil, newValidationError("images", fmt.Sprintf("at most %d files per upload", MaxImagesBatch))
	}
	if stage == "" {
		stage = models.ImageBefore
	}
	if !stage.IsValid() {
		return nil, newValidationError("image_type", "must be before, during or after")
	}
	for _, u := range uploads {
		if err := validateImage(u); err != nil {
			return nil, err
		}
	}

	repair, err := s.load(s.db.WithContext(ctx), repairID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanView(actor, repair, "") {
		return nil, ErrRepairNotFound
	}
	if s.files == nil {
		return nil, &DependencyFailure{Dependency: "storage", Err: errors.New("file storage not configured")}
	}

	images := make([]models.RepairImage, 0, len(uploads))
	for _, u := range uploads {
		path, err := s.storeOne(ctx, u)
		if err != nil {
			for _, img := range images {
				s.removeFile(ctx, img.ImagePath)
			}
			return nil, &DependencyFailure{Dependency: "storage", Err: err}
		}
		images = append(images, models.RepairImage{
			RepairID:    repairID,
			ImagePath:   path,
			ImageType:   stage,
			ContentType: allowedImageTypes[strings.ToLower(filepath.Ext(u.Filename))],
			Size:        u.Size,
			UploadedBy:  actor.ID,
			CreatedAt:   s.now(),
		})
	}

	if err := s.db.WithContext(ctx).Create(&images).Error; err != nil {
		for _, img := range images {
			s.removeFile(ctx, img.ImagePath)
		}
		return nil, err
	}
	s.log.Info("repair images uploaded", zap.String("repair_id", repairID.String()), zap.Int("count", len(images)))
	return images, nil
}

func (s *RepairService) storeOne(ctx context.Context, u ImageUpload) (string, error) {
	f, err := u.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	name := storage.ObjectName(u.Filename, s.now())
	return s.files.Store(ctx, name, f, u.Size, allowedImageTypes[strings.ToLower(filepath.Ext(u.Filename))])
}

// DeleteImage removes the image record and then its file. A missing or
// undeletable file does not keep the record.
func (s *RepairService) DeleteImage(ctx context.Context, actor *models.User, imageID uuid.UUID) error {
	if actor == nil || !actor.Role.IsStaff() {
		return &AuthorizationError{Message: "only staff can delete images"}
	}

	var img models.RepairImage
	err := s.db.WithContext(ctx).First(&img, "id = ?", imageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: "image"}
	}
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&img).Error; err != nil {
		return err
	}
	s.removeFile(ctx, img.ImagePath)
	return nil
}
