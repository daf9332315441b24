package controllers

import (
	"io"
	"net/http"

	"repairshop-backend/models"
	"repairshop-backend/services"
	"repairshop-backend/utils"

	"github.com/gin-gonic/gin"
)

// UploadController accepts repair photos as multipart "images" files.
type UploadController struct {
	Repairs *services.RepairService
}

func (uc *UploadController) UploadRepairImages(c *gin.Context) {
	repairID, ok := paramID(c, "repairId", "repair")
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	stage := models.ImageStage(c.DefaultPostForm("image_type", string(models.ImageBefore)))
	files := form.File["images"]
	uploads := make([]services.ImageUpload, 0, len(files))
	for _, fh := range files {
		fh := fh
		uploads = append(uploads, services.ImageUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	images, err := uc.Repairs.AddImages(c.Request.Context(), currentUser(c), repairID, stage, uploads)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Images uploaded successfully",
		"images":  images,
	})
}

func (uc *UploadController) DeleteImage(c *gin.Context) {
	imageID, ok := paramID(c, "imageId", "image")
	if !ok {
		return
	}
	if err := uc.Repairs.DeleteImage(c.Request.Context(), currentUser(c), imageID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted successfully"})
}
