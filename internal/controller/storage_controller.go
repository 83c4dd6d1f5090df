package controller

import (
	"context"
	"errors"
	"net/http"

	"referral-purchase-service/internal/dto"
	"referral-purchase-service/internal/storage"

	"github.com/gin-gonic/gin"
)

type ObjectOpener interface {
	Open(ctx context.Context, bucket, path string) (*storage.Object, error)
}

// StorageController solo sirve el bucket de comprobantes; otro bucket de la base
// responde como archivo inexistente.
type StorageController struct {
	Objects ObjectOpener
	Bucket  string
}

func NewStorageController(objects ObjectOpener, bucket string) *StorageController {
	return &StorageController{Objects: objects, Bucket: bucket}
}

// GET /storage/:bucket/:name - destino de las URLs públicas de comprobantes
func (ctl *StorageController) Download(c *gin.Context) {
	if c.Param("bucket") != ctl.Bucket {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "archivo no encontrado"})
		return
	}
	obj, err := ctl.Objects.Open(c.Request.Context(), ctl.Bucket, c.Param("name"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "archivo no encontrado"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer obj.Close()

	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj, nil)
}
