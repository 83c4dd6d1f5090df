package controller

import (
	"errors"
	"io"
	"net/http"
	"time"

	"referral-purchase-service/internal/backend"
	"referral-purchase-service/internal/dto"
	"referral-purchase-service/internal/export"
	"referral-purchase-service/internal/form"
	"referral-purchase-service/internal/middleware"
	"referral-purchase-service/internal/service"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const msgErrorCarga = "Error al cargar las compras"

type PurchaseController struct {
	Storage  backend.Storage
	Table    backend.Table
	FormOpts form.Options
	Service  *service.PurchaseService
}

func NewPurchaseController(storage backend.Storage, table backend.Table, opts form.Options, svc *service.PurchaseService) *PurchaseController {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = form.DefaultMaxFileSize
	}
	return &PurchaseController{Storage: storage, Table: table, FormOpts: opts, Service: svc}
}

// POST /compras - público, multipart: nombre, email, codigo_referido, comprobante
func (ctl *PurchaseController) Submit(c *gin.Context) {
	// margen para los campos de texto del multipart
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ctl.FormOpts.MaxFileSize+1<<20)

	f := form.New(ctl.Storage, ctl.Table, ctl.FormOpts)
	f.SetNombre(c.PostForm("nombre"))
	f.SetEmail(c.PostForm("email"))
	f.SetCodigoReferido(c.PostForm("codigo_referido"))

	file, err := ctl.readComprobante(c)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: form.MsgArchivoMuyGrande(ctl.FormOpts.MaxFileSize)})
			return
		}
		log.Error().Err(err).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("error leyendo comprobante")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: form.MsgFallo})
		return
	}
	if err := f.ChooseFile(file); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: f.Message().Text})
		return
	}

	err = f.Submit(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, dto.SubmitResponse{Message: f.Message().Text, Compra: f.Registered()})
	case errors.Is(err, form.ErrSubida), errors.Is(err, form.ErrRegistro):
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: f.Message().Text})
	default:
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: f.Message().Text})
	}
}

// readComprobante devuelve nil si no se eligió archivo. El tipo MIME se detecta
// por contenido; el que declara el navegador no se usa.
func (ctl *PurchaseController) readComprobante(c *gin.Context) (*form.File, error) {
	fh, err := c.FormFile("comprobante")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	file := &form.File{Name: fh.Filename, Size: fh.Size, ContentType: fh.Header.Get("Content-Type")}
	if fh.Size > ctl.FormOpts.MaxFileSize {
		return file, nil
	}

	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	file.Data, err = io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	file.ContentType = mimetype.Detect(file.Data).String()
	return file, nil
}

// GET /admin/compras?q= - compras más recientes primero, filtradas por q
func (ctl *PurchaseController) List(c *gin.Context) {
	records, err := ctl.Service.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		log.Error().Err(err).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("error listando compras")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: msgErrorCarga})
		return
	}
	c.JSON(http.StatusOK, records)
}

// GET /admin/compras/stats
func (ctl *PurchaseController) Stats(c *gin.Context) {
	stats, err := ctl.Service.Stats(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("error calculando estadísticas")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: msgErrorCarga})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GET /admin/compras/export - todas las compras, sin filtro
func (ctl *PurchaseController) Export(c *gin.Context) {
	records, err := ctl.Service.All(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("error leyendo compras para exportar")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: msgErrorCarga})
		return
	}
	name, data, err := export.Build(records, time.Now(), ctl.Service.Location())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, export.ContentType, data)
}
