// Package form es el formulario de confirmación de compra: valida los datos del
// asistente, sube el comprobante y registra la compra. Un intento fallido no se
// reintenta; el asistente vuelve a enviar.
package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"referral-purchase-service/internal/backend"
	"referral-purchase-service/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxFileSize = 5 * 1024 * 1024
	DefaultBucket      = "comprobantes"
)

var (
	ErrArchivoMuyGrande     = errors.New("archivo demasiado grande")
	ErrNoEsImagen           = errors.New("Solo se permiten imágenes")
	ErrCodigoRequerido      = errors.New("El código de referido es obligatorio")
	ErrComprobanteRequerido = errors.New("Debes subir el comprobante de pago")
	ErrOcupado              = errors.New("Ya se está enviando una compra")
	ErrSubida               = errors.New("subida del comprobante fallida")
	ErrRegistro             = errors.New("registro de la compra fallido")
)

const (
	MsgExito = "¡Compra registrada exitosamente! Pronto verificaremos tu pago."
	MsgFallo = "Error al registrar la compra. Por favor intenta nuevamente."
)

// MsgArchivoMuyGrande es el aviso para un comprobante que supera limit bytes.
func MsgArchivoMuyGrande(limit int64) string {
	return "El archivo no debe superar " + humanSize(limit)
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}

type MessageType string

const (
	MessageNone    MessageType = ""
	MessageError   MessageType = "error"
	MessageSuccess MessageType = "success"
)

type Message struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

// File es el comprobante elegido. ContentType es el tipo MIME ya detectado.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Data        []byte
}

type Options struct {
	Bucket      string
	MaxFileSize int64
	Now         func() time.Time
}

type Form struct {
	storage backend.Storage
	table   backend.Table
	opts    Options

	mu             sync.Mutex
	nombre         string
	email          string
	codigoReferido string
	comprobante    *File
	busy           bool
	msg            Message
	last           *model.PurchaseRecord
}

func New(storage backend.Storage, table backend.Table, opts Options) *Form {
	if opts.Bucket == "" {
		opts.Bucket = DefaultBucket
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Form{storage: storage, table: table, opts: opts}
}

func (f *Form) SetNombre(v string) {
	f.mu.Lock()
	f.nombre = v
	f.mu.Unlock()
}

func (f *Form) SetEmail(v string) {
	f.mu.Lock()
	f.email = v
	f.mu.Unlock()
}

func (f *Form) SetCodigoReferido(v string) {
	f.mu.Lock()
	f.codigoReferido = v
	f.mu.Unlock()
}

// ChooseFile valida el archivo al elegirlo. Uno inválido deja el selector vacío;
// uno válido reemplaza al anterior y borra el error previo.
func (f *Form) ChooseFile(file *File) error {
	if file == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var err error
	text := ""
	switch {
	case file.Size > f.opts.MaxFileSize:
		err, text = ErrArchivoMuyGrande, MsgArchivoMuyGrande(f.opts.MaxFileSize)
	case !strings.HasPrefix(file.ContentType, "image/"):
		err, text = ErrNoEsImagen, ErrNoEsImagen.Error()
	}
	if err != nil {
		f.comprobante = nil
		f.msg = Message{Type: MessageError, Text: text}
		return err
	}
	f.comprobante = file
	f.msg = Message{}
	return nil
}

// Submit valida, sube el comprobante e inserta la compra. Los errores de
// validación no tocan el backend; los del backend se registran completos y el
// usuario solo ve MsgFallo.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return ErrOcupado
	}
	f.msg = Message{}
	codigo := strings.TrimSpace(f.codigoReferido)
	if codigo == "" {
		f.msg = Message{Type: MessageError, Text: ErrCodigoRequerido.Error()}
		f.mu.Unlock()
		return ErrCodigoRequerido
	}
	if f.comprobante == nil {
		f.msg = Message{Type: MessageError, Text: ErrComprobanteRequerido.Error()}
		f.mu.Unlock()
		return ErrComprobanteRequerido
	}
	f.busy = true
	file := f.comprobante
	p := model.NewPurchase{
		Nombre:         optional(f.nombre),
		Email:          optional(f.email),
		CodigoReferido: codigo,
	}
	f.mu.Unlock()

	// 1. Subir imagen al storage
	path := ObjectName(file.Name, f.opts.Now())
	if err := f.storage.Upload(ctx, f.opts.Bucket, path, file.ContentType, file.Data); err != nil {
		log.Error().Err(err).Str("bucket", f.opts.Bucket).Str("path", path).Msg("error subiendo comprobante")
		f.fail()
		return fmt.Errorf("%w: %w", ErrSubida, err)
	}

	// 2. URL pública
	p.ComprobanteURL = f.storage.PublicURL(f.opts.Bucket, path)

	// 3. Insertar la compra; si falla el archivo queda huérfano en el storage
	rec, err := f.table.Insert(ctx, backend.TablePurchases, p)
	if err != nil {
		log.Error().Err(err).Str("comprobante", path).Msg("error insertando compra, comprobante huérfano")
		f.fail()
		return fmt.Errorf("%w: %w", ErrRegistro, err)
	}

	f.mu.Lock()
	f.nombre, f.email, f.codigoReferido = "", "", ""
	f.comprobante = nil
	f.busy = false
	f.msg = Message{Type: MessageSuccess, Text: MsgExito}
	f.last = &rec
	f.mu.Unlock()

	log.Info().Str("id", rec.ID).Str("codigo_referido", rec.CodigoReferido).Msg("compra registrada")
	return nil
}

func (f *Form) fail() {
	f.mu.Lock()
	f.busy = false
	f.msg = Message{Type: MessageError, Text: MsgFallo}
	f.mu.Unlock()
}

func (f *Form) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

func (f *Form) Message() Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msg
}

func (f *Form) Comprobante() *File {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.comprobante
}

// Fields devuelve nombre, email y código de referido tal como están en el formulario.
func (f *Form) Fields() (nombre, email, codigoReferido string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nombre, f.email, f.codigoReferido
}

// Registered devuelve la última compra registrada por este formulario.
func (f *Form) Registered() *model.PurchaseRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// ObjectName arma <unix-ms>_<sufijo aleatorio>.<extensión original>.
func ObjectName(original string, now time.Time) string {
	ext := original
	if i := strings.LastIndex(original, "."); i >= 0 {
		ext = original[i+1:]
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%d_%s.%s", now.UnixMilli(), suffix, ext)
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
