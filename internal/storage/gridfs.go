package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("archivo no encontrado")

// Object es un archivo abierto para lectura.
type Object struct {
	io.ReadCloser
	ContentType string
	Size        int64
}

// GridFSStorage guarda los comprobantes en buckets GridFS y los publica bajo baseURL/storage/<bucket>/<path>.
type GridFSStorage struct {
	db      *mongo.Database
	baseURL string
}

func NewGridFSStorage(db *mongo.Database, baseURL string) *GridFSStorage {
	return &GridFSStorage{db: db, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *GridFSStorage) bucket(ctx context.Context, name string) (*gridfs.Bucket, error) {
	b, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(name))
	if err != nil {
		return nil, err
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = b.SetWriteDeadline(dl)
		_ = b.SetReadDeadline(dl)
	}
	return b, nil
}

func (s *GridFSStorage) Upload(ctx context.Context, bucket, path, contentType string, data []byte) error {
	b, err := s.bucket(ctx, bucket)
	if err != nil {
		return err
	}
	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": contentType})
	_, err = b.UploadFromStream(path, bytes.NewReader(data), opts)
	return err
}

func (s *GridFSStorage) PublicURL(bucket, path string) string {
	return PublicURL(s.baseURL, bucket, path)
}

// Open abre un archivo por nombre. El llamador cierra el Object.
func (s *GridFSStorage) Open(ctx context.Context, bucket, path string) (*Object, error) {
	b, err := s.bucket(ctx, bucket)
	if err != nil {
		return nil, err
	}
	stream, err := b.OpenDownloadStreamByName(path)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	file := stream.GetFile()
	obj := &Object{ReadCloser: stream, Size: file.Length, ContentType: "application/octet-stream"}
	if file.Metadata != nil {
		if ct, ok := file.Metadata.Lookup("contentType").StringValueOK(); ok && ct != "" {
			obj.ContentType = ct
		}
	}
	return obj, nil
}

func PublicURL(baseURL, bucket, path string) string {
	return strings.TrimRight(baseURL, "/") + "/storage/" + url.PathEscape(bucket) + "/" + url.PathEscape(path)
}
