// Package export convierte compras en una planilla xlsx de una hoja.
package export

import (
	"bytes"
	"fmt"
	"time"

	"referral-purchase-service/internal/model"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Compras"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	// DateLayout reproduce toLocaleString('es-ES'): día/mes/año, hora:min:seg.
	DateLayout = "2/1/2006, 15:04:05"
	notAvail   = "N/A"
)

var Headers = []string{"ID", "Nombre", "Email", "Código de Referido", "URL Comprobante", "Fecha"}

type Row struct {
	ID             string
	Nombre         string
	Email          string
	CodigoReferido string
	ComprobanteURL string
	Fecha          string
}

func (r Row) values() []interface{} {
	return []interface{}{r.ID, r.Nombre, r.Email, r.CodigoReferido, r.ComprobanteURL, r.Fecha}
}

// Rows arma una fila por compra, en el orden recibido, con la fecha local a loc.
func Rows(records []model.PurchaseRecord, loc *time.Location) []Row {
	rows := make([]Row, len(records))
	for i, p := range records {
		rows[i] = Row{
			ID:             p.ID,
			Nombre:         orNA(p.Nombre),
			Email:          orNA(p.Email),
			CodigoReferido: p.CodigoReferido,
			ComprobanteURL: p.ComprobanteURL,
			Fecha:          p.CreatedAt.In(loc).Format(DateLayout),
		}
	}
	return rows
}

// Workbook escribe las filas debajo de los encabezados y devuelve el xlsx.
func Workbook(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, err
	}
	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		vals := r.values()
		if err := f.SetSheetRow(SheetName, cell, &vals); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("escribir xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName devuelve compras_<AAAA-MM-DD>.xlsx para el día de now en loc.
func FileName(now time.Time, loc *time.Location) string {
	return "compras_" + now.In(loc).Format("2006-01-02") + ".xlsx"
}

// Build es Rows + Workbook + FileName.
func Build(records []model.PurchaseRecord, now time.Time, loc *time.Location) (string, []byte, error) {
	data, err := Workbook(Rows(records, loc))
	if err != nil {
		return "", nil, err
	}
	return FileName(now, loc), data, nil
}

func orNA(v *string) string {
	if v == nil || *v == "" {
		return notAvail
	}
	return *v
}
