package usecase

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"sync"

	"github.com/jung-kurt/gofpdf"

	"github.com/Nengock/katepeh/internal/domain"
)

// ErrNoRecord means no extraction has completed yet, so there is nothing to
// export.
var ErrNoRecord = errors.New("no record has been extracted yet")

var csvHeader = []string{
	"nik", "name", "birth_place", "birth_date", "gender", "address",
	"blood_type", "religion", "marital_status", "occupation", "nationality", "valid_until",
}

// ExportUseCase renders the most recently extracted record. The record lives
// in memory only; restarting the server forgets it.
type ExportUseCase struct {
	mu   sync.RWMutex
	last *domain.KTPRecord
}

func NewExportUseCase() *ExportUseCase {
	return &ExportUseCase{}
}

// SetLastRecord remembers the record the next export will render.
func (u *ExportUseCase) SetLastRecord(record *domain.KTPRecord) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.last = record
}

func (u *ExportUseCase) lastRecord() (*domain.KTPRecord, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.last == nil {
		return nil, ErrNoRecord
	}
	rec := *u.last
	return &rec, nil
}

func (u *ExportUseCase) ExportJSON() ([]byte, error) {
	record, err := u.lastRecord()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(record, "", "  ")
}

func (u *ExportUseCase) ExportCSV() ([]byte, error) {
	record, err := u.lastRecord()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write(csvHeader)
	w.Write([]string{
		record.NIK,
		record.Name,
		record.BirthPlace,
		record.BirthDate,
		string(record.Gender),
		record.Address,
		string(record.BloodType),
		string(record.Religion),
		string(record.MaritalStatus),
		record.Occupation,
		string(record.Nationality),
		record.ValidUntil,
	})

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (u *ExportUseCase) ExportPDF() ([]byte, error) {
	record, err := u.lastRecord()
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "KTP Extraction Result")
	pdf.Ln(12)

	rows := []struct {
		label string
		value string
	}{
		{"NIK", record.NIK},
		{"Nama", record.Name},
		{"Tempat Lahir", record.BirthPlace},
		{"Tgl Lahir", record.BirthDate},
		{"Jenis Kelamin", string(record.Gender)},
		{"Gol. Darah", string(record.BloodType)},
		{"Alamat", record.Address},
		{"Agama", string(record.Religion)},
		{"Status Perkawinan", string(record.MaritalStatus)},
		{"Pekerjaan", record.Occupation},
		{"Kewarganegaraan", string(record.Nationality)},
		{"Berlaku Hingga", record.ValidUntil},
	}

	for _, row := range rows {
		if row.value == "" {
			continue
		}
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(50, 8, row.label)
		pdf.SetFont("Arial", "", 11)
		pdf.MultiCell(0, 8, row.value, "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
