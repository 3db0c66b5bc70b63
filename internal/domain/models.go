package domain

import (
	"context"
	"image"
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale   Gender = "LAKI-LAKI"
	GenderFemale Gender = "PEREMPUAN"
)

type BloodType string

const (
	BloodTypeA       BloodType = "A"
	BloodTypeB       BloodType = "B"
	BloodTypeAB      BloodType = "AB"
	BloodTypeO       BloodType = "O"
	BloodTypeUnknown BloodType = "-"
)

type Religion string

const (
	ReligionIslam    Religion = "ISLAM"
	ReligionKristen  Religion = "KRISTEN"
	ReligionKatolik  Religion = "KATOLIK"
	ReligionHindu    Religion = "HINDU"
	ReligionBuddha   Religion = "BUDDHA"
	ReligionKonghucu Religion = "KONGHUCU"
)

type MaritalStatus string

const (
	MaritalSingle   MaritalStatus = "BELUM KAWIN"
	MaritalMarried  MaritalStatus = "KAWIN"
	MaritalDivorced MaritalStatus = "CERAI HIDUP"
	MaritalWidowed  MaritalStatus = "CERAI MATI"
)

type Nationality string

const (
	NationalityWNI Nationality = "WNI"
	NationalityWNA Nationality = "WNA"
)

// KTPRecord is the structured content of one Indonesian identity card.
// A record lives for the duration of a request; it is never written to
// storage or the database.
type KTPRecord struct {
	NIK           string        `json:"nik"`
	Name          string        `json:"name"`
	BirthPlace    string        `json:"birth_place"`
	BirthDate     string        `json:"birth_date"`
	Gender        Gender        `json:"gender"`
	Address       string        `json:"address"`
	BloodType     BloodType     `json:"blood_type,omitempty"`
	Religion      Religion      `json:"religion,omitempty"`
	MaritalStatus MaritalStatus `json:"marital_status,omitempty"`
	Occupation    string        `json:"occupation,omitempty"`
	Nationality   Nationality   `json:"nationality,omitempty"`
	ValidUntil    string        `json:"valid_until,omitempty"`
}

// TextRegion is one OCR result: a line of text with its location on the
// preprocessed image and the engine's confidence for it (0-100).
type TextRegion struct {
	Text       string
	Box        image.Rectangle
	Confidence float64
}

// LayoutInfo is the document analyzer's verdict on an image.
type LayoutInfo struct {
	IsKTP       bool
	Confidence  float64
	Regions     map[string]image.Rectangle
	ValidLayout bool
}

type ExtractionStatus string

const (
	ExtractionOK     ExtractionStatus = "ok"
	ExtractionFailed ExtractionStatus = "failed"
)

// ExtractionEvent is the audit row recorded for each extraction attempt.
// It carries request metadata only; no card fields are ever persisted.
type ExtractionEvent struct {
	ID          uuid.UUID
	FileName    string
	ContentType string
	SizeBytes   int64
	Confidence  float64
	Duration    time.Duration
	Status      ExtractionStatus
	CreatedAt   time.Time
}

// LayoutAnalyzer decides whether an image looks like a KTP and locates its
// coarse regions.
type LayoutAnalyzer interface {
	AnalyzeLayout(ctx context.Context, img image.Image) (*LayoutInfo, error)
}

// OCREngine extracts text lines with positions from a preprocessed image.
type OCREngine interface {
	ProcessImage(ctx context.Context, img image.Image) ([]TextRegion, error)
}

// FieldExtractor maps OCR text regions to named KTP fields. Missing fields
// are present in the result with an empty value.
type FieldExtractor interface {
	ExtractInformation(regions []TextRegion) (map[string]string, error)
}

type ExtractionRepository interface {
	RecordExtraction(ctx context.Context, event *ExtractionEvent) error
	ListExtractions(ctx context.Context, limit int) ([]ExtractionEvent, error)
}

type FileStorage interface {
	Upload(ctx context.Context, key string, contentType string, data []byte) (string, error)
	GetURL(ctx context.Context, key string) (string, error)
}
