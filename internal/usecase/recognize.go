package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Nengock/katepeh/internal/domain"
	"github.com/Nengock/katepeh/internal/recognition"
	"github.com/Nengock/katepeh/internal/validation"
)

// UploadMeta describes the incoming file for audit purposes.
type UploadMeta struct {
	FileName    string
	ContentType string
	SizeBytes   int64
}

// RecognizeResult is a structured record plus the analyzer's confidence.
type RecognizeResult struct {
	Record     *domain.KTPRecord
	Confidence float64
}

// RecognizeUseCase runs the full pipeline: preprocess, layout analysis, OCR,
// field extraction, validation. When an audit repository is configured each
// attempt is recorded with request metadata only.
type RecognizeUseCase struct {
	pre       *recognition.Preprocessor
	analyzer  domain.LayoutAnalyzer
	ocr       domain.OCREngine
	extractor domain.FieldExtractor
	audit     domain.ExtractionRepository
	logger    *slog.Logger
}

func NewRecognizeUseCase(
	pre *recognition.Preprocessor,
	analyzer domain.LayoutAnalyzer,
	ocr domain.OCREngine,
	extractor domain.FieldExtractor,
	audit domain.ExtractionRepository,
	logger *slog.Logger,
) *RecognizeUseCase {
	return &RecognizeUseCase{
		pre:       pre,
		analyzer:  analyzer,
		ocr:       ocr,
		extractor: extractor,
		audit:     audit,
		logger:    logger,
	}
}

// Recognize extracts a KTPRecord from image bytes. With bypass set the
// is-KTP gate, the empty-OCR gate, and field validation are skipped, so a
// best-effort record always comes back for a decodable image.
func (u *RecognizeUseCase) Recognize(ctx context.Context, data []byte, meta UploadMeta, bypass bool) (*RecognizeResult, error) {
	start := time.Now()
	result, err := u.recognize(ctx, data, bypass)
	u.recordAudit(ctx, meta, result, err, time.Since(start))
	return result, err
}

func (u *RecognizeUseCase) recognize(ctx context.Context, data []byte, bypass bool) (*RecognizeResult, error) {
	img, err := u.pre.Decode(data)
	if err != nil {
		return nil, err
	}

	img, err = u.pre.Preprocess(img, bypass)
	if err != nil {
		if _, ok := domain.AsProcessingError(err); ok {
			return nil, err
		}
		return nil, domain.NewValidationError(fmt.Sprintf("image preprocessing failed: %v", err))
	}

	layout, err := u.analyzer.AnalyzeLayout(ctx, img)
	if err != nil {
		return nil, domain.NewModelError("document analysis failed", err)
	}
	if !bypass && !layout.IsKTP {
		return nil, domain.NewValidationError(fmt.Sprintf(
			"the uploaded image does not appear to be a valid KTP; confidence score: %.2f", layout.Confidence))
	}

	regions, err := u.ocr.ProcessImage(ctx, img)
	if err != nil {
		if _, ok := domain.AsProcessingError(err); ok {
			return nil, err
		}
		return nil, domain.NewOCRError("OCR processing failed", err)
	}
	if len(regions) == 0 && !bypass {
		return nil, domain.NewValidationError("no text could be extracted from the image")
	}

	fields, err := u.extractor.ExtractInformation(regions)
	if err != nil {
		return nil, domain.NewModelError("information extraction failed", err)
	}
	if !bypass && emptyFields(fields) {
		return nil, domain.NewValidationError("could not extract KTP information from the image")
	}

	record, err := validation.BuildRecord(fields, bypass)
	if err != nil {
		return nil, err
	}

	u.logger.Info("extraction complete",
		slog.Float64("confidence", layout.Confidence),
		slog.Bool("valid_layout", layout.ValidLayout),
		slog.Bool("bypass", bypass))

	return &RecognizeResult{Record: record, Confidence: layout.Confidence}, nil
}

func emptyFields(fields map[string]string) bool {
	for _, v := range fields {
		if v != "" {
			return false
		}
	}
	return true
}

// recordAudit writes one metadata row per attempt. Failures are logged but
// never surface to the caller; the audit trail is best-effort.
func (u *RecognizeUseCase) recordAudit(ctx context.Context, meta UploadMeta, result *RecognizeResult, recErr error, elapsed time.Duration) {
	if u.audit == nil {
		return
	}

	event := &domain.ExtractionEvent{
		ID:          uuid.New(),
		FileName:    meta.FileName,
		ContentType: meta.ContentType,
		SizeBytes:   meta.SizeBytes,
		Duration:    elapsed,
		Status:      domain.ExtractionOK,
		CreatedAt:   time.Now(),
	}
	if result != nil {
		event.Confidence = result.Confidence
	}
	if recErr != nil {
		event.Status = domain.ExtractionFailed
	}

	if err := u.audit.RecordExtraction(ctx, event); err != nil {
		u.logger.Warn("failed to record extraction audit", slog.String("error", err.Error()))
	}
}
