package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/duetable-api/internal/models"
	appErrors "github.com/noah-isme/duetable-api/pkg/errors"
	"github.com/noah-isme/duetable-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var exportHeaders = []string{"Assignment", "Course", "Due", "Points", "Status", "Score", "Grade", "Late", "Missing", "Finished"}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title, subtitle string) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the due table as CSV or PDF.
type ExportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// Render builds the export for list in the given format.
func (s *ExportService) Render(format, term string, list []models.CombinedAssignment, courses []models.Course) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	dataset := buildDataset(list, courses)
	stamp := s.now().UTC()
	base := fmt.Sprintf("assignments-%s-%s", slug(term), stamp.Format("20060102-150405"))

	var (
		payload []byte
		err     error
		file    ExportFile
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		file = ExportFile{Filename: base + ".csv", ContentType: "text/csv; charset=utf-8"}
	case ExportFormatPDF:
		subtitle := fmt.Sprintf("%s · %d assignments · generated %s", term, len(list), stamp.Format(time.RFC1123))
		payload, err = s.pdf.Render(dataset, "Due table", subtitle)
		file = ExportFile{Filename: base + ".pdf", ContentType: "application/pdf"}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		s.logger.Error("render export failed", zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render export")
	}
	file.Data = payload
	return &file, nil
}

func buildDataset(list []models.CombinedAssignment, courses []models.Course) export.Dataset {
	codes := courseCodes(courses)
	rows := make([]map[string]string, 0, len(list))
	for _, a := range list {
		due := ""
		if a.DueAt != nil {
			due = a.DueAt.UTC().Format("2006-01-02 15:04")
		}
		score := ""
		if a.Score != nil {
			score = strconv.FormatFloat(*a.Score, 'f', -1, 64)
		}
		grade := ""
		if a.Grade != nil {
			grade = *a.Grade
		}
		rows = append(rows, map[string]string{
			"Assignment": a.Name,
			"Course":     courseLabel(a, codes),
			"Due":        due,
			"Points":     strconv.FormatFloat(a.PointsPossible, 'f', -1, 64),
			"Status":     a.WorkflowState,
			"Score":      score,
			"Grade":      grade,
			"Late":       yesNo(a.Late),
			"Missing":    yesNo(a.Missing),
			"Finished":   yesNo(a.IfFinished),
		})
	}
	return export.Dataset{
		Headers: exportHeaders,
		Rows:    rows,
		Widths:  []float64{5, 2, 2.4, 1.2, 2, 1.2, 1.2, 1, 1.2, 1.2},
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func slug(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return "all"
	}
	return strings.Join(strings.Fields(term), "-")
}
