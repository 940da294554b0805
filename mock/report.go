package mock

import (
	"context"
	"io"

	"github.com/fwojciec/furnitron"
)

// Compile-time interface verification.
var (
	_ furnitron.ReportService   = (*ReportService)(nil)
	_ furnitron.ReportFormatter = (*ReportFormatter)(nil)
)

// ReportService is a mock implementation of furnitron.ReportService.
type ReportService struct {
	CreateReportFn   func(ctx context.Context, report *furnitron.Report) error
	FindReportByIDFn func(ctx context.Context, id string) (*furnitron.Report, error)
	FindRunsFn       func(ctx context.Context, filter furnitron.RunFilter) ([]*furnitron.Run, error)
	SearchNamesFn    func(ctx context.Context, filter furnitron.NameFilter) ([]*furnitron.NameMatch, error)
	CountNamesFn     func(ctx context.Context, filter furnitron.NameFilter) ([]*furnitron.NameCount, error)
}

func (s *ReportService) CreateReport(ctx context.Context, report *furnitron.Report) error {
	return s.CreateReportFn(ctx, report)
}

func (s *ReportService) FindReportByID(ctx context.Context, id string) (*furnitron.Report, error) {
	return s.FindReportByIDFn(ctx, id)
}

func (s *ReportService) FindRuns(ctx context.Context, filter furnitron.RunFilter) ([]*furnitron.Run, error) {
	return s.FindRunsFn(ctx, filter)
}

func (s *ReportService) SearchNames(ctx context.Context, filter furnitron.NameFilter) ([]*furnitron.NameMatch, error) {
	return s.SearchNamesFn(ctx, filter)
}

func (s *ReportService) CountNames(ctx context.Context, filter furnitron.NameFilter) ([]*furnitron.NameCount, error) {
	return s.CountNamesFn(ctx, filter)
}

// ReportFormatter is a mock implementation of furnitron.ReportFormatter.
type ReportFormatter struct {
	FormatReportFn func(w io.Writer, report *furnitron.Report) error
}

func (f *ReportFormatter) FormatReport(w io.Writer, report *furnitron.Report) error {
	return f.FormatReportFn(w, report)
}
