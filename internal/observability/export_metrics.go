package observability

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerhub/ledgerhub/internal/authz"
	"github.com/ledgerhub/ledgerhub/internal/export"
)

// ObserveExport wraps a workbook build, recording duration, outcome class
// and payload size. fn returns the byte size of the generated workbook.
func (p *Prom) ObserveExport(kind string, fn func() (int, error)) error {
	start := time.Now()
	n, err := fn()
	secs := time.Since(start).Seconds()

	result := "ok"
	if err != nil {
		result = classifyExportErr(err)
	}

	p.ExportDuration.WithLabelValues(kind, result).Observe(secs)
	p.ExportResults.WithLabelValues(kind, result).Inc()

	if err == nil {
		p.ExportBytes.WithLabelValues(kind).Observe(float64(n))
	}

	return err
}

func classifyExportErr(err error) string {
	switch {
	case errors.Is(err, export.ErrUnsupportedKind):
		return "unsupported_kind"
	case errors.Is(err, authz.ErrAdminOnly), errors.Is(err, authz.ErrNotAuthenticated):
		return "denied"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "error"
	}
}
