package diag

import (
	"log/slog"
	"os"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
)

// SchemaEnvVar gates the one-shot schema print.
const SchemaEnvVar = "POINTLINE_L2_DEBUG"

func schemaDebugEnabled() bool {
	return os.Getenv(SchemaEnvVar) != ""
}

// SchemaPrinter prints the resolved Arrow schema of the first batch a scan
// touches, once, when POINTLINE_L2_DEBUG is set. Later calls are no-ops —
// a long bulk scan shouldn't spam one schema line per partition file.
type SchemaPrinter struct {
	enabled bool
	once    sync.Once
}

// NewSchemaPrinter reads the gating env var once at construction.
func NewSchemaPrinter() *SchemaPrinter {
	return &SchemaPrinter{enabled: schemaDebugEnabled()}
}

// Print logs schema once per SchemaPrinter instance.
func (p *SchemaPrinter) Print(logger *slog.Logger, label string, schema *arrow.Schema) {
	if p == nil || !p.enabled || schema == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	p.once.Do(func() {
		logger.Debug("l2replay schema", "label", label, "schema", schema.String())
	})
}
