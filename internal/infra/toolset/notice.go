package toolset

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"genui/internal/domain"
)

// NoticeWriter writes deprecation notices to a diagnostic stream, separate
// from the structured log. Each notice is written with a single Write call.
type NoticeWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewNoticeWriter returns a writer targeting w, or stderr when w is nil.
func NewNoticeWriter(w io.Writer) *NoticeWriter {
	if w == nil {
		w = os.Stderr
	}
	return &NoticeWriter{w: w}
}

type flusher interface {
	Flush() error
}

// Emit writes one notice and flushes buffered writers immediately.
func (n *NoticeWriter) Emit(deprecatedID, canonicalID string, info domain.DeprecationInfo) error {
	text := FormatNotice(deprecatedID, canonicalID, info)

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := io.WriteString(n.w, text); err != nil {
		return err
	}
	if f, ok := n.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// FormatNotice renders the human-readable deprecation warning.
func FormatNotice(deprecatedID, canonicalID string, info domain.DeprecationInfo) string {
	info = info.WithDefaults()
	var b strings.Builder
	fmt.Fprintf(&b, "\n⚠️  Toolset '%s' is deprecated. Use '%s' instead.\n", deprecatedID, canonicalID)
	fmt.Fprintf(&b, "    Reason: %s\n", info.Reason)
	fmt.Fprintf(&b, "    Removal planned for: %s\n", info.RemovalDate)
	if info.MigrationGuide != "" {
		fmt.Fprintf(&b, "    See migration guide: %s\n", info.MigrationGuide)
	}
	return b.String()
}
