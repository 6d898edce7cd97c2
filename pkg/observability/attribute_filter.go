package observability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// spanKeyPrefixes are the namespaces checkstat sets span attributes in.
var spanKeyPrefixes = []string{"checkstat.", "checkpoint.", "http.", "url.", "mcp.", "error."}

// spanKeys are the bare keys checkstat sets on spans.
var spanKeys = map[string]bool{
	"job_id":  true,
	"outcome": true,
	"format":  true,
	"error":   true,
}

// sensitiveKeys never leave the process, whatever namespace they fall in.
var sensitiveKeys = map[string]bool{
	"email":         true,
	"request.body":  true,
	"response.body": true,
}

type attrVerdict int

const (
	attrKeep attrVerdict = iota
	attrSensitive
	attrUnknown
)

func classifyAttribute(key string) attrVerdict {
	if sensitiveKeys[key] || strings.HasPrefix(key, "user.") || strings.HasSuffix(key, ".body") {
		return attrSensitive
	}

	if spanKeys[key] {
		return attrKeep
	}

	for _, prefix := range spanKeyPrefixes {
		if strings.HasPrefix(key, prefix) {
			return attrKeep
		}
	}

	return attrUnknown
}

// attributeFilter drops span attributes outside checkstat's key set before
// spans reach the exporter. Each dropped key is warned about once.
type attributeFilter struct {
	delegate sdktrace.SpanProcessor
	logger   *slog.Logger
	warned   sync.Map
}

// NewAttributeFilter wraps delegate so exported spans carry only checkstat's
// own attribute keys. Sensitive keys (user.*, email, request and response
// bodies) are always dropped. A non-nil logger gets one warning per dropped key.
func NewAttributeFilter(delegate sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	return &attributeFilter{delegate: delegate, logger: logger}
}

func (f *attributeFilter) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	f.delegate.OnStart(parent, s)
}

// OnEnd hands the delegate a filtered view; ReadOnlySpan cannot be mutated.
func (f *attributeFilter) OnEnd(s sdktrace.ReadOnlySpan) {
	kept, dropped := f.filter(s.Attributes())
	if dropped == 0 {
		f.delegate.OnEnd(s)

		return
	}

	f.delegate.OnEnd(&filteredSpan{ReadOnlySpan: s, attrs: kept, dropped: dropped})
}

func (f *attributeFilter) Shutdown(ctx context.Context) error {
	err := f.delegate.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("attribute filter shutdown: %w", err)
	}

	return nil
}

func (f *attributeFilter) ForceFlush(ctx context.Context) error {
	err := f.delegate.ForceFlush(ctx)
	if err != nil {
		return fmt.Errorf("attribute filter flush: %w", err)
	}

	return nil
}

func (f *attributeFilter) filter(attrs []attribute.KeyValue) ([]attribute.KeyValue, int) {
	kept := make([]attribute.KeyValue, 0, len(attrs))

	for _, kv := range attrs {
		verdict := classifyAttribute(string(kv.Key))
		if verdict == attrKeep {
			kept = append(kept, kv)

			continue
		}

		f.warnOnce(string(kv.Key), verdict)
	}

	return kept, len(attrs) - len(kept)
}

func (f *attributeFilter) warnOnce(key string, verdict attrVerdict) {
	if f.logger == nil {
		return
	}

	if _, seen := f.warned.LoadOrStore(key, struct{}{}); seen {
		return
	}

	reason := "unknown"
	if verdict == attrSensitive {
		reason = "sensitive"
	}

	f.logger.Warn("span attribute dropped", "key", key, "reason", reason)
}

// filteredSpan is a ReadOnlySpan with some attributes removed.
type filteredSpan struct {
	sdktrace.ReadOnlySpan

	attrs   []attribute.KeyValue
	dropped int
}

func (s *filteredSpan) Attributes() []attribute.KeyValue { return s.attrs }

// DroppedAttributes includes the attributes removed by the filter.
func (s *filteredSpan) DroppedAttributes() int {
	return s.ReadOnlySpan.DroppedAttributes() + s.dropped
}
