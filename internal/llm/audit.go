package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
)

// AuditRecord captures one generator call.
type AuditRecord struct {
	Timestamp    time.Time
	Purpose      string
	Model        string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// AuditSink persists audit records. Implementations must not block for long.
type AuditSink interface {
	RecordLLMRequest(ctx context.Context, rec AuditRecord) error
}

// AuditProvider logs every call and forwards it to an optional sink.
type AuditProvider struct {
	inner Provider
	sink  AuditSink
}

// WithAudit wraps a Provider with call logging. sink may be nil.
func WithAudit(p Provider, sink AuditSink) Provider {
	return &AuditProvider{inner: p, sink: sink}
}

func (a *AuditProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := a.inner.Generate(ctx, req)

	rec := AuditRecord{
		Timestamp:   start.UTC(),
		Purpose:     PurposeFrom(ctx),
		Model:       a.inner.ModelID(),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}
	if resp != nil {
		rec.InputTokens = resp.Usage.InputTokens
		rec.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			rec.Model = resp.Model
		}
		rec.ResponseBody = string(resp.Content)
	}
	if err != nil {
		rec.ErrorMessage = err.Error()
	}

	log.Printf("llm: purpose=%s model=%s latency=%dms ok=%t", rec.Purpose, rec.Model, rec.LatencyMs, rec.Success)

	if a.sink != nil {
		// The caller's context may already be done (timeout); auditing must still land.
		sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		if logErr := a.sink.RecordLLMRequest(sinkCtx, rec); logErr != nil {
			log.Printf("llm: failed to record audit event: %v", logErr)
		}
		cancel()
	}

	return resp, err
}

func (a *AuditProvider) ModelID() string {
	return a.inner.ModelID()
}

// serializeRequest builds a readable representation of the request.
func serializeRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n", m.Role)
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n", req.Schema.Name)
			b.Write(def)
			b.WriteString("\n")
		}
	}
	return b.String()
}
