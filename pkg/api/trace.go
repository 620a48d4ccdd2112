package api

type (
	// TraceData is the persisted form of one trace: the root span's name
	// and timing plus every span exported for the trace, keyed by span ID
	TraceData struct {
		TraceID     string               `json:"traceId"`
		DisplayName string               `json:"displayName,omitempty"`
		StartTime   float64              `json:"startTime,omitempty"`
		EndTime     float64              `json:"endTime,omitempty"`
		Spans       map[string]*SpanData `json:"spans"`
	}

	// SpanData is the persisted form of a single span. Times are epoch
	// milliseconds
	SpanData struct {
		SpanID                 string                  `json:"spanId"`
		TraceID                string                  `json:"traceId"`
		ParentSpanID           string                  `json:"parentSpanId,omitempty"`
		StartTime              float64                 `json:"startTime"`
		EndTime                float64                 `json:"endTime"`
		Attributes             map[string]any          `json:"attributes,omitempty"`
		DisplayName            string                  `json:"displayName"`
		SpanKind               string                  `json:"spanKind"`
		Status                 *SpanStatus             `json:"status,omitempty"`
		InstrumentationLibrary *InstrumentationLibrary `json:"instrumentationLibrary,omitempty"`
		SameProcess            bool                    `json:"sameProcess"`
	}

	// SpanStatus is the recorded outcome of a span
	SpanStatus struct {
		Code    int    `json:"code"`
		Message string `json:"message,omitempty"`
	}

	// InstrumentationLibrary identifies the tracer that produced a span
	InstrumentationLibrary struct {
		Name    string `json:"name"`
		Version string `json:"version,omitempty"`
	}
)

// IsRoot reports whether the span has no parent within its trace
func (s *SpanData) IsRoot() bool {
	return s.ParentSpanID == ""
}
