package research

import "log/slog"

type Status struct {
	Title  string          `json:"title"`
	Type   string          `json:"type,omitempty"`
	Code   string          `json:"code,omitempty"`
	Result string          `json:"result,omitempty"`
	Charts []ChartArtifact `json:"charts,omitempty"`
	Plan   *ResearchPlan   `json:"plan,omitempty"`
}

type SourceRef struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type ContentRef struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
	Full  string `json:"full"`
}

// Annotation is one progress message on the client stream. Exactly one of the
// shapes is populated: a status, a search_query, a source or a content record.
type Annotation struct {
	Status  *Status     `json:"status,omitempty"`
	Type    string      `json:"type,omitempty"`
	QueryID string      `json:"queryId,omitempty"`
	Query   string      `json:"query,omitempty"`
	Source  *SourceRef  `json:"source,omitempty"`
	Content *ContentRef `json:"content,omitempty"`
}

const (
	AnnotationSearchQuery = "search_query"
	AnnotationSource      = "source"
	AnnotationContent     = "content"
)

// Sink receives annotations in emission order.
type Sink interface {
	Emit(Annotation)
}

type SinkFunc func(Annotation)

func (f SinkFunc) Emit(a Annotation) { f(a) }

var Discard Sink = SinkFunc(func(Annotation) {})

// LogSink writes annotations to a structured logger.
func LogSink(logger *slog.Logger) Sink {
	return SinkFunc(func(a Annotation) {
		switch {
		case a.Status != nil:
			logger.Info(a.Status.Title, "annotation", "status", "type", a.Status.Type)
		case a.Source != nil:
			logger.Info("Source found", "annotation", a.Type, "query_id", a.QueryID, "url", a.Source.URL)
		case a.Content != nil:
			logger.Info("Content read", "annotation", a.Type, "query_id", a.QueryID, "url", a.Content.URL)
		default:
			logger.Info("Search query", "annotation", a.Type, "query_id", a.QueryID, "query", a.Query)
		}
	})
}

func statusAnnotation(title, typ string) Annotation {
	return Annotation{Status: &Status{Title: title, Type: typ}}
}
