package server

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/zaidmukaddam/scira/pkg/research"
)

// StreamEvent is a non-annotation event on the research stream.
type StreamEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func startStream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(200)
}

func writeEvent(w gin.ResponseWriter, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, "data: "); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n\n"); err != nil {
		return err
	}
	w.Flush()
	return nil
}

// sseSink writes each annotation as one event. Write errors mean the client
// went away; the run is cancelled through the request context instead.
func sseSink(w gin.ResponseWriter) research.Sink {
	return research.SinkFunc(func(a research.Annotation) {
		_ = writeEvent(w, a)
	})
}
