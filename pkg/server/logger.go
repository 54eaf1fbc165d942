package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/zaidmukaddam/scira/pkg/database"
)

const insertLogQuery = `
		INSERT INTO research_logs (job_id, timestamp, level, message, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`

// DBLogHandler is a slog.Handler that writes the records of one research job
// to research_logs and, if Console is set, forwards them there as well.
type DBLogHandler struct {
	DB      *database.PostgresDB
	JobID   uuid.UUID
	Console slog.Handler

	attrs  []slog.Attr
	groups []string
}

func NewDBLogHandler(db *database.PostgresDB, jobID uuid.UUID, console slog.Handler) *DBLogHandler {
	return &DBLogHandler{
		DB:      db,
		JobID:   jobID,
		Console: console,
	}
}

func (h *DBLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *DBLogHandler) Handle(ctx context.Context, r slog.Record) error {
	meta := make(map[string]any, len(h.attrs)+r.NumAttrs()+1)
	for _, a := range h.attrs {
		addAttr(meta, "", a)
	}
	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(meta, prefix, a)
		return true
	})
	meta["job_id"] = h.JobID.String()

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		metaJSON = []byte("{}")
	}

	if h.Console != nil && h.Console.Enabled(ctx, r.Level) {
		_ = h.Console.Handle(ctx, r.Clone())
	}

	// Jobs outlive the request that created them.
	_, err = h.DB.Pool.Exec(context.WithoutCancel(ctx), insertLogQuery, h.JobID, r.Time, r.Level.String(), r.Message, metaJSON)
	return err
}

func (h *DBLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: prefix + a.Key, Value: a.Value})
	}
	if h.Console != nil {
		next.Console = h.Console.WithAttrs(attrs)
	}
	return next
}

func (h *DBLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.groups = append(next.groups, name)
	if h.Console != nil {
		next.Console = h.Console.WithGroup(name)
	}
	return next
}

func (h *DBLogHandler) clone() *DBLogHandler {
	return &DBLogHandler{
		DB:      h.DB,
		JobID:   h.JobID,
		Console: h.Console,
		attrs:   append([]slog.Attr(nil), h.attrs...),
		groups:  append([]string(nil), h.groups...),
	}
}

// addAttr flattens group attributes into dotted keys.
func addAttr(meta map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range v.Group() {
			addAttr(meta, p, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	switch v.Kind() {
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			meta[prefix+a.Key] = err.Error()
			return
		}
		meta[prefix+a.Key] = v.Any()
	case slog.KindDuration:
		meta[prefix+a.Key] = v.Duration().String()
	case slog.KindTime:
		meta[prefix+a.Key] = v.Time()
	default:
		meta[prefix+a.Key] = v.Any()
	}
}
