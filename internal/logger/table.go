package logger

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/sirupsen/logrus"
)

// Field is one labelled row of an event report
type Field struct {
	Name  string
	Value interface{}
}

// RenderEventTable renders an event report as a two column table. The title
// is left to the log line carrying the table.
func RenderEventTable(fields []Field) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"Field", "Value"})
	for _, f := range fields {
		t.AppendRow(table.Row{f.Name, fmt.Sprint(f.Value)})
	}
	return t.Render()
}

// LogEventTable writes an event report at info level. Structured formats get
// the fields as log fields instead of the rendered table.
func (l *Logger) LogEventTable(title string, fields []Field) {
	if _, ok := l.Formatter.(*logrus.JSONFormatter); ok {
		logFields := make(logrus.Fields, len(fields))
		for _, f := range fields {
			logFields[f.Name] = f.Value
		}
		l.WithFields(logFields).Info(title)
		return
	}
	l.Info(title + "\n" + RenderEventTable(fields))
}
