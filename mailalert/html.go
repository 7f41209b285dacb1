package mailalert

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/isaacutils/pkg/meta"
	"github.com/samber/lo"
	"github.com/spf13/cast"
	"go.uber.org/zap/zapcore"
)

const (
	timeLayout = "2006-01-02 15:04:05"

	// maxFieldLen caps rendered field values so a single oversized payload
	// cannot blow up the email body.
	maxFieldLen = 1000
)

const htmlHead = `<!DOCTYPE html>
<html>
<head>
<style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .error-container { margin: 20px 0; padding: 15px; border-left: 4px solid #d32f2f; background: #ffebee; }
    .critical-container { margin: 20px 0; padding: 15px; border-left: 4px solid #b71c1c; background: #ffcdd2; }
    .error-header { font-weight: bold; color: #d32f2f; margin-bottom: 10px; }
    .critical-header { font-weight: bold; color: #b71c1c; margin-bottom: 10px; }
    .error-time { color: #666; font-size: 0.9em; }
    .error-location { color: #666; font-size: 0.9em; margin: 5px 0; }
    .error-fields { color: #444; font-size: 0.9em; margin: 5px 0; }
    .error-message { margin: 10px 0; padding: 10px; background: white; border-radius: 4px; }
    .stacktrace { background: #263238; color: #aed581; padding: 15px; border-radius: 4px;
                  overflow-x: auto; font-family: 'Courier New', monospace; font-size: 0.85em;
                  white-space: pre-wrap; word-wrap: break-word; }
    .summary { background: #e3f2fd; padding: 15px; border-radius: 4px; margin-bottom: 20px; }
</style>
</head>
<body>
`

const htmlFoot = `</body>
</html>
`

// htmlEscaper escapes the five HTML-special characters. Stack traces and
// field values regularly carry angle brackets and quotes; everything
// user-controlled goes through this before it lands in the body.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// batchSubject builds the email subject: severity and message for a single
// entry, a count for multi-entry batches.
func batchSubject(prefix string, batch []capturedEntry) string {
	if len(batch) == 1 {
		ent := batch[0].entry
		return fmt.Sprintf("%s %s: %s", prefix, levelName(ent.Level), ent.Message)
	}
	return fmt.Sprintf("%s %d errors occurred", prefix, len(batch))
}

// formatHTMLBatch renders a batch of captured entries as a styled HTML
// document: a summary block for multi-entry batches, then one block per
// entry with level, timestamp, source location, structured fields and an
// escaped stack trace when present.
func formatHTMLBatch(batch []capturedEntry) string {
	var b strings.Builder
	b.WriteString(htmlHead)

	if len(batch) > 1 {
		writeSummary(&b, batch)
	}

	for i, rec := range batch {
		writeEntry(&b, rec, i+1, len(batch) > 1)
	}

	b.WriteString(htmlFoot)
	return b.String()
}

func writeSummary(b *strings.Builder, batch []capturedEntry) {
	first := batch[0].entry.Time
	last := batch[len(batch)-1].entry.Time

	b.WriteString(`<div class="summary">` + "\n")
	fmt.Fprintf(b, "<strong>Summary:</strong> %d error(s) occurred<br>\n", len(batch))
	fmt.Fprintf(b, "<strong>Time Range:</strong> %s - %s<br>\n", first.Format(timeLayout), last.Format(timeLayout))
	fmt.Fprintf(b, "<strong>Batch ID:</strong> %s<br>\n", uuid.NewString())
	if svc := meta.ServiceName(); svc != "" {
		fmt.Fprintf(b, "<strong>Service:</strong> %s<br>\n", escapeHTML(svc))
	}
	b.WriteString("</div>\n")
}

func writeEntry(b *strings.Builder, rec capturedEntry, ordinal int, multi bool) {
	containerClass, headerClass := entryClasses(rec.entry.Level)

	fmt.Fprintf(b, `<div class="%s">`+"\n", containerClass)

	header := fmt.Sprintf("%s: %s", levelName(rec.entry.Level), escapeHTML(rec.entry.Message))
	if multi {
		header = fmt.Sprintf("Error %d - %s", ordinal, header)
	}
	fmt.Fprintf(b, `<div class="%s">%s</div>`+"\n", headerClass, header)

	fmt.Fprintf(b, `<div class="error-time">Time: %s</div>`+"\n", rec.entry.Time.Format(timeLayout))
	fmt.Fprintf(b, `<div class="error-location">Location: %s</div>`+"\n", escapeHTML(callerLocation(rec.entry.Caller)))

	writeFields(b, rec.fields)

	if rec.entry.Stack != "" {
		b.WriteString(`<div class="error-message"><strong>Stack Trace:</strong>` + "\n")
		fmt.Fprintf(b, `<div class="stacktrace">%s</div>`+"\n", escapeHTML(rec.entry.Stack))
		b.WriteString("</div>\n")
	}

	b.WriteString("</div>\n")
}

func writeFields(b *strings.Builder, fields map[string]any) {
	if len(fields) == 0 {
		return
	}

	keys := lo.Keys(fields)
	sort.Strings(keys)

	b.WriteString(`<div class="error-fields">` + "\n")
	for _, k := range keys {
		v := cast.ToString(fields[k])
		if v == "" {
			v = fmt.Sprintf("%v", fields[k])
		}
		if len(v) > maxFieldLen {
			v = v[:maxFieldLen] + "..."
		}
		fmt.Fprintf(b, "%s: %s<br>\n", escapeHTML(k), escapeHTML(v))
	}
	b.WriteString("</div>\n")
}

// entryClasses selects the CSS classes for an entry block. Panic-grade
// levels share the critical styling.
func entryClasses(lvl zapcore.Level) (container, header string) {
	if lvl >= zapcore.DPanicLevel {
		return "critical-container", "critical-header"
	}
	return "error-container", "error-header"
}

func levelName(lvl zapcore.Level) string {
	return strings.ToUpper(lvl.String())
}

// callerLocation formats the entry origin as "file:line in function()".
func callerLocation(caller zapcore.EntryCaller) string {
	if !caller.Defined {
		return "unknown"
	}
	fn := caller.Function
	if fn == "" {
		fn = "unknown"
	} else {
		fn = path.Base(fn)
	}
	return fmt.Sprintf("%s:%d in %s()", caller.File, caller.Line, fn)
}
