package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/highlight-clipper/internal/clipper"
	"github.com/pable/highlight-clipper/internal/media"
	"github.com/pable/highlight-clipper/internal/model"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
)

func statusCell(s clipper.Status) string {
	switch s {
	case clipper.StatusExtracted:
		return green(string(s))
	case clipper.StatusExisting:
		return yellow(string(s))
	case clipper.StatusFailed:
		return red(string(s))
	}
	return string(s)
}

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintRunSummary prints one row per clip handled in the run, followed by the
// skipped matches and a totals line.
func PrintRunSummary(w io.Writer, s *clipper.Summary) {
	outcomes := s.Outcomes()
	if len(outcomes) > 0 {
		table := newTable(w)
		table.Header("VIDEO", "MATCH", "EVENT", "STATUS", "FROM", "TO", "CLIP")
		for _, o := range outcomes {
			from, to := "-", "-"
			if o.Status != clipper.StatusExisting {
				from, to = media.FormatTimestamp(o.VideoStart), media.FormatTimestamp(o.VideoEnd)
			}
			table.Append(
				o.VideoID,
				strconv.FormatInt(o.MatchID, 10),
				o.Kind,
				statusCell(o.Status),
				from,
				to,
				o.Path,
			)
		}
		table.Render()
	}

	skipped := s.Skipped()
	if len(skipped) > 0 {
		fmt.Fprintln(w, "\nSkipped matches:")
		table := newTable(w)
		table.Header("VIDEO", "MATCH", "REASON", "ERROR")
		for _, m := range skipped {
			errStr := ""
			if m.Err != nil {
				errStr = m.Err.Error()
			}
			table.Append(m.VideoID, strconv.FormatInt(m.MatchID, 10), m.Reason, errStr)
		}
		table.Render()
	}

	fmt.Fprintf(w, "\nExtracted: %s  |  Existing: %s  |  Failed: %s  |  Skipped matches: %d\n",
		green(s.Count(clipper.StatusExtracted)),
		yellow(s.Count(clipper.StatusExisting)),
		red(s.Count(clipper.StatusFailed)),
		len(skipped))
}

// PrintClipLedger prints stored clip records, newest first as given.
func PrintClipLedger(w io.Writer, clips []model.ClipRecord) {
	if len(clips) == 0 {
		fmt.Fprintln(w, "No clips recorded.")
		return
	}
	table := newTable(w)
	table.Header("CREATED", "VIDEO", "MATCH", "EVENT", "FROM", "TO", "CLIP")
	for _, c := range clips {
		table.Append(
			c.CreatedAt.UTC().Format("2006-01-02 15:04"),
			c.VideoID,
			strconv.FormatInt(c.MatchID, 10),
			c.Kind,
			media.FormatTimestamp(c.VideoStart),
			media.FormatTimestamp(c.VideoEnd),
			c.Path,
		)
	}
	table.Render()
	fmt.Fprintf(w, "\n%d clips\n", len(clips))
}
