package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jikan4/jikan4/health"
	"github.com/jikan4/jikan4/jikan"
)

// renderer writes models in the configured output format.
type renderer struct {
	w      io.Writer
	format string
}

func (r renderer) json(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r renderer) table(header table.Row, rows []table.Row) error {
	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(header)
	t.AppendRows(rows)
	t.Render()
	return nil
}

func (r renderer) anime(items []*jikan.Anime) error {
	if r.format == outputJSON {
		return r.json(items)
	}

	rows := make([]table.Row, 0, len(items))
	for _, a := range items {
		rows = append(rows, table.Row{a.MalID, a.Title, a.Type, count(a.Episodes), score(a.Score), a.Status})
	}
	return r.table(table.Row{"ID", "Title", "Type", "Episodes", "Score", "Status"}, rows)
}

func (r renderer) manga(items []*jikan.Manga) error {
	if r.format == outputJSON {
		return r.json(items)
	}

	rows := make([]table.Row, 0, len(items))
	for _, m := range items {
		rows = append(rows, table.Row{m.MalID, m.Title, count(m.Chapters), count(m.Volumes), score(m.Score), names(m.Authors)})
	}
	return r.table(table.Row{"ID", "Title", "Chapters", "Volumes", "Score", "Authors"}, rows)
}

func (r renderer) characters(items []*jikan.Character) error {
	if r.format == outputJSON {
		return r.json(items)
	}

	rows := make([]table.Row, 0, len(items))
	for _, c := range items {
		rows = append(rows, table.Row{c.MalID, c.Name, c.NameKanji, c.Favorites})
	}
	return r.table(table.Row{"ID", "Name", "Kanji", "Favorites"}, rows)
}

func (r renderer) search(result *jikan.AnimeSearch) error {
	if r.format == outputJSON {
		return r.json(result)
	}

	items := make([]*jikan.Anime, len(result.Data))
	for i := range result.Data {
		items[i] = &result.Data[i]
	}
	if err := r.anime(items); err != nil {
		return err
	}
	p := result.Pagination
	_, err := fmt.Fprintf(r.w, "page %d of %d (%d results)\n", p.CurrentPage, p.LastVisiblePage, p.Items.Total)
	return err
}

func count(n int) string {
	if n == 0 {
		return "?"
	}
	return strconv.Itoa(n)
}

func score(s float64) string {
	if s == 0 {
		return "-"
	}
	return strconv.FormatFloat(s, 'f', 2, 64)
}

func names(entities []jikan.Entity) string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Name
	}
	return strings.Join(out, "; ")
}

type reportJSON struct {
	Name       string         `json:"name"`
	Status     string         `json:"status"`
	Message    string         `json:"message,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	Details    map[string]any `json:"details,omitempty"`
}

func (r renderer) reports(reports []health.Report) error {
	if r.format == outputJSON {
		out := make([]reportJSON, 0, len(reports))
		for _, rep := range reports {
			item := reportJSON{
				Name:       rep.Name,
				Status:     rep.Status.String(),
				Message:    rep.Message,
				DurationMs: rep.Duration.Milliseconds(),
				Details:    rep.Details,
			}
			if rep.Err != nil {
				item.Error = rep.Err.Error()
			}
			out = append(out, item)
		}
		return r.json(out)
	}

	rows := make([]table.Row, 0, len(reports))
	for _, rep := range reports {
		msg := rep.Message
		if rep.Err != nil {
			msg += ": " + rep.Err.Error()
		}
		rows = append(rows, table.Row{rep.Name, rep.Status.String(), msg, rep.Duration.Round(time.Millisecond).String()})
	}
	return r.table(table.Row{"Check", "Status", "Message", "Duration"}, rows)
}
