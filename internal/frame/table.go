package frame

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

const maxCell = 40

// WriteTable prints the first n rows (all when n < 0) as aligned columns:
// id, attributes, then the geometry as WKT.
func (f *Frame) WriteTable(w io.Writer, n int) error {
	h := f.Head(n)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	header := append([]string{"id"}, h.Columns...)
	header = append(header, GeometryColumn)
	if _, err := fmt.Fprintln(tw, strings.Join(header, "\t")); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range h.Rows {
		cells := make([]string, 0, len(header))
		cells = append(cells, cell(r.ID))
		for _, c := range h.Columns {
			v, ok := r.Props[c]
			if !ok || v == nil {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, cell(fmt.Sprint(v)))
		}
		cells = append(cells, cell(geomText(r.Geometry)))
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush table: %w", err)
	}
	_, err := fmt.Fprintf(w, "[%d rows x %d columns]\n", f.Len(), len(f.Columns)+1)
	return err
}

func geomText(g orb.Geometry) string {
	if g == nil {
		return "None"
	}
	return wkt.MarshalString(g)
}

func cell(s string) string {
	s = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
	if r := []rune(s); len(r) > maxCell {
		return string(r[:maxCell-3]) + "..."
	}
	return s
}
