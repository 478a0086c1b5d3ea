package result

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"mqldb/internal/errors"
	"mqldb/internal/sql"
)

// Text is a pre-rendered, human-readable result.
type Text struct {
	base
	s string
}

// NewText wraps s in a Text result.
func NewText(s string) *Text {
	t := &Text{s: strings.Clone(s)}
	t.track()
	return t
}

func (*Text) Kind() Kind { return KindString }

func (t *Text) Free() { t.release() }

func (t *Text) String() string { return t.s }

// NewTableListText lists table names grouped by their upper-cased first
// letter, one group per line:
//
//	A: alarms audio
//	V: volume
//
// names are expected in sorted order.
func NewTableListText(names []string) *Text {
	if len(names) == 0 {
		return NewText("no tables\n")
	}

	var (
		b     strings.Builder
		first rune
	)
	for _, name := range names {
		r, _ := utf8.DecodeRuneInString(name)
		upper := unicode.ToUpper(r)
		if upper != first {
			if first != 0 {
				b.WriteByte('\n')
			}
			first = upper
			b.WriteRune(upper)
			b.WriteByte(':')
		}
		b.WriteByte(' ')
		b.WriteString(name)
	}
	b.WriteByte('\n')

	return NewText(b.String())
}

// NewColumnListText renders a schema as a table with index, name, type
// and length fields. Key columns are marked with '*'.
func NewColumnListText(defs []sql.Column) (*Text, error) {
	if len(defs) == 0 || len(defs) > MaxColumns {
		return nil, fmt.Errorf("column list: %d column definitions: %w", len(defs), errors.ErrInvalidArgument)
	}

	const (
		index = iota
		name
		typ
		length
		nfield
	)
	headers := [nfield]string{"index", " name", "type", "length"}
	rightAligned := [nfield]bool{true, false, false, true}

	var width [nfield]int
	for i, h := range headers {
		width[i] = len(h)
	}
	for _, d := range defs {
		width[name] = max(width[name], len(d.Name)+1)
		width[typ] = max(width[typ], len(d.Type.String()))
	}
	lineLen := nfield
	for _, w := range width {
		lineLen += w
	}

	var b strings.Builder
	for i, h := range headers {
		if i > 0 {
			b.WriteByte(' ')
		}
		if rightAligned[i] {
			fmt.Fprintf(&b, "%*s", width[i], h)
		} else {
			fmt.Fprintf(&b, "%-*s", width[i], h)
		}
	}
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("-", lineLen-1))
	b.WriteByte('\n')

	for i, d := range defs {
		key := " "
		if d.Flags&sql.ColumnKey != 0 {
			key = "*"
		}
		fmt.Fprintf(&b, "%*d %s%-*s %-*s %*d\n",
			width[index], i,
			key, width[name]-1, d.Name,
			width[typ], d.Type.String(),
			width[length], d.Length)
	}

	return NewText(b.String()), nil
}

// Display widths of the numeric column types in row listings.
const (
	integerWidth  = 11
	unsignedWidth = 10
	floatingWidth = 10
)

// columnWidth is the display width of a column. A varchar Length counts
// characters only, so it is the width as is.
func columnWidth(c RowColumn) int {
	switch c.Type {
	case sql.TypeVarchar:
		return max(c.Length, 1)
	case sql.TypeInteger:
		return integerWidth
	case sql.TypeUnsigned:
		return unsignedWidth
	case sql.TypeFloating:
		return floatingWidth
	default:
		return 0
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// NewRowListText renders nrow rows of a row buffer as a table: a header
// with the column names, a dashed separator and one line per row. Strings
// are left-aligned, numbers right-aligned, floats with two decimals.
// Columns without a display width (blobs) are omitted.
func NewRowListText(cols []RowColumn, nrow, stride int, data []sql.Value) (*Text, error) {
	if err := validateLayout(cols, nrow, stride, data); err != nil {
		return nil, err
	}

	var (
		shown  []RowColumn
		widths []int
	)
	rowWidth := 0
	for _, c := range cols {
		if w := columnWidth(c); w > 0 {
			shown = append(shown, c)
			widths = append(widths, w)
			rowWidth += w + 1
		}
	}
	if len(shown) == 0 {
		return nil, fmt.Errorf("row list: no printable columns: %w", errors.ErrInvalidArgument)
	}

	var b strings.Builder
	for i, c := range shown {
		w := widths[i]
		label := truncate(c.Name, w)
		if c.Type == sql.TypeVarchar {
			fmt.Fprintf(&b, "%-*s", w, label)
		} else {
			fmt.Fprintf(&b, "%*s", w, label)
		}
		b.WriteByte(sep(i, len(shown)))
	}
	b.WriteString(strings.Repeat("-", rowWidth-1))
	b.WriteByte('\n')

	if nrow == 0 {
		b.WriteString("no rows\n")
		return NewText(b.String()), nil
	}

	for r := 0; r < nrow; r++ {
		row := data[r*stride : (r+1)*stride]
		for i, c := range shown {
			w := widths[i]
			v := row[c.Offset]
			switch c.Type {
			case sql.TypeVarchar:
				fmt.Fprintf(&b, "%-*s", w, truncate(asString(v), w))
			case sql.TypeInteger:
				fmt.Fprintf(&b, "%*d", w, asInteger(v))
			case sql.TypeUnsigned:
				fmt.Fprintf(&b, "%*d", w, asUnsigned(v))
			case sql.TypeFloating:
				fmt.Fprintf(&b, "%*.2f", w, asFloating(v))
			}
			b.WriteByte(sep(i, len(shown)))
		}
	}

	return NewText(b.String()), nil
}

func sep(i, n int) byte {
	if i == n-1 {
		return '\n'
	}
	return ' '
}

// appendText renders head followed by the text of sel, if any, and frees
// sel.
func appendText(head string, sel *Text) *Text {
	if sel != nil {
		head += sel.s
		sel.Free()
	}
	return NewText(head)
}

// NewColumnChangeText reports a column value change. sel, usually a row
// listing of the trigger's selected columns, is appended and freed.
func NewColumnChangeText(table, column string, oldValue, newValue sql.Value, sel *Text) *Text {
	head := fmt.Sprintf("table '%s' column '%s' changed: '%s' => '%s'\n",
		table, column, asString(oldValue), asString(newValue))
	return appendText(head, sel)
}

// NewRowChangeText reports an inserted or deleted row. sel is appended and
// freed.
func NewRowChangeText(event sql.EventType, table string, sel *Text) *Text {
	var head string
	switch event {
	case sql.EventRowInserted:
		head = fmt.Sprintf("row inserted into table '%s'\n", table)
	case sql.EventRowDeleted:
		head = fmt.Sprintf("row deleted from table '%s'\n", table)
	default:
		head = fmt.Sprintf("%s on table '%s'\n", event, table)
	}
	return appendText(head, sel)
}

// NewTableChangeText reports a created or dropped table.
func NewTableChangeText(event sql.EventType, table string) *Text {
	switch event {
	case sql.EventTableCreated:
		return NewText(fmt.Sprintf("table '%s' created\n", table))
	case sql.EventTableDropped:
		return NewText(fmt.Sprintf("table '%s' dropped\n", table))
	default:
		return NewText(fmt.Sprintf("%s: table '%s'\n", event, table))
	}
}

// NewTransactionText reports the start or end of a transaction.
func NewTransactionText(event sql.EventType, depth int) *Text {
	return NewText(fmt.Sprintf("%s (depth %d)\n", event, depth))
}
