package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/formulon/internal/ast"
)

// Explain renders a level tree as indented text, one line per level, source
// and join. The output is deterministic.
func Explain(root *Level) string {
	var b strings.Builder
	explainLevel(&b, root, 0)
	return b.String()
}

func explainLevel(b *strings.Builder, l *Level, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%slevel %s", indent, l.Alias)
	if len(l.Dims) > 0 {
		parts := make([]string, len(l.Dims))
		for i, d := range l.Dims {
			parts[i] = DimColumn(i) + "=" + d.Key
		}
		fmt.Fprintf(b, " group by %s", strings.Join(parts, ", "))
	}
	b.WriteByte('\n')
	for _, m := range l.Measures {
		fmt.Fprintf(b, "%s  %s = %s\n", indent, m.Name, ast.Format(m.Node))
	}

	switch src := l.Source.(type) {
	case *Table:
		fmt.Fprintf(b, "%s  from table %s\n", indent, src.Name)
		for _, f := range src.Filters {
			fmt.Fprintf(b, "%s    where %s\n", indent, ast.Format(f))
		}
	case *Level:
		fmt.Fprintf(b, "%s  from level %s as %s\n", indent, src.Alias, ast.Format(l.SourceResult))
		explainLevel(b, src, depth+2)
	default:
		panic(fmt.Sprintf("queryir: unhandled source type %T", l.Source))
	}

	for _, j := range l.Joins {
		keys := make([]string, len(j.Keys))
		for i, k := range j.Keys {
			keys[i] = DimColumn(k.Outer) + "=" + j.Alias + "." + DimColumn(k.Inner)
		}
		on := "true"
		if len(keys) > 0 {
			on = strings.Join(keys, " and ")
		}
		grouped := ""
		if j.Grouped {
			grouped = " grouped"
		}
		fmt.Fprintf(b, "%s  left join %s on %s for %s%s\n", indent, j.Alias, on, ast.Format(j.Ref), grouped)
		explainLevel(b, j.Level, depth+2)
	}
}
