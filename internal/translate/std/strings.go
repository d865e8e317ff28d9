package std

import (
	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/translate"
)

func stringFuncs() []definition {
	return []definition{
		def("concat",
			on(anywhere, translate.Join(" || ")),
			on(dialect.CLICKHOUSE, translate.Fn("concat")),
			on(dialect.MSSQLSRV, translate.Fn("CONCAT")),
		),
		def("len",
			on(anywhere, translate.Fn("CHAR_LENGTH")),
			on(dialect.CLICKHOUSE, translate.Fn("lengthUTF8")),
			on(dialect.MSSQLSRV, translate.Fn("LEN")),
		),
		def("upper",
			on(anywhere, translate.Fn("UPPER")),
			on(dialect.CLICKHOUSE, translate.Fn("upperUTF8")),
		),
		def("lower",
			on(anywhere, translate.Fn("LOWER")),
			on(dialect.CLICKHOUSE, translate.Fn("lowerUTF8")),
		),
		def("contains",
			on(anywhere, reorder("(POSITION(? IN ?) > 0)", 1, 0)),
			on(dialect.CLICKHOUSE, template("(positionUTF8(?, ?) > 0)")),
			on(dialect.MSSQLSRV, reorder("(CHARINDEX(?, ?) > 0)", 1, 0)),
		),
	}
}
