package dialect

import "fmt"

// Family identifies a SQL backend family such as PostgreSQL or ClickHouse.
type Family uint8

// Registered families. The order fixes the bit layout of Combo and must not
// change once combos are persisted in test fixtures.
const (
	Dummy Family = iota
	SQLite
	PostgreSQL
	CompEng
	Greenplum
	ClickHouse
	MySQL
	MSSQL
	Oracle
	BigQuery
	Snowflake
	Trino
	YQL
	StarRocks
	DB2

	numFamilies
)

// PlaceholderStyle is how a backend spells bound parameters.
type PlaceholderStyle int

const (
	PlaceholderQuestion PlaceholderStyle = iota // ?
	PlaceholderDollar                           // $1, $2
	PlaceholderColon                            // :1, :2
	PlaceholderAtP                              // @p1, @p2
)

type familyInfo struct {
	name        string
	versions    []string
	identifiers IdentifierConfig
	placeholder PlaceholderStyle
}

var (
	doubleQuote = IdentifierConfig{Open: `"`, Close: `"`, Escape: `""`}
	backtick    = IdentifierConfig{Open: "`", Close: "`", Escape: "``"}
	brackets    = IdentifierConfig{Open: "[", Close: "]", Escape: "]]"}
)

// families is indexed by Family. Versions are ordered oldest first; a single
// empty version means the family is not versioned.
var families = [numFamilies]familyInfo{
	Dummy:      {name: "DUMMY", versions: []string{""}, identifiers: doubleQuote},
	SQLite:     {name: "SQLITE", versions: []string{"3.0", "3.25"}, identifiers: doubleQuote},
	PostgreSQL: {name: "POSTGRESQL", versions: []string{"9.3", "9.4", "12", "14"}, identifiers: doubleQuote, placeholder: PlaceholderDollar},
	CompEng:    {name: "COMPENG", versions: []string{""}, identifiers: doubleQuote, placeholder: PlaceholderDollar},
	Greenplum:  {name: "GREENPLUM", versions: []string{"6", "7"}, identifiers: doubleQuote, placeholder: PlaceholderDollar},
	ClickHouse: {name: "CLICKHOUSE", versions: []string{"19.13", "21.8", "22.10", "23.8"}, identifiers: backtick},
	MySQL:      {name: "MYSQL", versions: []string{"5.6", "5.7", "8.0.12"}, identifiers: backtick},
	MSSQL:      {name: "MSSQLSRV", versions: []string{"2017"}, identifiers: brackets, placeholder: PlaceholderAtP},
	Oracle:     {name: "ORACLE", versions: []string{"12.1", "12.2"}, identifiers: doubleQuote, placeholder: PlaceholderColon},
	BigQuery:   {name: "BIGQUERY", versions: []string{""}, identifiers: backtick},
	Snowflake:  {name: "SNOWFLAKE", versions: []string{""}, identifiers: doubleQuote},
	Trino:      {name: "TRINO", versions: []string{""}, identifiers: doubleQuote},
	YQL:        {name: "YQL", versions: []string{""}, identifiers: backtick},
	StarRocks:  {name: "STARROCKS", versions: []string{""}, identifiers: backtick},
	DB2:        {name: "DB2", versions: []string{"11.5"}, identifiers: doubleQuote},
}

func (f Family) info() familyInfo {
	if f >= numFamilies {
		panic(fmt.Sprintf("dialect: unknown family %d", f))
	}
	return families[f]
}

func (f Family) String() string {
	if f >= numFamilies {
		return fmt.Sprintf("FAMILY(%d)", uint8(f))
	}
	return families[f].name
}

// Families returns every registered family in bit order.
func Families() []Family {
	result := make([]Family, 0, numFamilies)
	for f := Family(0); f < numFamilies; f++ {
		result = append(result, f)
	}
	return result
}

// Versions returns the family's version names, oldest first.
func (f Family) Versions() []string {
	return append([]string(nil), f.info().versions...)
}

// All returns the combo of every version of f.
func (f Family) All() Combo {
	var c Combo
	for idx := range f.info().versions {
		c = c.Union(atomic(f, idx))
	}
	return c
}

// Version returns the atomic combo for a named version of f.
func (f Family) Version(name string) (Combo, bool) {
	for idx, v := range f.info().versions {
		if v == name {
			return atomic(f, idx), true
		}
	}
	return Empty, false
}

// MustVersion is like Version but panics on unknown names.
func (f Family) MustVersion(name string) Combo {
	c, ok := f.Version(name)
	if !ok {
		panic(fmt.Sprintf("dialect: %s has no version %q", f, name))
	}
	return c
}

// Latest returns the newest version of f.
func (f Family) Latest() Combo {
	return atomic(f, len(f.info().versions)-1)
}

// AndAbove returns version and every later version of f.
// Panics on unknown versions: ranges are declared at registration time.
func (f Family) AndAbove(version string) Combo {
	var c Combo
	found := false
	for idx, v := range f.info().versions {
		if v == version {
			found = true
		}
		if found {
			c = c.Union(atomic(f, idx))
		}
	}
	if !found {
		panic(fmt.Sprintf("dialect: %s has no version %q", f, version))
	}
	return c
}

// Identifiers returns the identifier quoting rules of f.
func (f Family) Identifiers() IdentifierConfig {
	return f.info().identifiers
}

// Placeholder returns the bound-parameter style of f.
func (f Family) Placeholder() PlaceholderStyle {
	return f.info().placeholder
}

// Frequently referenced points.
var (
	DUMMY = Dummy.All()

	SQLITE      = SQLite.All()
	SQLITE_3_25 = SQLite.MustVersion("3.25")

	POSTGRESQL     = PostgreSQL.All()
	POSTGRESQL_9_3 = PostgreSQL.MustVersion("9.3")
	POSTGRESQL_9_4 = PostgreSQL.MustVersion("9.4")
	POSTGRESQL_12  = PostgreSQL.MustVersion("12")
	POSTGRESQL_14  = PostgreSQL.MustVersion("14")

	COMPENG   = CompEng.All()
	GREENPLUM = Greenplum.All()

	CLICKHOUSE       = ClickHouse.All()
	CLICKHOUSE_19_13 = ClickHouse.MustVersion("19.13")
	CLICKHOUSE_21_8  = ClickHouse.MustVersion("21.8")
	CLICKHOUSE_22_10 = ClickHouse.MustVersion("22.10")

	MYSQL        = MySQL.All()
	MYSQL_5_6    = MySQL.MustVersion("5.6")
	MYSQL_8_0_12 = MySQL.MustVersion("8.0.12")

	MSSQLSRV  = MSSQL.All()
	ORACLE    = Oracle.All()
	BIGQUERY  = BigQuery.All()
	SNOWFLAKE = Snowflake.All()
	TRINO     = Trino.All()
	YDB_YQL   = YQL.All()
	STARROCKS = StarRocks.All()
	DB2_11_5  = DB2.All()
)

// Any returns the combo of every registered point.
func Any() Combo {
	var c Combo
	for f := Family(0); f < numFamilies; f++ {
		c = c.Union(f.All())
	}
	return c
}
