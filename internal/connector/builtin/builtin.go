// Package builtin lists the connectors compiled into the binary.
package builtin

import (
	"github.com/roach88/formulon/internal/connector"
	"github.com/roach88/formulon/internal/connector/mysql"
	"github.com/roach88/formulon/internal/connector/postgres"
	"github.com/roach88/formulon/internal/connector/sqlite"
	"github.com/roach88/formulon/internal/translate"
)

// Plugins returns every built-in connector.
func Plugins() []connector.Plugin {
	return []connector.Plugin{sqlite.Plugin, postgres.Plugin, mysql.Plugin}
}

// Registry loads the standard variants and every built-in connector.
func Registry() (*translate.Registry, error) {
	return connector.LoadAll(Plugins()...)
}
