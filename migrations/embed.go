// Package migrations embeds the SQL schema migrations so binaries do not depend on a
// migrations directory at runtime.
package migrations

import "embed"

// FS holds every *.sql migration in golang-migrate's {version}_{name}.{up|down}.sql layout
//
//go:embed *.sql
var FS embed.FS
