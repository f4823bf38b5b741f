// Package migrations embute os ficheiros SQL versionados aplicados no
// arranque do serviço.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
