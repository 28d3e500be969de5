// Package migrations carries the schema files in the binary so a deploy
// needs no migrations directory on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
