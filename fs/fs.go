// Package appfs holds the files embedded in the binaries.
package appfs

import "embed"

// Files contains the SQL migrations and the sample students.
//
//go:embed migrations/*.sql data/students.json
var Files embed.FS

const (
	MigrationsDir = "migrations"
	StudentsFile  = "data/students.json"
)
