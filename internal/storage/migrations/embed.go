package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// SQLite returns the migrations for the SQLite storage layer.
func SQLite() fs.FS {
	sub, _ := fs.Sub(files, "sqlite")
	return sub
}

// Postgres returns the migrations for the PostgreSQL storage layer.
func Postgres() fs.FS {
	sub, _ := fs.Sub(files, "postgres")
	return sub
}
