// Package appfs embeds the files shipped with the binaries.
package appfs

import "embed"

var (
	//go:embed migrations/*.sql
	Migrations embed.FS

	//go:embed templates/email/*
	Templates embed.FS
)

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
)
