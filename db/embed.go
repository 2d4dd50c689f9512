// Package db provides embedded database schema and seed files.
package db

import "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Seed holds the development catalog fixtures loaded by cmd/seed-db.
//
//go:embed seed/catalog.json
var Seed embed.FS
