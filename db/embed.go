// Package db embeds the database schema applied at startup.
package db

import _ "embed"

// Schema creates the products, orders and items tables if they are missing.
//
//go:embed migrations/001_schema.sql
var Schema string
