// Package db carries the embedded database schema.
package db

import _ "embed"

// Schema holds the DDL for the products, orders, and order_items tables.
// All statements are idempotent so the schema can run on every start.
//
//go:embed migrations/001_schema.sql
var Schema string
