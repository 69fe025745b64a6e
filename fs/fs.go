package appfs

import "embed"

// FS holds the static assets (email templates, seed data, common passwords) and SQL migrations.
//
//go:embed all:assets migrations
var FS embed.FS
