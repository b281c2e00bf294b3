package appfs

import "embed"

// FS embeds static application assets (database migrations).
//go:embed migrations
var FS embed.FS
