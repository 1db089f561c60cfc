// Package appfs exposes files embedded in the binary: database migrations
// and email templates.
package appfs

import "embed"

//go:embed migrations assets
var FS embed.FS
