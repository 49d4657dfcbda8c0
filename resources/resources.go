package resources

import "embed"

// FS holds the SQL migrations and the translation files.
//
//go:embed migrations i18n
var FS embed.FS
