package assets

import "embed"

// AssetsFS holds the stylesheet and the page script served under /assets/.
//
//go:embed css js
var AssetsFS embed.FS
