// Package web holds the browser client served by the server.
package web

import "embed"

//go:embed static
var FS embed.FS
