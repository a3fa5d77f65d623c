// Package web holds the operator page served at the root path.
package web

import _ "embed"

//go:embed templates/index.html
var IndexHTML []byte
