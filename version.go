package dotmap

import _ "embed"

// Version is the release of the library and of the dotmap binary.
//
//go:embed VERSION
var Version string
