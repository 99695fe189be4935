// Package assets embeds the page-side injection script served by the
// bridge. The script installs the property/method wrappers in the page
// context and relays intercepted accesses to the bridge.
package assets

import _ "embed"

//go:embed inject.js
var InjectJS []byte
