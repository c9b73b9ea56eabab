//go:build linux && avrdude

package flash

import _ "embed"

//go:embed bin/avrdude
var embedded []byte
