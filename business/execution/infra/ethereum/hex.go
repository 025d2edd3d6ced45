package ethereum

import (
	"encoding/hex"
	"strings"
)

// decodeHexData decodes a 0x-prefixed hex string as found in JSON-RPC
// error payloads and log data fields.
func decodeHexData(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
