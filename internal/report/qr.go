package report

import (
	"encoding/hex"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const digestQRSize = 256

// DigestQR renders a PNG QR code of a manifest sha256 digest. The code
// holds "sha256:<hex>" so a scanner can tell the algorithm.
func DigestQR(digest string, size int) ([]byte, error) {
	d := strings.ToLower(strings.TrimSpace(digest))
	if b, err := hex.DecodeString(d); err != nil || len(b) != 32 {
		return nil, fmt.Errorf("report: %q is not a sha256 digest", digest)
	}
	if size <= 0 {
		size = digestQRSize
	}
	return qrcode.Encode("sha256:"+d, qrcode.Medium, size)
}
