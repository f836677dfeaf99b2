package synclink

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const defaultQRSize = 256

// QRCodePNG renders the share link as a PNG for scanning from another device.
func QRCodePNG(shareURL string, size int) ([]byte, error) {
	if size <= 0 {
		size = defaultQRSize
	}
	png, err := qrcode.Encode(shareURL, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render share QR code: %w", err)
	}
	return png, nil
}
