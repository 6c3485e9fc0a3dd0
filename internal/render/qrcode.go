package render

import (
	"image"

	"github.com/skip2/go-qrcode"
)

const defaultQRCodeSizePx = 256

// GenerateQRCodeImage returns a QR code for payload, typically the URL of
// the control UI. An empty payload yields (nil, nil).
func GenerateQRCodeImage(payload string, sizePx int) (image.Image, error) {
	if payload == "" {
		return nil, nil
	}
	code, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	code.BackgroundColor = Background
	code.ForegroundColor = TopTextColor
	return code.Image(qrSize(sizePx)), nil
}

// EncodeQRCodePNG renders payload as a black-on-white PNG for scanning
// from a browser tab.
func EncodeQRCodePNG(payload string, sizePx int) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, qrSize(sizePx))
}

func qrSize(sizePx int) int {
	if sizePx <= 0 {
		return defaultQRCodeSizePx
	}
	return sizePx
}
