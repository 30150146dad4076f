package qrtoken

import (
	"bytes"
	"fmt"

	"github.com/yeqown/go-qrcode"
)

// RenderOptions control the PNG produced for a token.
type RenderOptions struct {
	ModuleSize int // pixels per QR module
	Border     int // quiet zone in modules
}

// DefaultRenderOptions matches the printed ticket layout.
var DefaultRenderOptions = RenderOptions{ModuleSize: 8, Border: 2}

// Render encodes token as a PNG image.
func Render(token string, opts RenderOptions) ([]byte, error) {
	if opts.ModuleSize <= 0 || opts.ModuleSize > 255 {
		opts.ModuleSize = DefaultRenderOptions.ModuleSize
	}
	if opts.Border < 0 {
		opts.Border = DefaultRenderOptions.Border
	}
	qrc, err := qrcode.New(token,
		qrcode.WithQRWidth(uint8(opts.ModuleSize)),
		qrcode.WithBorderWidth(opts.Border*opts.ModuleSize),
		qrcode.WithBuiltinImageEncoder(qrcode.PNG_FORMAT),
	)
	if err != nil {
		return nil, fmt.Errorf("qrtoken: encode: %w", err)
	}
	var buf bytes.Buffer
	if err := qrc.SaveTo(&buf); err != nil {
		return nil, fmt.Errorf("qrtoken: render: %w", err)
	}
	return buf.Bytes(), nil
}
