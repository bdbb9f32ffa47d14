package service

import (
	"github.com/skip2/go-qrcode"
)

type QRGenerator interface {
	Generate() ([]byte, error)
}

// DefaultQRGenerator encodes the public menu display URL, for table
// tents and storefront stickers.
type DefaultQRGenerator struct {
	MenuURL string
}

func (g DefaultQRGenerator) Generate() ([]byte, error) {
	return qrcode.Encode(g.MenuURL, qrcode.Medium, 256)
}
