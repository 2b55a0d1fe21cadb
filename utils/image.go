package utils

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
)

// DecodePng decodes raw PNG bytes, as produced by `screencap -p`.
func DecodePng(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return img, nil
}

// EncodePng encodes an image as PNG bytes.
func EncodePng(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeJpeg encodes an image as JPEG bytes with the given quality (1-100).
func EncodeJpeg(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
