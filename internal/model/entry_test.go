package model

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeTestPNG returns the base64 encoding of a tiny valid PNG.
func encodeTestPNG(t *testing.T) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestValidContentType(t *testing.T) {
	assert.True(t, ValidContentType(ContentTypeText))
	assert.True(t, ValidContentType(ContentTypeRich))
	assert.True(t, ValidContentType(ContentTypeImage))

	assert.False(t, ValidContentType(""))
	assert.False(t, ValidContentType("video"))
	assert.False(t, ValidContentType("TEXT"))
}

func TestValidateContent_Text(t *testing.T) {
	assert.NoError(t, ValidateContent(ContentTypeText, "hello", 1024))

	assert.ErrorIs(t, ValidateContent(ContentTypeText, "", 1024), ErrEmptyContent)
	assert.ErrorIs(t, ValidateContent(ContentTypeText, "   \n\t ", 1024), ErrEmptyContent)
}

func TestValidateContent_Rich(t *testing.T) {
	assert.NoError(t, ValidateContent(ContentTypeRich, "<b>hi</b>", 1024))

	// Over the byte limit
	big := strings.Repeat("x", 1025)
	assert.ErrorIs(t, ValidateContent(ContentTypeRich, big, 1024), ErrContentTooLarge)

	assert.ErrorIs(t, ValidateContent(ContentTypeRich, "  ", 1024), ErrEmptyContent)
}

func TestValidateContent_UnknownType(t *testing.T) {
	err := ValidateContent("binary", "data", 1024)
	assert.ErrorIs(t, err, ErrInvalidContentType)
}

func TestValidateContent_Image_BarePNG(t *testing.T) {
	encoded := encodeTestPNG(t)
	assert.NoError(t, ValidateContent(ContentTypeImage, encoded, 1024))
}

func TestValidateContent_Image_DataURL(t *testing.T) {
	encoded := encodeTestPNG(t)
	dataURL := "data:image/png;base64," + encoded
	assert.NoError(t, ValidateContent(ContentTypeImage, dataURL, 1024))
}

func TestValidateContent_Image_BadBase64(t *testing.T) {
	err := ValidateContent(ContentTypeImage, "not valid base64!!!", 1024)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestValidateContent_Image_NotAnImage(t *testing.T) {
	// Valid base64, but the decoded bytes are not any image format
	garbage := base64.StdEncoding.EncodeToString([]byte("definitely not a PNG"))
	err := ValidateContent(ContentTypeImage, garbage, 1024)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestValidateContent_Image_Empty(t *testing.T) {
	assert.ErrorIs(t, ValidateContent(ContentTypeImage, "", 1024), ErrInvalidImage)

	// Data URL prefix without a base64 marker
	assert.ErrorIs(t, ValidateContent(ContentTypeImage, "data:image/png,raw", 1024), ErrInvalidImage)
}
