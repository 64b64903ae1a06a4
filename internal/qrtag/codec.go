package qrtag

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/skip2/go-qrcode"

	"techtrack-backend/internal/model"
)

// ErrDecodeFailure reports an image that does not contain a readable item
// label. It is an expected alternate outcome, not a fault: the caller falls
// back to manual identifier entry.
var ErrDecodeFailure = errors.New("label not decodable")

// labelSize is the rendered label's edge length in pixels.
const labelSize = 216

// Encode renders the item identity payload as a QR code PNG at
// error-correction level High, so labels survive scuffed printouts.
func Encode(p model.LabelPayload) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal label payload: %w", err)
	}
	png, err := qrcode.Encode(string(data), qrcode.Highest, labelSize)
	if err != nil {
		return nil, fmt.Errorf("failed to render label: %w", err)
	}
	return png, nil
}

// Decode recovers the identity payload from a raster image. Every unreadable,
// non-QR or malformed input maps to ErrDecodeFailure.
func Decode(r io.Reader) (model.LabelPayload, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return model.LabelPayload{}, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	return DecodeImage(img)
}

// DecodeImage is Decode for an already-decoded image, as produced by the
// upload normalization step.
func DecodeImage(img image.Image) (model.LabelPayload, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return model.LabelPayload{}, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	result, err := zxqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return model.LabelPayload{}, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	var p model.LabelPayload
	if err := json.Unmarshal([]byte(result.GetText()), &p); err != nil {
		return model.LabelPayload{}, fmt.Errorf("%w: payload is not valid JSON", ErrDecodeFailure)
	}
	if err := p.Validate(); err != nil {
		return model.LabelPayload{}, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	return p, nil
}
