package vision

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/nfnt/resize"
)

// ErrDecode marks payloads that are not valid base64 or not a decodable
// image. Callers are expected to treat it as a bad request, not a fault.
var ErrDecode = errors.New("image decode failed")

// Tensor is a flat float32 array with explicit NHWC dims. The predictors
// require batch size 1, three channels and values in [0,1].
type Tensor struct {
	Data []float32
	Dims []int64
}

// Normalizer converts inbound base64 payloads into the fixed-shape input
// the classifiers were trained on.
type Normalizer struct {
	inputSize int
}

func NewNormalizer(inputSize int) *Normalizer {
	return &Normalizer{inputSize: inputSize}
}

func (n *Normalizer) InputSize() int { return n.inputSize }

// Decode strips an optional data-URL header ("data:image/jpeg;base64,...")
// and decodes the remaining base64 payload into a parsed image plus the raw
// bytes as they will be stored.
func (n *Normalizer) Decode(encoded string) (image.Image, []byte, error) {
	if i := strings.IndexByte(encoded, ','); i >= 0 {
		encoded = encoded[i+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, raw, nil
}

// ToTensor resizes to the configured square input, forces three RGB
// channels and normalizes intensities into [0,1], interleaved HWC with a
// leading batch dimension of 1.
func (n *Normalizer) ToTensor(img image.Image) Tensor {
	size := uint(n.inputSize)
	resized := resize.Resize(size, size, img, resize.Lanczos3)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	data := make([]float32, height*width*3)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			data[i] = float32(r) / 65535.0
			data[i+1] = float32(g) / 65535.0
			data[i+2] = float32(b) / 65535.0
			i += 3
		}
	}

	return Tensor{
		Data: data,
		Dims: []int64{1, int64(height), int64(width), 3},
	}
}
