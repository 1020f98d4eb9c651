package facedetect

import (
	"context"
	"fmt"
	"image"
	"image/draw"
)

// Params are the MTCNN cascade parameters.
type Params struct {
	MinSize    float32    `json:"min_size"`
	Thresholds [3]float32 `json:"thresholds"`
	Factor     float32    `json:"factor"`
}

// DefaultParams returns the parameters used for catalog thumbnails. Faces
// smaller than 150 pixels are not worth centering a 300x200 crop on.
func DefaultParams() Params {
	return Params{
		MinSize:    150,
		Thresholds: [3]float32{0.6, 0.7, 0.7},
		Factor:     0.709,
	}
}

// Tensor is an image as a row-major [Height, Width, 3] float32 tensor in BGR
// channel order with values in 0..255.
type Tensor struct {
	Height int
	Width  int
	Data   []float32
}

// Output is the raw model output: one (y1, x1, y2, x2) row per face and one
// probability per face.
type Output struct {
	Boxes [][]float32 `json:"boxes"`
	Probs []float32   `json:"probs"`
}

// Backend runs the MTCNN graph.
type Backend interface {
	Run(ctx context.Context, input Tensor, params Params) (Output, error)
}

// MTCNN adapts a Backend to the Detector interface.
type MTCNN struct {
	backend Backend
	params  Params
}

// NewMTCNN returns a detector using DefaultParams.
func NewMTCNN(backend Backend) *MTCNN {
	return &MTCNN{backend: backend, params: DefaultParams()}
}

// Detect implements Detector.
func (m *MTCNN) Detect(ctx context.Context, img image.Image) ([]BoundingBox, error) {
	out, err := m.backend.Run(ctx, ToTensor(img), m.params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetection, err)
	}

	if len(out.Boxes) != len(out.Probs) {
		return nil, fmt.Errorf("%w: %d boxes but %d probabilities", ErrDetection, len(out.Boxes), len(out.Probs))
	}

	boxes := make([]BoundingBox, 0, len(out.Boxes))
	for i, row := range out.Boxes {
		if len(row) != 4 {
			return nil, fmt.Errorf("%w: box %d has %d coordinates, want 4", ErrDetection, i, len(row))
		}
		boxes = append(boxes, BoundingBox{
			Y1:         row[0],
			X1:         row[1],
			Y2:         row[2],
			X2:         row[3],
			Confidence: out.Probs[i],
		})
	}
	return boxes, nil
}

// ToTensor converts img to the BGR input tensor.
func ToTensor(img image.Image) Tensor {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	w, h := b.Dx(), b.Dy()
	data := make([]float32, 0, w*h*3)
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		for x := 0; x < w; x++ {
			px := row[x*4 : x*4+4]
			data = append(data, float32(px[2]), float32(px[1]), float32(px[0]))
		}
	}

	return Tensor{Height: h, Width: w, Data: data}
}
