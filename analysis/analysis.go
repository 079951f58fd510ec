// Package analysis locates faces in images for smart cropping.
package analysis

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/service/rekognition"
	"github.com/aws/aws-sdk-go/service/rekognition/rekognitioniface"
)

// BoundingBox is a face location as ratios of the image dimensions.
type BoundingBox struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// FaceDetector finds faces in encoded image bytes.
type FaceDetector interface {
	DetectFaces(ctx context.Context, image []byte) ([]BoundingBox, error)
}

// RekognitionDetector detects faces with Amazon Rekognition.
type RekognitionDetector struct {
	c rekognitioniface.RekognitionAPI
}

func NewRekognitionDetector(p client.ConfigProvider) *RekognitionDetector {
	return &RekognitionDetector{c: rekognition.New(p)}
}

func NewRekognitionDetectorWithClient(c rekognitioniface.RekognitionAPI) *RekognitionDetector {
	return &RekognitionDetector{c: c}
}

// DetectFaces returns boxes in the order Rekognition reports them. Faces
// without a bounding box are skipped.
func (d *RekognitionDetector) DetectFaces(ctx context.Context, image []byte) ([]BoundingBox, error) {
	out, err := d.c.DetectFacesWithContext(ctx, &rekognition.DetectFacesInput{
		Image: &rekognition.Image{Bytes: image},
	})
	if err != nil {
		return nil, fmt.Errorf("detecting faces: %w", err)
	}

	boxes := make([]BoundingBox, 0, len(out.FaceDetails))
	for _, face := range out.FaceDetails {
		if face == nil || face.BoundingBox == nil {
			continue
		}
		boxes = append(boxes, BoundingBox{
			Left:   aws.Float64Value(face.BoundingBox.Left),
			Top:    aws.Float64Value(face.BoundingBox.Top),
			Width:  aws.Float64Value(face.BoundingBox.Width),
			Height: aws.Float64Value(face.BoundingBox.Height),
		})
	}
	return boxes, nil
}
