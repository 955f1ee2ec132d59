// Package ocr extracts raw text from uploaded document images. The
// rest of the pipeline treats the output as a single untrusted string.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"

	vision "cloud.google.com/go/vision/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// Client is the OCR collaborator. A failure means the document was
// unreadable; callers treat that as "no text to extract" and proceed
// with an all-absent identity record.
type Client interface {
	ExtractText(ctx context.Context, documentBytes []byte, mimeType string) (string, error)
}

// VisionClient implements Client with the Google Vision document text
// detector.
type VisionClient struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionClient builds the Vision annotator, honoring
// GOOGLE_APPLICATION_CREDENTIALS when set.
func NewVisionClient(ctx context.Context) (*VisionClient, error) {
	var (
		client *vision.ImageAnnotatorClient
		err    error
	)
	if credPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credPath != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credPath))
	} else {
		client, err = vision.NewImageAnnotatorClient(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to init OCR client: %w", err)
	}
	return &VisionClient{client: client}, nil
}

// Close releases the underlying API client.
func (v *VisionClient) Close() error { return v.client.Close() }

// ExtractText runs document text detection over the raw image bytes.
// The mimeType is accepted for interface parity; Vision sniffs the
// format itself.
func (v *VisionClient) ExtractText(ctx context.Context, documentBytes []byte, mimeType string) (string, error) {
	if len(documentBytes) == 0 {
		return "", errors.New("empty document")
	}
	img := &visionpb.Image{Content: documentBytes}
	annotation, err := v.client.DetectDocumentText(ctx, img, nil)
	if err != nil {
		return "", fmt.Errorf("could not extract text from image: %w", err)
	}
	if annotation == nil || annotation.Text == "" {
		return "", errors.New("no text was found in the image")
	}
	return annotation.Text, nil
}
