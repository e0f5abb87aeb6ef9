package types

import (
	"errors"
	"net/url"
	"strings"
)

type AttachmentKind string

const (
	AttachmentKindImage AttachmentKind = "image"
	AttachmentKindFile  AttachmentKind = "file"
)

// Attachment points to a file stored by the upload service.
// The location is opaque; its content is never inspected.
type Attachment struct {
	Kind AttachmentKind `json:"kind"`
	URL  string         `json:"url"`
	Name string         `json:"name"`
	Size *int64         `json:"size,omitempty"`
}

func (a *Attachment) Validate() error {
	a.URL = strings.TrimSpace(a.URL)
	a.Name = strings.TrimSpace(a.Name)

	if a.Kind != AttachmentKindImage && a.Kind != AttachmentKindFile {
		return errors.New("attachment kind must be image or file")
	}

	if a.URL == "" {
		return errors.New("attachment url is required")
	}

	if _, err := url.Parse(a.URL); err != nil {
		return errors.New("attachment url is invalid")
	}

	if a.Size != nil && *a.Size < 0 {
		return errors.New("attachment size cannot be negative")
	}

	return nil
}
