// Package manifest downloads generated manifest files for a Steam app.
package manifest

import (
	"context"
	"fmt"
)

// File is a downloaded manifest ready to attach to a message.
type File struct {
	Name string
	Data []byte
}

type Downloader interface {
	Download(ctx context.Context, appID string) (File, error)
}

// FileName is the attachment name for an app's manifest.
func FileName(appID string) string {
	return fmt.Sprintf("%s.lua", appID)
}
