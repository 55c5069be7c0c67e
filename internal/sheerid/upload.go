package sheerid

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// Upload PUTs a rendered document to its pre-signed slot URL. Only the
// declared content type is sent; the slot URL already carries authorization.
func (c *Client) Upload(ctx context.Context, uploadURL string, data []byte, mimeType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)
	req.ContentLength = int64(len(data))

	resp, err := c.uploader.Do(req)
	if err != nil {
		return &TransportError{Op: "upload", Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload rejected (http %d)", resp.StatusCode)
	}
	return nil
}
