// Package netx holds small HTTP helpers that do not belong to any domain
// package.
package netx

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// UploadToS3PresignedURL PUTs payload to a presigned object-storage URL.
// Used by the archive layer to store raw demand payloads.
func UploadToS3PresignedURL(url string, payload []byte) error {
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}

// ClientIP extracts the remote address without the port for audit records.
func ClientIP(remoteAddr string) string {
	for i := len(remoteAddr) - 1; i >= 0; i-- {
		if remoteAddr[i] == ':' {
			return remoteAddr[:i]
		}
	}
	return remoteAddr
}
