package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/freeseek/freeseek/internal/store"
)

const maxUploadMemory = 32 << 20 // 32 MiB

// parseMessageBody accepts either a JSON body {"content": ...} or a
// multipart form with an "image" file. An uploaded image is stored on disk
// and the message content becomes its /uploads path.
func (h *APIHandler) parseMessageBody(r *http.Request) (content, contentType string, err error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			return "", "", fmt.Errorf("invalid multipart form: %w", err)
		}

		file, header, err := r.FormFile("image")
		if err == nil {
			defer file.Close()
			name, err := h.saveUpload(file, header)
			if err != nil {
				return "", "", err
			}
			return "/uploads/" + name, store.ContentTypeImage, nil
		}
		if !errors.Is(err, http.ErrMissingFile) {
			return "", "", fmt.Errorf("invalid image upload: %w", err)
		}

		content = strings.TrimSpace(r.FormValue("content"))
		if content == "" {
			return "", "", errors.New("message content cannot be empty")
		}
		return content, store.ContentTypeText, nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", "", fmt.Errorf("invalid request body: %w", err)
	}
	content = strings.TrimSpace(req.Content)
	if content == "" {
		return "", "", errors.New("message content cannot be empty")
	}
	return content, store.ContentTypeText, nil
}

// saveUpload writes the uploaded file under the configured directory as
// <unix-millis>-<original-name> and returns the generated name.
func (h *APIHandler) saveUpload(file multipart.File, header *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), filepath.Base(header.Filename))
	dst, err := os.Create(filepath.Join(h.uploadDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	return name, nil
}
