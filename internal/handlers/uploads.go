package handlers

import (
	"context"
	"fmt"
	"mime/multipart"
)

func saveMultipartFile(ctx context.Context, media MediaStore, header *multipart.FileHeader, key string) (string, error) {
	if media == nil {
		return "", fmt.Errorf("media storage is not configured")
	}

	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open uploaded file: %w", err)
	}
	defer file.Close()

	return media.Save(ctx, key, header.Header.Get("Content-Type"), file)
}
