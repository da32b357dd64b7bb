// Package evidence stores uploaded evidence photos and order document
// images under deterministic filenames. The core packages only ever hold
// the filename string, never the bytes.
package evidence

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// PhotoName builds an evidence photo filename:
// {order_number}_{stage}_{random-suffix}{ext}.
func PhotoName(orderNumber, stage, originalName string) string {
	ext := filepath.Ext(originalName)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s_%s_%s%s", orderNumber, stage, suffix, ext)
}

// ImageName builds the converted order document image filename:
// {order_number}_{product with spaces replaced}.png.
func ImageName(orderNumber, product string) string {
	return fmt.Sprintf("%s_%s.png", orderNumber, strings.ReplaceAll(product, " ", "_"))
}

// SavePhoto writes evidence photo bytes under dir and returns the stored
// filename.
func SavePhoto(dir, orderNumber, stage, originalName string, data []byte) (string, error) {
	name := PhotoName(orderNumber, stage, originalName)
	if err := write(dir, name, data); err != nil {
		return "", err
	}
	return name, nil
}

// SaveImage writes an order document image under dir and returns the stored
// filename.
func SaveImage(dir, orderNumber, product string, data []byte) (string, error) {
	name := ImageName(orderNumber, product)
	if err := write(dir, name, data); err != nil {
		return "", err
	}
	return name, nil
}

func write(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("evidence: create dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("evidence: write %s: %w", path, err)
	}
	return nil
}
