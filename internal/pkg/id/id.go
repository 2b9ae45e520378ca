package id

import (
	"strings"

	"github.com/google/uuid"
)

// New 生成新的UUID（string格式）
func New() string {
	return uuid.New().String()
}

// IsValid 验证UUID格式是否有效
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// NewFilename 生成以 UUID 命名的文件名，ext 可带或不带点号
func NewFilename(ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return New()
	}
	return New() + "." + ext
}
