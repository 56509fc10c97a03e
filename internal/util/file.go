package util

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

const MimePDF = "application/pdf"

var AllowedMaterialExtensions = []string{".pdf"}

var ErrUnsupportedMaterial = errors.New("unsupported material type")

// DetectMaterialType 校验扩展名并按内容嗅探 MIME，仅接受 PDF
func DetectMaterialType(name string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	allowed := false
	for _, e := range AllowedMaterialExtensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", ErrUnsupportedMaterial
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	mimeType := http.DetectContentType(head)
	if mimeType != MimePDF {
		return mimeType, ErrUnsupportedMaterial
	}
	return mimeType, nil
}

// SafeFilename 去掉目录部分，用于对象存储的 key
func SafeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "material"
	}
	return name
}
