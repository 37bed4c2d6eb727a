package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat はサポート外の拡張子のファイルが渡された場合のエラー
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrExtractionFailed はファイルからのテキスト抽出に失敗した場合のエラー
var ErrExtractionFailed = errors.New("text extraction failed")

// supportedExtensions は取り込み対象として受け付ける拡張子
var supportedExtensions = map[string]struct{}{
	".pdf": {},
	".txt": {},
	".md":  {},
}

// Supported はファイル名の拡張子が取り込み対象かどうかを返す
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	_, ok := supportedExtensions[ext]
	return ok
}

// Extensions はサポートする拡張子の一覧を返す
func Extensions() []string {
	return []string{".pdf", ".txt", ".md"}
}

// Extractor はファイルからプレーンテキストを抽出する
type Extractor struct{}

// NewExtractor は新しい Extractor を作成する
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract は path のファイルから拡張子に応じてテキストを抽出する。
// 前後の空白は取り除いて返す。
func (e *Extractor) Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".md":
		return e.extractPlainText(path)
	case ".pdf":
		return e.extractPDF(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func (e *Extractor) extractPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (e *Extractor) extractPDF(path string) (string, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer f.Close()

	plain, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	return strings.TrimSpace(buf.String()), nil
}
