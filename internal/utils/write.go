package utils

import (
	"fmt"
	"os"

	"golang.org/x/tools/imports"
)

// WriteFormat 格式化 Go 源码并写入文件
// 使用 goimports 规则整理导入；格式化失败时写入原始内容并返回错误，
// 便于排查生成结果
func WriteFormat(path string, src []byte) error {
	formatted, err := imports.Process(path, src, &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		if writeErr := os.WriteFile(path, src, 0644); writeErr != nil {
			return fmt.Errorf("写入文件失败: %w", writeErr)
		}
		return fmt.Errorf("格式化失败（已写入未格式化内容）: %w", err)
	}
	return os.WriteFile(path, formatted, 0644)
}
