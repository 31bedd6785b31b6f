package aotgen

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/bytedance/sonic"
)

// reportTemplate 仓储清单的 Markdown 报告
var reportTemplate = template.Must(
	template.New("report").Funcs(sprig.TxtFuncMap()).Parse(`# 仓储生成报告

共 {{ len .Repositories }} 个仓储，{{ .MethodCount }} 个方法。

{{- range .Repositories }}

## {{ .Name }}

- 领域类型: ` + "`{{ .Domain }}`" + `{{ if .ID }}
- 主键类型: ` + "`{{ .ID }}`" + `{{ end }}
- 模式: {{ .Type | lower }}

| 方法 | 分类 | 委托目标 | 查询 |
|------|------|----------|------|
{{- range .Methods }}
| {{ .Name }} | {{ .Kind }} | {{ with .Fragment }}{{ .Interface }}{{ else }}-{{ end }} | {{ with .Query }}{{ .Attribute "where" | default "-" }}{{ else }}-{{ end }} |
{{- end }}
{{- end }}
`))

// reportData 模板的根对象
type reportData struct {
	Repositories []*RepositoryMetadata
	MethodCount  int
}

// WriteReport 收集目录下的 JSON 清单并渲染 Markdown 报告
func WriteReport(w io.Writer, dirs []string) error {
	var manifests []*RepositoryMetadata
	for _, dir := range dirs {
		dir = strings.TrimSuffix(dir, "/...")
		found, err := collectManifests(dir)
		if err != nil {
			return err
		}
		manifests = append(manifests, found...)
	}
	if len(manifests) == 0 {
		return fmt.Errorf("未找到任何仓储清单")
	}

	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].Name < manifests[j].Name
	})
	data := &reportData{Repositories: manifests}
	for _, m := range manifests {
		data.MethodCount += len(m.Methods)
	}
	return reportTemplate.Execute(w, data)
}

// collectManifests 递归收集清单文件
// 非清单的 JSON 文件（缺少 name 或 methods）被跳过
func collectManifests(dir string) ([]*RepositoryMetadata, error) {
	var manifests []*RepositoryMetadata
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if strings.HasPrefix(name, ".") || name == "vendor" || name == "testdata" {
				if path != dir {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !strings.HasSuffix(path, ".json") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var m RepositoryMetadata
		if err := sonic.Unmarshal(data, &m); err != nil {
			return nil
		}
		if m.Name == "" || len(m.Methods) == 0 {
			return nil
		}
		manifests = append(manifests, &m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("收集清单失败: %w", err)
	}
	return manifests, nil
}
