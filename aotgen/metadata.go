package aotgen

import (
	"fmt"
	"path"
	"sort"

	"github.com/bytedance/sonic"
	"github.com/spf13/cast"
)

// QueryMetadata 查询方法的结构化描述，最终落入 JSON 清单
type QueryMetadata map[string]any

// Attribute 按 key 取字符串属性，缺失返回空串
func (q QueryMetadata) Attribute(key string) string {
	v, ok := q[key]
	if !ok {
		return ""
	}
	return cast.ToString(v)
}

// IntAttribute 按 key 取整数属性
func (q QueryMetadata) IntAttribute(key string) int {
	return cast.ToInt(q[key])
}

// BoolAttribute 按 key 取布尔属性
func (q QueryMetadata) BoolAttribute(key string) bool {
	return cast.ToBool(q[key])
}

// FragmentTarget 委托目标
type FragmentTarget struct {
	Interface      string `json:"interface"`
	Implementation string `json:"fragment,omitempty"`
}

// MethodMetadata 单个方法在清单中的条目
type MethodMetadata struct {
	Name      string          `json:"name"`
	Signature string          `json:"signature"`
	Kind      string          `json:"kind"`
	Fragment  *FragmentTarget `json:"fragment,omitempty"`
	Query     QueryMetadata   `json:"query,omitempty"`
}

// RepositoryMetadata 仓储的生成清单，与生成代码一同输出
type RepositoryMetadata struct {
	Name    string           `json:"name"`
	Module  string           `json:"module"`
	Type    string           `json:"type"`
	Domain  string           `json:"domain"`
	ID      string           `json:"id,omitempty"`
	Methods []MethodMetadata `json:"methods"`
}

// NewRepositoryMetadata 由仓储模型构造空清单
func NewRepositoryMetadata(model *RepositoryModel) *RepositoryMetadata {
	typ := "IMPERATIVE"
	if model.IsStreaming() {
		typ = "STREAMING"
	}
	return &RepositoryMetadata{
		Name:   model.QualifiedName(),
		Module: model.PackagePath,
		Type:   typ,
		Domain: model.Domain.String(),
		ID:     model.ID.String(),
	}
}

// AddMethod 追加方法条目
func (m *RepositoryMetadata) AddMethod(entry MethodMetadata) {
	m.Methods = append(m.Methods, entry)
}

// MethodFor 按名称查找条目，测试用
func (m *RepositoryMetadata) MethodFor(name string) (MethodMetadata, bool) {
	for _, entry := range m.Methods {
		if entry.Name == name {
			return entry, true
		}
	}
	return MethodMetadata{}, false
}

// Sorted 按方法名与签名排序后的副本，保证清单输出稳定
func (m *RepositoryMetadata) Sorted() *RepositoryMetadata {
	out := *m
	out.Methods = append([]MethodMetadata(nil), m.Methods...)
	sort.SliceStable(out.Methods, func(i, j int) bool {
		if out.Methods[i].Name != out.Methods[j].Name {
			return out.Methods[i].Name < out.Methods[j].Name
		}
		return out.Methods[i].Signature < out.Methods[j].Signature
	})
	return &out
}

// Marshal 输出带缩进的清单
func (m *RepositoryMetadata) Marshal() ([]byte, error) {
	bs, err := sonic.ConfigStd.MarshalIndent(m.Sorted(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("序列化仓储清单 %s 失败: %w", m.Name, err)
	}
	return append(bs, '\n'), nil
}

// ManifestFileName 清单文件名：<接口名>.json，与生成代码同目录
func ManifestFileName(model *RepositoryModel) string {
	return model.Name + ".json"
}

// ManifestPath 清单的仓库内路径
func ManifestPath(model *RepositoryModel) string {
	return path.Join(model.PackagePath, ManifestFileName(model))
}
