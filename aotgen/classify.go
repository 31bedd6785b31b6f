package aotgen

import (
	"regexp"
)

// MethodKind 方法分类结果
type MethodKind int

const (
	// KindSkipped 不参与生成也不进清单（合成/未导出方法）
	KindSkipped MethodKind = iota
	// KindFragment 委托给自定义 fragment
	KindFragment
	// KindBaseDelegate 委托给基础 CRUD fragment
	KindBaseDelegate
	// KindQuery 派生查询方法，尝试本地生成
	KindQuery
	// KindUnsupported 无法识别，记录为未实现的委托
	KindUnsupported
)

func (k MethodKind) String() string {
	switch k {
	case KindFragment:
		return "fragment"
	case KindBaseDelegate:
		return "base-delegate"
	case KindQuery:
		return "query"
	case KindUnsupported:
		return "unsupported"
	default:
		return "skipped"
	}
}

// derivedQueryRegex 派生查询方法名
// 动词 + 可选 Distinct/TopN/FirstN + By + 条件
var derivedQueryRegex = regexp.MustCompile(
	`^(Find|Get|Read|Search|Query|Count|Exists|Delete|Remove)(Distinct)?((?:Top|First)\d*)?By[A-Z]`)

// IsDerivedQueryName 方法名是否符合派生查询约定
func IsDerivedQueryName(name string) bool {
	return derivedQueryRegex.MatchString(name)
}

// Classify 对单个方法做确定性分类
// 只读取结构化描述，纯函数
func Classify(m *MethodDescriptor, model *RepositoryModel) MethodKind {
	if m.Flags&FlagSynthetic != 0 || m.Flags&FlagUnexported != 0 {
		return KindSkipped
	}
	switch m.Origin {
	case OriginForeign:
		return KindSkipped
	case OriginFragment:
		return KindFragment
	case OriginBase:
		// 基础方法默认委托；命名符合派生查询约定时进入查询路径，
		// 生成失败再回退为基础委托
		if IsDerivedQueryName(m.Name) {
			return KindQuery
		}
		return KindBaseDelegate
	}
	if IsDerivedQueryName(m.Name) {
		return KindQuery
	}
	// 本地声明但不是查询方法：若有 fragment 声明了同签名方法则委托
	if model.FragmentFor(m.Signature()) != nil {
		return KindFragment
	}
	return KindUnsupported
}
