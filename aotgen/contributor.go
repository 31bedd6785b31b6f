package aotgen

// Import 生成代码需要的额外导入
type Import struct {
	Path  string
	Alias string
}

// MethodCode 单个方法的生成结果
type MethodCode struct {
	// Receiver 方法体中使用的接收者变量名
	Receiver string
	// Lines 方法体语句
	Lines []string
	// Imports 方法体引用的额外导入
	Imports []Import
	// Query 写入清单的查询元数据
	Query QueryMetadata
}

// MethodContributor 方法体生成器
// 返回 (nil, nil) 表示放弃生成，方法将被记录为委托回退
type MethodContributor interface {
	Contribute(ctx *MethodContext) (*MethodCode, error)
}

// ContributorFunc 函数适配器
type ContributorFunc func(ctx *MethodContext) (*MethodCode, error)

func (f ContributorFunc) Contribute(ctx *MethodContext) (*MethodCode, error) {
	return f(ctx)
}
