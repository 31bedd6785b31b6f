package aotgen

import (
	"fmt"
	"path/filepath"

	"github.com/davecgh/go-spew/spew"
	"github.com/donutnomad/gg"
	"github.com/donutnomad/repogen/internal/typeref"
	"github.com/donutnomad/repogen/plugin"
	"github.com/samber/lo"
)

const pluginGeneratorName = "repository"

// queryPkgPath 生成代码依赖的运行时包
const queryPkgPath = "github.com/donutnomad/repogen/query"

// RepoParams 定义 Repository 注解支持的参数
type RepoParams struct {
	Output   string `param:"name=output,required=false,default=,description=输出文件路径"`
	Domain   string `param:"name=domain,required=false,default=,description=领域类型，默认从嵌入的 CrudRepository 推断"`
	ID       string `param:"name=id,required=false,default=,description=主键类型，默认从嵌入的 CrudRepository 推断"`
	Manifest bool   `param:"name=manifest,required=false,default=true,description=是否输出 JSON 清单"`
}

// RepositoryGenerator 实现 plugin.Generator 接口
// 为 @Repository 注解的接口生成实现结构体、构造函数与 JSON 清单
type RepositoryGenerator struct {
	plugin.BaseGenerator

	// contributor 可替换的方法体生成器，默认为派生查询生成器
	contributor MethodContributor
}

// NewRepositoryGenerator 创建新的 RepositoryGenerator
func NewRepositoryGenerator() *RepositoryGenerator {
	gen := &RepositoryGenerator{
		BaseGenerator: *plugin.NewBaseGeneratorWithParamsStruct(
			pluginGeneratorName,
			[]string{"Repository"},
			[]plugin.TargetKind{plugin.TargetInterface},
			RepoParams{},
		),
		contributor: DerivedQueryContributor{},
	}
	gen.SetPriority(30)
	return gen
}

// SetContributor 替换方法体生成器，测试用
func (g *RepositoryGenerator) SetContributor(c MethodContributor) *RepositoryGenerator {
	g.contributor = c
	return g
}

// Generate 执行代码生成
func (g *RepositoryGenerator) Generate(ctx *plugin.GenerateContext) (*plugin.GenerateResult, error) {
	result := plugin.NewGenerateResult()
	if len(ctx.Targets) == 0 {
		return result, nil
	}

	// 按输出文件分组，一个文件可承载多个仓储
	fileResults := make(map[string][]*BuildResult)
	var order []string

	for _, at := range ctx.Targets {
		ann := plugin.GetAnnotation(at.Annotations, "Repository")
		if ann == nil {
			continue
		}

		var params RepoParams
		if at.ParsedParams != nil {
			var ok bool
			params, ok = at.ParsedParams.(RepoParams)
			if !ok {
				result.AddError(fmt.Errorf("ParsedParams 类型断言失败: %T", at.ParsedParams))
				continue
			}
		}

		model, err := ParseRepository(at.Target.FilePath, at.Target.Name, ParseOptions{
			Domain: params.Domain,
			ID:     params.ID,
		})
		if err != nil {
			result.AddError(fmt.Errorf("解析仓储接口 %s 失败: %w", at.Target.Name, err))
			continue
		}

		build, err := NewRepositoryBuilder(model, g.contributor).Build()
		if err != nil {
			result.AddError(fmt.Errorf("构建仓储 %s 失败: %w", at.Target.Name, err))
			continue
		}
		for _, w := range build.Warnings {
			fmt.Printf("[repogen] %s: %s\n", model.Name, w)
		}

		fileConfig := ctx.GetFileConfig(at.Target.FilePath)
		outputPath := plugin.GetOutputPath(at.Target, ann, "$FILE_repo.go", fileConfig, g.Name(), ctx.DefaultOutput)
		if _, ok := fileResults[outputPath]; !ok {
			order = append(order, outputPath)
		}
		fileResults[outputPath] = append(fileResults[outputPath], build)

		if ctx.Verbose {
			fmt.Printf("[repogen] 处理接口 %s -> %s\n", at.Target.Name, outputPath)
			fmt.Printf("[repogen] %s", spew.Sdump(params))
		}

		if params.Manifest {
			manifest, err := build.Manifest.Marshal()
			if err != nil {
				result.AddError(err)
				continue
			}
			manifestPath := filepath.Join(filepath.Dir(at.Target.FilePath), ManifestFileName(model))
			result.AddRawOutput(manifestPath, manifest)
		}
	}

	for _, outputPath := range order {
		builds := fileResults[outputPath]
		gen := gg.New()
		gen.SetPackage(builds[0].Model.PackageName)
		for i, build := range builds {
			if i > 0 {
				gen.Body().AddLine()
			}
			emitRepository(gen, build)
		}
		result.AddDefinition(outputPath, gen)
	}
	return result, nil
}

// emitRepository 渲染单个仓储的实现结构体、构造函数与本地方法
func emitRepository(gen *gg.Generator, res *BuildResult) {
	gen.P("gorm.io/gorm")
	gen.P(queryPkgPath)
	for _, imp := range res.Imports {
		if imp.Alias != "" {
			gen.PAlias(imp.Path, imp.Alias)
		} else {
			gen.P(imp.Path)
		}
	}

	model := res.Model
	body := gen.Body()
	implName := model.ImplName()

	// 实现结构体：手写行以支持匿名嵌入字段
	body.Append(gg.S("// %s 是 %s 的生成实现。", implName, model.Name))
	body.Append(gg.S("type %s struct {", implName))
	for _, f := range res.Meta.Fields() {
		if f.Embedded {
			body.Append(gg.S("\t%s", f.Type))
		} else {
			body.Append(gg.S("\t%s %s", f.Name, f.Type))
		}
	}
	body.Append(gg.S("}"))
	body.AddLine()

	// 构造函数
	ctor := res.Constructor
	body.Append(gg.S("// %s 构造 %s。", ctor.Name, implName))
	fn := body.NewFunction(ctor.Name)
	for _, p := range ctor.Params {
		fn.AddParameter(p.Name, p.Type)
	}
	fn.AddResult("", ctor.ReturnType)
	items := lo.Map(ctor.Lines, func(line string, _ int) any {
		return gg.String("%s", line)
	})
	items = append(items, gg.String("return %s", ctor.ReturnExpr))
	fn.AddBody(items...)

	// 本地生成的查询方法
	for _, lm := range res.Meta.RepositoryMethods() {
		body.AddLine()
		emitMethod(body, model, lm.Method, lm.Code.Receiver, lm.Code.Lines)
	}

	// 未实现的委托以显式报错占位，已实现的委托由嵌入字段提升
	for _, dm := range res.Meta.DelegateMethods() {
		if dm.Fragment != nil {
			continue
		}
		body.AddLine()
		recv := NewVariableNameFactory(parameterNames(dm.Method)...).Generate("r")
		stub := fmt.Sprintf("panic(%q)", fmt.Sprintf(
			"%s.%s: 没有 fragment 提供该方法的实现", model.Name, dm.Method.Name))
		emitMethod(body, model, dm.Method, recv, []string{stub})
	}
}

// emitMethod 渲染单个方法
func emitMethod(body *gg.Group, model *RepositoryModel, m *MethodDescriptor, recv string, lines []string) {
	fn := body.NewFunction(m.Name).
		WithReceiver(recv, "*"+model.ImplName())
	for _, p := range m.Params {
		fn.AddParameter(p.Name, renderType(model, p.Type))
	}
	for _, r := range m.Results {
		fn.AddResult(r.Name, renderType(model, r.Type))
	}
	items := lo.Map(lines, func(line string, _ int) any {
		return gg.String("%s", line)
	})
	fn.AddBody(items...)
}

// renderType 按仓储的实例化映射渲染类型
func renderType(model *RepositoryModel, ref typeref.Ref) string {
	if len(model.TypeArgs) > 0 {
		ref = ref.Substitute(model.TypeArgs)
	}
	return ref.String()
}

func parameterNames(m *MethodDescriptor) []string {
	return lo.Map(m.Params, func(p ParamDescriptor, _ int) string {
		return p.Name
	})
}
