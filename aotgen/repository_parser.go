package aotgen

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"github.com/donutnomad/repogen/internal/typeref"
	"github.com/samber/lo"
)

// ParseOptions 仓储解析选项，来自 @Repository 注解参数
type ParseOptions struct {
	// Domain 领域类型；为空时从嵌入的 CrudRepository 实参推断
	Domain string
	// ID 主键类型；为空时从嵌入的 CrudRepository 实参推断
	ID string
	// TypeArgs 泛型仓储接口的实例化实参，key 为类型参数名
	TypeArgs map[string]string
}

// ParseRepository 解析仓储接口所在的包并构造仓储模型
// 同包内的 fragment 接口与 <接口名>Impl 实现会被一并识别
func ParseRepository(filePath, ifaceName string, opts ParseOptions) (*RepositoryModel, error) {
	p, err := newRepositoryParser(filePath)
	if err != nil {
		return nil, err
	}
	return p.parse(filePath, ifaceName, opts)
}

type repositoryParser struct {
	fset    *token.FileSet
	dir     string
	pkgName string
	pkgPath string

	// interfaces 包内接口定义
	interfaces map[string]*ast.TypeSpec
	// structs 包内结构体名集合，用于识别 fragment 实现
	structs map[string]bool
	// queryAliases 各文件中 query 运行时包的导入别名
	queryAliases map[*ast.File]string
	fileOf       map[string]*ast.File

	// visiting 嵌入解析中的接口，防止循环
	visiting map[string]bool
}

func newRepositoryParser(filePath string) (*repositoryParser, error) {
	fset := token.NewFileSet()
	main, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("解析文件 %s 失败: %w", filePath, err)
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("获取绝对路径失败: %w", err)
	}
	dir := filepath.Dir(absPath)

	p := &repositoryParser{
		fset:         fset,
		dir:          dir,
		pkgName:      main.Name.Name,
		interfaces:   make(map[string]*ast.TypeSpec),
		structs:      make(map[string]bool),
		queryAliases: make(map[*ast.File]string),
		fileOf:       make(map[string]*ast.File),
		visiting:     make(map[string]bool),
	}
	p.pkgPath = packageImportPath(dir, p.pkgName)

	p.collect(absPath, main)

	// 同包的其他文件里可能声明 fragment 接口与实现
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取目录 %s 失败: %w", dir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		full := filepath.Join(dir, name)
		if full == absPath {
			continue
		}
		file, err := parser.ParseFile(fset, full, nil, parser.ParseComments)
		if err != nil || file.Name.Name != p.pkgName {
			continue
		}
		p.collect(full, file)
	}
	return p, nil
}

// collect 收集单个文件的类型定义与 query 包别名
func (p *repositoryParser) collect(filePath string, file *ast.File) {
	p.fileOf[filePath] = file

	alias := ""
	for _, imp := range file.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		if path != "query" && !strings.HasSuffix(path, "/query") {
			continue
		}
		if imp.Name != nil {
			alias = imp.Name.Name
		} else {
			alias = "query"
		}
	}
	p.queryAliases[file] = alias

	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}
		for _, spec := range genDecl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			switch typeSpec.Type.(type) {
			case *ast.InterfaceType:
				p.interfaces[typeSpec.Name.Name] = typeSpec
			case *ast.StructType:
				p.structs[typeSpec.Name.Name] = true
			}
		}
	}
}

func (p *repositoryParser) parse(filePath string, ifaceName string, opts ParseOptions) (*RepositoryModel, error) {
	spec, ok := p.interfaces[ifaceName]
	if !ok {
		return nil, fmt.Errorf("文件 %s 中未找到接口 %s", filePath, ifaceName)
	}
	iface := spec.Type.(*ast.InterfaceType)

	absPath, _ := filepath.Abs(filePath)
	model := &RepositoryModel{
		Name:            ifaceName,
		PackageName:     p.pkgName,
		PackagePath:     p.pkgPath,
		FilePath:        absPath,
		TypeArgs:        make(map[string]typeref.Ref),
		KnownInterfaces: make(map[string]bool),
	}
	for name := range p.interfaces {
		model.KnownInterfaces[name] = true
	}

	tpSet := make(map[string]bool)
	if spec.TypeParams != nil {
		for _, field := range spec.TypeParams.List {
			constraint := typeref.Parse(field.Type, nil)
			for _, name := range field.Names {
				tpSet[name.Name] = true
				model.TypeParams = append(model.TypeParams, TypeParamDecl{
					Name:       name.Name,
					Constraint: constraint,
				})
			}
		}
	}
	for name, src := range opts.TypeArgs {
		ref, err := parseTypeString(src, nil)
		if err != nil {
			return nil, fmt.Errorf("类型实参 %s=%s 无效: %w", name, src, err)
		}
		model.TypeArgs[name] = ref
	}

	queryAlias := p.queryAliases[p.fileOf[absPath]]
	if err := p.walkInterface(model, iface, tpSet, queryAlias, "", OriginLocal); err != nil {
		return nil, err
	}

	if opts.Domain != "" {
		ref, err := parseTypeString(opts.Domain, tpSet)
		if err != nil {
			return nil, fmt.Errorf("领域类型 %s 无效: %w", opts.Domain, err)
		}
		model.Domain = ref
	}
	if opts.ID != "" {
		ref, err := parseTypeString(opts.ID, tpSet)
		if err != nil {
			return nil, fmt.Errorf("主键类型 %s 无效: %w", opts.ID, err)
		}
		model.ID = ref
	}
	if model.Domain.Kind == 0 {
		return nil, fmt.Errorf("接口 %s 无法确定领域类型：注解未指定 domain 且未嵌入 CrudRepository", ifaceName)
	}
	return model, nil
}

// walkInterface 展开接口的方法与嵌入
func (p *repositoryParser) walkInterface(model *RepositoryModel, iface *ast.InterfaceType, tpSet map[string]bool, queryAlias, declaredBy string, origin DeclOrigin) error {
	if iface.Methods == nil {
		return nil
	}
	for _, field := range iface.Methods.List {
		if len(field.Names) > 0 {
			ft, ok := field.Type.(*ast.FuncType)
			if !ok {
				continue
			}
			for _, name := range field.Names {
				model.Methods = append(model.Methods,
					parseMethodDecl(name.Name, ft, tpSet, declaredBy, origin))
			}
			continue
		}
		if err := p.parseEmbedded(model, field.Type, tpSet, queryAlias); err != nil {
			return err
		}
	}
	return nil
}

// parseEmbedded 处理嵌入接口：基础 CrudRepository、本地 fragment、外部接口
func (p *repositoryParser) parseEmbedded(model *RepositoryModel, expr ast.Expr, tpSet map[string]bool, queryAlias string) error {
	base, args := unwrapInstantiation(expr)
	switch e := base.(type) {
	case *ast.SelectorExpr:
		pkgIdent, ok := e.X.(*ast.Ident)
		if !ok {
			return nil
		}
		if queryAlias != "" && pkgIdent.Name == queryAlias && e.Sel.Name == "CrudRepository" {
			return p.parseBaseEmbed(model, args, tpSet)
		}
		// 无关外部接口，作为不透明 fragment 嵌入
		display := typeref.String(expr)
		model.Fragments = append(model.Fragments, &FragmentDescriptor{
			Interface: display,
			FieldType: display,
		})
		return nil
	case *ast.Ident:
		return p.parseFragmentEmbed(model, e.Name, args, tpSet)
	default:
		return nil
	}
}

// parseBaseEmbed 处理嵌入的 query.CrudRepository[D, I]
func (p *repositoryParser) parseBaseEmbed(model *RepositoryModel, args []ast.Expr, tpSet map[string]bool) error {
	if len(args) != 2 {
		return fmt.Errorf("接口 %s 嵌入的 CrudRepository 需要两个类型实参", model.Name)
	}
	domain := typeref.Parse(args[0], tpSet)
	id := typeref.Parse(args[1], tpSet)
	if model.Domain.Kind == 0 {
		model.Domain = domain
	}
	if model.ID.Kind == 0 {
		model.ID = id
	}

	methods := crudMethodDescriptors(domain, id)
	fieldType := fmt.Sprintf("*query.CrudFragment[%s, %s]", domain.String(), id.String())
	model.Fragments = append(model.Fragments, &FragmentDescriptor{
		Interface:      fmt.Sprintf("query.CrudRepository[%s, %s]", domain.String(), id.String()),
		Implementation: fieldType,
		FieldType:      fieldType,
		Base:           true,
		Signatures: lo.Map(methods, func(m *MethodDescriptor, _ int) string {
			return m.Signature()
		}),
	})
	model.Methods = append(model.Methods, methods...)
	return nil
}

// parseFragmentEmbed 处理嵌入的本地 fragment 接口
func (p *repositoryParser) parseFragmentEmbed(model *RepositoryModel, name string, args []ast.Expr, tpSet map[string]bool) error {
	spec, ok := p.interfaces[name]
	if !ok {
		// 包内找不到定义，按不透明 fragment 处理
		model.Fragments = append(model.Fragments, &FragmentDescriptor{
			Interface: name,
			FieldType: name,
		})
		return nil
	}
	if p.visiting[name] {
		return fmt.Errorf("接口 %s 存在循环嵌入", name)
	}
	p.visiting[name] = true
	defer delete(p.visiting, name)

	// fragment 自身的类型参数由嵌入实参实例化
	fragTPs := make(map[string]bool)
	subst := make(map[string]typeref.Ref)
	if spec.TypeParams != nil {
		var names []string
		for _, field := range spec.TypeParams.List {
			for _, n := range field.Names {
				fragTPs[n.Name] = true
				names = append(names, n.Name)
			}
		}
		if len(args) != len(names) {
			return fmt.Errorf("接口 %s 嵌入 %s 的类型实参个数不匹配", model.Name, name)
		}
		for i, n := range names {
			subst[n] = typeref.Parse(args[i], tpSet)
		}
	}

	display := name
	if len(args) > 0 {
		parts := lo.Map(args, func(a ast.Expr, _ int) string { return typeref.String(a) })
		display = name + "[" + strings.Join(parts, ", ") + "]"
	}

	iface := spec.Type.(*ast.InterfaceType)
	before := len(model.Methods)
	if err := p.walkInterface(model, iface, mergeSets(tpSet, fragTPs), p.queryAliases[p.fileOf[model.FilePath]], display, OriginFragment); err != nil {
		return err
	}
	added := model.Methods[before:]
	for _, m := range added {
		if len(subst) == 0 {
			break
		}
		for i := range m.Params {
			m.Params[i].Type = m.Params[i].Type.Substitute(subst)
		}
		for i := range m.Results {
			m.Results[i].Type = m.Results[i].Type.Substitute(subst)
		}
	}

	frag := &FragmentDescriptor{
		Interface: display,
		FieldType: display,
		Signatures: lo.Map(added, func(m *MethodDescriptor, _ int) string {
			return m.Signature()
		}),
	}
	if p.structs[name+"Impl"] {
		frag.Implementation = name + "Impl"
	}
	model.Fragments = append(model.Fragments, frag)
	return nil
}

// parseMethodDecl 将方法声明转为结构化描述，未命名参数补 argN
func parseMethodDecl(name string, ft *ast.FuncType, tpSet map[string]bool, declaredBy string, origin DeclOrigin) *MethodDescriptor {
	m := &MethodDescriptor{
		Name:       name,
		DeclaredBy: declaredBy,
		Origin:     origin,
	}
	if !ast.IsExported(name) {
		m.Flags |= FlagUnexported
	}

	argIndex := 0
	if ft.Params != nil {
		for _, field := range ft.Params.List {
			ref := typeref.Parse(field.Type, tpSet)
			if _, ok := field.Type.(*ast.Ellipsis); ok {
				m.Flags |= FlagVariadic
			}
			if len(field.Names) == 0 {
				m.Params = append(m.Params, ParamDescriptor{
					Name: fmt.Sprintf("arg%d", argIndex),
					Type: ref,
				})
				argIndex++
				continue
			}
			for _, n := range field.Names {
				paramName := n.Name
				if paramName == "" || paramName == "_" {
					paramName = fmt.Sprintf("arg%d", argIndex)
				}
				m.Params = append(m.Params, ParamDescriptor{Name: paramName, Type: ref})
				argIndex++
			}
		}
	}
	if ft.Results != nil {
		for _, field := range ft.Results.List {
			ref := typeref.Parse(field.Type, tpSet)
			if len(field.Names) == 0 {
				m.Results = append(m.Results, ParamDescriptor{Type: ref})
				continue
			}
			for _, n := range field.Names {
				m.Results = append(m.Results, ParamDescriptor{Name: n.Name, Type: ref})
			}
		}
	}
	return m
}

// crudMethodDescriptors 基础 CrudRepository 的方法集合
func crudMethodDescriptors(domain, id typeref.Ref) []*MethodDescriptor {
	ctx := typeref.Named("context", "Context")
	pageable := typeref.Named("query", "Pageable")
	errType := typeref.Named("", "error")
	declaredBy := "query.CrudRepository"

	method := func(name string, params, results []ParamDescriptor) *MethodDescriptor {
		return &MethodDescriptor{
			Name:       name,
			Params:     params,
			Results:    results,
			DeclaredBy: declaredBy,
			Origin:     OriginBase,
		}
	}
	return []*MethodDescriptor{
		method("FindByID",
			[]ParamDescriptor{{Name: "ctx", Type: ctx}, {Name: "id", Type: id}},
			[]ParamDescriptor{{Type: typeref.PointerTo(domain)}, {Type: errType}}),
		method("FindAll",
			[]ParamDescriptor{{Name: "ctx", Type: ctx}},
			[]ParamDescriptor{{Type: typeref.SliceOf(domain)}, {Type: errType}}),
		method("FindAllPaged",
			[]ParamDescriptor{{Name: "ctx", Type: ctx}, {Name: "pageable", Type: pageable}},
			[]ParamDescriptor{{Type: typeref.SliceOf(domain)}, {Type: errType}}),
		method("Save",
			[]ParamDescriptor{{Name: "ctx", Type: ctx}, {Name: "entity", Type: typeref.PointerTo(domain)}},
			[]ParamDescriptor{{Type: errType}}),
		method("SaveAll",
			[]ParamDescriptor{{Name: "ctx", Type: ctx}, {Name: "entities", Type: typeref.SliceOf(domain)}},
			[]ParamDescriptor{{Type: errType}}),
		method("DeleteByID",
			[]ParamDescriptor{{Name: "ctx", Type: ctx}, {Name: "id", Type: id}},
			[]ParamDescriptor{{Type: errType}}),
		method("Count",
			[]ParamDescriptor{{Name: "ctx", Type: ctx}},
			[]ParamDescriptor{{Type: typeref.Named("", "int64")}, {Type: errType}}),
		method("ExistsByID",
			[]ParamDescriptor{{Name: "ctx", Type: ctx}, {Name: "id", Type: id}},
			[]ParamDescriptor{{Type: typeref.Named("", "bool")}, {Type: errType}}),
	}
}

// unwrapInstantiation 拆出泛型实例化的基类型与实参
func unwrapInstantiation(expr ast.Expr) (ast.Expr, []ast.Expr) {
	switch e := expr.(type) {
	case *ast.IndexExpr:
		return e.X, []ast.Expr{e.Index}
	case *ast.IndexListExpr:
		return e.X, e.Indices
	default:
		return expr, nil
	}
}

// parseTypeString 把注解里的类型文本解析为类型引用
func parseTypeString(src string, tpSet map[string]bool) (typeref.Ref, error) {
	expr, err := parser.ParseExpr(src)
	if err != nil {
		return typeref.Ref{}, err
	}
	return typeref.Parse(expr, tpSet), nil
}

func mergeSets(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool, len(a)+len(b))
	for k := range a {
		out[k] = true
	}
	for k := range b {
		out[k] = true
	}
	return out
}

// packageImportPath 由目录推导导入路径：向上找 go.mod 拼相对路径
// 找不到时退回包名
func packageImportPath(dir, pkgName string) string {
	root := dir
	for {
		data, err := os.ReadFile(filepath.Join(root, "go.mod"))
		if err == nil {
			module := ""
			for _, line := range strings.Split(string(data), "\n") {
				line = strings.TrimSpace(line)
				if strings.HasPrefix(line, "module ") {
					module = strings.TrimSpace(strings.TrimPrefix(line, "module "))
					break
				}
			}
			if module == "" {
				return pkgName
			}
			rel, err := filepath.Rel(root, dir)
			if err != nil || rel == "." {
				return module
			}
			return module + "/" + filepath.ToSlash(rel)
		}
		parent := filepath.Dir(root)
		if parent == root {
			return pkgName
		}
		root = parent
	}
}
