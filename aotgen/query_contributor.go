package aotgen

import (
	"fmt"
	"strconv"
)

// DerivedQueryContributor 按方法名约定生成查询方法体
// 返回 (nil, nil) 表示放弃生成，方法回退为委托
type DerivedQueryContributor struct{}

func (DerivedQueryContributor) Contribute(ctx *MethodContext) (*MethodCode, error) {
	m := ctx.Method()
	if !IsDerivedQueryName(m.Name) {
		return nil, nil
	}
	if m.IsStreaming() {
		return nil, nil
	}
	// 向量检索参数无法用派生查询表达
	if _, ok := ctx.VectorParameterName(); ok {
		return nil, nil
	}
	if _, ok := ctx.ScoreParameterName(); ok {
		return nil, nil
	}
	if _, ok := ctx.ScoreRangeParameterName(); ok {
		return nil, nil
	}

	q, err := parseDerivedQuery(m.Name)
	if err != nil {
		return nil, err
	}

	bindables := ctx.BindableParameterNames()
	if need := q.bindableCount(); len(bindables) < need {
		return nil, fmt.Errorf("方法 %s 需要 %d 个绑定参数，实际只有 %d 个",
			m.Name, need, len(bindables))
	}

	g := &queryBodyGen{ctx: ctx, query: q}
	code, err := g.generate()
	if err != nil {
		return nil, err
	}
	code.Query = QueryMetadata{
		"method":   m.Name,
		"verb":     q.Verb.String(),
		"where":    q.whereSQL(),
		"distinct": q.Distinct,
	}
	if s := q.orderSQL(); s != "" {
		code.Query["order"] = s
	}
	if q.Limit > 0 {
		code.Query["limit"] = q.Limit
	}
	return code, nil
}

// queryBodyGen 单个方法体的生成状态
type queryBodyGen struct {
	ctx   *MethodContext
	query *derivedQuery
}

func (g *queryBodyGen) generate() (*MethodCode, error) {
	ctx := g.ctx
	recv := ctx.LocalVariable("r")
	dbField := ctx.FieldNameOf("*gorm.DB")
	if dbField == "" {
		return nil, fmt.Errorf("方法 %s 缺少 *gorm.DB 字段", ctx.Method().Name)
	}

	code := &MethodCode{Receiver: recv}
	dbVar := ctx.LocalVariable("db")

	if ctxName, ok := ctx.ContextParameterName(); ok {
		code.Lines = append(code.Lines,
			fmt.Sprintf("%s := %s.%s.WithContext(%s)", dbVar, recv, dbField, ctxName))
	} else {
		code.Lines = append(code.Lines,
			fmt.Sprintf("%s := %s.%s", dbVar, recv, dbField))
	}

	whereArgs, preLines := g.bindArguments()
	code.Lines = append(code.Lines, preLines...)

	where := strconv.Quote(g.query.whereSQL())
	if len(whereArgs) > 0 {
		args := ""
		for _, a := range whereArgs {
			args += ", " + a
		}
		code.Lines = append(code.Lines,
			fmt.Sprintf("%s = %s.Where(%s%s)", dbVar, dbVar, where, args))
	} else {
		code.Lines = append(code.Lines,
			fmt.Sprintf("%s = %s.Where(%s)", dbVar, dbVar, where))
	}

	switch g.query.Verb {
	case verbCount:
		return code, g.emitCount(code, dbVar)
	case verbExists:
		return code, g.emitExists(code, dbVar)
	case verbDelete:
		return code, g.emitDelete(code, dbVar)
	default:
		return code, g.emitFind(code, dbVar)
	}
}

// bindArguments 按条件顺序消耗绑定参数
// Containing/StartingWith/EndingWith 需要本地包装变量
func (g *queryBodyGen) bindArguments() (args []string, preLines []string) {
	bindables := g.ctx.BindableParameterNames()
	next := 0
	take := func() string {
		name := bindables[next]
		next++
		return name
	}
	for _, group := range g.query.Groups {
		for _, c := range group {
			for i := 0; i < c.Op.paramCount(); i++ {
				name := take()
				switch c.Op {
				case opContaining:
					local := g.ctx.LocalVariable(name + "Contains")
					preLines = append(preLines,
						fmt.Sprintf(`%s := "%%" + %s + "%%"`, local, name))
					args = append(args, local)
				case opStartingWith:
					local := g.ctx.LocalVariable(name + "Prefix")
					preLines = append(preLines,
						fmt.Sprintf(`%s := %s + "%%"`, local, name))
					args = append(args, local)
				case opEndingWith:
					local := g.ctx.LocalVariable(name + "Suffix")
					preLines = append(preLines,
						fmt.Sprintf(`%s := "%%" + %s`, local, name))
					args = append(args, local)
				default:
					args = append(args, name)
				}
			}
		}
	}
	return args, preLines
}

// domainTypeName 领域类型的实例化名称
func (g *queryBodyGen) domainTypeName() string {
	domain := g.ctx.Model().Domain
	if len(g.ctx.Model().TypeArgs) > 0 {
		domain = domain.Substitute(g.ctx.Model().TypeArgs)
	}
	return domain.String()
}

func (g *queryBodyGen) applyOrdering(code *MethodCode, dbVar string) {
	ctx := g.ctx
	if s := g.query.orderSQL(); s != "" {
		code.Lines = append(code.Lines,
			fmt.Sprintf("%s = %s.Order(%s)", dbVar, dbVar, strconv.Quote(s)))
	}
	if name, ok := ctx.SortParameterName(); ok {
		code.Lines = append(code.Lines,
			fmt.Sprintf("%s = %s.Apply(%s)", dbVar, name, dbVar))
	}
	if name, ok := ctx.PageableParameterName(); ok {
		code.Lines = append(code.Lines,
			fmt.Sprintf("%s = %s.Apply(%s)", dbVar, name, dbVar))
	}
	if name, ok := ctx.ScrollPositionParameterName(); ok {
		code.Lines = append(code.Lines,
			fmt.Sprintf("%s = %s.Apply(%s)", dbVar, name, dbVar))
	}
	if name, ok := ctx.LimitParameterName(); ok {
		code.Lines = append(code.Lines,
			fmt.Sprintf("%s = %s.Apply(%s)", dbVar, name, dbVar))
	} else if g.query.Limit > 0 {
		code.Lines = append(code.Lines,
			fmt.Sprintf("%s = %s.Limit(%d)", dbVar, dbVar, g.query.Limit))
	}
	if g.query.Distinct {
		code.Lines = append(code.Lines,
			fmt.Sprintf("%s = %s.Distinct()", dbVar, dbVar))
	}
}

func (g *queryBodyGen) emitFind(code *MethodCode, dbVar string) error {
	ctx := g.ctx
	g.applyOrdering(code, dbVar)

	if ctx.IsProjecting() {
		code.Lines = append(code.Lines,
			fmt.Sprintf("%s = %s.Model(&%s{})", dbVar, dbVar, g.domainTypeName()))
	}

	switch {
	case ctx.IsArray():
		result := ctx.LocalVariable("results")
		code.Lines = append(code.Lines,
			fmt.Sprintf("var %s %s", result, ctx.ReturnTypeName()),
			fmt.Sprintf("if err := %s.Find(&%s).Error; err != nil {", dbVar, result),
			"\treturn nil, err",
			"}",
			fmt.Sprintf("return %s, nil", result),
		)
	case ctx.IsOptional():
		result := ctx.LocalVariable("result")
		code.Lines = append(code.Lines,
			fmt.Sprintf("var %s %s", result, ctx.ActualReturnTypeName()),
			fmt.Sprintf("if err := %s.First(&%s).Error; err != nil {", dbVar, result),
			"\tif errors.Is(err, gorm.ErrRecordNotFound) {",
			"\t\treturn nil, nil",
			"\t}",
			"\treturn nil, err",
			"}",
			fmt.Sprintf("return &%s, nil", result),
		)
		code.Imports = append(code.Imports,
			Import{Path: "errors"},
			Import{Path: "gorm.io/gorm"},
		)
	default:
		result := ctx.LocalVariable("result")
		code.Lines = append(code.Lines,
			fmt.Sprintf("var %s %s", result, ctx.ReturnTypeName()),
			fmt.Sprintf("if err := %s.First(&%s).Error; err != nil {", dbVar, result),
			fmt.Sprintf("\treturn %s, err", result),
			"}",
			fmt.Sprintf("return %s, nil", result),
		)
	}
	return nil
}

func (g *queryBodyGen) emitCount(code *MethodCode, dbVar string) error {
	ctx := g.ctx
	ret := ctx.ReturnTypeName()
	if ret != "int64" && ret != "int" {
		return fmt.Errorf("计数方法 %s 的返回类型必须是 int 或 int64，实际为 %s",
			ctx.Method().Name, ret)
	}
	count := ctx.LocalVariable("count")
	code.Lines = append(code.Lines,
		fmt.Sprintf("var %s int64", count),
		fmt.Sprintf("if err := %s.Model(&%s{}).Count(&%s).Error; err != nil {",
			dbVar, g.domainTypeName(), count),
		"\treturn 0, err",
		"}",
	)
	if ret == "int" {
		code.Lines = append(code.Lines, fmt.Sprintf("return int(%s), nil", count))
	} else {
		code.Lines = append(code.Lines, fmt.Sprintf("return %s, nil", count))
	}
	return nil
}

func (g *queryBodyGen) emitExists(code *MethodCode, dbVar string) error {
	ctx := g.ctx
	if ctx.ReturnTypeName() != "bool" {
		return fmt.Errorf("存在性方法 %s 的返回类型必须是 bool，实际为 %s",
			ctx.Method().Name, ctx.ReturnTypeName())
	}
	count := ctx.LocalVariable("count")
	code.Lines = append(code.Lines,
		fmt.Sprintf("var %s int64", count),
		fmt.Sprintf("if err := %s.Model(&%s{}).Limit(1).Count(&%s).Error; err != nil {",
			dbVar, g.domainTypeName(), count),
		"\treturn false, err",
		"}",
		fmt.Sprintf("return %s > 0, nil", count),
	)
	return nil
}

func (g *queryBodyGen) emitDelete(code *MethodCode, dbVar string) error {
	ctx := g.ctx
	res := ctx.LocalVariable("res")
	code.Lines = append(code.Lines,
		fmt.Sprintf("%s := %s.Delete(&%s{})", res, dbVar, g.domainTypeName()),
	)
	switch {
	case ctx.IsVoid():
		code.Lines = append(code.Lines, fmt.Sprintf("return %s.Error", res))
	case ctx.ReturnTypeName() == "int64":
		code.Lines = append(code.Lines,
			fmt.Sprintf("if %s.Error != nil {", res),
			fmt.Sprintf("\treturn 0, %s.Error", res),
			"}",
			fmt.Sprintf("return %s.RowsAffected, nil", res),
		)
	default:
		return fmt.Errorf("删除方法 %s 的返回类型必须是 error 或 (int64, error)，实际为 %s",
			ctx.Method().Name, ctx.ReturnTypeName())
	}
	return nil
}
