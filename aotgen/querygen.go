package aotgen

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/donutnomad/repogen/internal/utils"
	"github.com/samber/lo"
)

// queryVerb 派生查询动词
type queryVerb int

const (
	verbFind queryVerb = iota + 1
	verbCount
	verbExists
	verbDelete
)

func (v queryVerb) String() string {
	switch v {
	case verbCount:
		return "count"
	case verbExists:
		return "exists"
	case verbDelete:
		return "delete"
	default:
		return "find"
	}
}

// condOp 条件操作符
type condOp int

const (
	opEquals condOp = iota
	opNot
	opLike
	opNotLike
	opContaining
	opStartingWith
	opEndingWith
	opIn
	opNotIn
	opGreaterThan
	opGreaterThanEqual
	opLessThan
	opLessThanEqual
	opBetween
	opTrue
	opFalse
	opIsNull
	opIsNotNull
)

// operatorSuffixes 按 token 数降序排列的操作符后缀表，贪婪匹配
var operatorSuffixes = []struct {
	tokens []string
	op     condOp
}{
	{[]string{"Greater", "Than", "Equal"}, opGreaterThanEqual},
	{[]string{"Less", "Than", "Equal"}, opLessThanEqual},
	{[]string{"Is", "Not", "Null"}, opIsNotNull},
	{[]string{"Greater", "Than"}, opGreaterThan},
	{[]string{"Less", "Than"}, opLessThan},
	{[]string{"Starting", "With"}, opStartingWith},
	{[]string{"Ending", "With"}, opEndingWith},
	{[]string{"Not", "Like"}, opNotLike},
	{[]string{"Not", "In"}, opNotIn},
	{[]string{"Is", "Null"}, opIsNull},
	{[]string{"Between"}, opBetween},
	{[]string{"Containing"}, opContaining},
	{[]string{"Contains"}, opContaining},
	{[]string{"Like"}, opLike},
	{[]string{"In"}, opIn},
	{[]string{"True"}, opTrue},
	{[]string{"False"}, opFalse},
	{[]string{"Not"}, opNot},
}

// paramCount 操作符消耗的绑定参数个数
func (op condOp) paramCount() int {
	switch op {
	case opBetween:
		return 2
	case opTrue, opFalse, opIsNull, opIsNotNull:
		return 0
	default:
		return 1
	}
}

// condition 单个查询条件
type condition struct {
	Property   string
	Column     string
	Op         condOp
	IgnoreCase bool
}

// orderItem 排序项
type orderItem struct {
	Column string
	Desc   bool
}

// derivedQuery 从方法名解析出的派生查询
type derivedQuery struct {
	Verb     queryVerb
	Distinct bool
	Limit    int // TopN/FirstN，0 表示不限
	// Groups AND 组成的条件组，组间以 OR 连接
	Groups [][]condition
	Orders []orderItem
}

var derivedNameRegex = regexp.MustCompile(
	`^(Find|Get|Read|Search|Query|Count|Exists|Delete|Remove)(Distinct)?(?:(Top|First)(\d*))?By(.+)$`)

// parseDerivedQuery 解析派生查询方法名
func parseDerivedQuery(name string) (*derivedQuery, error) {
	m := derivedNameRegex.FindStringSubmatch(name)
	if m == nil {
		return nil, fmt.Errorf("方法名 %s 不符合派生查询约定", name)
	}

	q := &derivedQuery{Distinct: m[2] != ""}
	switch m[1] {
	case "Count":
		q.Verb = verbCount
	case "Exists":
		q.Verb = verbExists
	case "Delete", "Remove":
		q.Verb = verbDelete
	default:
		q.Verb = verbFind
	}
	if m[3] != "" {
		q.Limit = 1
		if m[4] != "" {
			n, err := strconv.Atoi(m[4])
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("方法名 %s 的条数限制无效", name)
			}
			q.Limit = n
		}
	}

	predicate := m[5]
	if i := strings.Index(predicate, "OrderBy"); i >= 0 {
		orders, err := parseOrderBy(predicate[i+len("OrderBy"):])
		if err != nil {
			return nil, err
		}
		q.Orders = orders
		predicate = predicate[:i]
	}
	if predicate == "" {
		return nil, fmt.Errorf("方法名 %s 缺少查询条件", name)
	}

	groups, err := parsePredicate(predicate)
	if err != nil {
		return nil, fmt.Errorf("方法名 %s: %w", name, err)
	}
	q.Groups = groups
	return q, nil
}

// splitCamelTokens 按驼峰切分，数字跟随前一个 token
func splitCamelTokens(s string) []string {
	var tokens []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			tokens = append(tokens, s[start:i])
			start = i
		}
	}
	if start < len(s) {
		tokens = append(tokens, s[start:])
	}
	return tokens
}

// parsePredicate 解析条件部分：And 优先于 Or
func parsePredicate(predicate string) ([][]condition, error) {
	tokens := splitCamelTokens(predicate)

	var groups [][]condition
	var current []condition
	var buf []string

	flushCond := func() error {
		if len(buf) == 0 {
			return fmt.Errorf("空的查询条件")
		}
		cond, err := parseCondition(buf)
		if err != nil {
			return err
		}
		current = append(current, cond)
		buf = nil
		return nil
	}

	for _, tok := range tokens {
		switch tok {
		case "And":
			if err := flushCond(); err != nil {
				return nil, err
			}
		case "Or":
			if err := flushCond(); err != nil {
				return nil, err
			}
			groups = append(groups, current)
			current = nil
		default:
			buf = append(buf, tok)
		}
	}
	if err := flushCond(); err != nil {
		return nil, err
	}
	groups = append(groups, current)
	return groups, nil
}

// parseCondition 解析单个条件：属性 + 可选操作符后缀 + 可选 IgnoreCase
func parseCondition(tokens []string) (condition, error) {
	cond := condition{Op: opEquals}

	// IgnoreCase 永远在最后
	if n := len(tokens); n >= 2 && tokens[n-2] == "Ignore" && tokens[n-1] == "Case" {
		cond.IgnoreCase = true
		tokens = tokens[:n-2]
	}

	for _, suffix := range operatorSuffixes {
		n := len(tokens) - len(suffix.tokens)
		if n <= 0 {
			continue
		}
		if lo.EveryBy(lo.Range(len(suffix.tokens)), func(i int) bool {
			return tokens[n+i] == suffix.tokens[i]
		}) {
			cond.Op = suffix.op
			tokens = tokens[:n]
			break
		}
	}

	if len(tokens) == 0 {
		return cond, fmt.Errorf("查询条件缺少属性名")
	}
	cond.Property = strings.Join(tokens, "")
	cond.Column = utils.ToSnakeCase(cond.Property)
	return cond, nil
}

// parseOrderBy 解析 OrderBy 后缀
// 属性之间可用 And 连接，属性可带 Asc/Desc 后缀
func parseOrderBy(s string) ([]orderItem, error) {
	if s == "" {
		return nil, fmt.Errorf("OrderBy 后缀缺少排序属性")
	}
	var orders []orderItem
	for _, part := range strings.Split(s, "And") {
		if part == "" {
			return nil, fmt.Errorf("OrderBy 含空的排序属性")
		}
		item := orderItem{}
		switch {
		case strings.HasSuffix(part, "Desc"):
			item.Desc = true
			part = strings.TrimSuffix(part, "Desc")
		case strings.HasSuffix(part, "Asc"):
			part = strings.TrimSuffix(part, "Asc")
		}
		if part == "" {
			return nil, fmt.Errorf("OrderBy 含空的排序属性")
		}
		item.Column = utils.ToSnakeCase(part)
		orders = append(orders, item)
	}
	return orders, nil
}

// sqlFor 渲染单个条件的 SQL 片段
func (c condition) sqlFor() string {
	col := c.Column
	placeholder := "?"
	if c.IgnoreCase {
		col = "LOWER(" + col + ")"
		placeholder = "LOWER(?)"
	}
	switch c.Op {
	case opNot:
		return col + " <> " + placeholder
	case opLike, opContaining, opStartingWith, opEndingWith:
		return col + " LIKE " + placeholder
	case opNotLike:
		return col + " NOT LIKE " + placeholder
	case opIn:
		return col + " IN ?"
	case opNotIn:
		return col + " NOT IN ?"
	case opGreaterThan:
		return col + " > " + placeholder
	case opGreaterThanEqual:
		return col + " >= " + placeholder
	case opLessThan:
		return col + " < " + placeholder
	case opLessThanEqual:
		return col + " <= " + placeholder
	case opBetween:
		return col + " BETWEEN " + placeholder + " AND " + placeholder
	case opTrue:
		return col + " = TRUE"
	case opFalse:
		return col + " = FALSE"
	case opIsNull:
		return col + " IS NULL"
	case opIsNotNull:
		return col + " IS NOT NULL"
	default:
		return col + " = " + placeholder
	}
}

// whereSQL 渲染完整 WHERE 表达式，AND 组以 OR 相连
func (q *derivedQuery) whereSQL() string {
	groupSQL := lo.Map(q.Groups, func(group []condition, _ int) string {
		parts := lo.Map(group, func(c condition, _ int) string {
			return c.sqlFor()
		})
		return strings.Join(parts, " AND ")
	})
	if len(groupSQL) == 1 {
		return groupSQL[0]
	}
	wrapped := lo.Map(groupSQL, func(s string, _ int) string {
		return "(" + s + ")"
	})
	return strings.Join(wrapped, " OR ")
}

// orderSQL 渲染 ORDER BY 子句内容
func (q *derivedQuery) orderSQL() string {
	parts := lo.Map(q.Orders, func(o orderItem, _ int) string {
		if o.Desc {
			return o.Column + " DESC"
		}
		return o.Column + " ASC"
	})
	return strings.Join(parts, ", ")
}

// bindableCount 全部条件消耗的绑定参数个数
func (q *derivedQuery) bindableCount() int {
	total := 0
	for _, group := range q.Groups {
		for _, c := range group {
			total += c.Op.paramCount()
		}
	}
	return total
}
