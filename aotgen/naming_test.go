package aotgen

import (
	"testing"
)

func TestVariableNameFactory(t *testing.T) {
	f := NewVariableNameFactory("ctx", "email")

	// 未保留的名称原样返回
	if got := f.Generate("db"); got != "db" {
		t.Errorf("expected db, got %s", got)
	}
	// 与参数名冲突时追加 _N
	if got := f.Generate("ctx"); got != "ctx_1" {
		t.Errorf("expected ctx_1, got %s", got)
	}
	if got := f.Generate("ctx"); got != "ctx_2" {
		t.Errorf("expected ctx_2, got %s", got)
	}
	// 已分配的名称同样被保留
	if got := f.Generate("db"); got != "db_1" {
		t.Errorf("expected db_1, got %s", got)
	}
}

func TestVariableNameFactory_Deterministic(t *testing.T) {
	// 相同的请求序列必须得到相同的结果
	run := func() []string {
		f := NewVariableNameFactory("id")
		return []string{
			f.Generate("result"),
			f.Generate("id"),
			f.Generate("result"),
		}
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("run mismatch at %d: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestLazy(t *testing.T) {
	calls := 0
	l := NewLazy(func() int {
		calls++
		return 42
	})
	if l.Get() != 42 || l.Get() != 42 {
		t.Error("unexpected lazy value")
	}
	if calls != 1 {
		t.Errorf("expected exactly one computation, got %d", calls)
	}
}
