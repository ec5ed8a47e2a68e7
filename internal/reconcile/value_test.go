package reconcile

import "testing"

func TestValue_Accessors(t *testing.T) {
	v, err := Parse(`{"n": 7, "s": "7", "zero": 0, "t": "true", "list": ["a", "", 3], "one": "solo"}`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := v.Get("n").IntOr(1); got != 7 {
		t.Errorf("IntOr(number) = %d", got)
	}
	if got := v.Get("s").IntOr(1); got != 7 {
		t.Errorf("IntOr(numeric string) = %d", got)
	}
	if got := v.Get("zero").IntOr(10); got != 10 {
		t.Errorf("IntOr(zero) = %d, want default", got)
	}
	if !v.Get("t").Truthy() {
		t.Error(`Truthy("true") should be true`)
	}
	if got := v.Get("list").Strings(); len(got) != 2 || got[1] != "3" {
		t.Errorf("Strings() = %v", got)
	}
	if got := v.Get("one").Strings(); len(got) != 1 {
		t.Errorf("Strings(single) = %v", got)
	}
	if got := v.Get("missing").Get("deeper").StringOr("def"); got != "def" {
		t.Errorf("nested missing = %q", got)
	}
	if _, ok := v.Get("n").Items(); ok {
		t.Error("Items() on a number should fail")
	}
}
