package builtins

import "testing"

func TestIsBuiltinSymbol(t *testing.T) {
	cases := []struct {
		fqn  string
		want bool
	}{
		{"Exception", true},
		{`\Exception`, true},
		{"strlen", true},
		{"STRLEN", true},
		{"array_map", true},
		{"str_replace", true},
		{`App\Foo`, false},
		{"greet", false},
	}
	for _, c := range cases {
		if got := IsBuiltinSymbol(c.fqn); got != c.want {
			t.Errorf("IsBuiltinSymbol(%q) = %v, want %v", c.fqn, got, c.want)
		}
	}
}

func TestFileOfBuiltinFunction(t *testing.T) {
	path, ok := FileOfBuiltinFunction("strlen")
	if ok || path != "" {
		t.Errorf("FileOfBuiltinFunction(\"strlen\") = (%q, %v), want (\"\", false)", path, ok)
	}
}
