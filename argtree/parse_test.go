//nolint:testpackage // using package name 'argtree' to access unexported fields for testing
package argtree

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// parseErr parses args and returns the error text, or "" on success.
func parseErr(t *testing.T, root *Root, args ...string) string {
	t.Helper()
	if err := root.Parse(args); err != nil {
		return err.Error()
	}
	return ""
}

func TestFlagsAndArgs(t *testing.T) {
	type result struct {
		Verbose bool
		Name    string
		Port    int
	}
	var got result
	root := MustNew(
		Flag(LongName("verbose"), ShortName("v")),
		Arg[string](LongName("name"), DefaultValue("anon")),
		Arg[int](LongName("port"), ShortName("p"), DefaultValue(8080)),
		Router(func(verbose bool, name string, port int) {
			got = result{verbose, name, port}
		}),
	)

	tests := []struct {
		name string
		args []string
		want result
	}{
		{"defaults", []string{}, result{false, "anon", 8080}},
		{"long names", []string{"--verbose", "--name", "bob", "--port", "1"}, result{true, "bob", 1}},
		{"short names any order", []string{"-p", "0x10", "-v"}, result{true, "anon", 16}},
		{"negative value", []string{"--port", "-1"}, result{false, "anon", -1}},
		{"value looks like flag", []string{"--name", "--verbose"}, result{false, "--verbose", 8080}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = result{}
			if err := root.Parse(tt.args); err != nil {
				t.Fatalf("Parse(%v): %v", tt.args, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("routed values mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	root := MustNew(
		Flag(LongName("verbose")),
		Arg[int](LongName("port"), Required()),
		Arg[int8](LongName("small"), DefaultValue(int8(0))),
		Router(func(bool, int, int8) {}),
	)

	tests := []struct {
		name string
		args []string
		want string
		kind ErrorKind
	}{
		{"missing required", nil, "Missing required argument: --port", KindMissingRequiredArgument},
		{"set twice", []string{"--port", "1", "--verbose", "--verbose"}, "Argument has already been set: --verbose", KindArgumentAlreadySet},
		{"bad value", []string{"--port", "one"}, "Failed to parse: one", KindFailedToParse},
		{"out of range", []string{"--port", "1", "--small", "300"}, "Value out of range for argument: 300", KindValueOutOfRange},
		{"missing value", []string{"--port"}, "Minimum count not reached: --port", KindMinimumCountNotReached},
		{"unhandled", []string{"--port", "1", "--verbose", "--small", "2", "extra"}, "Unhandled arguments: extra", KindUnhandledArguments},
		{"unhandled lists all", []string{"--verbose", "--small", "2", "--port", "1", "a", "b"}, "Unhandled arguments: a, b", KindUnhandledArguments},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := root.Parse(tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tt.want {
				t.Errorf("error = %q, want %q", err.Error(), tt.want)
			}
			if !errors.Is(err, &ParseError{Kind: tt.kind}) {
				t.Errorf("errors.Is kind %s failed for %v", tt.kind, err)
			}
		})
	}
}

func TestUnknownArgumentSuggestion(t *testing.T) {
	root := MustNew(
		Flag(LongName("flag1")),
		CountingFlag(LongName("count")),
		Router(func(bool, int) {}),
	)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--foo2"}, "Unknown argument: --foo2. Did you mean --flag1?"},
		{[]string{"--cont"}, "Unknown argument: --cont. Did you mean --count?"},
		{[]string{"--flag1", "--flga1"}, "Unknown argument: --flga1. Did you mean --flag1?"},
	}
	for _, tt := range tests {
		t.Run(tt.args[len(tt.args)-1], func(t *testing.T) {
			if got := parseErr(t, root, tt.args...); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	kind, ok := KindOf(root.Parse([]string{"--foo2"}))
	if !ok || kind != KindUnknownArgumentWithSuggestion {
		t.Errorf("KindOf = %v %v", kind, ok)
	}
}

func TestUnknownArgumentWithoutCandidates(t *testing.T) {
	root := MustNew(
		PositionalList[string](),
		Router(func([]string) {}),
	)
	if got := parseErr(t, root, "--what"); got != "Unknown argument: --what" {
		t.Errorf("got %q", got)
	}
}

func TestShortFormExpansion(t *testing.T) {
	type result struct {
		A, B, C bool
		V       int
	}
	var got result
	// expansion is independent of declaration order
	root := MustNew(
		Flag(ShortName("c"), ShortFormExpander()),
		CountingFlag(ShortName("v"), ShortFormExpander()),
		Flag(ShortName("a"), ShortFormExpander()),
		Flag(ShortName("b"), ShortFormExpander()),
		Router(func(c bool, v int, a, b bool) { got = result{a, b, c, v} }),
	)

	tests := []struct {
		args []string
		want result
	}{
		{[]string{"-abc"}, result{true, true, true, 0}},
		{[]string{"-cab"}, result{true, true, true, 0}},
		{[]string{"-vvv"}, result{V: 3}},
		{[]string{"-av", "-v", "-bv"}, result{A: true, B: true, V: 3}},
		{[]string{"-a", "-b"}, result{A: true, B: true}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.args), func(t *testing.T) {
			got = result{}
			if err := root.Parse(tt.args); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if got := parseErr(t, root, "-aa"); got != "Argument has already been set: -a" {
		t.Errorf("got %q", got)
	}
}

func TestCountingFlagMaxCount(t *testing.T) {
	var got int
	root := MustNew(
		CountingFlag(ShortName("v"), MaxCount(2), ShortFormExpander()),
		Router(func(v int) { got = v }),
	)
	if err := root.Parse([]string{"-vv"}); err != nil || got != 2 {
		t.Fatalf("got %d, %v", got, err)
	}
	if got := parseErr(t, root, "-vvv"); got != "Maximum count exceeded: -v" {
		t.Errorf("got %q", got)
	}
}

func TestAlias(t *testing.T) {
	type result struct{ F1, F2, F3 bool }
	var got result
	root := MustNew(
		Flag(LongName("flag1")),
		Flag(LongName("flag2")),
		Flag(LongName("flag3")),
		Flag(ShortName("a"), Alias("--flag1", "--flag3")),
		Router(func(f1, f2, f3 bool) { got = result{f1, f2, f3} }),
	)

	if err := root.Parse([]string{"-a"}); err != nil {
		t.Fatal(err)
	}
	aliased := got

	got = result{}
	if err := root.Parse([]string{"--flag1", "--flag3"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(got, aliased); diff != "" {
		t.Errorf("alias differs from direct use (-direct +alias):\n%s", diff)
	}
	if aliased != (result{true, false, true}) {
		t.Errorf("got %+v", aliased)
	}

	if got := parseErr(t, root, "-a", "--flag3"); got != "Argument has already been set: --flag3" {
		t.Errorf("got %q", got)
	}
}

func TestAliasWithValues(t *testing.T) {
	var a, b int
	root := MustNew(
		Arg[int](LongName("left"), DefaultValue(0)),
		Arg[int](LongName("right"), DefaultValue(0)),
		Arg[int](ShortName("b"), Alias("--left", "--right")),
		Flag(LongName("x"), Alias("-y")),
		Flag(ShortName("y")),
		Router(func(l, r int, y bool) { a, b = l, r }),
	)

	if err := root.Parse([]string{"-b", "7"}); err != nil {
		t.Fatal(err)
	}
	if a != 7 || b != 7 {
		t.Errorf("got %d %d", a, b)
	}
	if got := parseErr(t, root, "-b"); got != "Too few values for alias: -b" {
		t.Errorf("got %q", got)
	}
}

func TestSharedOptionsAcrossModes(t *testing.T) {
	all := Alias("--force")
	needsInput := Dependent("--input")

	var route string
	var force, verbose bool
	mode := func(name string) *Node {
		return Mode(NoneName(name),
			Flag(LongName("force")),
			Flag(ShortName("a"), all),
			Arg[string](LongName("input"), DefaultValue("")),
			Flag(LongName("verbose"), needsInput),
			Router(func(f bool, _ string, v bool) { route, force, verbose = name, f, v }),
		)
	}
	root := MustNew(mode("copy"), mode("move"))

	for _, name := range []string{"copy", "move"} {
		t.Run(name, func(t *testing.T) {
			route, force, verbose = "", false, false
			if err := root.Parse([]string{name, "-a", "--input", "x", "--verbose"}); err != nil {
				t.Fatal(err)
			}
			if route != name || !force || !verbose {
				t.Errorf("got %s %v %v", route, force, verbose)
			}
		})
	}
}

func TestNestedAlias(t *testing.T) {
	var got [2]bool
	root := MustNew(
		Flag(LongName("one")),
		Flag(LongName("two")),
		Flag(ShortName("t"), Alias("--two")),
		Flag(LongName("all"), Alias("--one", "-t")),
		Router(func(one, two bool) { got = [2]bool{one, two} }),
	)
	if err := root.Parse([]string{"--all"}); err != nil {
		t.Fatal(err)
	}
	if got != [2]bool{true, true} {
		t.Errorf("got %v", got)
	}
}

func TestOneOf(t *testing.T) {
	var got Variant
	root := MustNew(
		OneOf(
			Required(),
			Flag(ShortName("f")),
			Arg[int](LongName("arg2")),
			Arg[string](LongName("arg3")),
		),
		Router(func(v Variant) { got = v }),
	)

	tests := []struct {
		args []string
		want Variant
	}{
		{[]string{"-f"}, Variant{0, true}},
		{[]string{"--arg2", "5"}, Variant{1, 5}},
		{[]string{"--arg3", "x"}, Variant{2, "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			got = Variant{}
			if err := root.Parse(tt.args); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	errs := []struct {
		args []string
		want string
	}{
		{nil, "Missing required argument: One of: -f,--arg2,--arg3"},
		{[]string{"-f", "--arg2", "3"}, `Only one argument from a "One Of" can be used at once: --arg2`},
		{[]string{"-f", "-f"}, "Argument has already been set: -f"},
	}
	for _, tt := range errs {
		if got := parseErr(t, root, tt.args...); got != tt.want {
			t.Errorf("Parse(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestOneOfSameTypeAndDefault(t *testing.T) {
	var got string
	root := MustNew(
		OneOf(
			DefaultValue("none"),
			Arg[string](LongName("name")),
			Arg[string](LongName("id")),
		),
		Router(func(s string) { got = s }),
	)
	if err := root.Parse(nil); err != nil || got != "none" {
		t.Fatalf("got %q, %v", got, err)
	}
	if err := root.Parse([]string{"--id", "42"}); err != nil || got != "42" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestAliasGroup(t *testing.T) {
	var got int
	root := MustNew(
		AliasGroup(
			DefaultValue(0),
			Arg[int](LongName("size")),
			Arg[int](ShortName("s")),
		),
		Router(func(n int) { got = n }),
	)
	if err := root.Parse([]string{"-s", "3"}); err != nil || got != 3 {
		t.Fatalf("got %d, %v", got, err)
	}
	if got := parseErr(t, root, "-s", "3", "--size", "4"); got != "Argument has already been set: --size" {
		t.Errorf("got %q", got)
	}
}

func TestCountingFlagsInGroups(t *testing.T) {
	var count int
	aliased := MustNew(
		AliasGroup(
			DefaultValue(0),
			CountingFlag(ShortName("v"), ShortFormExpander()),
			CountingFlag(LongName("verbose"), MaxCount(3)),
		),
		Router(func(n int) { count = n }),
	)

	tests := []struct {
		args []string
		want int
	}{
		{nil, 0},
		{[]string{"-v"}, 1},
		{[]string{"-vv"}, 2},
		{[]string{"-v", "--verbose", "-v"}, 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.args), func(t *testing.T) {
			count = -1
			if err := aliased.Parse(tt.args); err != nil {
				t.Fatal(err)
			}
			if count != tt.want {
				t.Errorf("count = %d, want %d", count, tt.want)
			}
		})
	}
	if got := parseErr(t, aliased, "-vv", "--verbose", "--verbose"); got != "Maximum count exceeded: --verbose" {
		t.Errorf("got %q", got)
	}

	var got Variant
	oneOf := MustNew(
		OneOf(
			Required(),
			CountingFlag(ShortName("v"), ShortFormExpander()),
			Arg[string](LongName("name")),
		),
		Router(func(v Variant) { got = v }),
	)
	if err := oneOf.Parse([]string{"-vvv"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Variant{Index: 0, Value: 3}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if got := parseErr(t, oneOf, "-v", "--name", "x"); got != `Only one argument from a "One Of" can be used at once: --name` {
		t.Errorf("got %q", got)
	}
}

func TestValueSeparator(t *testing.T) {
	var got int
	var name string
	root := MustNew(
		Arg[int](LongName("num"), ShortName("n"), ValueSeparator("=")),
		Arg[string](LongName("name"), ValueSeparator(":"), DefaultValue("")),
		Router(func(n int, s string) { got, name = n, s }),
	)

	tests := []struct {
		args []string
		num  int
		name string
	}{
		{[]string{"--num=42"}, 42, ""},
		{[]string{"-n=7"}, 7, ""},
		{[]string{"--num", "3"}, 3, ""},
		{[]string{"--num=1", "--name:a=b"}, 1, "a=b"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.args), func(t *testing.T) {
			if err := root.Parse(tt.args); err != nil {
				t.Fatal(err)
			}
			if got != tt.num || name != tt.name {
				t.Errorf("got %d %q", got, name)
			}
		})
	}

	if got := parseErr(t, root, "--num="); got != "Unable to find value after separator: --num=" {
		t.Errorf("got %q", got)
	}
}

func TestRuntimeEnable(t *testing.T) {
	var hidden bool
	var token string
	build := func(enabled bool) *Root {
		return MustNew(
			Flag(LongName("hidden"), RuntimeEnable(enabled)),
			Arg[string](LongName("token"), RuntimeEnableRequired(enabled, "none")),
			Router(func(h bool, tok string) { hidden, token = h, tok }),
		)
	}

	on := build(true)
	if err := on.Parse([]string{"--hidden", "--token", "t"}); err != nil {
		t.Fatal(err)
	}
	if !hidden || token != "t" {
		t.Errorf("got %v %q", hidden, token)
	}
	if got := parseErr(t, on, "--hidden"); got != "Missing required argument: --token" {
		t.Errorf("got %q", got)
	}

	off := build(false)
	if err := off.Parse(nil); err != nil {
		t.Fatal(err)
	}
	if hidden || token != "none" {
		t.Errorf("got %v %q", hidden, token)
	}
	if got := parseErr(t, off, "--hidden"); got != "Unknown argument: --hidden" {
		t.Errorf("disabled node should not match or be suggested, got %q", got)
	}
}

func TestDependent(t *testing.T) {
	root := MustNew(
		Arg[string](LongName("input"), DefaultValue("")),
		Flag(LongName("verbose"), Dependent("--input")),
		Router(func(string, bool) {}),
	)
	if err := root.Parse([]string{"--input", "x", "--verbose"}); err != nil {
		t.Fatal(err)
	}
	want := "Dependent argument missing (needs to be before the requiring token on the command line): --verbose"
	if got := parseErr(t, root, "--verbose", "--input", "x"); got != want {
		t.Errorf("got %q", got)
	}
}

func TestTokenEndMarker(t *testing.T) {
	var files []string
	var force bool
	root := MustNew(
		MultiArg[string](LongName("files"), TokenEndMarker("--"), DefaultValue([]string{})),
		Flag(LongName("force")),
		Router(func(f []string, fo bool) { files, force = f, fo }),
	)

	if err := root.Parse([]string{"--files", "a", "--force", "--", "--force"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "--force"}, files); diff != "" || !force {
		t.Errorf("files mismatch (-want +got):\n%s force=%v", diff, force)
	}
	if got := parseErr(t, root, "--files", "a"); got != "Token end marker missing: --files" {
		t.Errorf("got %q", got)
	}
	if got := parseErr(t, root, "--files", "--"); got != "Minimum count not reached: --files" {
		t.Errorf("got %q", got)
	}
}

func TestMultiArgStopsAtLabels(t *testing.T) {
	var nums []int
	var verbose bool
	root := MustNew(
		MultiArg[int](LongName("nums"), MinMaxCount(1, 3)),
		Flag(LongName("verbose")),
		PositionalList[string](DisplayName("rest")),
		Router(func(n []int, v bool, rest []string) { nums, verbose = n, v }),
	)
	if err := root.Parse([]string{"--nums", "-1", "2", "--verbose"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{-1, 2}, nums); diff != "" || !verbose {
		t.Errorf("mismatch (-want +got):\n%s verbose=%v", diff, verbose)
	}

	if err := root.Parse([]string{"--nums", "1", "2", "3", "4"}); err != nil {
		t.Fatal(err)
	}
	if len(nums) != 3 {
		t.Errorf("max count ignored: %v", nums)
	}
}

func TestForwardingArg(t *testing.T) {
	var fwd []string
	var dry bool
	root := MustNew(
		Flag(LongName("dry-run")),
		ForwardingArg(NoneName("--")),
		Router(func(d bool, rest []string) { dry, fwd = d, rest }),
	)

	if err := root.Parse([]string{"--dry-run", "--", "-x", "--dry-run", "y"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"-x", "--dry-run", "y"}, fwd); diff != "" || !dry {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if err := root.Parse(nil); err != nil {
		t.Fatal(err)
	}
	if fwd == nil || len(fwd) != 0 {
		t.Errorf("expected empty slice, got %#v", fwd)
	}
}

func TestPositionals(t *testing.T) {
	var src string
	var dsts []string
	var force bool
	root := MustNew(
		Flag(LongName("force")),
		PositionalArg[string](DisplayName("source")),
		PositionalList[string](DisplayName("dest"), MinCount(1)),
		Router(func(f bool, s string, d []string) { force, src, dsts = f, s, d }),
	)

	if err := root.Parse([]string{"a", "--force", "b", "c"}); err != nil {
		t.Fatal(err)
	}
	if src != "a" || !force {
		t.Errorf("got %q %v", src, force)
	}
	if diff := cmp.Diff([]string{"b", "c"}, dsts); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if got := parseErr(t, root, "a"); got != "Missing required argument: dest" {
		t.Errorf("got %q", got)
	}
}

func TestValidators(t *testing.T) {
	root := MustNew(
		Arg[int](LongName("port"), MinMaxValue(1, 65535), DefaultValue(80)),
		Arg[string](LongName("level"), AllowedValues("debug", "info"), DefaultValue("info")),
		Arg[string](LongName("id"), MatchRegex(`^[a-z]+$`), DefaultValue("x")),
		MultiArg[int](LongName("weights"), MaxValue(10), DefaultValue([]int{})),
		Arg[int](LongName("even"), DefaultValue(0), Validate(func(v int) error {
			if v%2 != 0 {
				return errors.New("must be even")
			}
			return nil
		})),
		Router(func(int, string, string, []int, int) {}),
	)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--port", "0"}, "Minimum value not reached: --port"},
		{[]string{"--port", "70000"}, "Maximum value exceeded: --port"},
		{[]string{"--level", "trace"}, "Validation failed: --level (value must be one of: [debug info])"},
		{[]string{"--id", "ABC"}, `Validation failed: --id (value "ABC" does not match pattern ^[a-z]+$)`},
		{[]string{"--weights", "1", "11"}, "Maximum value exceeded: --weights"},
		{[]string{"--even", "3"}, "Validation failed: --even (must be even)"},
		{[]string{"--port", "443", "--level", "debug", "--id", "abc", "--weights", "1", "10", "--even", "4"}, ""},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.args), func(t *testing.T) {
			if got := parseErr(t, root, tt.args...); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCustomParser(t *testing.T) {
	var got []int
	root := MustNew(
		MultiArg[int](LongName("bits"), CustomParser(func(s string) (int, error) {
			v, err := strconv.ParseInt(s, 2, 64)
			return int(v), err
		})),
		Router(func(b []int) { got = b }),
	)
	if err := root.Parse([]string{"--bits", "101", "11"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{5, 3}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestModes(t *testing.T) {
	var route string
	var force bool
	var paths []string
	root := MustNew(
		Mode(NoneName("copy"),
			Flag(LongName("force")),
			PositionalList[string](DisplayName("paths"), MinCount(2)),
			Router(func(f bool, p []string) { route, force, paths = "copy", f, p }),
		),
		Mode(NoneName("remote"),
			Mode(NoneName("add"),
				PositionalArg[string](DisplayName("name")),
				Router(func(name string) { route, paths = "remote add", []string{name} }),
			),
			Mode(NoneName("remove"),
				PositionalArg[string](DisplayName("name")),
				Router(func(name string) { route, paths = "remote remove", []string{name} }),
			),
		),
	)

	if err := root.Parse([]string{"copy", "--force", "a", "b"}); err != nil {
		t.Fatal(err)
	}
	if route != "copy" || !force || !cmp.Equal([]string{"a", "b"}, paths) {
		t.Errorf("got %s %v %v", route, force, paths)
	}

	if err := root.Parse([]string{"remote", "add", "origin"}); err != nil {
		t.Fatal(err)
	}
	if route != "remote add" || !cmp.Equal([]string{"origin"}, paths) {
		t.Errorf("got %s %v", route, paths)
	}

	tests := []struct {
		args []string
		want string
	}{
		{nil, "No arguments passed"},
		{[]string{"remote"}, "Mode requires arguments: remote"},
		{[]string{"remote", "ad"}, "Unknown argument: ad. Did you mean add?"},
		{[]string{"--forc"}, "Unknown argument: --forc. Did you mean copy --force?"},
		{[]string{"copy", "--forc", "a", "b"}, "Unknown argument: --forc. Did you mean --force?"},
		{[]string{"copy", "a"}, "Minimum count not reached: paths"},
		{[]string{"remote", "add", "a", "b"}, "Unhandled arguments: b"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.args), func(t *testing.T) {
			if got := parseErr(t, root, tt.args...); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestModeWithRouterAndSubModes(t *testing.T) {
	var verbose bool
	root := MustNew(
		Flag(LongName("verbose")),
		Mode(NoneName("run"), Router(func() {})),
		Router(func(v bool) { verbose = v }),
	)

	if err := root.Parse([]string{"--verbose"}); err != nil || !verbose {
		t.Fatalf("got %v, %v", verbose, err)
	}
	if err := root.Parse([]string{"run"}); err != nil {
		t.Fatal(err)
	}
	if got := parseErr(t, root, "runn"); got != "Unknown argument: runn. Did you mean run?" {
		t.Errorf("got %q", got)
	}
	if got := parseErr(t, root, "--verbose", "x"); got != "Unhandled arguments: x" {
		t.Errorf("got %q", got)
	}
}

func TestConcurrentParse(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int]bool)
	root := MustNew(
		Arg[int](LongName("n")),
		CountingFlag(ShortName("v"), ShortFormExpander()),
		Router(func(n, v int) {
			mu.Lock()
			defer mu.Unlock()
			seen[n*10+v] = true
		}),
	)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := root.Parse([]string{"-vv", "--n", strconv.Itoa(i)}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	if len(seen) != 64 {
		t.Fatalf("routed %d distinct values, want 64", len(seen))
	}
	for i := 0; i < 64; i++ {
		if !seen[i*10+2] {
			t.Errorf("missing route for %d", i)
		}
	}
}

func TestLeftoverTokens(t *testing.T) {
	flags := MustNew(
		Flag(LongName("flag1")),
		Flag(LongName("flag2")),
		Flag(ShortName("t")),
		Router(func(_, _, _ bool) {}),
	)
	lists := MustNew(
		Flag(ShortName("f")),
		MultiArg[int](LongName("arg"), MinMaxCount(1, 3)),
		Router(func(bool, []int) {}),
	)
	modes := MustNew(
		Mode(NoneName("mode1"),
			Flag(LongName("flag1")),
			Flag(LongName("flag2")),
			Router(func(_, _ bool) {}),
		),
		Mode(NoneName("mode2"),
			Flag(LongName("flag1")),
			Flag(ShortName("b")),
			Router(func(_, _ bool) {}),
		),
	)

	tests := []struct {
		name string
		root *Root
		args []string
		want string
	}{
		{"all set", flags, []string{"--flag1", "--flag2", "-t", "--foo"}, "Unhandled arguments: --foo"},
		{"all set any order", flags, []string{"--flag2", "-t", "--flag1", "--foo"}, "Unhandled arguments: --foo"},
		{"unset flags remain", flags, []string{"--flag2", "--foo"}, "Unknown argument: --foo. Did you mean -t?"},
		{"value past max count", lists, []string{"--arg", "84", "42", "12", "4"}, "Unknown argument: 4. Did you mean -f?"},
		{"second mode name", modes, []string{"mode1", "mode2", "--flag1"}, "Unknown argument: mode2. Did you mean --flag2?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseErr(t, tt.root, tt.args...); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
