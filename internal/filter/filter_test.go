package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/mvrefresh/pkg/core"
)

func view(schema, name string) core.ViewID {
	return core.ViewID{Schema: schema, Name: name}
}

func TestPolicy_Match(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		view core.ViewID
		want bool
	}{
		{name: "no filters", opts: Options{}, view: view("pub", "anything"), want: true},
		{name: "schema match", opts: Options{Schema: "pub"}, view: view("pub", "a"), want: true},
		{name: "schema mismatch", opts: Options{Schema: "pub"}, view: view("mart", "a"), want: false},
		{name: "schema is exact", opts: Options{Schema: "pub"}, view: view("public", "a"), want: false},
		{name: "include prefix", opts: Options{Include: "foo"}, view: view("pub", "foobar"), want: true},
		{name: "include end anchored", opts: Options{Include: "foo$"}, view: view("pub", "foobar"), want: false},
		{name: "include end anchored exact", opts: Options{Include: "foo$"}, view: view("pub", "foo"), want: true},
		{name: "include not substring", opts: Options{Include: "bar"}, view: view("pub", "foobar"), want: false},
		{name: "include alternation anchored", opts: Options{Include: "a|b"}, view: view("pub", "xb"), want: false},
		{name: "include alternation second branch", opts: Options{Include: "a|b"}, view: view("pub", "bx"), want: true},
		{name: "include regex", opts: Options{Include: `sales_\d+`}, view: view("pub", "sales_2024_q1"), want: true},
		{name: "exclude prefix", opts: Options{Exclude: "tmp"}, view: view("pub", "tmp_orders"), want: false},
		{name: "exclude no match", opts: Options{Exclude: "tmp"}, view: view("pub", "orders_tmp"), want: true},
		{name: "exclude wins over include", opts: Options{Include: "orders", Exclude: "orders_old"}, view: view("pub", "orders_old"), want: false},
		{name: "exclude wins over schema", opts: Options{Schema: "pub", Exclude: "a"}, view: view("pub", "a"), want: false},
		{name: "all filters pass", opts: Options{Schema: "pub", Include: "o", Exclude: "x"}, view: view("pub", "orders"), want: true},
		{name: "patterns ignore schema", opts: Options{Include: "pub"}, view: view("pub", "orders"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Match(tt.view))
		})
	}
}

func TestNew_InvalidPattern(t *testing.T) {
	tests := []struct {
		name   string
		opts   Options
		errMsg string
	}{
		{name: "bad include", opts: Options{Include: "(unclosed"}, errMsg: "invalid include pattern"},
		{name: "bad exclude", opts: Options{Exclude: "[a-"}, errMsg: "invalid exclude pattern"},
		{name: "group escape attempt", opts: Options{Include: "a)|(b"}, errMsg: "invalid include pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestPolicy_ApplyPreservesOrder(t *testing.T) {
	order := []core.ViewID{
		view("pub", "a"),
		view("mart", "m1"),
		view("pub", "c"),
		view("pub", "b"),
		view("mart", "m2"),
	}

	p, err := New(Options{Schema: "pub", Exclude: "c"})
	require.NoError(t, err)

	got := p.Apply(order)
	assert.Equal(t, []core.ViewID{view("pub", "a"), view("pub", "b")}, got)

	// input is untouched
	assert.Len(t, order, 5)
}

func TestPolicy_ApplyEmpty(t *testing.T) {
	p, err := New(Options{})
	require.NoError(t, err)
	assert.Empty(t, p.Apply(nil))
}
