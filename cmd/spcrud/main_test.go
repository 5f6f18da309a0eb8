package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectItemLookupArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"spcrud"},
			want: []string{"spcrud"},
		},
		{
			name: "direct item id first token",
			in:   []string{"spcrud", "5"},
			want: []string{"spcrud", "items", "get", "5"},
		},
		{
			name: "direct item id after value flag",
			in:   []string{"spcrud", "--list", "Tasks", "5"},
			want: []string{"spcrud", "--list", "Tasks", "items", "get", "5"},
		},
		{
			name: "direct item id after equals flag",
			in:   []string{"spcrud", "--site=http://127.0.0.1:8787", "5"},
			want: []string{"spcrud", "--site=http://127.0.0.1:8787", "items", "get", "5"},
		},
		{
			name: "direct item id after bool flag",
			in:   []string{"spcrud", "--pretty", "5"},
			want: []string{"spcrud", "--pretty", "items", "get", "5"},
		},
		{
			name: "numeric flag value is not an id",
			in:   []string{"spcrud", "--list", "2024", "items", "list"},
			want: []string{"spcrud", "--list", "2024", "items", "list"},
		},
		{
			name: "normal subcommand not rewritten",
			in:   []string{"spcrud", "items", "get", "5"},
			want: []string{"spcrud", "items", "get", "5"},
		},
		{
			name: "zero is not an id",
			in:   []string{"spcrud", "0"},
			want: []string{"spcrud", "0"},
		},
		{
			name: "after double dash not rewritten",
			in:   []string{"spcrud", "--", "5"},
			want: []string{"spcrud", "--", "5"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectItemLookupArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteDirectItemLookupArgs:\n got: %#v\nwant: %#v", got, tt.want)
			}
		})
	}
}
