package crawler

import (
	"reflect"
	"testing"
)

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases scheme and host",
			in:   "HTTPS://WWW.Yad2.co.il/item/abc",
			want: "https://www.yad2.co.il/item/abc",
		},
		{
			name: "strips fragment",
			in:   "https://www.yad2.co.il/item/abc#gallery",
			want: "https://www.yad2.co.il/item/abc",
		},
		{
			name: "strips default https port",
			in:   "https://www.yad2.co.il:443/item/abc",
			want: "https://www.yad2.co.il/item/abc",
		},
		{
			name: "sorts query parameters",
			in:   "https://example.com/search?z=1&a=2",
			want: "https://example.com/search?a=2&z=1",
		},
		{
			name: "trims trailing slash",
			in:   "https://example.com/item/abc/",
			want: "https://example.com/item/abc",
		},
		{
			name: "keeps root slash",
			in:   "https://example.com/",
			want: "https://example.com/",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalizeURL(tt.in); got != tt.want {
				t.Errorf("CanonicalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFilterKeepsFirstOccurrenceOrder(t *testing.T) {
	d := NewDeduplicator(4)

	in := []string{
		"https://www.yad2.co.il/item/a",
		"https://www.yad2.co.il/item/b",
		"https://www.yad2.co.il/item/a#photos",
		"https://www.yad2.co.il/item/c",
		"https://www.yad2.co.il/item/b/",
	}
	want := []string{
		"https://www.yad2.co.il/item/a",
		"https://www.yad2.co.il/item/b",
		"https://www.yad2.co.il/item/c",
	}

	got := d.Filter(in)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Filter() = %v, want %v", got, want)
	}
	if d.Count() != 3 {
		t.Errorf("Count() = %d, want 3", d.Count())
	}
}

func TestFilterIdempotent(t *testing.T) {
	d := NewDeduplicator(2)

	first := d.Filter([]string{"https://example.com/item/a", "https://example.com/item/b"})
	second := d.Filter(first)
	if len(second) != 0 {
		t.Errorf("refiltering already-seen URLs returned %v", second)
	}
	if !d.Seen("https://example.com/item/a#x") {
		t.Error("Seen() should match canonical form")
	}
}

func TestSubstitutePage(t *testing.T) {
	tests := []struct {
		in   string
		page int
		want string
	}{
		{"https://example.com/cars?page=1&year=2019", 3, "https://example.com/cars?page=3&year=2019"},
		{"https://example.com/cars?page=12", 1, "https://example.com/cars?page=1"},
		{"https://example.com/cars?year=2019", 2, "https://example.com/cars?year=2019&page=2"},
		{"https://example.com/cars", 2, "https://example.com/cars?page=2"},
	}
	for _, tt := range tests {
		if got := SubstitutePage(tt.in, tt.page); got != tt.want {
			t.Errorf("SubstitutePage(%q, %d) = %q, want %q", tt.in, tt.page, got, tt.want)
		}
	}
}
