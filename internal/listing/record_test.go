package listing

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRecordMarshalsExplicitNulls(t *testing.T) {
	rec := &Record{
		Title: Str("Toyota Corolla 2019"),
		Price: Str("89000"),
		URL:   "https://www.yad2.co.il/item/abc",
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}

	// Every attribute key must be present, null when unset.
	for _, key := range AttributeKeys {
		v, present := doc[key]
		if !present {
			t.Errorf("key %q missing from JSON output", key)
			continue
		}
		if v != nil {
			t.Errorf("unset key %q should be null, got %v", key, v)
		}
	}
	if doc["title"] != "Toyota Corolla 2019" {
		t.Errorf("title = %v", doc["title"])
	}
	if strings.Contains(string(data), "omitempty") {
		t.Error("unexpected tag leak")
	}
}

func TestRecordSetMarshalsEmptyAsArray(t *testing.T) {
	for _, rs := range []RecordSet{nil, {}} {
		data, err := json.Marshal(rs)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "[]" {
			t.Errorf("empty set = %s, want []", data)
		}
	}
}

func TestSetAttrAttrRoundTrip(t *testing.T) {
	rec := &Record{}
	for _, key := range AttributeKeys {
		rec.SetAttr(key, Str("v-"+key))
	}
	for _, key := range AttributeKeys {
		got := rec.Attr(key)
		if got == nil || *got != "v-"+key {
			t.Errorf("attr %q did not round-trip", key)
		}
	}

	rec.SetAttr("no_such_key", Str("x"))
	if rec.Attr("no_such_key") != nil {
		t.Error("unknown key should be ignored")
	}
}

func TestIdentityFallsBackToURL(t *testing.T) {
	withID := &Record{ListingID: Str("123"), URL: "https://x/item/a"}
	if withID.Identity() != "123" {
		t.Errorf("identity = %q", withID.Identity())
	}

	noID := &Record{URL: "https://x/item/a"}
	if noID.Identity() != "https://x/item/a" {
		t.Errorf("identity = %q", noID.Identity())
	}

	emptyID := &Record{ListingID: Str(""), URL: "https://x/item/a"}
	if emptyID.Identity() != "https://x/item/a" {
		t.Errorf("empty ID should fall back to URL, got %q", emptyID.Identity())
	}
}

func TestDedupFirstWinsAndIdempotent(t *testing.T) {
	a1 := &Record{ListingID: Str("1"), Price: Str("100"), URL: "https://x/item/a"}
	a2 := &Record{ListingID: Str("1"), Price: Str("200"), URL: "https://x/item/a2"}
	b := &Record{URL: "https://x/item/b"}

	rs := RecordSet{a1, a2, b}
	deduped := rs.Dedup()
	if len(deduped) != 2 {
		t.Fatalf("expected 2 records, got %d", len(deduped))
	}
	if deduped[0] != a1 {
		t.Error("first occurrence should win")
	}

	again := deduped.Dedup()
	if len(again) != len(deduped) {
		t.Error("dedup should be idempotent")
	}
}

func TestHasPrice(t *testing.T) {
	tests := []struct {
		price *string
		want  bool
	}{
		{Str("89000"), true},
		{Str(""), false},
		{nil, false},
	}
	for _, tt := range tests {
		rec := &Record{Price: tt.price}
		if rec.HasPrice() != tt.want {
			t.Errorf("HasPrice(%v) = %v", tt.price, rec.HasPrice())
		}
	}
}

func TestCompileSchemaValidates(t *testing.T) {
	schema, err := CompileSchema()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	valid := RecordSet{{Title: Str("x"), URL: "https://x/item/a"}}
	data, err := json.Marshal(valid)
	if err != nil {
		t.Fatal(err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatal(err)
	}
	if err := schema.Validate(generic); err != nil {
		t.Errorf("marshaled record should validate: %v", err)
	}

	var incomplete any
	if err := json.Unmarshal([]byte(`[{"url": "https://x"}]`), &incomplete); err != nil {
		t.Fatal(err)
	}
	if err := schema.Validate(incomplete); err == nil {
		t.Error("object missing required keys should fail validation")
	}
}
