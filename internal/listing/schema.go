package listing

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// recordSchema describes the wire format the crawler child writes on its
// stdout: a JSON array of listing objects carrying the full fixed field
// set, null-filled where unknown. The supervisor validates the payload
// against this schema before decoding, so a truncated or garbled stream
// is surfaced as a decode failure instead of a half-parsed record set.
const recordSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": [
      "listing_id", "title", "price", "upload_date", "scrape_date",
      "year_summary", "owner_count", "mileage", "color", "ownership",
      "test_date", "previous_ownership", "transmission", "on_road_date",
      "fuel_type", "body_type", "seats", "horsepower", "engine_volume",
      "fuel_consumption", "drive_type", "drive_system", "url"
    ],
    "properties": {
      "listing_id":         {"type": ["string", "null"]},
      "title":              {"type": ["string", "null"]},
      "price":              {"type": ["string", "null"]},
      "upload_date":        {"type": ["string", "null"]},
      "scrape_date":        {"type": ["string", "null"]},
      "year_summary":       {"type": ["string", "null"]},
      "owner_count":        {"type": ["string", "null"]},
      "mileage":            {"type": ["string", "null"]},
      "color":              {"type": ["string", "null"]},
      "ownership":          {"type": ["string", "null"]},
      "test_date":          {"type": ["string", "null"]},
      "previous_ownership": {"type": ["string", "null"]},
      "transmission":       {"type": ["string", "null"]},
      "on_road_date":       {"type": ["string", "null"]},
      "fuel_type":          {"type": ["string", "null"]},
      "body_type":          {"type": ["string", "null"]},
      "seats":              {"type": ["string", "null"]},
      "horsepower":         {"type": ["string", "null"]},
      "engine_volume":      {"type": ["string", "null"]},
      "fuel_consumption":   {"type": ["string", "null"]},
      "drive_type":         {"type": ["string", "null"]},
      "drive_system":       {"type": ["string", "null"]},
      "url":                {"type": "string"}
    }
  }
}`

// CompileSchema compiles the record-set wire schema.
func CompileSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("records.json", strings.NewReader(recordSchema)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile("records.json")
	if err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}
	return schema, nil
}
