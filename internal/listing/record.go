package listing

import (
	"encoding/json"
)

// AttributeKeys is the fixed set of detail-page attributes every record
// exposes. A field missing from a listing's page is serialized as an
// explicit JSON null, never as a missing key, so every downstream consumer
// sees a uniform schema.
var AttributeKeys = []string{
	"mileage",
	"color",
	"ownership",
	"test_date",
	"previous_ownership",
	"transmission",
	"on_road_date",
	"fuel_type",
	"body_type",
	"seats",
	"horsepower",
	"engine_volume",
	"fuel_consumption",
	"drive_type",
	"drive_system",
}

// Record is one scraped car listing, raw as extracted from the page.
// All optional fields are pointers; nil marshals to JSON null.
type Record struct {
	ListingID   *string `json:"listing_id"`
	Title       *string `json:"title"`
	Price       *string `json:"price"`
	UploadDate  *string `json:"upload_date"`
	ScrapeDate  *string `json:"scrape_date"`
	YearSummary *string `json:"year_summary"`
	OwnerCount  *string `json:"owner_count"`

	Mileage           *string `json:"mileage"`
	Color             *string `json:"color"`
	Ownership         *string `json:"ownership"`
	TestDate          *string `json:"test_date"`
	PreviousOwnership *string `json:"previous_ownership"`
	Transmission      *string `json:"transmission"`
	OnRoadDate        *string `json:"on_road_date"`
	FuelType          *string `json:"fuel_type"`
	BodyType          *string `json:"body_type"`
	Seats             *string `json:"seats"`
	Horsepower        *string `json:"horsepower"`
	EngineVolume      *string `json:"engine_volume"`
	FuelConsumption   *string `json:"fuel_consumption"`
	DriveType         *string `json:"drive_type"`
	DriveSystem       *string `json:"drive_system"`

	URL string `json:"url"`
}

// SetAttr sets one of the fixed attribute fields by key. Unknown keys are
// ignored, mirroring how unrecognized page labels are dropped.
func (r *Record) SetAttr(key string, value *string) {
	switch key {
	case "mileage":
		r.Mileage = value
	case "color":
		r.Color = value
	case "ownership":
		r.Ownership = value
	case "test_date":
		r.TestDate = value
	case "previous_ownership":
		r.PreviousOwnership = value
	case "transmission":
		r.Transmission = value
	case "on_road_date":
		r.OnRoadDate = value
	case "fuel_type":
		r.FuelType = value
	case "body_type":
		r.BodyType = value
	case "seats":
		r.Seats = value
	case "horsepower":
		r.Horsepower = value
	case "engine_volume":
		r.EngineVolume = value
	case "fuel_consumption":
		r.FuelConsumption = value
	case "drive_type":
		r.DriveType = value
	case "drive_system":
		r.DriveSystem = value
	}
}

// Attr returns one of the fixed attribute fields by key.
func (r *Record) Attr(key string) *string {
	switch key {
	case "mileage":
		return r.Mileage
	case "color":
		return r.Color
	case "ownership":
		return r.Ownership
	case "test_date":
		return r.TestDate
	case "previous_ownership":
		return r.PreviousOwnership
	case "transmission":
		return r.Transmission
	case "on_road_date":
		return r.OnRoadDate
	case "fuel_type":
		return r.FuelType
	case "body_type":
		return r.BodyType
	case "seats":
		return r.Seats
	case "horsepower":
		return r.Horsepower
	case "engine_volume":
		return r.EngineVolume
	case "fuel_consumption":
		return r.FuelConsumption
	case "drive_type":
		return r.DriveType
	case "drive_system":
		return r.DriveSystem
	}
	return nil
}

// HasPrice reports whether a usable (non-empty) price was extracted.
// Listings without a price are unusable downstream and get discarded.
func (r *Record) HasPrice() bool {
	return r.Price != nil && *r.Price != ""
}

// Identity returns the dedup key for this record: the listing ID, or the
// source URL when the page exposed no ID.
func (r *Record) Identity() string {
	if r.ListingID != nil && *r.ListingID != "" {
		return *r.ListingID
	}
	return r.URL
}

// RecordSet is an ordered collection of listings. Pipeline stages return
// new sets; a set is never mutated in place once handed off.
type RecordSet []*Record

// Dedup returns a new RecordSet with duplicate identities removed, first
// occurrence wins. Running it twice yields the same result as once.
func (rs RecordSet) Dedup() RecordSet {
	seen := make(map[string]struct{}, len(rs))
	out := make(RecordSet, 0, len(rs))
	for _, r := range rs {
		id := r.Identity()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, r)
	}
	return out
}

// MarshalJSON is implemented on RecordSet so an empty set serializes as
// [] rather than null on the subprocess boundary.
func (rs RecordSet) MarshalJSON() ([]byte, error) {
	if rs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]*Record(rs))
}

// String helpers for building records.

// Str returns a pointer to s, for populating optional record fields.
func Str(s string) *string { return &s }
