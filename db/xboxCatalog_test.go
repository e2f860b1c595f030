package db

import (
	"errors"
	"strings"
	"testing"
)

const siglsPayload = `[
	{"description": "Game Pass catalog"},
	{"id": "9NBLGGH4TNMP"},
	{"id": "9P2N57MC619K"}
]`

const productsPayloadJson = `{
	"Products": [
		{
			"ProductId": "9NBLGGH4TNMP",
			"LocalizedProperties": [{
				"ProductTitle": "The Test Game",
				"ShortDescription": "A game for tests.",
				"DeveloperName": "Test Studio",
				"Images": [
					{"ImagePurpose": "Logo", "Uri": "//cdn.example/logo.png"},
					{"ImagePurpose": "Poster", "Uri": "https://cdn.example/poster.png"},
					{"ImagePurpose": "SuperHeroArt", "Uri": "https://cdn.example/super.png"},
					{"ImagePurpose": "TitledHeroArt", "Uri": "https://cdn.example/hero.png"}
				],
				"CMSVideos": [{"DASH": "https://cdn.example/trailer.mpd"}]
			}],
			"MarketProperties": [{"OriginalReleaseDate": "2017-09-28T00:00:00.0000000Z"}]
		},
		{
			"ProductId": "9P2N57MC619K",
			"LocalizedProperties": [{
				"ProductTitle": "Logoless",
				"Images": [
					{"ImagePurpose": "Poster", "Uri": "https://cdn.example/p2.png"},
					{"ImagePurpose": "SuperHeroArt", "Uri": "https://cdn.example/s2.png"}
				]
			}]
		}
	]
}`

func TestParseCatalogIds(t *testing.T) {
	ids, err := ParseCatalogIds(strings.NewReader(siglsPayload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids != "9NBLGGH4TNMP,9P2N57MC619K" {
		t.Fatalf("ids = %q", ids)
	}
}

func TestParseCatalogIds_Malformed(t *testing.T) {
	_, err := ParseCatalogIds(strings.NewReader("<html>"))
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestCreateXboxCatalog(t *testing.T) {
	catalog, err := CreateXboxCatalog(strings.NewReader(productsPayloadJson))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(catalog.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %v", len(catalog.Entries))
	}

	first := catalog.ByID["9NBLGGH4TNMP"]
	if first == nil {
		t.Fatal("missing entry for 9NBLGGH4TNMP")
	}
	if first.Title != "The Test Game" || first.Developer != "Test Studio" {
		t.Fatalf("bad metadata: %+v", first)
	}
	if first.SortTitle != "Test Game" {
		t.Fatalf("SortTitle = %q, want article stripped", first.SortTitle)
	}
	// protocol-relative urls get a scheme
	if first.LogoUrl != "https://cdn.example/logo.png" {
		t.Fatalf("LogoUrl = %q", first.LogoUrl)
	}
	// TitledHeroArt wins over SuperHeroArt
	if first.FanartUrl != "https://cdn.example/hero.png" {
		t.Fatalf("FanartUrl = %q", first.FanartUrl)
	}
	if first.VideoUrl != "https://cdn.example/trailer.mpd" {
		t.Fatalf("VideoUrl = %q", first.VideoUrl)
	}

	second := catalog.ByID["9P2N57MC619K"]
	if second == nil {
		t.Fatal("missing entry for 9P2N57MC619K")
	}
	// no Logo -> poster stands in; no TitledHeroArt -> SuperHeroArt stands in
	if second.LogoUrl != "https://cdn.example/p2.png" {
		t.Fatalf("LogoUrl fallback = %q", second.LogoUrl)
	}
	if second.FanartUrl != "https://cdn.example/s2.png" {
		t.Fatalf("FanartUrl fallback = %q", second.FanartUrl)
	}
}

func TestCreateXboxCatalog_Malformed(t *testing.T) {
	_, err := CreateXboxCatalog(strings.NewReader("oops"))
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestFingerprint_ChangesWithFields(t *testing.T) {
	a := CatalogEntry{Id: "9NBLGGH4TNMP", Title: "Game"}
	b := a
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("identical entries must share a fingerprint")
	}
	b.CoverUrl = "https://cdn.example/new.png"
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("changed entry must change the fingerprint")
	}
}
