package db

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// A single streamable game as reported by the catalog endpoints.
// Immutable once parsed, one per remote game per sync pass.
type CatalogEntry struct {
	Id          string
	Title       string
	SortTitle   string
	Description string
	Developer   string
	ReleaseDate string
	LogoUrl     string
	CoverUrl    string
	FanartUrl   string
	VideoUrl    string
}

type XboxCatalog struct {
	Entries []CatalogEntry
	ByID    map[string]*CatalogEntry
}

// sigls v2 returns a JSON array where the first element is a description
// object without an id, followed by {"id": "..."} items
type siglsItem struct {
	Id string `json:"id"`
}

type productsPayload struct {
	Products []productItem `json:"Products"`
}

type productItem struct {
	ProductId           string `json:"ProductId"`
	LocalizedProperties []struct {
		ProductTitle     string `json:"ProductTitle"`
		ShortDescription string `json:"ShortDescription"`
		DeveloperName    string `json:"DeveloperName"`
		Images           []struct {
			ImagePurpose string `json:"ImagePurpose"`
			Uri          string `json:"Uri"`
		} `json:"Images"`
		CMSVideos []struct {
			DASH string `json:"DASH"`
		} `json:"CMSVideos"`
	} `json:"LocalizedProperties"`
	MarketProperties []struct {
		OriginalReleaseDate string `json:"OriginalReleaseDate"`
	} `json:"MarketProperties"`
}

// Parse the sigls id list payload into the comma separated id string the
// products endpoint expects
func ParseCatalogIds(siglsReader io.Reader) (string, error) {
	var items []siglsItem
	if err := decodeToJsonObject(siglsReader, &items); err != nil {
		return "", &ParseError{Source: "catalog id list", Cause: err}
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.Id != "" {
			ids = append(ids, item.Id)
		}
	}
	return strings.Join(ids, ","), nil
}

// Build the catalog from the products payload
func CreateXboxCatalog(productsReader io.Reader) (*XboxCatalog, error) {
	var payload productsPayload
	if err := decodeToJsonObject(productsReader, &payload); err != nil {
		return nil, &ParseError{Source: "catalog products", Cause: err}
	}

	result := XboxCatalog{ByID: map[string]*CatalogEntry{}}
	for _, item := range payload.Products {
		if item.ProductId == "" || len(item.LocalizedProperties) == 0 {
			continue
		}
		props := item.LocalizedProperties[0]

		entry := CatalogEntry{
			Id:          item.ProductId,
			Title:       props.ProductTitle,
			SortTitle:   sortTitle(props.ProductTitle),
			Description: props.ShortDescription,
			Developer:   props.DeveloperName,
		}
		if len(item.MarketProperties) > 0 {
			entry.ReleaseDate = item.MarketProperties[0].OriginalReleaseDate
		}

		//image purposes:
		//Logo -> marquee, Poster/BoxArt -> cover, TitledHeroArt -> fanart
		//SuperHeroArt only counts when no TitledHeroArt exists
		var poster, boxArt, superHero string
		for _, image := range props.Images {
			uri := normalizeUrl(image.Uri)
			switch image.ImagePurpose {
			case "Logo":
				entry.LogoUrl = uri
			case "Poster":
				poster = uri
			case "BoxArt":
				boxArt = uri
			case "TitledHeroArt":
				entry.FanartUrl = uri
			case "SuperHeroArt":
				superHero = uri
			}
		}
		entry.CoverUrl = poster
		if entry.CoverUrl == "" {
			entry.CoverUrl = boxArt
		}
		if entry.LogoUrl == "" {
			entry.LogoUrl = poster
		}
		if entry.FanartUrl == "" {
			entry.FanartUrl = superHero
		}

		for _, video := range props.CMSVideos {
			if video.DASH != "" {
				entry.VideoUrl = normalizeUrl(video.DASH)
				break
			}
		}

		result.Entries = append(result.Entries, entry)
	}

	for i := range result.Entries {
		result.ByID[result.Entries[i].Id] = &result.Entries[i]
	}

	return &result, nil
}

// Fingerprint hashes the entry fields so metadata changes can be detected
// without redownloading anything
func (e *CatalogEntry) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%v|%v|%v|%v|%v|%v|%v|%v|%v",
		e.Id, e.Title, e.Description, e.Developer, e.ReleaseDate,
		e.LogoUrl, e.CoverUrl, e.FanartUrl, e.VideoUrl)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func normalizeUrl(url string) string {
	if strings.HasPrefix(url, "//") {
		return "https:" + url
	}
	return url
}

// ES-DE sorts case sensitively, so fold leading articles away
func sortTitle(title string) string {
	lower := strings.ToLower(title)
	for _, article := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(lower, article) {
			return strings.TrimSpace(title[len(article):])
		}
	}
	return title
}

func decodeToJsonObject(reader io.Reader, target interface{}) error {
	err := json.NewDecoder(reader).Decode(target)
	return err
}
