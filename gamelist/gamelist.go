package gamelist

import (
	"encoding/xml"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const (
	GAMELIST_FILENAME = "gamelist.xml"

	xmlHeader = "<?xml version=\"1.0\"?>\n"
)

// Managed entries point at a generated launch script named after the store
// product id (12 upper case alphanumerics)
var managedPathRegex = regexp.MustCompile(`^\./([0-9A-Z]{12})\.sh$`)

// MetadataError means the existing gamelist could not be parsed. The file is
// left untouched when this happens.
type MetadataError struct {
	Path  string
	Cause error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("failed to parse gamelist [%v] - %v", e.Path, e.Cause)
}

func (e *MetadataError) Unwrap() error { return e.Cause }

// Game is one managed gamelist node. Rating, Favorite, PlayCount and
// LastPlayed are owned by the frontend user and carried over on update.
type Game struct {
	XMLName     xml.Name `xml:"game"`
	Path        string   `xml:"path"`
	Name        string   `xml:"name"`
	SortName    string   `xml:"sortname,omitempty"`
	Desc        string   `xml:"desc,omitempty"`
	ReleaseDate string   `xml:"releasedate,omitempty"`
	Developer   string   `xml:"developer,omitempty"`
	Image       string   `xml:"image,omitempty"`
	Marquee     string   `xml:"marquee,omitempty"`
	Thumbnail   string   `xml:"thumbnail,omitempty"`
	Video       string   `xml:"video,omitempty"`
	Rating      string   `xml:"rating,omitempty"`
	Favorite    string   `xml:"favorite,omitempty"`
	PlayCount   string   `xml:"playcount,omitempty"`
	LastPlayed  string   `xml:"lastplayed,omitempty"`
}

// rawNode keeps a gameList child verbatim (name, attributes, body) so
// anything this sync doesn't manage survives a rewrite byte for byte. That
// covers hand-added games, scraper games with id/source attributes and
// frontend extras like <folder> nodes.
type rawNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   string     `xml:",innerxml"`
}

type gamelistDoc struct {
	XMLName xml.Name  `xml:"gameList"`
	Nodes   []rawNode `xml:",any"`
}

type Writer struct {
	path string
}

func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// ScriptPath returns the gamelist path value for a managed game id
func ScriptPath(id string) string {
	return "./" + id + ".sh"
}

// ManagedId extracts the game id from a gamelist path, or "" when the node
// belongs to another system or was added by hand
func ManagedId(path string) string {
	res := managedPathRegex.FindStringSubmatch(strings.TrimSpace(path))
	if len(res) != 2 {
		return ""
	}
	return res[1]
}

// ApplyDiff rewrites the gamelist so its managed entries equal exactly the
// given final set. Existing managed nodes keep their position (and their
// user-owned fields), removed ones are dropped, new ones are appended in sort
// order, and foreign nodes pass through untouched. The file is replaced via
// temp-then-rename.
func (w *Writer) ApplyDiff(finalSet []Game) error {
	existing, err := w.parseExisting()
	if err != nil {
		return err
	}

	finalById := map[string]*Game{}
	for i := range finalSet {
		id := ManagedId(finalSet[i].Path)
		if id != "" {
			finalById[id] = &finalSet[i]
		}
	}

	var nodes []string
	written := map[string]bool{}

	for _, raw := range existing {
		// managed nodes are <game> elements without attributes whose path
		// points at one of our generated scripts; everything else is foreign
		id := ""
		if raw.XMLName.Local == "game" && len(raw.Attrs) == 0 {
			id = ManagedId(nodePath(&raw))
		}
		if id == "" {
			nodes = append(nodes, "\t"+verbatimNode(&raw))
			continue
		}

		game, ok := finalById[id]
		if !ok {
			// stale managed node
			zap.S().Infof("removing gamelist entry for [%v]", id)
			continue
		}

		carryOverUserFields(raw.Inner, game)
		node, marshalErr := marshalGame(*game)
		if marshalErr != nil {
			return &MetadataError{Path: w.path, Cause: marshalErr}
		}
		nodes = append(nodes, node)
		written[id] = true
	}

	// new managed entries go at the end, ordered for stable output
	added := make([]*Game, 0, len(finalById))
	for id, game := range finalById {
		if !written[id] {
			added = append(added, game)
		}
	}
	sort.Slice(added, func(i, j int) bool {
		a, b := sortKey(added[i]), sortKey(added[j])
		if a != b {
			return a < b
		}
		return added[i].Path < added[j].Path
	})
	for _, game := range added {
		node, marshalErr := marshalGame(*game)
		if marshalErr != nil {
			return &MetadataError{Path: w.path, Cause: marshalErr}
		}
		nodes = append(nodes, node)
	}

	return w.writeAtomic(nodes)
}

func (w *Writer) parseExisting() ([]rawNode, error) {
	buf, err := os.ReadFile(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &MetadataError{Path: w.path, Cause: err}
	}

	var doc gamelistDoc
	if err := xml.Unmarshal(buf, &doc); err != nil {
		return nil, &MetadataError{Path: w.path, Cause: err}
	}
	return doc.Nodes, nil
}

func nodePath(node *rawNode) string {
	var fields struct {
		Path string `xml:"path"`
	}
	if err := xml.Unmarshal([]byte("<game>"+node.Inner+"</game>"), &fields); err != nil {
		return ""
	}
	return fields.Path
}

var attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", `"`, "&quot;")

// re-emit a foreign node exactly as parsed, attributes included
func verbatimNode(node *rawNode) string {
	var sb strings.Builder
	sb.WriteString("<" + node.XMLName.Local)
	for _, attr := range node.Attrs {
		sb.WriteString(" " + attr.Name.Local + `="` + attrEscaper.Replace(attr.Value) + `"`)
	}
	sb.WriteString(">")
	sb.WriteString(node.Inner)
	sb.WriteString("</" + node.XMLName.Local + ">")
	return sb.String()
}

// pull rating/favorite/playcount/lastplayed off the old node so a metadata
// update doesn't wipe what the user set in the frontend
func carryOverUserFields(inner string, game *Game) {
	var old Game
	if err := xml.Unmarshal([]byte("<game>"+inner+"</game>"), &old); err != nil {
		return
	}
	game.Rating = old.Rating
	game.Favorite = old.Favorite
	game.PlayCount = old.PlayCount
	game.LastPlayed = old.LastPlayed
}

func marshalGame(game Game) (string, error) {
	out, err := xml.MarshalIndent(game, "\t", "\t")
	if err != nil {
		return "", err
	}
	// MarshalIndent leaves the prefix off the opening tag's line
	return "\t" + string(out), nil
}

func (w *Writer) writeAtomic(nodes []string) error {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString("<gameList>\n")
	for _, node := range nodes {
		sb.WriteString(node)
		sb.WriteString("\n")
	}
	sb.WriteString("</gameList>\n")

	tmpPath := w.path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(sb.String()), 0644); err != nil {
		return &MetadataError{Path: tmpPath, Cause: err}
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		os.Remove(tmpPath)
		return &MetadataError{Path: w.path, Cause: err}
	}
	return nil
}

func sortKey(game *Game) string {
	if game.SortName != "" {
		return strings.ToLower(game.SortName)
	}
	return strings.ToLower(game.Name)
}
