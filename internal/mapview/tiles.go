package mapview

import (
	"fmt"
	"sort"
	"strings"
)

type Tiles struct {
	Name        string
	URL         string
	Attribution string
	MaxZoom     int
}

const DefaultTiles = "cartodbpositron"

var tileSets = map[string]Tiles{
	"cartodbpositron": {
		Name:        "cartodbpositron",
		URL:         "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png",
		Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`,
		MaxZoom:     20,
	},
	"openstreetmap": {
		Name:        "openstreetmap",
		URL:         "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
		MaxZoom:     19,
	},
}

// TilesByName looks up a named basemap, case-insensitively.
func TilesByName(name string) (Tiles, error) {
	if name == "" {
		name = DefaultTiles
	}
	t, ok := tileSets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Tiles{}, fmt.Errorf("unknown tiles %q (want one of %s)", name, strings.Join(TileNames(), ", "))
	}
	return t, nil
}

func TileNames() []string {
	names := make([]string, 0, len(tileSets))
	for n := range tileSets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
