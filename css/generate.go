package css

import (
	"path/filepath"
	"strconv"

	"spritesheet/layout"
)

// PropBackgroundPosition is the only property emitted for individual tiles.
const PropBackgroundPosition = "background-position"

// Selectors holds string fragments used to build rule selectors. Base rule
// selector is Base+Suffix, image rule selector is Base+Prefix+class+Suffix.
type Selectors struct {
	Base   string
	Prefix string
	Suffix string
}

// Image is a single sheet entry. Index is 0-based position in the input
// sequence and determines tile placement.
type Image struct {
	ID    string
	Index int
}

// NewImages builds image entries from file paths keeping their order,
// identifiers are file base names.
func NewImages(paths []string) []Image {
	images := make([]Image, 0, len(paths))
	for i, p := range paths {
		images = append(images, Image{ID: filepath.Base(p), Index: i})
	}
	return images
}

// Generate builds sprite sheet stylesheet: one base rule with base properties
// followed by one rule per image carrying its background offset.
// Arrangement must be resolved for exactly len(images) entries.
func Generate(images []Image, arr layout.Arrangement, size layout.TileSize, sel Selectors, base Properties) *Stylesheet {
	sheet := &Stylesheet{Rules: make([]Rule, 0, len(images)+1)}

	baseProps := make(Properties, len(base))
	copy(baseProps, base)
	sheet.Rules = append(sheet.Rules, Rule{
		Selector:   sel.Base + sel.Suffix,
		Properties: baseProps,
	})

	for _, img := range images {
		left, top := arr.Offset(img.Index, size)
		sheet.Rules = append(sheet.Rules, Rule{
			Selector: sel.Base + sel.Prefix + ClassName(img.ID) + sel.Suffix,
			Properties: Properties{
				{Name: PropBackgroundPosition, Value: px(left) + " " + px(top)},
			},
		})
	}
	return sheet
}

func px(v int) string {
	return strconv.Itoa(v) + "px"
}
