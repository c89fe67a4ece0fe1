package css

import (
	"fmt"
	"strings"
	"testing"

	"spritesheet/layout"
)

func baseProps() Properties {
	return Properties{
		{Name: "background", Value: URL("montage.png") + " no-repeat"},
		{Name: "width", Value: "16px"},
		{Name: "height", Value: "16px"},
	}
}

var defaultSelectors = Selectors{Base: ".montage", Prefix: ".", Suffix: ""}

func TestGenerate_Text(t *testing.T) {
	images := NewImages([]string{"icons/a.png", "icons/b.png", "icons/c.png", "icons/d.png"})
	arr, err := layout.Resolve(len(images), layout.Request{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	sheet := Generate(images, arr, layout.TileSize{Width: 16, Height: 16}, defaultSelectors, baseProps())

	want := `.montage { background: url('montage.png') no-repeat; width: 16px; height: 16px; }
.montage.a { background-position: 0px 0px; }
.montage.b { background-position: -16px 0px; }
.montage.c { background-position: 0px -16px; }
.montage.d { background-position: -16px -16px; }
`
	if got := sheet.String(); got != want {
		t.Errorf("Generate() =\n%s\nwant\n%s", got, want)
	}
}

func TestGenerate_RuleCount(t *testing.T) {
	for n := 1; n <= 50; n++ {
		paths := make([]string, n)
		for i := range paths {
			paths[i] = fmt.Sprintf("img%d.png", i)
		}
		images := NewImages(paths)
		arr, err := layout.Resolve(n, layout.Request{})
		if err != nil {
			t.Fatalf("Resolve(%d) error = %v", n, err)
		}
		sheet := Generate(images, arr, layout.TileSize{Width: 8, Height: 8}, defaultSelectors, nil)
		if len(sheet.Rules) != n+1 {
			t.Fatalf("Generate() with %d images produced %d rules, want %d", n, len(sheet.Rules), n+1)
		}
		if lines := strings.Count(sheet.String(), "\n"); lines != n+1 {
			t.Fatalf("Generate() with %d images produced %d lines, want %d", n, lines, n+1)
		}
	}
}

func TestGenerate_Offset(t *testing.T) {
	images := NewImages([]string{"0.png", "1.png", "2.png", "3.png", "4.png", "5.png"})
	arr := layout.Arrangement{Cols: 3, Rows: 2}

	sheet := Generate(images, arr, layout.TileSize{Width: 16, Height: 16}, defaultSelectors, nil)

	got, ok := sheet.Rules[1+4].GetProperty(PropBackgroundPosition)
	if !ok {
		t.Fatal("expected background-position property")
	}
	if got != "-16px -16px" {
		t.Errorf("offset of ordinal 4 = %q, want %q", got, "-16px -16px")
	}
}

func TestGenerate_NonSquareTilesAndSuffix(t *testing.T) {
	images := NewImages([]string{"x.png", "y.png", "z.png"})
	arr := layout.Arrangement{Cols: 1, Rows: 3}
	sel := Selectors{Base: "i.sprite", Prefix: "-", Suffix: ":hover"}

	sheet := Generate(images, arr, layout.TileSize{Width: 10, Height: 20}, sel, Properties{{Name: "display", Value: "inline-block"}})

	want := `i.sprite:hover { display: inline-block; }
i.sprite-x:hover { background-position: 0px 0px; }
i.sprite-y:hover { background-position: 0px -20px; }
i.sprite-z:hover { background-position: 0px -40px; }
`
	if got := sheet.String(); got != want {
		t.Errorf("Generate() =\n%s\nwant\n%s", got, want)
	}
}

func TestGenerate_EscapedSelectors(t *testing.T) {
	images := NewImages([]string{"/tmp/my photo (1).png"})
	arr := layout.Arrangement{Cols: 1, Rows: 1}

	sheet := Generate(images, arr, layout.TileSize{Width: 16, Height: 16}, defaultSelectors, nil)

	if got, want := sheet.Rules[1].Selector, `.montage.my_photo_\(1\)`; got != want {
		t.Errorf("selector = %q, want %q", got, want)
	}
}

func TestGenerate_EmptyBaseRule(t *testing.T) {
	images := NewImages([]string{"a.png"})
	sheet := Generate(images, layout.Arrangement{Cols: 1, Rows: 1}, layout.TileSize{Width: 1, Height: 1}, defaultSelectors, nil)

	if got, want := sheet.String(), ".montage {  }\n.montage.a { background-position: 0px 0px; }\n"; got != want {
		t.Errorf("Generate() = %q, want %q", got, want)
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	images := NewImages([]string{"b c.png", "a#1.png", "z.png", "q(2).gif", "w.png"})
	arr, _ := layout.Resolve(len(images), layout.Request{Cols: 2})
	size := layout.TileSize{Width: 24, Height: 12}

	first := Generate(images, arr, size, defaultSelectors, baseProps()).String()
	second := Generate(images, arr, size, defaultSelectors, baseProps()).String()
	if first != second {
		t.Errorf("Generate() is not deterministic:\n%s\n---\n%s", first, second)
	}
}

func TestGenerate_DoesNotAliasBase(t *testing.T) {
	base := baseProps()
	sheet := Generate(NewImages([]string{"a.png"}), layout.Arrangement{Cols: 1, Rows: 1}, layout.TileSize{Width: 16, Height: 16}, defaultSelectors, base)

	sheet.Rules[0].Properties[0].Value = "changed"
	if base[0].Value == "changed" {
		t.Error("Generate() shares base properties with the caller")
	}
}

func TestNewImages(t *testing.T) {
	images := NewImages([]string{"dir/one.png", "two.gif", "/abs/three.svg"})
	want := []Image{{ID: "one.png", Index: 0}, {ID: "two.gif", Index: 1}, {ID: "three.svg", Index: 2}}
	if len(images) != len(want) {
		t.Fatalf("NewImages() returned %d entries, want %d", len(images), len(want))
	}
	for i := range want {
		if images[i] != want[i] {
			t.Errorf("NewImages()[%d] = %+v, want %+v", i, images[i], want[i])
		}
	}
}
