package assets

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"colorfulez-server/network_state"
)

const sampleBundle = `{
  "prefabs": [
    {
      "name": "ez_straight_stripes",
      "position": [5, 1, 5],
      "rotation": [0, 0.7071068, 0, 0.7071068],
      "children": [
        {"name": "StripeA", "mesh": "Cube Instance", "color": "#FF0000", "position": [0, 1, 0]},
        {"name": "Bracket (ignore)", "mesh": "Cylinder", "children": [
          {"name": "Bolt", "mesh": "Sphere"}
        ]},
        {"name": "Disabled", "active": false, "mesh": "Cube", "children": [
          {"name": "Hidden", "mesh": "Cube"}
        ]},
        {"name": "Weird", "mesh": "Torus", "children": [
          {"name": "Lost", "mesh": "Cube"}
        ]}
      ]
    }
  ]
}`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestNewLoaderCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "assets")
	if _, err := NewLoader(dir); err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected assets directory to be created, stat err %v", err)
	}
}

func TestLoaderFilesAndLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ez_straight_stripes.json", sampleBundle)
	writeFile(t, dir, "ez_curve_stripes", `{"prefabs":[]}`)
	writeFile(t, dir, ".hidden", `{}`)
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	l, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	files, err := l.Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	want := []string{"ez_curve_stripes", "ez_straight_stripes"}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("Files() = %v, want %v", files, want)
	}

	b, err := l.Load("ez_straight_stripes")
	if err != nil {
		t.Fatalf("Load without extension: %v", err)
	}
	if _, err := b.Prefab("ez_straight_stripes"); err != nil {
		t.Fatalf("Prefab: %v", err)
	}
	if _, err := b.Prefab("nope"); !errors.Is(err, ErrPrefabNotFound) {
		t.Fatalf("expected ErrPrefabNotFound, got %v", err)
	}
	if _, err := l.Load("ez_curve_stripes"); err != nil {
		t.Fatalf("Load extensionless file: %v", err)
	}
	if _, err := l.Load("missing"); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestLoadRejectsMalformedBundle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{"prefabs": [`)
	l := &Loader{Dir: dir}
	if _, err := l.Load("broken"); err == nil || errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestFlatten(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ez_straight_stripes.json", sampleBundle)
	b, err := (&Loader{Dir: dir}).Load("ez_straight_stripes")
	if err != nil {
		t.Fatal(err)
	}
	prefab, _ := b.Prefab("ez_straight_stripes")

	descs, errs := Flatten(prefab)
	if len(errs) != 1 || !errors.Is(errs[0], ErrUnknownPrimitive) {
		t.Fatalf("expected a single ErrUnknownPrimitive, got %v", errs)
	}

	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = d.Name
	}
	want := []string{"ez_straight_stripes", "StripeA", "Bracket (ignore)", "Bolt"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("flattened names = %v, want %v", names, want)
	}

	root := descs[0]
	if root.HasMesh || root.Parent != -1 {
		t.Fatalf("unexpected root descriptor %+v", root)
	}
	if root.Local.Position.Len() != 0 || root.Local.Rotation.W != 1 {
		t.Fatalf("root transform must be reset, got %+v", root.Local)
	}

	stripe := descs[1]
	if !stripe.HasMesh || stripe.Primitive != network_state.Cube || stripe.Parent != 0 {
		t.Fatalf("unexpected stripe descriptor %+v", stripe)
	}
	if stripe.Color != (network_state.Color{R: 255, A: 255}) {
		t.Fatalf("stripe color = %+v", stripe.Color)
	}
	if stripe.Ignored {
		t.Fatalf("stripe must not be ignored")
	}

	if !descs[2].Ignored || descs[2].Color != network_state.White {
		t.Fatalf("bracket should be ignored and default white, got %+v", descs[2])
	}
	if descs[3].Parent != 2 || descs[3].Ignored {
		t.Fatalf("bolt keeps its own ignore flag and parent link, got %+v", descs[3])
	}
}

func TestFlattenInactiveRoot(t *testing.T) {
	off := false
	descs, errs := Flatten(&Node{Name: "root", Active: &off, Mesh: "Cube"})
	if len(descs) != 0 || len(errs) != 0 {
		t.Fatalf("inactive root must produce nothing, got %v %v", descs, errs)
	}
}

func TestFlattenBadColorKeepsNode(t *testing.T) {
	descs, errs := Flatten(&Node{Name: "root", Mesh: "Quad", Color: "#zzzzzz"})
	if len(descs) != 1 || len(errs) != 1 || !errors.Is(errs[0], network_state.ErrInvalidColor) {
		t.Fatalf("expected node kept with color error, got %v %v", descs, errs)
	}
	if descs[0].Color != network_state.White {
		t.Fatalf("bad color falls back to white, got %+v", descs[0].Color)
	}
}

func TestSaveRoundTrips(t *testing.T) {
	l, err := NewLoader(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	off := false
	b := &Bundle{Prefabs: []Node{{
		Name:     "ez_curve_stripes",
		Children: []Node{{Name: "Stripe", Mesh: "Cube", Color: "yellow", Active: &off}},
	}}}
	path, err := l.Save("ez_curve_stripes.json", b)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(path) != "ez_curve_stripes.json" {
		t.Fatalf("unexpected path %s", path)
	}
	got, err := l.Load("ez_curve_stripes")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p, err := got.Prefab("ez_curve_stripes")
	if err != nil {
		t.Fatalf("Prefab: %v", err)
	}
	if len(p.Children) != 1 || p.Children[0].IsActive() || p.Children[0].Color != "yellow" {
		t.Fatalf("bundle did not survive the round trip: %+v", p)
	}
}

func TestFilesListsExtensionVariantsOnce(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ez_straight_stripes", sampleBundle)
	writeFile(t, dir, "ez_straight_stripes.json", sampleBundle)
	writeFile(t, dir, "ez_curve_stripes.json", `{"prefabs":[]}`)

	l, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	files, err := l.Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	want := []string{"ez_curve_stripes", "ez_straight_stripes"}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("Files() = %v, want %v", files, want)
	}
}
