package project_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rmarban/approvio/core/project"
)

func TestDefaultCatalog(t *testing.T) {
	cat := project.DefaultCatalog()

	wantSizes := map[project.Stage]int{
		project.StageFormalization: 4,
		project.StageDesign:        3,
		project.StageDelivery:      3,
		project.StageOperation:     2,
		project.StageMaintenance:   2,
	}
	for stage, want := range wantSizes {
		if got := cat.Size(stage); got != want {
			t.Errorf("Size(%s) = %d; want %d", stage, got, want)
		}
	}

	def, ok := cat.Get(project.StageFormalization, "ficha_formalizacion")
	if !ok {
		t.Fatal("ficha_formalizacion not found")
	}
	if !def.Accepts("application/pdf") {
		t.Error("ficha_formalizacion rejects application/pdf")
	}
	if def.Accepts("image/png") {
		t.Error("ficha_formalizacion accepts image/png")
	}

	src, ok := cat.Get(project.StageDelivery, "codigo_fuente")
	if !ok {
		t.Fatal("codigo_fuente not found")
	}
	if src.MaxSize != 100<<20 {
		t.Errorf("codigo_fuente MaxSize = %d; want %d", src.MaxSize, 100<<20)
	}

	if _, ok = cat.Get(project.StageDesign, "ficha_formalizacion"); ok {
		t.Error("Get() found a requirement under the wrong stage")
	}
}

func TestRequirementDef_Accepts(t *testing.T) {
	anything := project.RequirementDef{ID: "free"}
	if !anything.Accepts("application/x-whatever") {
		t.Error("empty accepted-types list should allow anything")
	}
}

func TestLoadCatalog(t *testing.T) {
	writeCatalog := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "catalog.yml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing catalog: %v", err)
		}
		return path
	}

	t.Run("ok", func(t *testing.T) {
		path := writeCatalog(t, `
formalization:
  - id: ficha
    name: Ficha
    required: true
    accepted_types: [application/pdf]
design:
  - id: wireframes
    name: Wireframes
    max_size: 1048576
`)
		cat, err := project.LoadCatalog(path)
		if err != nil {
			t.Fatalf("LoadCatalog() failed: %v", err)
		}
		if cat.Size(project.StageFormalization) != 1 {
			t.Errorf("Size(formalization) = %d; want 1", cat.Size(project.StageFormalization))
		}
		def, ok := cat.Get(project.StageDesign, "wireframes")
		if !ok {
			t.Fatal("wireframes not found")
		}
		if def.MaxSize != 1048576 {
			t.Errorf("MaxSize = %d; want 1048576", def.MaxSize)
		}
	})

	t.Run("unknown stage", func(t *testing.T) {
		path := writeCatalog(t, `
inception:
  - id: pitch
`)
		if _, err := project.LoadCatalog(path); err == nil {
			t.Error("LoadCatalog() accepted an unknown stage")
		}
	})

	t.Run("duplicate requirement", func(t *testing.T) {
		path := writeCatalog(t, `
design:
  - id: wireframes
  - id: wireframes
`)
		if _, err := project.LoadCatalog(path); err == nil {
			t.Error("LoadCatalog() accepted a duplicate requirement id")
		}
	})

	t.Run("missing id", func(t *testing.T) {
		path := writeCatalog(t, `
design:
  - name: Wireframes
`)
		if _, err := project.LoadCatalog(path); err == nil {
			t.Error("LoadCatalog() accepted a requirement without an id")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := project.LoadCatalog(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
			t.Error("LoadCatalog() accepted a missing file")
		}
	})
}
