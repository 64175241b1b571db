package project

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// RequirementDef is one document checklist item defined per stage in the
// static catalog. Read-only input to the engine.
type RequirementDef struct {
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	Required      bool     `json:"required" yaml:"required"`
	AcceptedTypes []string `json:"accepted_types" yaml:"accepted_types"`
	MaxSize       int64    `json:"max_size" yaml:"max_size"` // bytes; 0 means the global upload limit applies
}

// Accepts reports whether the definition allows the given media type.
// An empty accepted-types list allows anything.
func (def RequirementDef) Accepts(contentType string) bool {
	if len(def.AcceptedTypes) == 0 {
		return true
	}
	for _, t := range def.AcceptedTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

// Catalog holds the ordered requirement definitions per stage.
type Catalog struct {
	stages map[Stage][]RequirementDef
}

// Requirements returns the ordered definitions for the given stage.
func (c *Catalog) Requirements(stage Stage) []RequirementDef {
	return c.stages[stage]
}

// Get looks a definition up by stage and requirement id.
func (c *Catalog) Get(stage Stage, reqID string) (RequirementDef, bool) {
	for _, def := range c.stages[stage] {
		if def.ID == reqID {
			return def, true
		}
	}
	return RequirementDef{}, false
}

// Size returns the number of requirements defined for the stage.
func (c *Catalog) Size(stage Stage) int {
	return len(c.stages[stage])
}

var pdf = []string{"application/pdf"}

// DefaultCatalog is the built-in checklist used when no catalog file is configured.
func DefaultCatalog() *Catalog {
	return &Catalog{stages: map[Stage][]RequirementDef{
		StageFormalization: {
			{ID: "ficha_formalizacion", Name: "Ficha de formalización", Required: true, AcceptedTypes: pdf},
			{ID: "carta_compromiso", Name: "Carta de compromiso", Required: true, AcceptedTypes: pdf},
			{ID: "plan_trabajo", Name: "Plan de trabajo", Required: true, AcceptedTypes: pdf},
			{ID: "acta_constitucion", Name: "Acta de constitución", Required: true, AcceptedTypes: pdf},
		},
		StageDesign: {
			{ID: "documento_diseno", Name: "Documento de diseño", Required: true, AcceptedTypes: pdf},
			{ID: "modelo_datos", Name: "Modelo de datos", Required: true, AcceptedTypes: pdf},
			{ID: "prototipo_interfaz", Name: "Prototipo de interfaz", Required: false, AcceptedTypes: pdf},
		},
		StageDelivery: {
			{ID: "codigo_fuente", Name: "Código fuente", Required: true,
				AcceptedTypes: []string{"application/zip", "application/x-zip-compressed"}, MaxSize: 100 << 20},
			{ID: "manual_usuario", Name: "Manual de usuario", Required: true, AcceptedTypes: pdf},
			{ID: "informe_final", Name: "Informe final", Required: true, AcceptedTypes: pdf},
		},
		StageOperation: {
			{ID: "acta_puesta_operacion", Name: "Acta de puesta en operación", Required: true, AcceptedTypes: pdf},
			{ID: "plan_capacitacion", Name: "Plan de capacitación", Required: true, AcceptedTypes: pdf},
		},
		StageMaintenance: {
			{ID: "plan_mantenimiento", Name: "Plan de mantenimiento", Required: true, AcceptedTypes: pdf},
			{ID: "acta_cierre", Name: "Acta de cierre", Required: true, AcceptedTypes: pdf},
		},
	}}
}

// LoadCatalog reads a stage→requirements mapping from a YAML file.
// Unknown stage identifiers and duplicate requirement ids are rejected.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading catalog %s", path)
	}

	var parsed map[string][]RequirementDef
	if err = yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, errors.Wrapf(err, "parsing catalog %s", path)
	}

	cat := &Catalog{stages: make(map[Stage][]RequirementDef, len(parsed))}
	for rawStage, defs := range parsed {
		stage := Stage(rawStage)
		if !stage.IsValid() {
			return nil, errors.Errorf("catalog %s: unknown stage %q", path, rawStage)
		}
		seen := make(map[string]bool, len(defs))
		for _, def := range defs {
			if def.ID == "" {
				return nil, errors.Errorf("catalog %s: stage %q has a requirement without an id", path, rawStage)
			}
			if seen[def.ID] {
				return nil, errors.Errorf("catalog %s: stage %q defines requirement %q twice", path, rawStage, def.ID)
			}
			seen[def.ID] = true
		}
		cat.stages[stage] = defs
	}
	return cat, nil
}
