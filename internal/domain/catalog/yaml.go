package catalog

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML catalog. Sections left out of the document keep their built-in content.
func Parse(data []byte) (*Catalog, error) {
	var doc Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	base := Default()
	if len(doc.Roles) == 0 {
		doc.Roles = base.Roles
	}
	if len(doc.Characters) == 0 {
		doc.Characters = base.Characters
	}
	if len(doc.Skills) == 0 {
		doc.Skills = base.Skills
	}
	inherited := len(doc.Cards) == 0
	if inherited {
		doc.Cards = base.Cards
	}
	// Built-in combos only make sense with built-in cards.
	if doc.Combos == nil && inherited {
		doc.Combos = base.Combos
	}
	if doc.ClueRules == nil {
		doc.ClueRules = base.ClueRules
	}
	if doc.Templates == nil {
		doc.Templates = base.Templates
	}
	if len(doc.Sources) == 0 {
		doc.Sources = base.Sources
	}

	if err := doc.Prepare(); err != nil {
		return nil, err
	}
	return &doc, nil
}
