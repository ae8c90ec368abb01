// Package checklist resolves checklist templates for work orders and models the
// optimistic checklist board used by interactive clients.
package checklist

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/rpattn/maintops/internal/domain"
)

//go:embed templates.yaml
var embeddedTemplates []byte

// Source reports which rule picked a template.
type Source string

const (
	SourceEquipment Source = "equipment"
	SourceKeyword   Source = "keyword"
	SourceDefault   Source = "default"
)

// TemplateItem is one line of a checklist template.
type TemplateItem struct {
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

// Template is the ordered item set for one equipment type.
type Template struct {
	Type     domain.EquipmentType `yaml:"type"`
	Keywords []string             `yaml:"keywords"`
	Items    []TemplateItem       `yaml:"items"`
}

// Resolution is the template chosen for a work order.
type Resolution struct {
	Source Source
	Type   domain.EquipmentType
	Items  []TemplateItem
}

// Catalog holds every template plus the generic fallback.
type Catalog struct {
	Templates []Template     `yaml:"templates"`
	Default   []TemplateItem `yaml:"default"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// DefaultCatalog returns the embedded template catalog.
func DefaultCatalog() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = ParseCatalog(embeddedTemplates)
	})
	return defaultCatalog, defaultErr
}

// ParseCatalog decodes and validates a YAML template catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("checklist: template payload is empty")
	}
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("checklist: decode templates: %w", err)
	}
	if len(catalog.Default) == 0 {
		return nil, fmt.Errorf("checklist: default template is empty")
	}
	seen := map[domain.EquipmentType]bool{}
	for i, template := range catalog.Templates {
		equipmentType, err := domain.ParseEquipmentType(string(template.Type))
		if err != nil {
			return nil, fmt.Errorf("checklist: template %d: %w", i, err)
		}
		if seen[equipmentType] {
			return nil, fmt.Errorf("checklist: duplicate template for %s", equipmentType)
		}
		if len(template.Items) == 0 {
			return nil, fmt.Errorf("checklist: template %s has no items", equipmentType)
		}
		seen[equipmentType] = true
		catalog.Templates[i].Type = equipmentType
		for k, keyword := range template.Keywords {
			catalog.Templates[i].Keywords[k] = domain.FoldLabel(keyword)
		}
	}
	return &catalog, nil
}

// Resolve picks a template. The linked equipment's type wins; otherwise the
// first template with a keyword starting a word of any of texts; otherwise the
// default.
func (c *Catalog) Resolve(equipmentType domain.EquipmentType, texts ...string) Resolution {
	if equipmentType != "" {
		for _, template := range c.Templates {
			if template.Type == equipmentType {
				return Resolution{Source: SourceEquipment, Type: template.Type, Items: template.Items}
			}
		}
	}

	folded := make([]string, 0, len(texts))
	for _, text := range texts {
		if value := domain.FoldLabel(text); value != "" {
			folded = append(folded, value)
		}
	}
	for _, template := range c.Templates {
		for _, keyword := range template.Keywords {
			if keyword == "" {
				continue
			}
			for _, text := range folded {
				if matchesWord(text, keyword) {
					return Resolution{Source: SourceKeyword, Type: template.Type, Items: template.Items}
				}
			}
		}
	}

	return Resolution{Source: SourceDefault, Items: c.Default}
}

// matchesWord reports whether keyword begins at a word boundary of the folded
// text. Keywords are stems, so "electric" matches "electrica" but "ups" does not
// match "grupos".
func matchesWord(text, keyword string) bool {
	return strings.HasPrefix(text, keyword) || strings.Contains(text, "_"+keyword)
}

// ItemsFor resolves the template for wo and renders it as unsaved checklist rows
// numbered from 1. equipment may be nil when the work order has no link.
func (c *Catalog) ItemsFor(wo domain.WorkOrder, equipment *domain.Equipment) (Resolution, []domain.ChecklistItem) {
	var equipmentType domain.EquipmentType
	if equipment != nil {
		equipmentType = equipment.Type
	}
	resolution := c.Resolve(equipmentType, wo.MaintenanceType, wo.EquipmentType)

	items := make([]domain.ChecklistItem, 0, len(resolution.Items))
	for i, entry := range resolution.Items {
		items = append(items, domain.ChecklistItem{
			ID:          uuid.New(),
			WorkOrderID: wo.ID,
			Position:    i + 1,
			Description: entry.Description,
			Required:    entry.Required,
		})
	}
	return resolution, items
}
