package systems

import (
	"fmt"

	"github.com/pthm-cable/organoid/cell"
)

// ModuleInfo describes a module type for summaries and telemetry.
type ModuleInfo struct {
	ID          string // Stable identifier
	Name        string // Display name
	Description string // What the module mutates
	Category    string // "predicted" or "logic"
}

// ModuleRegistry holds metadata about all module types.
type ModuleRegistry struct {
	modules []ModuleInfo
	byID    map[string]ModuleInfo
}

// NewModuleRegistry creates a registry with all known modules.
func NewModuleRegistry() *ModuleRegistry {
	reg := &ModuleRegistry{
		byID: make(map[string]ModuleInfo),
	}
	reg.registerDefaults()
	return reg
}

// registerDefaults adds the built-in modules. Update this when adding modules.
func (r *ModuleRegistry) registerDefaults() {
	r.Register(ModuleInfo{ID: "spiking", Name: "Spiking", Description: "Adds prediction to membrane potential", Category: "predicted"})
	r.Register(ModuleInfo{ID: "growth", Name: "Growth/Shrinkage", Description: "Grows or shrinks cell volume", Category: "predicted"})
	r.Register(ModuleInfo{ID: "differentiation", Name: "Differentiation", Description: "Assigns a discrete cell state", Category: "predicted"})
	r.Register(ModuleInfo{ID: "chemotaxis", Name: "Chemotaxis", Description: "Moves cell along a gradient", Category: "predicted"})
	r.Register(ModuleInfo{ID: "immune", Name: "Immune Response", Description: "Activates or deactivates cell", Category: "predicted"})
	r.Register(ModuleInfo{ID: "metabolic", Name: "Metabolism", Description: "Scales cell energy", Category: "predicted"})
	r.Register(ModuleInfo{ID: "gene_regulation", Name: "Gene Regulation", Description: "Scales expression level with noise", Category: "predicted"})
	r.Register(ModuleInfo{ID: "plasticity", Name: "Synaptic Plasticity", Description: "Adapts synapse weight from spike pairing", Category: "logic"})
}

// Register adds a module to the registry.
func (r *ModuleRegistry) Register(info ModuleInfo) {
	r.modules = append(r.modules, info)
	r.byID[info.ID] = info
}

// Get returns module info by ID.
func (r *ModuleRegistry) Get(id string) (ModuleInfo, bool) {
	info, ok := r.byID[id]
	return info, ok
}

// GetName returns the display name for a module ID.
// Falls back to the ID itself if not found.
func (r *ModuleRegistry) GetName(id string) string {
	if info, ok := r.byID[id]; ok {
		return info.Name
	}
	return id
}

// All returns all registered modules.
func (r *ModuleRegistry) All() []ModuleInfo {
	return r.modules
}

// ByCategory returns modules filtered by category.
func (r *ModuleRegistry) ByCategory(category string) []ModuleInfo {
	var result []ModuleInfo
	for _, info := range r.modules {
		if info.Category == category {
			result = append(result, info)
		}
	}
	return result
}

// ModuleID returns the registry ID of a module value.
func ModuleID(m cell.Module) string {
	switch m.(type) {
	case *SpikingModule:
		return "spiking"
	case *GrowthModule:
		return "growth"
	case *DifferentiationModule:
		return "differentiation"
	case *ChemotaxisModule:
		return "chemotaxis"
	case *ImmuneModule:
		return "immune"
	case *MetabolicModule:
		return "metabolic"
	case *GeneRegulationModule:
		return "gene_regulation"
	case *PlasticityModule:
		return "plasticity"
	}
	return fmt.Sprintf("%T", m)
}
