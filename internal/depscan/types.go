// Package depscan implements the Dependency Extractor (§4.I): scanning an
// extracted mission's script, config, and descriptor files for equipment
// class identifiers and assembling a Mission Dependency Record (§3.8).
package depscan

// ReferenceKind classifies why an identifier showed up in a mission's
// dependency list.
type ReferenceKind string

const (
	KindDirectUsage       ReferenceKind = "direct-usage"
	KindParentDeclaration ReferenceKind = "parent-declaration"
	KindClassDefinition   ReferenceKind = "class-definition"
	KindComponentProperty ReferenceKind = "component-property"
)

// Reference is one (identifier, source-file, line, reference-kind) tuple.
type Reference struct {
	Identifier string
	SourceFile string
	Line       int
	Kind       ReferenceKind
	Context    string // human-readable origin, e.g. "Property: vest in CfgLoadout"
}

// Record is the Mission Dependency Record (§3.8): a mission's full
// reference list plus the derived set of identifiers that must come from
// outside the mission's own config.
type Record struct {
	MissionName string
	ArchiveKey  string
	References  []Reference
	ExternalIDs []string // sorted, stoplisted, deduplicated
}

// stoplist names structural/abstract base classes that are never
// themselves content the validator should flag as missing, grounded on
// the common_base_classes table in the original mission analyzer.
var stoplist = map[string]bool{
	"baseMan":      true,
	"Man":          true,
	"CAManBase":    true,
	"Civilian":     true,
	"Soldier":      true,
	"SoldierWB":    true,
	"SoldierEB":    true,
	"SoldierGB":    true,
	"CfgVehicles":  true,
	"CfgWeapons":   true,
	"CfgMagazines": true,
	"CfgAmmo":      true,
	"CfgPatches":   true,
	"CfgWorlds":    true,
}

// equipmentProperties is the property-name whitelist config overlays are
// scanned against (§4.I).
var equipmentProperties = map[string]bool{
	"vehicle": true, "weapon": true, "magazine": true, "item": true,
	"uniform": true, "vest": true, "backpack": true, "headgear": true,
	"goggles": true, "nvgoggles": true, "binoculars": true, "map": true,
	"gps": true, "radio": true, "compass": true, "watch": true,
	"primaryWeapon": true, "secondaryWeapon": true, "handgunWeapon": true,
}

// equipmentVerbs is the fixed roster of equipment-assignment verbs
// scanned for in .sqf scripts (§4.I).
var equipmentVerbs = map[string]bool{
	"addWeapon": true, "addMagazine": true, "addVest": true,
	"addBackpack": true, "addGoggles": true, "addHeadgear": true,
	"forceAddUniform": true, "addHeadgearItem": true, "addVestItem": true,
	"addBackpackItem": true,
}

// containerInitVerbs receive an array argument (often a variable
// reference) listing equipment identifiers to place into a container.
var containerInitVerbs = map[string]bool{
	"addItemToUniform": true, "addItemToVest": true, "addItemToBackpack": true,
	"addMagazines": true, "addWeaponCargo": true, "addMagazineCargo": true,
	"addBackpackCargo": true, "addItemCargo": true,
}
