package stove

import "github.com/nerrad567/gray-hearth/internal/world"

// Terrain is the block map a registry keeps stove blocks in. A Level that
// also implements Terrain makes placed stoves solid for the stoves around
// them.
type Terrain interface {
	Block(pos world.BlockPos) string
	SetBlock(pos world.BlockPos, name string)
}

// boundLevel pairs a world with the catalog its stoves cook from.
type boundLevel struct {
	World
	catalog Catalog
}

func (l boundLevel) Recipes() Catalog {
	return l.catalog
}

// Bind returns a Level backed by w that resolves recipes from catalog.
// A nil catalog is allowed; stoves then accept and cook nothing.
func Bind(w World, catalog Catalog) Level {
	return boundLevel{World: w, catalog: catalog}
}

// Block forwards to the bound world when it has a block map, and reports
// air otherwise.
func (l boundLevel) Block(pos world.BlockPos) string {
	if t, ok := l.World.(Terrain); ok {
		return t.Block(pos)
	}
	return world.BlockAir
}

// SetBlock forwards to the bound world when it has a block map.
func (l boundLevel) SetBlock(pos world.BlockPos, name string) {
	if t, ok := l.World.(Terrain); ok {
		t.SetBlock(pos, name)
	}
}
