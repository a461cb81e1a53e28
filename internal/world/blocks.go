package world

// Block names known to the world. Anything else is treated as a full cube.
const (
	BlockAir     = "air"
	BlockStone   = "stone"
	BlockSlab    = "slab"
	BlockTopSlab = "top_slab"
	BlockCarpet  = "carpet"
	BlockTorch   = "torch"
	BlockLantern = "lantern"
	BlockStove   = "stove"
)

var fullCube = Shape{Pixels(0, 0, 0, 16, 16, 16)}

// shapes maps block names to their collision shape.
var shapes = map[string]Shape{
	BlockAir:     nil,
	BlockStone:   fullCube,
	BlockStove:   fullCube,
	BlockSlab:    {Pixels(0, 0, 0, 16, 8, 16)},
	BlockTopSlab: {Pixels(0, 8, 0, 16, 16, 16)},
	BlockCarpet:  {Pixels(0, 0, 0, 16, 1, 16)},
	BlockTorch:   {Pixels(6, 0, 6, 10, 10, 10)},
	BlockLantern: {Pixels(5, 0, 5, 11, 7, 11), Pixels(6, 7, 6, 10, 9, 10)},
}

// ShapeOf returns the collision shape of the named block.
func ShapeOf(name string) Shape {
	if s, ok := shapes[name]; ok {
		return s
	}
	return fullCube
}

// KnownBlock reports whether name has a registered shape.
func KnownBlock(name string) bool {
	_, ok := shapes[name]
	return ok
}
