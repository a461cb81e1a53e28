// Package world provides the level that devices live in.
//
// It is deliberately small: a sparse map of named blocks with collision
// shapes, a seeded random source, loose item entities and a particle buffer.
// Devices use it through narrow interfaces (see internal/stove.Level) so
// tests can substitute fakes.
//
// Coordinates follow the usual voxel convention: Y is up, a block occupies
// [x, x+1) on each axis, and shapes are expressed in block-local units
// (Pixels builds them from sixteenths).
package world
