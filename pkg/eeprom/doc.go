// Package eeprom reads and writes motherboard EEPROM contents.
//
// Three layouts are supported (N100, B000, E100). Contents are exposed as a
// string map, matching how the fields are shown to users and stored in the
// property tree. Publish mirrors the map into a tree subtree and commits
// client writes back through the I2C bus.
package eeprom
