package jdwp

import "math"

func math4(bits uint32) float32    { return math.Float32frombits(bits) }
func math8(bits uint64) float64    { return math.Float64frombits(bits) }
func math4bits(f float32) uint32   { return math.Float32bits(f) }
func math8bits(f float64) uint64   { return math.Float64bits(f) }
