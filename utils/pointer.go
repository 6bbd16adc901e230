// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package utils

// BoolP returns a pointer to the given bool value.
// Usage:
//
//	ptr := utils.BoolP(true) // *bool pointing to true
func BoolP(val bool) *bool {
	return &val
}

// PBool returns the value of a *bool pointer, or false if the pointer is nil.
// Usage:
//
//	val := utils.PBool(ptr) // returns value pointed by ptr, or false if ptr is nil
func PBool(ptr *bool) bool {
	var val bool
	if ptr != nil {
		val = *ptr
	}
	return val
}
