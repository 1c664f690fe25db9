// Package model provides the data structures shared by the pipeline package and its options.
// It defines host versions, plugin edit modes, the description of a running element
// and the hook interface implemented by pipeline options such as measure and drawer.
package model
