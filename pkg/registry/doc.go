// Package registry keeps the plugins a pipeline can reference.
//
// A Registry resolves plugins by id for the pipeline engine and tracks which plugins
// reference which in a directed graph. Registering a pipeline plugin that would make the
// graph cyclic is rejected, so a registry never holds plugins referencing each other in a
// loop. Registries are persisted as YAML.
package registry
