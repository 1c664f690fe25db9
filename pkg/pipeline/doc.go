// Package pipeline transforms file system paths before they are copied to the clipboard.
//
// A Pipeline is an ordered list of elements. Each element rewrites the current path: quoting,
// URI encoding, slash conversion, find and replace, regular expressions, case conversion,
// environment unexpansion, drive labels, path part selection or symbolic link resolution.
// Stack elements save and restore intermediate paths within one application.
//
// Some elements are not applied to a path but describe how the result is used: the separator
// put between several paths, recursive folder copy, or an executable launched with the
// processed paths instead of copying them.
//
// Pipelines can reuse other pipelines through plugins. Plugins are identified by a UUID and
// resolved through a Resolver when the pipeline is applied. An Engine rejects plugins
// referencing themselves, directly or not, and limits the nesting depth.
//
// Pipelines have a compact text form, produced by Encode and parsed by Decode, which is the
// form plugins are persisted in.
package pipeline
