// Package scss compiles a practical subset of SCSS to CSS.
//
// The compiler works in three passes: a statement parser builds a tree of
// rules, declarations and directives; the evaluator walks that tree with
// lexical variable scopes, expanding mixins, control flow and imports into a
// flat CSS tree; finally @extend is applied and the tree is serialized in
// the requested output style.
//
// Supported: variables (!default, !global), nesting with &, interpolation,
// @import of partials, @mixin/@include/@content, @function/@return,
// @if/@else, @each, @for, @while, @media bubbling, placeholder selectors,
// @extend, number arithmetic with units and a set of colour, number, string
// and list functions. Maps, @use and @forward are not supported.
package scss
