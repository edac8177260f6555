// Package sassdoc extracts documentation from "///" comment blocks in SCSS
// sources and renders it as an HTML page and a JSON index.
//
// A comment block documents the function, mixin, placeholder or variable
// declared on the line that follows it. Lines starting with an annotation
// such as @param or @example are parsed; the remaining text is the Markdown
// description. Blocks written with "////" are poster comments whose @group,
// @access and @author apply to every item of the file.
package sassdoc
