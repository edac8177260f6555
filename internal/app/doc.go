// Package app wires a build together: it loads the Gridfile and the package
// manifest, registers the compiled-in tasks, validates the configuration
// against them and runs the requested invocations. It is decoupled from any
// specific entrypoint like a CLI.
package app
