// Package hcl provides the concrete HCL implementation for the configuration
// loading and data conversion interfaces defined in the `config` package.
// It is responsible for Gridfile parsing, HCL-to-model translation, the
// expression context (variables and functions) and CTY-to-Go data binding.
package hcl
