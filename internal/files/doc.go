// Package files turns the file declarations of a target (compact src/dest,
// a files object, or expanded files blocks) into concrete source to
// destination mappings by resolving glob patterns against the project.
package files
