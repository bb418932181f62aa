// Package department declares the assistants of the cooperative: the primary
// router and one specialist per department, with their prompts and tools.
//
// Build turns the catalog into the assistants the dialog engine runs.
package department
