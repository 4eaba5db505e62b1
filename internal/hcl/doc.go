// Package hcl provides the concrete HCL implementation of config.Loader.
// It is responsible for discovering .hcl files, parsing and decoding them
// with an evaluation context of helper functions, and translating the
// decoded blocks into the format-agnostic config.Model.
package hcl
