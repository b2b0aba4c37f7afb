// Package config loads, validates, and defaults the TOML configuration for
// the audio-processing tools.
//
// Configuration resolves from an explicit --config path, then
// ~/.config/audioproc/config.toml, then an audioproc.toml in the working
// directory. All path fields are tilde-expanded and made absolute during
// normalization, and validation rejects unusable pipeline limits before any
// stage starts.
package config
