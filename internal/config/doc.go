// Package config provides configuration structures and utilities for poserisk.
// It defines the command-line options for an analysis run and the YAML
// configuration file that tunes the window, joints, rules, model and the
// external decoder, detector and generation services.
package config
